package main

import (
	"fmt"
	"log/slog"

	"github.com/phrazzld/scry-reader/internal/config"
	"github.com/phrazzld/scry-reader/internal/platform/logger"
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "scry-reader",
	Short: "Turn long documents into chapters, summaries and spaced reminders",
	Long: `scry-reader ingests long-form documents, splits them into chapters with
an LLM, writes a summary and quiz for each chapter, and sends spaced-repetition
reminders to the learner tracking the document.

Configuration comes from config.yaml (or --config) and SCRY_* environment
variables; the environment wins.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml when present)",
	)
}

// loadConfig reads the configuration and installs the configured logger.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.LoadFile(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	l, err := logger.Setup(cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	l.Debug("configuration loaded",
		"port", cfg.Server.Port,
		"llm_provider", cfg.LLM.Provider,
		"blob_backend", cfg.Ingestion.Blob.Backend,
		"messaging_backend", cfg.Messaging.Backend)
	return cfg, l, nil
}
