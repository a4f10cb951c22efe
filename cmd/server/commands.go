package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-reader/internal/auth"
	"github.com/phrazzld/scry-reader/internal/config"
	"github.com/phrazzld/scry-reader/internal/domain"
	"github.com/phrazzld/scry-reader/internal/platform/postgres"
	"github.com/spf13/cobra"
)

var (
	serveMigrate bool

	ingestLearner string
	ingestItem    string

	tokenLearner string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, the ingestion workers and the reminder scheduler",
	Long: `Run the HTTP API together with the document ingestion workers and the
periodic reminder scan. Unfinished ingestion tasks from a previous run are
recovered on start. SIGINT or SIGTERM shuts everything down gracefully.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApplication(cmd.Context(), func(ctx context.Context, app *application) error {
			if serveMigrate {
				if err := postgres.Migrate(ctx, app.db, postgres.MigrateUp, app.logger); err != nil {
					return err
				}
			}
			return app.run(ctx)
		})
	},
}

var migrateCmd = &cobra.Command{
	Use:       "migrate [up|down|reset|status|version]",
	Short:     "Apply or inspect database migrations",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{postgres.MigrateUp, postgres.MigrateDown, postgres.MigrateReset, postgres.MigrateStatus, postgres.MigrateVersion},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		db, err := openDatabase(cmd.Context(), cfg.Database, logger)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		return postgres.Migrate(cmd.Context(), db, args[0], logger)
	},
}

var ingestCmd = &cobra.Command{
	Use:   "ingest --learner ID [--item ID] FILE",
	Short: "Ingest one document synchronously and print the result",
	Long: `Extract FILE, resolve its chapters, and write a summary and quiz for each
chapter. With --item the chapters belong to that tracked item and its reminders
are rescheduled; the item must not already be processing.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		learnerID, err := parseIDFlag("learner", ingestLearner)
		if err != nil {
			return err
		}
		var itemID uuid.UUID
		if ingestItem != "" {
			if itemID, err = parseIDFlag("item", ingestItem); err != nil {
				return err
			}
		}

		return withApplication(cmd.Context(), func(ctx context.Context, app *application) error {
			owner := domain.OwnerRef{LearnerID: learnerID}
			if itemID != uuid.Nil {
				if _, err := app.trackedItems.BeginIngestion(ctx, learnerID, itemID); err != nil {
					return err
				}
				owner = domain.NewOwnerRef(learnerID, itemID)
			}

			result, err := app.ingestion.ProcessFile(ctx, args[0], owner)
			if printErr := printJSON(cmd.OutOrStdout(), result); printErr != nil {
				return errors.Join(err, printErr)
			}
			return err
		})
	},
}

var dispatchCmd = &cobra.Command{
	Use:   "dispatch",
	Short: "Send every reminder that is due now, once",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApplication(cmd.Context(), func(ctx context.Context, app *application) error {
			report, err := app.dispatcher.Scan(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), report)
		})
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token --learner ID",
	Short: "Issue an API access token for a learner",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		learnerID, err := parseIDFlag("learner", tokenLearner)
		if err != nil {
			return err
		}
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		token, err := issueToken(cmd.Context(), cfg.Auth, learnerID)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
		return err
	},
}

func init() {
	serveCmd.Flags().BoolVar(&serveMigrate, "migrate", false, "apply pending migrations before serving")

	ingestCmd.Flags().StringVar(&ingestLearner, "learner", "", "learner ID that owns the document")
	ingestCmd.Flags().StringVar(&ingestItem, "item", "", "tracked item ID the document belongs to")
	_ = ingestCmd.MarkFlagRequired("learner")

	tokenCmd.Flags().StringVar(&tokenLearner, "learner", "", "learner ID the token is issued for")
	_ = tokenCmd.MarkFlagRequired("learner")

	rootCmd.AddCommand(serveCmd, migrateCmd, ingestCmd, dispatchCmd, tokenCmd)
}

// withApplication loads configuration, connects to the database, builds the
// application and runs fn with it.
func withApplication(ctx context.Context, fn func(ctx context.Context, app *application) error) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := openDatabase(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("failed to close database connection", "error", err)
		}
	}()

	app, err := newApplication(ctx, cfg, logger, db)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer app.cleanup()

	return fn(ctx, app)
}

func parseIDFlag(name, value string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(value))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, fmt.Errorf("--%s must be a non-nil UUID: %q", name, value)
	}
	return id, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// issueToken signs an access token without touching the database.
func issueToken(ctx context.Context, cfg config.AuthConfig, learnerID uuid.UUID) (string, error) {
	svc, err := auth.NewJWTService(cfg)
	if err != nil {
		return "", fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	return svc.GenerateToken(ctx, learnerID)
}
