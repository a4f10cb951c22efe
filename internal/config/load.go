package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultIntervals is the interval table used when none is configured.
var DefaultIntervals = map[string][]int{
	"summary":  {1, 3, 7, 30},
	"quiz":     {2, 5, 14},
	"teaching": {4, 10, 21},
}

// Load configuration from environment variables and optionally config files.
// Environment variables take precedence over values from config files.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit config file. An empty path searches the
// working directory for config.yaml, which may be absent; a named file must exist.
func LoadFile(path string) (*Config, error) {
	// A missing .env file is the normal case outside local development.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	v.SetEnvPrefix("SCRY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Keys without defaults must be bound explicitly for Unmarshal to see them.
	for _, key := range []string{
		"database.url",
		"auth.jwt_secret",
		"llm.gemini_api_key",
		"llm.openai_api_key",
		"llm.base_url",
		"log.file",
		"messaging.redis_addr",
		"messaging.redis_password",
		"ingestion.blob.minio_endpoint",
		"ingestion.blob.minio_access_key",
		"ingestion.blob.minio_secret_key",
		"ingestion.blob.minio_bucket",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("error binding env for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks struct tags and the cross-field rules that tags cannot express.
func Validate(cfg *Config) error {
	validate := validator.New()
	validate.RegisterStructValidation(validateReminders, RemindersConfig{})
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// validateReminders rejects interval tables whose offsets are not positive and
// strictly increasing.
func validateReminders(sl validator.StructLevel) {
	rc := sl.Current().Interface().(RemindersConfig)
	for name, offsets := range rc.Intervals {
		if strings.TrimSpace(name) == "" || len(offsets) == 0 {
			sl.ReportError(rc.Intervals, "Intervals", "intervals", "interval_table", name)
			continue
		}
		prev := 0
		for _, d := range offsets {
			if d <= prev {
				sl.ReportError(rc.Intervals, "Intervals", "intervals", "interval_table", name)
				break
			}
			prev = d
		}
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_timeout_seconds", 15)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)

	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 25)
	v.SetDefault("database.conn_max_lifetime_minutes", 5)

	v.SetDefault("auth.token_lifetime_minutes", 60)

	v.SetDefault("llm.provider", "gemini")
	v.SetDefault("llm.model_name", "gemini-2.0-flash")
	v.SetDefault("llm.max_retries", 3)
	v.SetDefault("llm.base_delay_seconds", 2)
	v.SetDefault("llm.request_timeout_seconds", 60)

	v.SetDefault("chunking.window_size", 30000)
	v.SetDefault("chunking.sample_size", 10000)
	v.SetDefault("chunking.content_limit", 8000)
	v.SetDefault("chunking.semantic_windows", false)

	v.SetDefault("ingestion.min_text_length", 100)
	v.SetDefault("ingestion.quiz_questions", 3)
	v.SetDefault("ingestion.max_upload_mb", 50)
	v.SetDefault("ingestion.blob.backend", "local")
	v.SetDefault("ingestion.blob.dir", "./data/uploads")
	v.SetDefault("ingestion.blob.minio_use_ssl", true)

	v.SetDefault("reminders.intervals", DefaultIntervals)
	v.SetDefault("reminders.scan_interval_seconds", 60)
	v.SetDefault("reminders.batch_size", 100)
	v.SetDefault("reminders.max_attempts", 0)

	v.SetDefault("messaging.backend", "log")
	v.SetDefault("messaging.redis_db", 0)
	v.SetDefault("messaging.redis_list_key", "scry:outbox")

	v.SetDefault("task.worker_count", 2)
	v.SetDefault("task.queue_size", 100)
	v.SetDefault("task.stuck_task_age_minutes", 30)
}
