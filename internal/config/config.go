package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"    validate:"required"`
	Log       LogConfig       `mapstructure:"log"       validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database"  validate:"required"`
	Auth      AuthConfig      `mapstructure:"auth"      validate:"required"`
	LLM       LLMConfig       `mapstructure:"llm"       validate:"required"`
	Chunking  ChunkingConfig  `mapstructure:"chunking"  validate:"required"`
	Ingestion IngestionConfig `mapstructure:"ingestion" validate:"required"`
	Reminders RemindersConfig `mapstructure:"reminders" validate:"required"`
	Messaging MessagingConfig `mapstructure:"messaging" validate:"required"`
	Task      TaskConfig      `mapstructure:"task"      validate:"required"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port                   int `mapstructure:"port"                     validate:"required,gt=0,lt=65536"`
	ShutdownTimeoutSeconds int `mapstructure:"shutdown_timeout_seconds" validate:"gt=0"`
}

// ShutdownTimeout returns the graceful shutdown window as a duration.
func (c ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}

// LogConfig controls the slog handler and the optional rotating log file.
type LogConfig struct {
	Level      string `mapstructure:"level"        validate:"required,oneof=debug info warn error"`
	Format     string `mapstructure:"format"       validate:"required,oneof=json text"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"  validate:"gte=0"`
	MaxBackups int    `mapstructure:"max_backups"  validate:"gte=0"`
	MaxAgeDays int    `mapstructure:"max_age_days" validate:"gte=0"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL                    string `mapstructure:"url"                        validate:"required,url"`
	MaxOpenConns           int    `mapstructure:"max_open_conns"             validate:"gt=0"`
	MaxIdleConns           int    `mapstructure:"max_idle_conns"             validate:"gte=0"`
	ConnMaxLifetimeMinutes int    `mapstructure:"conn_max_lifetime_minutes"  validate:"gte=0"`
}

// AuthConfig contains API authentication settings.
type AuthConfig struct {
	JWTSecret            string `mapstructure:"jwt_secret"             validate:"required,min=32"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"gt=0"`
}

// LLMConfig selects and configures the text-generation backend.
type LLMConfig struct {
	Provider              string `mapstructure:"provider"                validate:"required,oneof=gemini openai"`
	GeminiAPIKey          string `mapstructure:"gemini_api_key"          validate:"required_if=Provider gemini"`
	OpenAIAPIKey          string `mapstructure:"openai_api_key"          validate:"required_if=Provider openai"`
	BaseURL               string `mapstructure:"base_url"                validate:"omitempty,url"`
	ModelName             string `mapstructure:"model_name"              validate:"required"`
	MaxRetries            int    `mapstructure:"max_retries"             validate:"gte=0,lte=10"`
	BaseDelaySeconds      int    `mapstructure:"base_delay_seconds"      validate:"gte=0"`
	RequestTimeoutSeconds int    `mapstructure:"request_timeout_seconds" validate:"gt=0"`
}

// ChunkingConfig controls segmentation and chapter detection.
type ChunkingConfig struct {
	// WindowSize is both the single-request threshold and the window size
	// used for oversized documents.
	WindowSize int `mapstructure:"window_size" validate:"gt=0"`
	// SampleSize is the prefix of each window embedded in the detection prompt.
	SampleSize int `mapstructure:"sample_size" validate:"gt=0"`
	// ContentLimit caps chapter text embedded in summary, quiz and teaching prompts.
	ContentLimit    int  `mapstructure:"content_limit"    validate:"gt=0"`
	SemanticWindows bool `mapstructure:"semantic_windows"`
}

// IngestionConfig controls document intake.
type IngestionConfig struct {
	MinTextLength int        `mapstructure:"min_text_length" validate:"gt=0"`
	QuizQuestions int        `mapstructure:"quiz_questions"  validate:"gt=0,lte=20"`
	MaxUploadMB   int        `mapstructure:"max_upload_mb"   validate:"gt=0"`
	Blob          BlobConfig `mapstructure:"blob"            validate:"required"`
}

// BlobConfig selects where uploaded source documents are kept.
type BlobConfig struct {
	Backend        string `mapstructure:"backend"          validate:"required,oneof=local minio"`
	Dir            string `mapstructure:"dir"              validate:"required_if=Backend local"`
	MinioEndpoint  string `mapstructure:"minio_endpoint"   validate:"required_if=Backend minio"`
	MinioAccessKey string `mapstructure:"minio_access_key" validate:"required_if=Backend minio"`
	MinioSecretKey string `mapstructure:"minio_secret_key" validate:"required_if=Backend minio"`
	MinioBucket    string `mapstructure:"minio_bucket"     validate:"required_if=Backend minio"`
	MinioUseSSL    bool   `mapstructure:"minio_use_ssl"`
}

// RemindersConfig holds the spaced-repetition interval table and dispatch settings.
type RemindersConfig struct {
	// Intervals maps a reminder type to ordered day offsets from the link event.
	Intervals           map[string][]int `mapstructure:"intervals"             validate:"required,min=1"`
	ScanIntervalSeconds int              `mapstructure:"scan_interval_seconds" validate:"gt=0"`
	BatchSize           int              `mapstructure:"batch_size"            validate:"gt=0"`
	// MaxAttempts caps dispatch attempts per task. Zero keeps retrying forever.
	MaxAttempts int `mapstructure:"max_attempts" validate:"gte=0"`
}

// ScanInterval returns the dispatch period as a duration.
func (c RemindersConfig) ScanInterval() time.Duration {
	return time.Duration(c.ScanIntervalSeconds) * time.Second
}

// MessagingConfig selects the outbound message transport.
type MessagingConfig struct {
	Backend       string `mapstructure:"backend"        validate:"required,oneof=log redis"`
	RedisAddr     string `mapstructure:"redis_addr"     validate:"required_if=Backend redis"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"       validate:"gte=0"`
	RedisListKey  string `mapstructure:"redis_list_key" validate:"required_if=Backend redis"`
}

// TaskConfig contains background task processing settings.
type TaskConfig struct {
	WorkerCount         int `mapstructure:"worker_count"           validate:"gt=0"`
	QueueSize           int `mapstructure:"queue_size"             validate:"gt=0"`
	StuckTaskAgeMinutes int `mapstructure:"stuck_task_age_minutes" validate:"gt=0"`
}

// StuckTaskAge is how long a task may stay in processing before it is reset.
func (c TaskConfig) StuckTaskAge() time.Duration {
	return time.Duration(c.StuckTaskAgeMinutes) * time.Minute
}
