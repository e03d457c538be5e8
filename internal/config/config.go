package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Worker   WorkerConfig   `mapstructure:"worker"   validate:"required"`
	Notifier NotifierConfig `mapstructure:"notifier"`
	Analysis AnalysisConfig `mapstructure:"analysis"`
}

// ServerConfig contains all HTTP server related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`

	// AllowedOrigins lists the browser origins permitted to call the API.
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// WorkerConfig contains the claim/execute/report loop and reclaim settings.
type WorkerConfig struct {
	// Count is the number of in-process worker loops to run.
	// Zero is valid and yields an API-only deployment where all workers
	// claim over HTTP.
	Count int `mapstructure:"count" validate:"gte=0"`

	// PollIntervalSeconds is how long an idle worker waits between
	// claim attempts against an empty queue.
	PollIntervalSeconds int `mapstructure:"poll_interval_seconds" validate:"required,gt=0"`

	// ReclaimIntervalSeconds is how often the stale-claim sweep runs.
	ReclaimIntervalSeconds int `mapstructure:"reclaim_interval_seconds" validate:"required,gt=0"`

	// ClaimTimeoutMinutes bounds how long a job may sit in processing
	// before the sweep returns it to pending.
	ClaimTimeoutMinutes int `mapstructure:"claim_timeout_minutes" validate:"required,gt=0"`

	// MaxBackoffSeconds caps the exponential backoff applied when the
	// store is unavailable.
	MaxBackoffSeconds int `mapstructure:"max_backoff_seconds" validate:"required,gt=0"`
}

// NotifierConfig contains the completion webhook settings.
// An empty WebhookURL disables outbound notifications entirely.
type NotifierConfig struct {
	WebhookURL     string `mapstructure:"webhook_url"     validate:"omitempty,url"`
	SigningSecret  string `mapstructure:"signing_secret"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" validate:"gte=0"`
}

// AnalysisConfig contains the Gemini analysis executor settings.
// The API key is only required when in-process workers are enabled.
type AnalysisConfig struct {
	GeminiAPIKey      string `mapstructure:"gemini_api_key"`
	ModelName         string `mapstructure:"model_name"`
	MaxRetries        int    `mapstructure:"max_retries"         validate:"gte=0"`
	RetryDelaySeconds int    `mapstructure:"retry_delay_seconds" validate:"gte=0"`
}
