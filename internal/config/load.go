package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// envPrefix is the prefix for all environment variables consumed by the
// service, e.g. RUNNER_DATABASE_URL maps to database.url.
const envPrefix = "RUNNER"

// Load reads configuration from environment variables and optionally a
// config file. Environment variables take precedence over values from
// config files. Returns a populated Config struct or an error if
// loading or validation fails.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvKeys(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; the environment may carry
		// everything. An unreadable or malformed one is not.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// bindEnvKeys registers every config key with viper explicitly.
// AutomaticEnv only resolves environment variables for keys viper
// already knows about, so without these bindings the keys that have no
// default (the database URL and the secrets) would be invisible to an
// environment-only deployment.
func bindEnvKeys(v *viper.Viper) {
	keys := []string{
		"server.port",
		"server.log_level",
		"server.allowed_origins",
		"database.url",
		"worker.count",
		"worker.poll_interval_seconds",
		"worker.reclaim_interval_seconds",
		"worker.claim_timeout_minutes",
		"worker.max_backoff_seconds",
		"notifier.webhook_url",
		"notifier.signing_secret",
		"notifier.timeout_seconds",
		"analysis.gemini_api_key",
		"analysis.model_name",
		"analysis.max_retries",
		"analysis.retry_delay_seconds",
	}
	for _, key := range keys {
		// BindEnv only errors when called with no arguments.
		_ = v.BindEnv(key)
	}
}

// setDefaults registers default values for every setting that has a
// sensible one. The database URL and Gemini API key deliberately have
// no defaults.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.allowed_origins", []string{})

	v.SetDefault("worker.count", 2)
	v.SetDefault("worker.poll_interval_seconds", 10)
	v.SetDefault("worker.reclaim_interval_seconds", 60)
	v.SetDefault("worker.claim_timeout_minutes", 30)
	v.SetDefault("worker.max_backoff_seconds", 60)

	v.SetDefault("notifier.timeout_seconds", 10)

	v.SetDefault("analysis.model_name", "gemini-2.0-flash")
	v.SetDefault("analysis.max_retries", 3)
	v.SetDefault("analysis.retry_delay_seconds", 2)
}
