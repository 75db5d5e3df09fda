package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "FORGE"

var defaults = map[string]any{
	"server.port":                              8080,
	"server.log_level":                         "info",
	"database.url":                             "",
	"redis.addr":                               "localhost:6379",
	"redis.password":                           "",
	"redis.db":                                 0,
	"redis.request_queue":                      "forge:requests",
	"llm.gemini_api_key":                       "",
	"llm.model_name":                           "gemini-2.0-flash",
	"llm.call_timeout_seconds":                 60,
	"llm.max_output_tokens":                    8192,
	"llm.temperature":                          0.7,
	"generation.max_retries":                   3,
	"generation.backoff_base_ms":               1000,
	"generation.episode_timeout_seconds":       300,
	"generation.breaker_failure_threshold":     3,
	"generation.breaker_reset_timeout_seconds": 60,
	"generation.auto_fix":                      true,
	"generation.fix_concurrency":               4,
	"generation.agents":                        []string{"answer_key", "clarity", "level_fit"},
	"quota.backend":                            QuotaBackendRedis,
	"task.worker_count":                        2,
	"task.queue_size":                          100,
	"task.stuck_task_age_minutes":              30,
}

// Load configuration from environment variables and an optional config.yaml
// in the working directory. Environment variables take precedence over values
// from config files. Returns a populated Config struct or an error if
// loading/validation fails.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit config file path. An empty path searches
// the working directory for config.yaml and tolerates its absence.
func LoadFile(path string) (*Config, error) {
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks struct tags and cross-field rules.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	if cfg.Quota.Backend == QuotaBackendRedis && cfg.Redis.Addr == "" {
		return errors.New("config validation failed: redis.addr is required for the redis quota backend")
	}
	if cfg.Quota.Backend == QuotaBackendPostgres && cfg.Database.URL == "" {
		return errors.New("config validation failed: database.url is required for the postgres quota backend")
	}
	return nil
}
