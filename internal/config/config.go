package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server     ServerConfig     `mapstructure:"server" validate:"required"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	LLM        LLMConfig        `mapstructure:"llm" validate:"required"`
	Generation GenerationConfig `mapstructure:"generation" validate:"required"`
	Quota      QuotaConfig      `mapstructure:"quota" validate:"required"`
	Task       TaskConfig       `mapstructure:"task" validate:"required"`
}

// ServerConfig contains the worker's ops endpoint and logging settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
// The URL is optional for tools that never touch the database.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"omitempty,url"`
}

// RedisConfig locates the Redis instance carrying the request intake list
// and, with the redis backend, the quota ledger.
type RedisConfig struct {
	Addr         string `mapstructure:"addr" validate:"required_with=Password"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db" validate:"gte=0,lte=15"`
	RequestQueue string `mapstructure:"request_queue" validate:"required"`
}

// LLMConfig contains all LLM integration related settings.
type LLMConfig struct {
	GeminiAPIKey       string  `mapstructure:"gemini_api_key" validate:"required"`
	ModelName          string  `mapstructure:"model_name" validate:"required"`
	CallTimeoutSeconds int     `mapstructure:"call_timeout_seconds" validate:"gt=0"`
	MaxOutputTokens    int     `mapstructure:"max_output_tokens" validate:"gt=0"`
	Temperature        float64 `mapstructure:"temperature" validate:"gte=0,lte=2"`
}

// CallTimeout bounds a single provider call.
func (c LLMConfig) CallTimeout() time.Duration {
	return time.Duration(c.CallTimeoutSeconds) * time.Second
}

// GenerationConfig tunes the generation episode: backfill retries, the
// circuit breaker and the semantic agents.
type GenerationConfig struct {
	MaxRetries                 int      `mapstructure:"max_retries" validate:"gte=0,lte=10"`
	BackoffBaseMS              int      `mapstructure:"backoff_base_ms" validate:"gte=0"`
	EpisodeTimeoutSeconds      int      `mapstructure:"episode_timeout_seconds" validate:"gt=0"`
	BreakerFailureThreshold    int      `mapstructure:"breaker_failure_threshold" validate:"gt=0"`
	BreakerResetTimeoutSeconds int      `mapstructure:"breaker_reset_timeout_seconds" validate:"gt=0"`
	AutoFix                    bool     `mapstructure:"auto_fix"`
	FixConcurrency             int      `mapstructure:"fix_concurrency" validate:"gt=0"`
	Agents                     []string `mapstructure:"agents" validate:"dive,oneof=answer_key clarity level_fit"`
}

// BackoffBase is the delay before the first backfill attempt.
func (c GenerationConfig) BackoffBase() time.Duration {
	return time.Duration(c.BackoffBaseMS) * time.Millisecond
}

// EpisodeTimeout bounds the backfill phase of one episode.
func (c GenerationConfig) EpisodeTimeout() time.Duration {
	return time.Duration(c.EpisodeTimeoutSeconds) * time.Second
}

// BreakerResetTimeout is how long the breaker stays open before probing.
func (c GenerationConfig) BreakerResetTimeout() time.Duration {
	return time.Duration(c.BreakerResetTimeoutSeconds) * time.Second
}

// Quota ledger backends.
const (
	QuotaBackendRedis    = "redis"
	QuotaBackendPostgres = "postgres"
)

// QuotaConfig selects where per-account quota balances live.
type QuotaConfig struct {
	Backend string `mapstructure:"backend" validate:"required,oneof=redis postgres"`
}

// TaskConfig sizes the background task runner.
type TaskConfig struct {
	WorkerCount         int `mapstructure:"worker_count" validate:"gt=0"`
	QueueSize           int `mapstructure:"queue_size" validate:"gt=0"`
	StuckTaskAgeMinutes int `mapstructure:"stuck_task_age_minutes" validate:"gt=0"`
}

// StuckTaskAge is how long a task may stay in processing before recovery resets it.
func (c TaskConfig) StuckTaskAge() time.Duration {
	return time.Duration(c.StuckTaskAgeMinutes) * time.Minute
}
