package config

// Config holds all application configuration.
// It is constructed once at startup and passed by reference into the
// components that need it; nothing reads ambient process state at call sites.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth"     validate:"required"`
	AI       AIConfig       `mapstructure:"ai"       validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required"`
}

// AuthConfig contains admin authentication settings. The admin console signs
// short-lived JWTs with this secret; request middleware verifies them.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret" validate:"required,min=32"`
}

// AIConfig contains the AI gateway settings: which provider to use, how to
// reach it, and the retry/timeout budget for a single completion.
type AIConfig struct {
	// Provider selects the Completer implementation: "http" calls the
	// ai-service completion endpoint, "gemini" calls the Gemini API directly.
	Provider string `mapstructure:"provider" validate:"required,oneof=http gemini"`

	// Endpoint is the completion endpoint URL for the http provider.
	Endpoint string `mapstructure:"endpoint" validate:"required_if=Provider http,omitempty,url"`

	// APIKey authenticates against the selected provider.
	APIKey string `mapstructure:"api_key" validate:"required"`

	// Model is the model name requested from the provider.
	Model string `mapstructure:"model" validate:"required"`

	// OverallTimeoutSeconds bounds one Complete call including all retries.
	OverallTimeoutSeconds int `mapstructure:"overall_timeout_seconds" validate:"required,gt=0"`

	// AttemptTimeoutSeconds bounds a single attempt; it must be strictly
	// smaller than the overall budget so at least one retry can fit.
	AttemptTimeoutSeconds int `mapstructure:"attempt_timeout_seconds" validate:"required,gt=0,ltfield=OverallTimeoutSeconds"`

	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int `mapstructure:"max_retries" validate:"gte=0"`

	// RetryDelaySeconds is the base delay for exponential backoff.
	RetryDelaySeconds int `mapstructure:"retry_delay_seconds" validate:"gte=1"`

	// MinRetryBudgetSeconds is the floor: if the remaining overall budget
	// after the computed backoff delay would be below this, the client fails
	// fast instead of retrying into a certain timeout.
	MinRetryBudgetSeconds int `mapstructure:"min_retry_budget_seconds" validate:"gte=1"`
}
