// Package config loads the application configuration from the environment.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/naka-gawa/github-fork-stats/internal/gateway"
	"github.com/naka-gawa/github-fork-stats/internal/usecase"
)

// Config holds the application configuration
type Config struct {
	// GitHub
	GitHubToken      string
	GitHubAPIURL     string
	GitHubGraphQLURL string

	// API Server
	APIHost           string
	APIPort           string
	APIRequestTimeout time.Duration

	// Aggregation
	ForkConcurrency int
	MaxForks        int
	TopContributors int
	GraphQLFallback bool

	// Transport
	MaxPages                int
	StatsMaxAttempts        int
	StatsRetryDelay         time.Duration
	StatsRetryMaxDelay      time.Duration
	RequestTimeout          time.Duration
	SecondaryRateLimitSleep time.Duration
}

// Load loads the configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	retry := gateway.DefaultRetryPolicy()
	cfg := &Config{
		GitHubToken:      getEnv("GITHUB_ACCESS_TOKEN", getEnv("GITHUB_TOKEN", "")),
		GitHubAPIURL:     getEnv("GITHUB_API_URL", "https://api.github.com/"),
		GitHubGraphQLURL: getEnv("GITHUB_GRAPHQL_URL", ""),
		APIHost:          getEnv("API_HOST", "localhost"),
		APIPort:          getEnv("API_PORT", "8080"),
	}

	var err error
	if cfg.ForkConcurrency, err = getEnvInt("FORK_CONCURRENCY", 8); err != nil {
		return nil, err
	}
	if cfg.MaxForks, err = getEnvInt("MAX_FORKS", 0); err != nil {
		return nil, err
	}
	if cfg.TopContributors, err = getEnvInt("TOP_CONTRIBUTORS", 10); err != nil {
		return nil, err
	}
	if cfg.MaxPages, err = getEnvInt("MAX_PAGES", 500); err != nil {
		return nil, err
	}
	if cfg.StatsMaxAttempts, err = getEnvInt("STATS_MAX_ATTEMPTS", retry.MaxAttempts); err != nil {
		return nil, err
	}
	if cfg.StatsRetryDelay, err = getEnvDuration("STATS_RETRY_DELAY", retry.BaseDelay); err != nil {
		return nil, err
	}
	if cfg.StatsRetryMaxDelay, err = getEnvDuration("STATS_RETRY_MAX_DELAY", retry.MaxDelay); err != nil {
		return nil, err
	}
	if cfg.RequestTimeout, err = getEnvDuration("REQUEST_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.APIRequestTimeout, err = getEnvDuration("API_REQUEST_TIMEOUT", 4*cfg.RequestTimeout); err != nil {
		return nil, err
	}
	if cfg.SecondaryRateLimitSleep, err = getEnvDuration("SECONDARY_RATE_LIMIT_SLEEP", time.Minute); err != nil {
		return nil, err
	}
	if cfg.GraphQLFallback, err = getEnvBool("GRAPHQL_FALLBACK", false); err != nil {
		return nil, err
	}
	return cfg, nil
}

// getEnv returns the value of an environment variable or a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, &ConfigError{Field: key, Message: "must be an integer"}
	}
	return n, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, &ConfigError{Field: key, Message: "must be a duration such as 2s or 1m"}
	}
	return d, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, &ConfigError{Field: key, Message: "must be true or false"}
	}
	return b, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.GitHubAPIURL == "" {
		return &ConfigError{Field: "GITHUB_API_URL", Message: "must not be empty"}
	}
	if c.ForkConcurrency < 1 {
		return &ConfigError{Field: "FORK_CONCURRENCY", Message: "must be at least 1"}
	}
	if c.MaxForks < 0 {
		return &ConfigError{Field: "MAX_FORKS", Message: "must not be negative"}
	}
	if c.TopContributors < 1 || c.TopContributors > 100 {
		return &ConfigError{Field: "TOP_CONTRIBUTORS", Message: "must be between 1 and 100"}
	}
	if c.MaxPages < 1 {
		return &ConfigError{Field: "MAX_PAGES", Message: "must be at least 1"}
	}
	if c.StatsMaxAttempts < 1 {
		return &ConfigError{Field: "STATS_MAX_ATTEMPTS", Message: "must be at least 1"}
	}
	if c.StatsRetryDelay <= 0 {
		return &ConfigError{Field: "STATS_RETRY_DELAY", Message: "must be positive"}
	}
	if c.APIRequestTimeout < 0 {
		return &ConfigError{Field: "API_REQUEST_TIMEOUT", Message: "must not be negative"}
	}
	if c.StatsRetryMaxDelay < c.StatsRetryDelay {
		return &ConfigError{Field: "STATS_RETRY_MAX_DELAY", Message: "must not be shorter than STATS_RETRY_DELAY"}
	}
	return nil
}

// Gateway returns the GitHub client configuration.
func (c *Config) Gateway() gateway.Config {
	return gateway.Config{
		BaseURL:                 c.GitHubAPIURL,
		GraphQLURL:              c.GitHubGraphQLURL,
		Token:                   c.GitHubToken,
		RequestTimeout:          c.RequestTimeout,
		SecondaryRateLimitSleep: c.SecondaryRateLimitSleep,
		MaxPages:                c.MaxPages,
		Retry: gateway.RetryPolicy{
			MaxAttempts: c.StatsMaxAttempts,
			BaseDelay:   c.StatsRetryDelay,
			MaxDelay:    c.StatsRetryMaxDelay,
		},
	}
}

// Options returns the aggregation options. The GraphQL history count is tried
// before listing every commit when GraphQLFallback is set.
func (c *Config) Options() usecase.Options {
	opts := usecase.Options{
		ForkConcurrency: c.ForkConcurrency,
		MaxForks:        c.MaxForks,
		TopContributors: c.TopContributors,
	}
	if c.GraphQLFallback {
		opts.Strategies = []usecase.Strategy{
			usecase.CompareStrategy,
			usecase.LastPageStrategy,
			usecase.HistoryStrategy,
			usecase.ExhaustiveStrategy,
		}
	}
	return opts
}

// Addr is the listen address of the API server.
func (c *Config) Addr() string {
	return c.APIHost + ":" + c.APIPort
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}
