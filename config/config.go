package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

/* Config carries every runtime setting, loaded from a .env file plus
 * environment variable overrides. Every field has a default so the
 * binaries run with no config file at all
 */
type Config struct {
	Port string `mapstructure:"PORT"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	SQLitePath        string `mapstructure:"SQLITE_PATH"`
	SubscriptionsFile string `mapstructure:"SUBSCRIPTIONS_FILE"`

	CreationMode  string `mapstructure:"WEBHOOK_CREATION_MODE"`
	DefaultFormat string `mapstructure:"DEFAULT_FORMAT"`
	Workers       int    `mapstructure:"WORKER_COUNT"`

	SignWebhooks        bool   `mapstructure:"SIGN_WEBHOOKS"`
	SignatureAlgorithm  string `mapstructure:"SIGNATURE_ALGORITHM"`
	SignatureLocation   string `mapstructure:"SIGNATURE_LOCATION"`
	SignatureHeaderName string `mapstructure:"SIGNATURE_HEADER_NAME"`
	SignatureQueryParam string `mapstructure:"SIGNATURE_QUERY_PARAM"`
	AlgorithmQueryParam string `mapstructure:"ALGORITHM_QUERY_PARAM"`

	MaxAttemptCount int `mapstructure:"MAX_ATTEMPT_COUNT"`
	RetryTimeout    int `mapstructure:"RETRY_TIMEOUT"`
	BackoffSeconds  int `mapstructure:"BACKOFF_SECONDS"`
}

// RequestTimeout returns the per-attempt HTTP timeout
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.RetryTimeout) * time.Second
}

// BackoffUnit returns the unit the triangular backoff schedule scales by
func (c Config) BackoffUnit() time.Duration {
	return time.Duration(c.BackoffSeconds) * time.Second
}

func setDefaults() {
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("SQLITE_PATH", "webhook-dispatch.db")
	viper.SetDefault("SUBSCRIPTIONS_FILE", "")
	viper.SetDefault("WEBHOOK_CREATION_MODE", "one_per_notification")
	viper.SetDefault("DEFAULT_FORMAT", "json")
	viper.SetDefault("WORKER_COUNT", 8)
	viper.SetDefault("SIGN_WEBHOOKS", true)
	viper.SetDefault("SIGNATURE_ALGORITHM", "sha256")
	viper.SetDefault("SIGNATURE_LOCATION", "header")
	viper.SetDefault("SIGNATURE_HEADER_NAME", "X-Webhook-Signature")
	viper.SetDefault("SIGNATURE_QUERY_PARAM", "sig")
	viper.SetDefault("ALGORITHM_QUERY_PARAM", "sig_alg")
	viper.SetDefault("MAX_ATTEMPT_COUNT", 3)
	viper.SetDefault("RETRY_TIMEOUT", 30)
	viper.SetDefault("BACKOFF_SECONDS", 1)
}

// GetConfig loads configuration from .env and the environment.
// A missing .env file is not an error; everything falls back to defaults
func GetConfig() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("toml")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("parsing config data: %w", err)
	}
	return &config, nil
}
