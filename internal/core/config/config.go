package config

import (
	"fmt"
	"time"

	redisclient "github.com/minhdao/shield/internal/infra/redis"
	"github.com/minhdao/shield/internal/infra/storage/postgres"
)

// Duration is a time.Duration that unmarshals from YAML strings like "200ms"
// or "30s". Bare integers are taken as nanoseconds.
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err == nil {
		v, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(v)
		return nil
	}

	var n int64
	if err := unmarshal(&n); err != nil {
		return err
	}
	*d = Duration(n)
	return nil
}

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server   ServerConfig       `yaml:"server"`
	Logging  LoggingConfig      `yaml:"logging"`
	Retry    RetryConfig        `yaml:"retry"`
	Breaker  BreakerConfig      `yaml:"breaker"`
	Chains   []ChainConfig      `yaml:"chains"`
	Redis    redisclient.Config `yaml:"redis"`
	Database postgres.Config    `yaml:"database"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// RetryConfig holds retry policy settings, shared by all chains unless
// overridden per chain.
type RetryConfig struct {
	MaxAttempts     int      `yaml:"max_attempts"`
	InitialDelay    Duration `yaml:"initial_delay"`
	MaxDelay        Duration `yaml:"max_delay"`
	BackoffMultiple float64  `yaml:"backoff_multiple"`
	Jitter          *bool    `yaml:"jitter"` // nil = default (on)
	RequestTimeout  Duration `yaml:"request_timeout"`
}

// BreakerConfig holds circuit breaker thresholds.
type BreakerConfig struct {
	FailureThreshold            int      `yaml:"failure_threshold"`
	ConsecutiveFailureThreshold int      `yaml:"consecutive_failure_threshold"`
	ResetTimeout                Duration `yaml:"reset_timeout"`
	SuccessThreshold            int      `yaml:"success_threshold"`
}

// ChainConfig holds settings for a specific blockchain.
type ChainConfig struct {
	ID       string         `yaml:"id"`
	Provider ProviderConfig `yaml:"provider"`
	Retry    *RetryConfig   `yaml:"retry"` // nil = top-level retry config
}

// ProviderConfig holds settings for an RPC provider.
type ProviderConfig struct {
	Name     string   `yaml:"name"`
	URL      string   `yaml:"url"`
	Protocol string   `yaml:"protocol"` // "http" (default) or "grpc"
	Timeout  Duration `yaml:"timeout"`
}
