// Package config loads the dashboard service configuration.
//
// Precedence, highest first: flags, INTENT_* environment variables, the YAML
// config file, defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix prefixes every environment variable, e.g. INTENT_BACKEND_URL.
const EnvPrefix = "INTENT_"

// Config holds all configuration for the dashboard service
type Config struct {
	// Server
	Port        int      `koanf:"port" validate:"min=1,max=65535"`
	Environment string   `koanf:"environment" validate:"oneof=development production test"`
	LogLevel    string   `koanf:"log_level" validate:"oneof=debug info warn error"`
	CORSOrigins []string `koanf:"cors_origins"`
	RateLimit   int      `koanf:"rate_limit" validate:"min=0"`
	RateBurst   int      `koanf:"rate_burst" validate:"min=1"`

	// Synthesis backend
	BackendURL       string        `koanf:"backend_url" validate:"required,url"`
	BackendTimeout   time.Duration `koanf:"backend_timeout" validate:"gt=0"`
	BreakerFailures  int           `koanf:"breaker_failures" validate:"min=1"`
	BreakerSuccesses int           `koanf:"breaker_successes" validate:"min=1"`
	BreakerTimeout   time.Duration `koanf:"breaker_timeout" validate:"gt=0"`

	// Session and validation behaviour
	PollInterval     time.Duration `koanf:"poll_interval" validate:"gt=0"`
	AbortTimeout     time.Duration `koanf:"abort_timeout" validate:"gt=0"`
	Debounce         time.Duration `koanf:"debounce" validate:"gt=0"`
	ValidateTimeout  time.Duration `koanf:"validate_timeout" validate:"gt=0"`
	SynthesisTimeout int           `koanf:"synthesis_timeout" validate:"min=1"`
	SolutionCount    int           `koanf:"solution_count" validate:"min=1"`

	// Optional infrastructure; empty disables it
	RedisURL     string        `koanf:"redis_url" validate:"omitempty,url"`
	CacheTTL     time.Duration `koanf:"cache_ttl" validate:"gte=0"`
	NATSURL      string        `koanf:"nats_url" validate:"omitempty,url"`
	NATSSubject  string        `koanf:"nats_subject"`
	NATSStream   string        `koanf:"nats_stream"`
	OTLPEndpoint string        `koanf:"otlp_endpoint" validate:"omitempty,hostname_port"`
}

// Defaults are the values used when nothing else sets a key.
func Defaults() map[string]any {
	return map[string]any{
		"port":              8080,
		"environment":       "development",
		"log_level":         "info",
		"cors_origins":      []string{},
		"rate_limit":        600,
		"rate_burst":        60,
		"backend_url":       "http://localhost:5000",
		"backend_timeout":   "30s",
		"breaker_failures":  5,
		"breaker_successes": 2,
		"breaker_timeout":   "30s",
		"poll_interval":     "500ms",
		"abort_timeout":     "10s",
		"debounce":          "500ms",
		"validate_timeout":  "30s",
		"synthesis_timeout": 300,
		"solution_count":    3,
		"redis_url":         "",
		"cache_ttl":         "10m",
		"nats_url":          "",
		"nats_subject":      "intent.session",
		"nats_stream":       "",
		"otlp_endpoint":     "",
	}
}

// RegisterFlags adds the command-line overrides to flags.
func RegisterFlags(flags *pflag.FlagSet) {
	flags.Int("port", 8080, "HTTP listen port")
	flags.String("environment", "development", "deployment environment (development, production, test)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("backend-url", "http://localhost:5000", "base URL of the synthesis backend")
	flags.Duration("poll-interval", 500*time.Millisecond, "delay between synthesis polls")
	flags.Duration("debounce", 500*time.Millisecond, "quiet period before a draft expression is validated")
	flags.String("redis-url", "", "Redis URL for the validation cache (disabled when empty)")
	flags.String("nats-url", "", "NATS URL for session events (disabled when empty)")
	flags.String("otlp-endpoint", "", "OTLP/gRPC trace collector host:port (disabled when empty)")
}

// Load reads configuration from the optional YAML file at path, the
// environment and the flags that were explicitly set.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", func(key, value string) (string, any) {
		key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
		if key == "cors_origins" {
			return key, splitList(value)
		}
		return key, value
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks every field against its constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q (got %v)", fe.Field(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// IsProduction reports whether the service runs in production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
