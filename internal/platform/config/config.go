package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultEnvFile              = ".env"
	defaultPort                 = "8080"
	defaultReadTimeout          = 15 * time.Second
	defaultWriteTimeout         = 30 * time.Second
	defaultIdleTimeout          = 120 * time.Second
	defaultDatabaseMaxConns     = 8
	defaultDatabaseMinConns     = 2
	defaultWebhookTolerance     = 5 * time.Minute
	defaultTokenIssuer          = "table-order-api"
	defaultPublicOrigin         = "http://localhost:3000"
	defaultIdempotencyHeader    = "Idempotency-Key"
	defaultIdempotencyTTL       = 24 * time.Hour
	defaultIdempotencyInterval  = time.Hour
	defaultIdempotencyBatchSize = 200
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Stripe      StripeConfig
	Auth        AuthConfig
	Checkout    CheckoutConfig
	Idempotency IdempotencyConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DatabaseConfig stores Postgres connection parameters.
type DatabaseConfig struct {
	URL      string
	MaxConns int32
	MinConns int32
}

// StripeConfig collects payment gateway credentials.
type StripeConfig struct {
	APIKey           string
	WebhookSecret    string
	WebhookTolerance time.Duration
}

// AuthConfig groups staff token verification settings.
type AuthConfig struct {
	StaffTokenSecret string
	TokenIssuer      string
}

// CheckoutConfig carries checkout redirect settings.
type CheckoutConfig struct {
	// PublicOrigin is the fallback origin for success/cancel redirect URLs
	// when the ordering client does not send an Origin header.
	PublicOrigin string
}

// IdempotencyConfig controls idempotency middleware behaviour.
type IdempotencyConfig struct {
	Header           string
	TTL              time.Duration
	CleanupInterval  time.Duration
	CleanupBatchSize int
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

type loadOptions struct {
	envFile string
	lookup  func(string) (string, bool)
}

// Option customises configuration loading.
type Option func(*loadOptions)

// WithEnvFile overrides the .env file path consulted before process env vars.
func WithEnvFile(path string) Option {
	return func(o *loadOptions) {
		o.envFile = path
	}
}

// WithLookup overrides the environment lookup function, primarily for tests.
func WithLookup(lookup func(string) (string, bool)) Option {
	return func(o *loadOptions) {
		if lookup != nil {
			o.lookup = lookup
		}
	}
}

// Load assembles the configuration from the environment, applying defaults
// and validating that required fields are present.
func Load(opts ...Option) (Config, error) {
	options := loadOptions{
		envFile: defaultEnvFile,
		lookup:  os.LookupEnv,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	fileValues := readEnvFile(options.envFile)
	get := func(key string) string {
		if value, ok := options.lookup(key); ok {
			return strings.TrimSpace(value)
		}
		return strings.TrimSpace(fileValues[key])
	}

	cfg := Config{
		Server: ServerConfig{
			Port:         stringOrDefault(get("PORT"), defaultPort),
			ReadTimeout:  durationOrDefault(get("SERVER_READ_TIMEOUT"), defaultReadTimeout),
			WriteTimeout: durationOrDefault(get("SERVER_WRITE_TIMEOUT"), defaultWriteTimeout),
			IdleTimeout:  durationOrDefault(get("SERVER_IDLE_TIMEOUT"), defaultIdleTimeout),
		},
		Database: DatabaseConfig{
			URL:      get("DATABASE_URL"),
			MaxConns: int32OrDefault(get("DATABASE_MAX_CONNS"), defaultDatabaseMaxConns),
			MinConns: int32OrDefault(get("DATABASE_MIN_CONNS"), defaultDatabaseMinConns),
		},
		Stripe: StripeConfig{
			APIKey:           get("STRIPE_SECRET_KEY"),
			WebhookSecret:    get("STRIPE_WEBHOOK_SECRET"),
			WebhookTolerance: durationOrDefault(get("STRIPE_WEBHOOK_TOLERANCE"), defaultWebhookTolerance),
		},
		Auth: AuthConfig{
			StaffTokenSecret: get("STAFF_TOKEN_SECRET"),
			TokenIssuer:      stringOrDefault(get("STAFF_TOKEN_ISSUER"), defaultTokenIssuer),
		},
		Checkout: CheckoutConfig{
			PublicOrigin: stringOrDefault(get("PUBLIC_ORIGIN"), defaultPublicOrigin),
		},
		Idempotency: IdempotencyConfig{
			Header:           stringOrDefault(get("IDEMPOTENCY_HEADER"), defaultIdempotencyHeader),
			TTL:              durationOrDefault(get("IDEMPOTENCY_TTL"), defaultIdempotencyTTL),
			CleanupInterval:  durationOrDefault(get("IDEMPOTENCY_CLEANUP_INTERVAL"), defaultIdempotencyInterval),
			CleanupBatchSize: intOrDefault(get("IDEMPOTENCY_CLEANUP_BATCH_SIZE"), defaultIdempotencyBatchSize),
		},
	}

	var missing []string
	if cfg.Database.URL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if cfg.Stripe.APIKey == "" {
		missing = append(missing, "STRIPE_SECRET_KEY")
	}
	if cfg.Stripe.WebhookSecret == "" {
		missing = append(missing, "STRIPE_WEBHOOK_SECRET")
	}
	if cfg.Auth.StaffTokenSecret == "" {
		missing = append(missing, "STAFF_TOKEN_SECRET")
	}
	if len(missing) > 0 {
		return Config{}, &ValidationError{fields: missing}
	}

	return cfg, nil
}

// readEnvFile parses KEY=VALUE lines, ignoring comments and blanks. A missing
// file is not an error; process env vars always win over file values.
func readEnvFile(path string) map[string]string {
	values := map[string]string{}
	if strings.TrimSpace(path) == "" {
		return values
	}

	file, err := os.Open(path)
	if err != nil {
		return values
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		value = strings.Trim(value, `"'`)
		if key != "" {
			values[key] = value
		}
	}
	return values
}

func stringOrDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func durationOrDefault(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func intOrDefault(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func int32OrDefault(value string, fallback int32) int32 {
	parsed := intOrDefault(value, int(fallback))
	return int32(parsed)
}
