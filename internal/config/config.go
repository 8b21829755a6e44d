// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// DatabaseURL is the Postgres DSN for the observation and link store.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// EmailHashKey is the secret key for the keyed email digest used by the
	// email_hash matcher. Max 64 bytes. Changing it orphans existing digests.
	EmailHashKey string `mapstructure:"EMAIL_HASH_KEY"`
	// EnabledMatchers is a comma-separated list of matcher names to run
	// (e.g. "email_exact,phone_exact"). Empty enables the full registry.
	EnabledMatchers string `mapstructure:"ENABLED_MATCHERS"`
	// BehavioralQueryTimeout bounds the behavioral candidate scan (e.g. "2s").
	BehavioralQueryTimeout string `mapstructure:"BEHAVIORAL_QUERY_TIMEOUT"`

	// KafkaBrokers is a comma-separated list of Kafka broker addresses
	// (e.g. "localhost:9092"). Required by the worker; when empty, producers
	// are no-ops and the worker refuses to start.
	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// ObservationsTopic is the topic the worker consumes raw observations from.
	ObservationsTopic string `mapstructure:"OBSERVATIONS_KAFKA_TOPIC"`
	// AttributionTopic receives attribution-recalculation events on
	// high-confidence link creation.
	AttributionTopic string `mapstructure:"ATTRIBUTION_KAFKA_TOPIC"`
	// ReviewTopic receives medium-confidence candidates for adjudication.
	ReviewTopic string `mapstructure:"REVIEW_KAFKA_TOPIC"`
	// KafkaGroupID is the consumer group ID for the resolver worker.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`

	// OTLPEndpoint is the OTLP gRPC endpoint for traces/metrics/logs
	// (e.g. http://localhost:4317). Empty disables export.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTLPInsecure forces plaintext OTLP even for https endpoints.
	OTLPInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("EMAIL_HASH_KEY", "")
	v.SetDefault("ENABLED_MATCHERS", "")
	v.SetDefault("BEHAVIORAL_QUERY_TIMEOUT", "2s")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("OBSERVATIONS_KAFKA_TOPIC", "idres-observations")
	v.SetDefault("ATTRIBUTION_KAFKA_TOPIC", "idres-attribution")
	v.SetDefault("REVIEW_KAFKA_TOPIC", "idres-review")
	v.SetDefault("KAFKA_GROUP_ID", "idres-resolver-worker")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("APP_ENV", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if len(cfg.EmailHashKey) > 64 {
		return nil, errors.New("config: EMAIL_HASH_KEY must be at most 64 bytes")
	}
	if cfg.Env == "production" && cfg.EmailHashKey == "" {
		return nil, errors.New("config: EMAIL_HASH_KEY must be set when APP_ENV=production")
	}
	for _, name := range cfg.EnabledMatchersList() {
		if !knownMatchers[name] {
			return nil, errors.New("config: ENABLED_MATCHERS contains unknown matcher " + name)
		}
	}

	return &cfg, nil
}

// knownMatchers mirrors the matcher registry names, kept here so config
// validation does not import the matching package.
var knownMatchers = map[string]bool{
	"email_exact":          true,
	"email_hash":           true,
	"phone_exact":          true,
	"name_email_domain":    true,
	"device_fingerprint":   true,
	"behavioral_pattern":   true,
	"ip_geolocation":       true,
	"household_clustering": true,
}

// BehavioralTimeout parses BehavioralQueryTimeout as a time.Duration.
// Returns 2s if unset or invalid.
func (c *Config) BehavioralTimeout() time.Duration {
	d, err := time.ParseDuration(c.BehavioralQueryTimeout)
	if err != nil || d <= 0 {
		return 2 * time.Second
	}
	return d
}

// KafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// Used to decide if the event pipeline is enabled (non-empty list) and to create producers.
func (c *Config) KafkaBrokersList() []string {
	return splitCSV(c.KafkaBrokers)
}

// EnabledMatchersList returns the matcher names from the comma-separated
// config, or nil when all matchers are enabled.
func (c *Config) EnabledMatchersList() []string {
	return splitCSV(c.EnabledMatchers)
}

// EnabledMatcherSet returns EnabledMatchersList as a set, or nil when all
// matchers are enabled.
func (c *Config) EnabledMatcherSet() map[string]bool {
	names := c.EnabledMatchersList()
	if len(names) == 0 {
		return nil
	}
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}
