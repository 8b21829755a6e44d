package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg == nil {
		t.Fatal("Load returned nil config")
	}
	if cfg.BehavioralQueryTimeout != "2s" {
		t.Errorf("BehavioralQueryTimeout = %q, want %q", cfg.BehavioralQueryTimeout, "2s")
	}
	if cfg.ObservationsTopic != "idres-observations" {
		t.Errorf("ObservationsTopic = %q, want %q", cfg.ObservationsTopic, "idres-observations")
	}
	if cfg.AttributionTopic != "idres-attribution" {
		t.Errorf("AttributionTopic = %q, want %q", cfg.AttributionTopic, "idres-attribution")
	}
	if cfg.ReviewTopic != "idres-review" {
		t.Errorf("ReviewTopic = %q, want %q", cfg.ReviewTopic, "idres-review")
	}
	if cfg.KafkaGroupID != "idres-resolver-worker" {
		t.Errorf("KafkaGroupID = %q, want %q", cfg.KafkaGroupID, "idres-resolver-worker")
	}
	if cfg.EnabledMatchers != "" {
		t.Errorf("EnabledMatchers = %q, want empty (full registry)", cfg.EnabledMatchers)
	}
	if cfg.OTLPInsecure {
		t.Error("OTLPInsecure should default to false")
	}
}

func TestLoad_EnvVarOverride(t *testing.T) {
	os.Clearenv()
	os.Setenv("DATABASE_URL", "postgres://localhost:5432/idres")
	os.Setenv("ENABLED_MATCHERS", "email_exact,phone_exact")
	os.Setenv("BEHAVIORAL_QUERY_TIMEOUT", "500ms")
	os.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DatabaseURL != "postgres://localhost:5432/idres" {
		t.Errorf("DatabaseURL = %q", cfg.DatabaseURL)
	}
	if cfg.EnabledMatchers != "email_exact,phone_exact" {
		t.Errorf("EnabledMatchers = %q", cfg.EnabledMatchers)
	}
	if cfg.BehavioralQueryTimeout != "500ms" {
		t.Errorf("BehavioralQueryTimeout = %q, want %q", cfg.BehavioralQueryTimeout, "500ms")
	}
	brokers := cfg.KafkaBrokersList()
	if len(brokers) != 2 || brokers[0] != "kafka-1:9092" || brokers[1] != "kafka-2:9092" {
		t.Errorf("KafkaBrokersList = %v", brokers)
	}
}

func TestLoad_UnknownMatcherRejected(t *testing.T) {
	os.Clearenv()
	os.Setenv("ENABLED_MATCHERS", "email_exact,psychic_guess")

	cfg, err := Load()
	if err == nil {
		t.Fatal("Load should reject unknown matcher names")
	}
	if cfg != nil {
		t.Error("Load should return nil config on error")
	}
	if !strings.Contains(err.Error(), "psychic_guess") {
		t.Errorf("error = %q, want it to name the unknown matcher", err.Error())
	}
}

func TestLoad_EmailHashKeyTooLong(t *testing.T) {
	os.Clearenv()
	os.Setenv("EMAIL_HASH_KEY", strings.Repeat("k", 65))

	if _, err := Load(); err == nil {
		t.Fatal("Load should reject EMAIL_HASH_KEY over 64 bytes")
	}
}

func TestLoad_EmailHashKeyRequiredInProduction(t *testing.T) {
	os.Clearenv()
	os.Setenv("APP_ENV", "production")

	if _, err := Load(); err == nil {
		t.Fatal("Load should require EMAIL_HASH_KEY when APP_ENV=production")
	}

	os.Setenv("EMAIL_HASH_KEY", "prod-secret")
	if _, err := Load(); err != nil {
		t.Fatalf("Load with key set: %v", err)
	}
}

func TestBehavioralTimeout(t *testing.T) {
	tests := []struct {
		value string
		want  time.Duration
	}{
		{"500ms", 500 * time.Millisecond},
		{"5s", 5 * time.Second},
		{"invalid", 2 * time.Second},
		{"0", 2 * time.Second},
		{"-1s", 2 * time.Second},
		{"", 2 * time.Second},
	}
	for _, tt := range tests {
		cfg := Config{BehavioralQueryTimeout: tt.value}
		if got := cfg.BehavioralTimeout(); got != tt.want {
			t.Errorf("BehavioralTimeout(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestEnabledMatcherSet(t *testing.T) {
	cfg := Config{}
	if set := cfg.EnabledMatcherSet(); set != nil {
		t.Errorf("empty config: set = %v, want nil (all matchers)", set)
	}

	cfg.EnabledMatchers = "email_exact, behavioral_pattern ,,"
	set := cfg.EnabledMatcherSet()
	if len(set) != 2 || !set["email_exact"] || !set["behavioral_pattern"] {
		t.Errorf("set = %v", set)
	}
}
