// Worker consumes raw observations from Kafka, records them, and runs the
// identity resolution pipeline: matching, link creation, review dispatch.
// Set DATABASE_URL, KAFKA_BROKERS, and EMAIL_HASH_KEY; topics default to
// idres-observations / idres-attribution / idres-review.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"

	"identity-resolution/engine/internal/config"
	"identity-resolution/engine/internal/db"
	"identity-resolution/engine/internal/engine"
	"identity-resolution/engine/internal/events"
	linkrepo "identity-resolution/engine/internal/link/repository"
	"identity-resolution/engine/internal/matching"
	obsdomain "identity-resolution/engine/internal/observation/domain"
	obsrepo "identity-resolution/engine/internal/observation/repository"
	"identity-resolution/engine/internal/security"
	"identity-resolution/engine/internal/telemetry"
	otelsetup "identity-resolution/engine/internal/telemetry/otel"
)

// observationEnvelope is the JSON shape the observation source publishes.
type observationEnvelope struct {
	Source            string         `json:"source"`
	Email             string         `json:"email"`
	EmailHash         string         `json:"email_hash"`
	Phone             string         `json:"phone"`
	FullName          string         `json:"full_name"`
	DeviceFingerprint string         `json:"device_fingerprint"`
	IPAddress         string         `json:"ip_address"`
	UserAgent         string         `json:"user_agent"`
	SessionID         string         `json:"session_id"`
	AdditionalData    map[string]any `json:"additional_data"`
	CollectedAt       time.Time      `json:"collected_at"`
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	brokers := cfg.KafkaBrokersList()
	if len(brokers) == 0 {
		log.Fatal("worker: KAFKA_BROKERS is required")
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("worker: DATABASE_URL is required")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	providers, err := otelsetup.NewProviders(ctx, cfg.OTLPEndpoint, "idres-resolver", cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	providers.SetGlobal()
	emitter := otelsetup.NewEventEmitter(providers.LoggerProvider)

	observations := obsrepo.NewPostgresRepository(conn)
	links := linkrepo.NewPostgresRepository(conn)
	digester := security.NewDigester(cfg.EmailHashKey)
	matchers := matching.Filter(
		matching.DefaultMatchers(observations, cfg.BehavioralTimeout()),
		cfg.EnabledMatcherSet(),
	)
	aggregator := matching.NewAggregator(matchers)

	attribution := events.NewKafkaProducer(brokers, cfg.AttributionTopic)
	defer attribution.Close()
	review := events.NewKafkaProducer(brokers, cfg.ReviewTopic)
	defer review.Close()

	eng := engine.New(observations, links, aggregator, digester, attribution, review)

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          cfg.ObservationsTopic,
		GroupID:        cfg.KafkaGroupID,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		CommitInterval: time.Second,
	})
	defer reader.Close()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Println("worker: shutting down...")
		cancel()
	}()

	log.Printf("worker: consuming from %s (group %s), %d matchers enabled",
		cfg.ObservationsTopic, cfg.KafkaGroupID, len(matchers))

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Println("worker: stopped")
				break
			}
			log.Printf("worker: kafka read error: %v", err)
			continue
		}
		handle(ctx, eng, emitter, msg.Value)
	}

	// Let in-flight async telemetry finish before tearing providers down.
	telemetry.DrainEmits(telemetry.ShutdownDrainDuration)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Printf("telemetry: shutdown: %v", err)
	}
}

// handle records and resolves one observation message. Malformed or
// invalid messages are logged and skipped; resolve failures are logged and
// the message is not retried (the observation is already durable and a
// later observation of the same person will rediscover the pair).
func handle(ctx context.Context, eng *engine.Engine, emitter telemetry.EventEmitter, payload []byte) {
	var env observationEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		log.Printf("worker: malformed observation message: %v", err)
		return
	}
	o := &obsdomain.Observation{
		Source:            obsdomain.Source(env.Source),
		Email:             env.Email,
		EmailHash:         env.EmailHash,
		Phone:             env.Phone,
		FullName:          env.FullName,
		DeviceFingerprint: env.DeviceFingerprint,
		IPAddress:         env.IPAddress,
		UserAgent:         env.UserAgent,
		SessionID:         env.SessionID,
		AdditionalData:    env.AdditionalData,
		CollectedAt:       env.CollectedAt,
	}

	id, err := eng.RecordObservation(ctx, o)
	if err != nil {
		var verr *engine.ValidationError
		if errors.As(err, &verr) {
			log.Printf("worker: rejected observation (session %s): %v", env.SessionID, verr)
			return
		}
		log.Printf("worker: record failed: %v", err)
		return
	}

	res, err := eng.Resolve(ctx, id)
	if err != nil {
		log.Printf("worker: resolve %s failed: %v", id, err)
		return
	}
	if len(res.High) > 0 || len(res.Medium) > 0 {
		log.Printf("worker: resolved %s: %d links, %d review candidates", id, len(res.High), len(res.Medium))
	}
	telemetry.EmitAsync(emitter, &telemetry.ResolutionEvent{
		ObservationID:    id,
		Source:           string(o.Source),
		HighLinks:        len(res.High),
		MediumCandidates: len(res.Medium),
		ResolvedAt:       time.Now().UTC(),
	})
}
