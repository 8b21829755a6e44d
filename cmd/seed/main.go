// seed inserts development sample observations for local testing: a pair
// sharing an email, a pair sharing a device fingerprint, and two
// behaviorally similar passive sessions. Idempotent: skips inserting when
// the seed session ids already exist. Run one resolve afterwards with the
// worker or the engine API to see links created.
package main

import (
	"context"
	"log"
	"time"

	"identity-resolution/engine/internal/config"
	"identity-resolution/engine/internal/db"
	"identity-resolution/engine/internal/engine"
	linkrepo "identity-resolution/engine/internal/link/repository"
	"identity-resolution/engine/internal/matching"
	obsdomain "identity-resolution/engine/internal/observation/domain"
	obsrepo "identity-resolution/engine/internal/observation/repository"
	"identity-resolution/engine/internal/security"
)

const seedSessionPrefix = "seed-session-"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	ctx := context.Background()
	observations := obsrepo.NewPostgresRepository(conn)
	links := linkrepo.NewPostgresRepository(conn)

	existing, err := observations.GetBySessionID(ctx, seedSessionPrefix+"1")
	if err != nil {
		log.Fatalf("seed: %v", err)
	}
	if existing != nil {
		log.Println("seed: sample observations already present, nothing to do")
		return
	}

	digester := security.NewDigester(cfg.EmailHashKey)
	aggregator := matching.NewAggregator(matching.DefaultMatchers(observations, cfg.BehavioralTimeout()))
	eng := engine.New(observations, links, aggregator, digester, nil, nil)

	now := time.Now().UTC()
	desktopUA := "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
	mobileUA := "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"

	samples := []*obsdomain.Observation{
		{
			Source:      obsdomain.SourceFormSubmission,
			Email:       "dana@example.com",
			FullName:    "Dana Keller",
			IPAddress:   "203.0.113.10",
			UserAgent:   desktopUA,
			SessionID:   seedSessionPrefix + "1",
			CollectedAt: now.Add(-26 * time.Hour),
			AdditionalData: map[string]any{
				"pages_visited": 6, "session_duration": 420, "click_count": 12,
				"scroll_depth": 80, "form_interactions": 2,
				"entry_page": "https://shop.example.com/pricing",
				"referrer":   "https://www.google.com/search",
			},
		},
		{
			// Same email as the first sample, different device: email_exact
			// links these at strength 100.
			Source:      obsdomain.SourceEcommerceOrder,
			Email:       "dana@example.com",
			Phone:       "+1 (555) 010-7788",
			FullName:    "Dana Keller",
			IPAddress:   "198.51.100.7",
			UserAgent:   mobileUA,
			SessionID:   seedSessionPrefix + "2",
			CollectedAt: now.Add(-25 * time.Hour),
			AdditionalData: map[string]any{
				"pages_visited": 4, "session_duration": 300, "click_count": 9,
				"entry_page": "https://shop.example.com/checkout",
			},
		},
		{
			Source:            obsdomain.SourceLogin,
			DeviceFingerprint: "fp-9a8b7c6d",
			IPAddress:         "203.0.113.10",
			UserAgent:         desktopUA,
			SessionID:         seedSessionPrefix + "3",
			CollectedAt:       now.Add(-3 * time.Hour),
		},
		{
			// Same fingerprint and household IP as the login above.
			Source:            obsdomain.SourcePassive,
			DeviceFingerprint: "fp-9a8b7c6d",
			IPAddress:         "203.0.113.10",
			UserAgent:         desktopUA,
			SessionID:         seedSessionPrefix + "4",
			CollectedAt:       now.Add(-2 * time.Hour),
			AdditionalData: map[string]any{
				"pages_visited": 8, "session_duration": 540, "click_count": 14,
				"scroll_depth": 85, "form_interactions": 1,
				"referrer": "https://www.facebook.com/", "utm_source": "spring_sale",
			},
		},
		{
			// Behavioral twin of session 4: no shared identifier, close
			// telemetry, same utm_source.
			Source:      obsdomain.SourcePassive,
			IPAddress:   "192.0.2.44",
			UserAgent:   desktopUA,
			SessionID:   seedSessionPrefix + "5",
			CollectedAt: now.Add(-90 * time.Minute),
			AdditionalData: map[string]any{
				"pages_visited": 7, "session_duration": 500, "click_count": 13,
				"scroll_depth": 80, "form_interactions": 1,
				"referrer": "https://www.facebook.com/", "utm_source": "spring_sale",
			},
		},
	}

	for _, o := range samples {
		id, err := eng.RecordObservation(ctx, o)
		if err != nil {
			log.Fatalf("seed: record %s: %v", o.SessionID, err)
		}
		log.Printf("seed: recorded %s as %s", o.SessionID, id)
	}
	log.Println("seed: done")
}
