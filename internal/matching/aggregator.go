package matching

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	obsdomain "identity-resolution/engine/internal/observation/domain"
)

// Confidence thresholds for candidate tiering. A candidate lands in exactly
// one tier: high creates links, medium goes to review, the rest is dropped.
const (
	HighConfidenceThreshold   = 0.8
	MediumConfidenceThreshold = 0.5
)

// Tiers partitions aggregated candidates by confidence. Both slices are
// sorted by confidence descending; ties keep matcher registry order.
type Tiers struct {
	High   []MatchCandidate
	Medium []MatchCandidate
}

// Aggregator runs a fixed matcher list against an observation and merges
// the results. Matchers execute concurrently; each is isolated, so one
// failing (or panicking) matcher contributes zero candidates and never
// aborts the others.
type Aggregator struct {
	matchers []Matcher

	tracer        trace.Tracer
	matcherErrors metric.Int64Counter
	candidates    metric.Int64Counter
}

// NewAggregator returns an aggregator over the given matchers. The slice
// is treated as immutable configuration; callers build it with
// DefaultMatchers and Filter.
func NewAggregator(matchers []Matcher) *Aggregator {
	meter := otel.Meter("identity-resolution/engine/internal/matching")
	matcherErrors, _ := meter.Int64Counter("matcher.errors",
		metric.WithDescription("Matcher lookups that failed and were isolated"))
	candidates, _ := meter.Int64Counter("matcher.candidates",
		metric.WithDescription("Match candidates produced per matcher"))
	return &Aggregator{
		matchers:      matchers,
		tracer:        otel.Tracer("identity-resolution/engine/internal/matching"),
		matcherErrors: matcherErrors,
		candidates:    candidates,
	}
}

// Run executes every matcher for the observation, flattens the candidates
// in registry order, sorts them by confidence (stable), and partitions
// them at the high/medium thresholds.
func (a *Aggregator) Run(ctx context.Context, o *obsdomain.Observation, now time.Time) Tiers {
	ctx, span := a.tracer.Start(ctx, "matching.run",
		trace.WithAttributes(attribute.String("observation.id", o.ID)))
	defer span.End()

	results := make([][]MatchCandidate, len(a.matchers))
	var wg sync.WaitGroup
	for i, m := range a.matchers {
		wg.Add(1)
		go func(i int, m Matcher) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					log.Printf("matching: %s matcher panicked: %v", m.Name(), r)
					a.matcherErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("matcher", m.Name())))
				}
			}()
			cands, err := m.Lookup(ctx, o, now)
			if err != nil {
				log.Printf("matching: %s matcher failed: %v", m.Name(), err)
				a.matcherErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("matcher", m.Name())))
				return
			}
			a.candidates.Add(ctx, int64(len(cands)), metric.WithAttributes(attribute.String("matcher", m.Name())))
			results[i] = cands
		}(i, m)
	}
	wg.Wait()

	var all []MatchCandidate
	for i := range results {
		all = append(all, results[i]...)
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].Confidence > all[j].Confidence })

	var tiers Tiers
	for _, c := range all {
		switch {
		case c.Confidence >= HighConfidenceThreshold:
			tiers.High = append(tiers.High, c)
		case c.Confidence >= MediumConfidenceThreshold:
			tiers.Medium = append(tiers.Medium, c)
		}
	}
	span.SetAttributes(
		attribute.Int("candidates.high", len(tiers.High)),
		attribute.Int("candidates.medium", len(tiers.Medium)),
		attribute.Int("candidates.total", len(all)),
	)
	return tiers
}
