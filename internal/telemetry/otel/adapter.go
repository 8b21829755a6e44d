package otel

import (
	"context"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"identity-resolution/engine/internal/telemetry"
)

// NewEventEmitter returns an EventEmitter that sends resolution events as
// OTel log records via the given LoggerProvider. If provider is nil,
// returns a no-op emitter.
func NewEventEmitter(provider *sdklog.LoggerProvider) telemetry.EventEmitter {
	if provider == nil {
		return noopEmitter{}
	}
	return &otelEmitter{logger: provider.Logger("idres.resolution")}
}

type noopEmitter struct{}

func (noopEmitter) Emit(context.Context, *telemetry.ResolutionEvent) error { return nil }

type otelEmitter struct {
	logger otellog.Logger
}

// Emit converts the resolution event to an OTel log record and emits it. Best-effort; errors are logged.
func (e *otelEmitter) Emit(ctx context.Context, event *telemetry.ResolutionEvent) error {
	if event == nil {
		return nil
	}
	rec := otellog.Record{}
	if !event.ResolvedAt.IsZero() {
		rec.SetTimestamp(event.ResolvedAt)
	}
	rec.SetBody(otellog.StringValue("resolution completed"))
	if event.ObservationID != "" {
		rec.AddAttributes(otellog.String("observation_id", event.ObservationID))
	}
	if event.Source != "" {
		rec.AddAttributes(otellog.String("source", event.Source))
	}
	rec.AddAttributes(
		otellog.Int("high_links", event.HighLinks),
		otellog.Int("medium_candidates", event.MediumCandidates),
	)
	e.logger.Emit(ctx, rec)
	return nil
}
