package telemetry

import (
	"context"
	"time"
)

// ResolutionEvent summarizes one resolve pass for export.
type ResolutionEvent struct {
	ObservationID    string
	Source           string
	HighLinks        int
	MediumCandidates int
	ResolvedAt       time.Time
}

// EventEmitter emits resolution events (e.g. to OTel Logs). Best-effort; callers log and ignore errors.
type EventEmitter interface {
	Emit(ctx context.Context, event *ResolutionEvent) error
}
