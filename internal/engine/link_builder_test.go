package engine

import (
	"testing"
	"time"

	obsdomain "identity-resolution/engine/internal/observation/domain"
)

func TestLinkStrength(t *testing.T) {
	base := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	obs := func(email, phone, fp string, at time.Time) *obsdomain.Observation {
		return &obsdomain.Observation{
			Email:             email,
			Phone:             phone,
			DeviceFingerprint: fp,
			CollectedAt:       at,
		}
	}

	tests := []struct {
		name       string
		a, b       *obsdomain.Observation
		confidence float64
		want       int
	}{
		{
			name:       "confidence only, collected far apart",
			a:          obs("", "", "", base),
			b:          obs("", "", "", base.Add(-72*time.Hour)),
			confidence: 0.65,
			want:       65,
		},
		{
			name:       "within the hour",
			a:          obs("", "", "", base),
			b:          obs("", "", "", base.Add(-time.Hour)),
			confidence: 0.50,
			want:       60,
		},
		{
			name:       "within the day",
			a:          obs("", "", "", base),
			b:          obs("", "", "", base.Add(23*time.Hour)),
			confidence: 0.50,
			want:       55,
		},
		{
			name:       "shared email",
			a:          obs("d@example.com", "", "", base),
			b:          obs("d@example.com", "", "", base.Add(-48*time.Hour)),
			confidence: 0.55,
			want:       75,
		},
		{
			name:       "shared phone and fingerprint",
			a:          obs("", "15551234567", "fp-1", base),
			b:          obs("", "15551234567", "fp-1", base.Add(-48*time.Hour)),
			confidence: 0.35,
			want:       60,
		},
		{
			name:       "empty fields never match each other",
			a:          obs("", "", "", base),
			b:          obs("", "", "", base.Add(-48*time.Hour)),
			confidence: 0.95,
			want:       95,
		},
		{
			name:       "capped at 100",
			a:          obs("d@example.com", "15551234567", "fp-1", base),
			b:          obs("d@example.com", "15551234567", "fp-1", base.Add(-time.Minute)),
			confidence: 0.95,
			want:       100,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LinkStrength(tt.a, tt.b, tt.confidence); got != tt.want {
				t.Errorf("LinkStrength = %d, want %d", got, tt.want)
			}
			// The bonuses are all symmetric in their arguments.
			if got := LinkStrength(tt.b, tt.a, tt.confidence); got != tt.want {
				t.Errorf("LinkStrength reversed = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPairLocks_SameShardForPair(t *testing.T) {
	var p pairLocks

	unlock := p.lock("obs-a", "obs-b")
	locked := make(chan struct{})
	acquired := make(chan struct{})
	go func() {
		close(locked)
		u := p.lock("obs-a", "obs-b")
		close(acquired)
		u()
	}()

	<-locked
	select {
	case <-acquired:
		t.Fatal("second lock on the same pair acquired while held")
	case <-time.After(20 * time.Millisecond):
	}

	unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second lock never acquired after release")
	}
}
