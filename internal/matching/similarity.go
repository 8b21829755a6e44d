package matching

import (
	"math"

	"identity-resolution/engine/internal/signature"
)

// Dimension weights for the behavioral similarity score. They sum to 1.0;
// the total is clamped to [0,1] regardless.
const (
	weightTemporal    = 0.15
	weightNavigation  = 0.25
	weightInteraction = 0.20
	weightDevice      = 0.15
	weightEngagement  = 0.15
	weightReferral    = 0.10
)

// factorThreshold is the sub-score above which a dimension is reported as
// a matching factor on the candidate.
const factorThreshold = 0.5

// Similarity scores two behavioral signatures on six weighted dimensions
// and returns the score in [0,1] plus the dimensions that matched.
// Symmetric: every sub-term is an absolute difference or an equality check,
// so Similarity(a, b) == Similarity(b, a).
func Similarity(a, b signature.Signature) (float64, []string) {
	var score float64
	var factors []string

	add := func(sub, weight float64, factor string) {
		score += sub * weight
		if sub >= factorThreshold {
			factors = append(factors, factor)
		}
	}

	add(temporalScore(a, b), weightTemporal, "similar_timing")
	add(navigationScore(a, b), weightNavigation, "similar_navigation")
	add(interactionScore(a, b), weightInteraction, "similar_interaction")
	add(deviceScore(a, b), weightDevice, "same_device_profile")
	add(engagementScore(a, b), weightEngagement, "similar_engagement")
	add(referralScore(a, b), weightReferral, "same_referral_channel")

	if score > 1 {
		score = 1
	}
	return score, factors
}

// temporalScore rewards matching time-of-day buckets and close hours.
// The two terms are independent: same bucket gives 0.6, hours within two
// of each other add 0.4.
func temporalScore(a, b signature.Signature) float64 {
	s := 0.0
	if a.TimeCategory == b.TimeCategory && a.TimeCategory != "" {
		s += 0.6
	}
	if math.Abs(float64(a.HourOfDay-b.HourOfDay)) <= 2 {
		s += 0.4
	}
	return s
}

func navigationScore(a, b signature.Signature) float64 {
	return toleranceSim(a.PagesVisited, b.PagesVisited, 10)*0.35 +
		toleranceSim(a.SessionDuration, b.SessionDuration, 600)*0.35 +
		toleranceSim(a.AvgTimePerPage, b.AvgTimePerPage, 120)*0.30
}

func interactionScore(a, b signature.Signature) float64 {
	return toleranceSim(a.ClickCount, b.ClickCount, 20)*0.40 +
		toleranceSim(a.ScrollDepth, b.ScrollDepth, 100)*0.30 +
		toleranceSim(a.FormInteractions, b.FormInteractions, 5)*0.30
}

func deviceScore(a, b signature.Signature) float64 {
	s := 0.0
	if a.DeviceType == b.DeviceType && a.DeviceType != "" {
		s += 0.5
	}
	if a.BrowserFamily == b.BrowserFamily && a.BrowserFamily != "" {
		s += 0.5
	}
	return s
}

func engagementScore(a, b signature.Signature) float64 {
	switch diff := a.EngagementLevel - b.EngagementLevel; {
	case diff == 0:
		return 1
	case diff == 1 || diff == -1:
		return 0.5
	default:
		return 0
	}
}

// referralScore gives 0.7 for the same referral class; a shared non-empty
// utm_source is a stronger signal and overrides to 1.0.
func referralScore(a, b signature.Signature) float64 {
	if a.UTMSource != "" && a.UTMSource == b.UTMSource {
		return 1
	}
	if a.ReferrerType == b.ReferrerType && a.ReferrerType != "" {
		return 0.7
	}
	return 0
}

// toleranceSim scales the absolute difference of two values against a
// tolerance: equal values score 1, values a full tolerance apart score 0.
func toleranceSim(a, b, tolerance float64) float64 {
	if tolerance <= 0 {
		return 0
	}
	return math.Max(0, 1-math.Abs(a-b)/tolerance)
}
