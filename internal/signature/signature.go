// Package signature derives normalized behavioral signatures from raw
// observation telemetry. Extraction is a pure function of the observation
// and an explicit comparison time, so two sessions can be scored for
// similarity deterministically under test.
package signature

import (
	"strings"
	"time"

	obsdomain "identity-resolution/engine/internal/observation/domain"
)

// Signature is a normalized feature vector describing a session's temporal,
// navigational, interaction, device, and referral characteristics. It is
// recomputed on demand from an observation's telemetry, never stored.
type Signature struct {
	HourOfDay        int
	DayOfWeek        time.Weekday
	TimeCategory     string
	PagesVisited     float64
	SessionDuration  float64 // seconds
	AvgTimePerPage   float64 // seconds
	ClickCount       float64
	ScrollDepth      float64 // percent
	FormInteractions float64
	EntryPage        string
	ReferrerType     string
	UTMSource        string
	DeviceType       string
	BrowserFamily    string
	ScreenResolution string
	EngagementLevel  int // 1..5
	IntentSignals    []string
}

// Referrer classes.
const (
	ReferrerDirect   = "direct"
	ReferrerSearch   = "search"
	ReferrerSocial   = "social"
	ReferrerEmail    = "email"
	ReferrerInternal = "internal"
	ReferrerReferral = "referral"
)

// Extract builds a Signature from the observation's telemetry bag. The
// temporal fields come from now, not from the observation: they describe
// when the comparison happens, which is what the behavioral matcher scores.
// Missing telemetry degrades to zero values and lower similarity, never an
// error.
func Extract(o *obsdomain.Observation, now time.Time) Signature {
	pages := o.DataFloat("pages_visited")
	duration := o.DataFloat("session_duration")
	clicks := o.DataFloat("click_count")
	scroll := o.DataFloat("scroll_depth")
	forms := o.DataFloat("form_interactions")

	avgPerPage := 0.0
	if pages > 0 {
		avgPerPage = duration / pages
	}

	entry := o.DataString("entry_page")
	referrer := o.DataString("referrer")

	sig := Signature{
		HourOfDay:        now.Hour(),
		DayOfWeek:        now.Weekday(),
		TimeCategory:     TimeCategory(now.Hour()),
		PagesVisited:     pages,
		SessionDuration:  duration,
		AvgTimePerPage:   avgPerPage,
		ClickCount:       clicks,
		ScrollDepth:      scroll,
		FormInteractions: forms,
		EntryPage:        entry,
		ReferrerType:     ClassifyReferrer(referrer, entry),
		UTMSource:        o.DataString("utm_source"),
		DeviceType:       DeviceType(o.UserAgent),
		BrowserFamily:    BrowserFamily(o.UserAgent),
		ScreenResolution: o.DataString("screen_resolution"),
	}
	sig.EngagementLevel = EngagementLevel(pages, duration, clicks, scroll, forms)
	sig.IntentSignals = intentSignals(o, sig.EngagementLevel)
	return sig
}

// TimeCategory partitions an hour of day (0-23) into seven fixed buckets.
func TimeCategory(hour int) string {
	switch {
	case hour >= 6 && hour <= 8:
		return "early_morning"
	case hour >= 9 && hour <= 11:
		return "morning"
	case hour >= 12 && hour <= 13:
		return "lunch"
	case hour >= 14 && hour <= 16:
		return "afternoon"
	case hour >= 17 && hour <= 19:
		return "evening"
	case hour >= 20 && hour <= 22:
		return "night"
	default:
		return "late_night"
	}
}

// EngagementLevel maps raw session signals to a 1-5 level. Each signal
// contributes independently, so increasing any one signal never lowers the
// level.
func EngagementLevel(pages, duration, clicks, scroll, forms float64) int {
	score := 0
	switch {
	case pages >= 10:
		score += 2
	case pages >= 5:
		score++
	}
	switch {
	case duration >= 600:
		score += 2
	case duration >= 300:
		score++
	}
	if clicks >= 10 {
		score++
	}
	if scroll >= 75 {
		score++
	}
	if forms > 0 {
		score++
	}
	switch {
	case score >= 6:
		return 5
	case score >= 5:
		return 4
	case score >= 3:
		return 3
	case score >= 1:
		return 2
	default:
		return 1
	}
}

var (
	searchTokens = []string{"google.", "bing.", "yahoo.", "duckduckgo.", "baidu.", "yandex."}
	socialTokens = []string{"facebook.", "fb.com", "twitter.", "t.co", "x.com", "instagram.", "linkedin.", "pinterest.", "youtube.", "tiktok.", "reddit."}
	emailTokens  = []string{"mail.", "gmail.", "outlook.", "newsletter", "mailchimp", "campaign-"}
)

// ClassifyReferrer buckets a raw referrer URL into a referral class. An
// empty referrer is a direct visit; a referrer on the same host as the
// entry page is internal navigation.
func ClassifyReferrer(referrer, entryPage string) string {
	referrer = strings.ToLower(strings.TrimSpace(referrer))
	if referrer == "" {
		return ReferrerDirect
	}
	for _, tok := range searchTokens {
		if strings.Contains(referrer, tok) {
			return ReferrerSearch
		}
	}
	for _, tok := range socialTokens {
		if strings.Contains(referrer, tok) {
			return ReferrerSocial
		}
	}
	for _, tok := range emailTokens {
		if strings.Contains(referrer, tok) {
			return ReferrerEmail
		}
	}
	if h := hostOf(entryPage); h != "" && hostOf(referrer) == h {
		return ReferrerInternal
	}
	return ReferrerReferral
}

func hostOf(rawURL string) string {
	s := strings.ToLower(strings.TrimSpace(rawURL))
	if s == "" {
		return ""
	}
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
	}
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimPrefix(s, "www.")
}

// DeviceType classifies a user agent as mobile, tablet, or desktop.
func DeviceType(userAgent string) string {
	ua := strings.ToLower(userAgent)
	switch {
	case ua == "":
		return ""
	case strings.Contains(ua, "ipad") || strings.Contains(ua, "tablet"):
		return "tablet"
	case strings.Contains(ua, "mobi") || strings.Contains(ua, "iphone") || strings.Contains(ua, "android"):
		return "mobile"
	default:
		return "desktop"
	}
}

// BrowserFamily extracts the browser family from a user agent. Order
// matters: Edge and Opera embed "chrome", Chrome embeds "safari".
func BrowserFamily(userAgent string) string {
	ua := strings.ToLower(userAgent)
	switch {
	case ua == "":
		return ""
	case strings.Contains(ua, "edg/") || strings.Contains(ua, "edge"):
		return "edge"
	case strings.Contains(ua, "opr/") || strings.Contains(ua, "opera"):
		return "opera"
	case strings.Contains(ua, "firefox"):
		return "firefox"
	case strings.Contains(ua, "chrome"):
		return "chrome"
	case strings.Contains(ua, "safari"):
		return "safari"
	default:
		return "other"
	}
}

// intentSignals derives coarse purchase-intent tags from the session.
func intentSignals(o *obsdomain.Observation, engagement int) []string {
	var tags []string
	entry := strings.ToLower(o.DataString("entry_page"))
	for _, page := range []string{"pricing", "checkout", "cart", "product", "contact"} {
		if strings.Contains(entry, page) {
			tags = append(tags, "visited_"+page)
		}
	}
	if o.DataFloat("form_interactions") > 0 {
		tags = append(tags, "form_engagement")
	}
	if engagement >= 4 {
		tags = append(tags, "high_engagement")
	}
	if o.Source == obsdomain.SourceEcommerceOrder {
		tags = append(tags, "purchaser")
	}
	return tags
}
