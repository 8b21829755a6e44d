package domain

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Observation is one recorded touch point with partial identity signals
// (a form submission, an order, a login, or passive page telemetry).
// Once persisted it is never mutated.
type Observation struct {
	ID                string
	Source            Source
	Email             string
	EmailHash         string
	Phone             string
	FullName          string
	Name              Name
	DeviceFingerprint string
	DeviceType        string
	IPAddress         string
	UserAgent         string
	SessionID         string
	AdditionalData    map[string]any
	CollectedAt       time.Time
}

// Name is a parsed full name.
type Name struct {
	First  string
	Middle string
	Last   string
}

type Source string

const (
	SourceFormSubmission Source = "form_submission"
	SourceEcommerceOrder Source = "ecommerce_order"
	SourceRegistration   Source = "registration"
	SourceLogin          Source = "login"
	SourcePassive        Source = "passive"
)

// Valid reports whether s is a known observation source.
func (s Source) Valid() bool {
	switch s {
	case SourceFormSubmission, SourceEcommerceOrder, SourceRegistration, SourceLogin, SourcePassive:
		return true
	}
	return false
}

var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// ErrInvalidEmail is returned by NormalizeEmail for values that are present
// but not a plausible address.
var ErrInvalidEmail = errors.New("invalid email address")

// NormalizeEmail lowercases and trims an email address. Empty input stays
// empty (many observations carry no email at all).
func NormalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return "", nil
	}
	if !emailRe.MatchString(email) {
		return "", ErrInvalidEmail
	}
	return email, nil
}

// ErrInvalidPhone is returned by NormalizePhone when the input contains no
// usable digits.
var ErrInvalidPhone = errors.New("invalid phone number")

// NormalizePhone reduces a phone number to digits only and strips the
// international dialing prefix ("00") so numbers collected with and without
// it compare equal. Empty input stays empty.
func NormalizePhone(phone string) (string, error) {
	if strings.TrimSpace(phone) == "" {
		return "", nil
	}
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) < 5 {
		return "", ErrInvalidPhone
	}
	digits = strings.TrimPrefix(digits, "00")
	return digits, nil
}

// SplitName parses a free-form full name into first/middle/last parts.
// Single-word names become First; everything between the first and last
// word collapses into Middle.
func SplitName(full string) Name {
	parts := strings.Fields(strings.TrimSpace(full))
	switch len(parts) {
	case 0:
		return Name{}
	case 1:
		return Name{First: parts[0]}
	case 2:
		return Name{First: parts[0], Last: parts[1]}
	default:
		return Name{
			First:  parts[0],
			Middle: strings.Join(parts[1:len(parts)-1], " "),
			Last:   parts[len(parts)-1],
		}
	}
}

// EmailDomain returns the domain part of an email address, or "" if the
// address has none.
func EmailDomain(email string) string {
	at := strings.LastIndexByte(email, '@')
	if at < 0 || at == len(email)-1 {
		return ""
	}
	return email[at+1:]
}

// Validate checks structural invariants before persistence. Field-level
// normalization errors are reported by the engine as validation failures;
// this only covers what normalization cannot.
func (o *Observation) Validate() error {
	if !o.Source.Valid() {
		return errors.New("observation: unknown source")
	}
	if o.CollectedAt.IsZero() {
		return errors.New("observation: collected_at must be set")
	}
	return nil
}

// DataString returns a value from AdditionalData as a string, or "" when
// absent or of another type.
func (o *Observation) DataString(key string) string {
	if o.AdditionalData == nil {
		return ""
	}
	if s, ok := o.AdditionalData[key].(string); ok {
		return s
	}
	return ""
}

// DataFloat returns a numeric value from AdditionalData. JSON decoding
// yields float64; ints and numeric strings are accepted as well since the
// bag comes from untyped client telemetry.
func (o *Observation) DataFloat(key string) float64 {
	if o.AdditionalData == nil {
		return 0
	}
	switch v := o.AdditionalData[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0
		}
		return f
	}
	return 0
}
