package domain

import (
	"errors"
	"testing"
	"time"
)

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"lowercases and trims", "  User@Example.COM ", "user@example.com", false},
		{"empty stays empty", "", "", false},
		{"whitespace only", "   ", "", false},
		{"missing domain", "user@", "", true},
		{"missing at", "user.example.com", "", true},
		{"spaces inside", "us er@example.com", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeEmail(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidEmail) {
					t.Fatalf("NormalizeEmail(%q) error = %v, want ErrInvalidEmail", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NormalizeEmail(%q): %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("NormalizeEmail(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"strips formatting", "+1 (555) 010-7788", "15550107788", false},
		{"strips idd prefix", "0044 20 7946 0958", "442079460958", false},
		{"empty stays empty", "", "", false},
		{"too short", "12", "", true},
		{"no digits", "call me", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizePhone(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidPhone) {
					t.Fatalf("NormalizePhone(%q) error = %v, want ErrInvalidPhone", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NormalizePhone(%q): %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("NormalizePhone(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSplitName(t *testing.T) {
	tests := []struct {
		in   string
		want Name
	}{
		{"", Name{}},
		{"Cher", Name{First: "Cher"}},
		{"Dana Keller", Name{First: "Dana", Last: "Keller"}},
		{"Mary Jane van der Berg", Name{First: "Mary", Middle: "Jane van der", Last: "Berg"}},
		{"  Dana   Keller  ", Name{First: "Dana", Last: "Keller"}},
	}
	for _, tt := range tests {
		if got := SplitName(tt.in); got != tt.want {
			t.Errorf("SplitName(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestEmailDomain(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"user@example.com", "example.com"},
		{"", ""},
		{"user@", ""},
		{"no-at-sign", ""},
	}
	for _, tt := range tests {
		if got := EmailDomain(tt.in); got != tt.want {
			t.Errorf("EmailDomain(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestObservation_Validate(t *testing.T) {
	valid := Observation{Source: SourcePassive, CollectedAt: time.Now()}
	if err := valid.Validate(); err != nil {
		t.Errorf("valid observation rejected: %v", err)
	}

	badSource := Observation{Source: "webhook", CollectedAt: time.Now()}
	if err := badSource.Validate(); err == nil {
		t.Error("unknown source should be rejected")
	}

	noTime := Observation{Source: SourceLogin}
	if err := noTime.Validate(); err == nil {
		t.Error("zero collected_at should be rejected")
	}
}

func TestObservation_DataFloat(t *testing.T) {
	o := Observation{AdditionalData: map[string]any{
		"pages":  float64(7),
		"clicks": 12,
		"depth":  "85.5",
		"junk":   "not a number",
	}}
	tests := []struct {
		key  string
		want float64
	}{
		{"pages", 7},
		{"clicks", 12},
		{"depth", 85.5},
		{"junk", 0},
		{"missing", 0},
	}
	for _, tt := range tests {
		if got := o.DataFloat(tt.key); got != tt.want {
			t.Errorf("DataFloat(%q) = %v, want %v", tt.key, got, tt.want)
		}
	}

	var empty Observation
	if got := empty.DataFloat("anything"); got != 0 {
		t.Errorf("DataFloat on nil bag = %v, want 0", got)
	}
}
