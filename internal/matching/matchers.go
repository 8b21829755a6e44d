package matching

import (
	"context"
	"net"
	"strings"
	"time"

	obsdomain "identity-resolution/engine/internal/observation/domain"
)

// householdWindow bounds how far back the household matcher looks for
// observations sharing an IP. Shared NAT and public Wi-Fi make this the
// noisiest matcher in the registry; the 7-day window and low confidence
// keep it from ever reaching the high tier on its own.
const householdWindow = 7 * 24 * time.Hour

type emailExactMatcher struct{ store Store }

func (m *emailExactMatcher) Name() string            { return NameEmailExact }
func (m *emailExactMatcher) Weight() int             { return 100 }
func (m *emailExactMatcher) BaseConfidence() float64 { return 0.95 }

func (m *emailExactMatcher) Lookup(ctx context.Context, o *obsdomain.Observation, now time.Time) ([]MatchCandidate, error) {
	if o.Email == "" {
		return nil, nil
	}
	rows, err := m.store.ListByEmail(ctx, o.Email)
	if err != nil {
		return nil, err
	}
	return collect(o, rows, m, []string{"email"}), nil
}

type emailHashMatcher struct{ store Store }

func (m *emailHashMatcher) Name() string            { return NameEmailHash }
func (m *emailHashMatcher) Weight() int             { return 90 }
func (m *emailHashMatcher) BaseConfidence() float64 { return 0.85 }

func (m *emailHashMatcher) Lookup(ctx context.Context, o *obsdomain.Observation, now time.Time) ([]MatchCandidate, error) {
	if o.EmailHash == "" {
		return nil, nil
	}
	rows, err := m.store.ListByEmailHash(ctx, o.EmailHash)
	if err != nil {
		return nil, err
	}
	return collect(o, rows, m, []string{"email_hash"}), nil
}

type phoneExactMatcher struct{ store Store }

func (m *phoneExactMatcher) Name() string            { return NamePhoneExact }
func (m *phoneExactMatcher) Weight() int             { return 85 }
func (m *phoneExactMatcher) BaseConfidence() float64 { return 0.80 }

func (m *phoneExactMatcher) Lookup(ctx context.Context, o *obsdomain.Observation, now time.Time) ([]MatchCandidate, error) {
	if o.Phone == "" {
		return nil, nil
	}
	rows, err := m.store.ListByPhone(ctx, o.Phone)
	if err != nil {
		return nil, err
	}
	return collect(o, rows, m, []string{"phone"}), nil
}

type nameEmailDomainMatcher struct{ store Store }

func (m *nameEmailDomainMatcher) Name() string            { return NameNameEmailDomain }
func (m *nameEmailDomainMatcher) Weight() int             { return 70 }
func (m *nameEmailDomainMatcher) BaseConfidence() float64 { return 0.65 }

func (m *nameEmailDomainMatcher) Lookup(ctx context.Context, o *obsdomain.Observation, now time.Time) ([]MatchCandidate, error) {
	domain := obsdomain.EmailDomain(o.Email)
	if o.Name.First == "" || o.Name.Last == "" || domain == "" {
		return nil, nil
	}
	rows, err := m.store.ListByNameAndEmailDomain(ctx, o.Name.First, o.Name.Last, domain)
	if err != nil {
		return nil, err
	}
	return collect(o, rows, m, []string{"name", "email_domain"}), nil
}

type deviceFingerprintMatcher struct{ store Store }

func (m *deviceFingerprintMatcher) Name() string            { return NameDeviceFingerprint }
func (m *deviceFingerprintMatcher) Weight() int             { return 60 }
func (m *deviceFingerprintMatcher) BaseConfidence() float64 { return 0.55 }

func (m *deviceFingerprintMatcher) Lookup(ctx context.Context, o *obsdomain.Observation, now time.Time) ([]MatchCandidate, error) {
	if o.DeviceFingerprint == "" {
		return nil, nil
	}
	rows, err := m.store.ListByDeviceFingerprint(ctx, o.DeviceFingerprint)
	if err != nil {
		return nil, err
	}
	return collect(o, rows, m, []string{"device_fingerprint"}), nil
}

type ipGeolocationMatcher struct{ store Store }

func (m *ipGeolocationMatcher) Name() string            { return NameIPGeolocation }
func (m *ipGeolocationMatcher) Weight() int             { return 30 }
func (m *ipGeolocationMatcher) BaseConfidence() float64 { return 0.25 }

func (m *ipGeolocationMatcher) Lookup(ctx context.Context, o *obsdomain.Observation, now time.Time) ([]MatchCandidate, error) {
	prefix := GeoBucket(o.IPAddress)
	if prefix == "" {
		return nil, nil
	}
	rows, err := m.store.ListByIPPrefix(ctx, prefix)
	if err != nil {
		return nil, err
	}
	return collect(o, rows, m, []string{"ip", "geo_bucket"}), nil
}

type householdClusteringMatcher struct{ store Store }

func (m *householdClusteringMatcher) Name() string            { return NameHouseholdClustering }
func (m *householdClusteringMatcher) Weight() int             { return 40 }
func (m *householdClusteringMatcher) BaseConfidence() float64 { return 0.35 }

func (m *householdClusteringMatcher) Lookup(ctx context.Context, o *obsdomain.Observation, now time.Time) ([]MatchCandidate, error) {
	if o.IPAddress == "" {
		return nil, nil
	}
	rows, err := m.store.ListByIPSince(ctx, o.IPAddress, now.Add(-householdWindow))
	if err != nil {
		return nil, err
	}
	return collect(o, rows, m, []string{"ip", "household_window"}), nil
}

// GeoBucket reduces an IP address to a coarse location bucket: the /24
// prefix for IPv4, the /48 prefix for IPv6. Observations in the same
// bucket are treated as geographically co-located.
func GeoBucket(ipAddress string) string {
	ip := net.ParseIP(strings.TrimSpace(ipAddress))
	if ip == nil {
		return ""
	}
	if v4 := ip.To4(); v4 != nil {
		masked := v4.Mask(net.CIDRMask(24, 32)).String() // e.g. 203.0.113.0
		return masked[:strings.LastIndexByte(masked, '.')+1]
	}
	masked := ip.Mask(net.CIDRMask(48, 128)).String() // e.g. 2001:db8:1::
	return strings.TrimSuffix(masked, ":")
}
