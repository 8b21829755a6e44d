package security

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Digester computes keyed digests of identity fields so observations can be
// matched without storing the raw value. Deterministic for a given key:
// the digest is used as an equality join key by the email_hash matcher.
// Callers must not log or persist raw emails alongside the digest.
type Digester struct {
	key []byte
}

// NewDigester returns a Digester using the given secret key. The key is
// truncated to 64 bytes (the BLAKE2b key size limit). An empty key is
// allowed but produces unkeyed digests; deployments should always set one.
func NewDigester(key string) *Digester {
	k := []byte(key)
	if len(k) > 64 {
		k = k[:64]
	}
	return &Digester{key: k}
}

// EmailDigest returns the hex-encoded keyed BLAKE2b-256 digest of the
// normalized (lowercase, trimmed) email. Returns "" for an empty email.
func (d *Digester) EmailDigest(email string) string {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return ""
	}
	h, err := blake2b.New256(d.key)
	if err != nil {
		// Only reachable with a key over 64 bytes, which the constructor prevents.
		return ""
	}
	h.Write([]byte(email))
	return hex.EncodeToString(h.Sum(nil))
}
