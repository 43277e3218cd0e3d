package token

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-session/core"
)

// Decode parses a raw credential into its structural form. The credential
// must have exactly three non-empty dot-separated segments; only the
// payload segment is ever decoded, and a payload that fails to decode is
// tolerated: the credential is kept with unknown expiry rather than
// rejected, since the upstream is the real validator.
func Decode(raw string) (core.Credential, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return core.Credential{}, fmt.Errorf("token: credential is empty: %w", core.ErrMalformedCredential)
	}

	segments := strings.Split(raw, ".")
	if len(segments) != 3 {
		return core.Credential{}, fmt.Errorf("token: expected 3 segments, got %d: %w", len(segments), core.ErrMalformedCredential)
	}
	for _, segment := range segments {
		if segment == "" {
			return core.Credential{}, fmt.Errorf("token: credential has an empty segment: %w", core.ErrMalformedCredential)
		}
	}

	cred := core.Credential{Raw: raw}

	payload, err := decodeSegment(segments[1])
	if err != nil {
		cred.PayloadOpaque = true
		return cred, nil
	}

	var claims struct {
		IssuedAt  int64 `json:"iat"`
		ExpiresAt int64 `json:"exp"`
	}
	if err := json.Unmarshal(payload, &claims); err != nil {
		cred.PayloadOpaque = true
		return cred, nil
	}

	if claims.IssuedAt > 0 {
		issuedAt := time.Unix(claims.IssuedAt, 0).UTC()
		cred.IssuedAt = &issuedAt
	}
	if claims.ExpiresAt > 0 {
		expiresAt := time.Unix(claims.ExpiresAt, 0).UTC()
		cred.ExpiresAt = &expiresAt
	}
	return cred, nil
}

// IsExpired reports whether a raw credential carries an expiry in the past.
// Malformed or opaque credentials report false; expiry is only enforceable
// when it is actually known.
func IsExpired(raw string, now time.Time) bool {
	cred, err := Decode(raw)
	if err != nil {
		return false
	}
	return cred.Expired(now)
}

func decodeSegment(segment string) ([]byte, error) {
	if decoded, err := base64.RawURLEncoding.DecodeString(segment); err == nil {
		return decoded, nil
	}
	return base64.URLEncoding.DecodeString(segment)
}
