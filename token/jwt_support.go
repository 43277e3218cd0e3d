package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// SignHS256 builds an HS256-signed credential from a claims map. It exists
// for fixtures and local development; production credentials come from the
// ranked sources.
func SignHS256(keyID string, secret string, claims map[string]any) (string, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return "", fmt.Errorf("token: signing secret is required")
	}

	header := map[string]any{"alg": "HS256", "typ": "JWT"}
	if kid := strings.TrimSpace(keyID); kid != "" {
		header["kid"] = kid
	}

	headerSegment, err := encodeSegment(header)
	if err != nil {
		return "", fmt.Errorf("token: encode header: %w", err)
	}
	claimsSegment, err := encodeSegment(claims)
	if err != nil {
		return "", fmt.Errorf("token: encode claims: %w", err)
	}

	signingInput := headerSegment + "." + claimsSegment
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(signingInput))

	return signingInput + "." + base64.RawURLEncoding.EncodeToString(mac.Sum(nil)), nil
}

func encodeSegment(payload map[string]any) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}
