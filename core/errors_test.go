package core

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

func TestSessionErrorMapper_SentinelErrors(t *testing.T) {
	cases := []struct {
		err      error
		category goerrors.Category
		textCode string
		code     int
	}{
		{ErrMalformedCredential, goerrors.CategoryBadInput, SessionErrorMalformedCredential, http.StatusBadRequest},
		{ErrCredentialExpired, goerrors.CategoryAuth, SessionErrorCredentialExpired, http.StatusUnauthorized},
		{ErrSourceNotFound, goerrors.CategoryNotFound, SessionErrorSourceNotFound, http.StatusNotFound},
		{ErrInitTimeout, goerrors.CategoryOperation, SessionErrorInitTimeout, http.StatusRequestTimeout},
	}

	for _, tc := range cases {
		mapped := sessionErrorMapper(fmt.Errorf("wrapped: %w", tc.err))
		if mapped == nil {
			t.Fatalf("expected mapped error for %v", tc.err)
		}
		if mapped.Category != tc.category {
			t.Fatalf("%v: expected category %q, got %q", tc.err, tc.category, mapped.Category)
		}
		if mapped.TextCode != tc.textCode {
			t.Fatalf("%v: expected text code %q, got %q", tc.err, tc.textCode, mapped.TextCode)
		}
		if mapped.Code != tc.code {
			t.Fatalf("%v: expected status %d, got %d", tc.err, tc.code, mapped.Code)
		}
	}
}

func TestSessionErrorMapper_PassThroughKeepsEnvelope(t *testing.T) {
	original := goerrors.New("upstream said no", goerrors.CategoryExternal).
		WithTextCode(SessionErrorTransientUpstream)

	mapped := sessionErrorMapper(original)
	if mapped.TextCode != SessionErrorTransientUpstream {
		t.Fatalf("existing text code must survive, got %q", mapped.TextCode)
	}
	if mapped.Code != http.StatusBadGateway {
		t.Fatalf("expected external status fill-in, got %d", mapped.Code)
	}
}

func TestSessionErrorMapper_MessageHeuristics(t *testing.T) {
	mapped := sessionErrorMapper(errors.New("upstream served a login page instead of data"))
	if mapped.TextCode != SessionErrorMasqueradedFailure {
		t.Fatalf("expected masquerade code, got %q", mapped.TextCode)
	}

	mapped = sessionErrorMapper(errors.New("dial tcp: connection refused"))
	if mapped.TextCode != SessionErrorNetworkFailure {
		t.Fatalf("expected network failure code, got %q", mapped.TextCode)
	}

	mapped = sessionErrorMapper(errors.New("tenant_id is required"))
	if mapped.TextCode != SessionErrorBadInput {
		t.Fatalf("expected bad input code, got %q", mapped.TextCode)
	}
}

func TestCredentialExpiredAndUsable(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	if (Credential{Raw: "tok"}).Expired(now) {
		t.Fatalf("credential without expiry never expires")
	}
	if !(Credential{Raw: "tok", ExpiresAt: &past}).Expired(now) {
		t.Fatalf("past expiry must report expired")
	}
	if (Credential{Raw: "tok", ExpiresAt: &future}).Expired(now) {
		t.Fatalf("future expiry must not report expired")
	}
	if (Credential{Raw: "   "}).Usable(now) {
		t.Fatalf("blank credential is never usable")
	}
	if !(Credential{Raw: "tok", PayloadOpaque: true}).Usable(now) {
		t.Fatalf("opaque-payload credential is treated as non-expiring")
	}
}
