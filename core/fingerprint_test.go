package core

import (
	"strings"
	"testing"
)

func TestFingerprintOf_ShortValueKeepsFullPrefix(t *testing.T) {
	fp := FingerprintOf("short-token")
	if fp.Length != len("short-token") {
		t.Fatalf("unexpected length %d", fp.Length)
	}
	if fp.Prefix != "short-token" || fp.Suffix != "" {
		t.Fatalf("expected full value as prefix, got %+v", fp)
	}
}

func TestFingerprintOf_LongValueSlicesEdges(t *testing.T) {
	raw := strings.Repeat("a", 40) + strings.Repeat("b", 40)
	fp := FingerprintOf(raw)
	if fp.Length != 80 {
		t.Fatalf("unexpected length %d", fp.Length)
	}
	if fp.Prefix != strings.Repeat("a", 24) {
		t.Fatalf("unexpected prefix %q", fp.Prefix)
	}
	if fp.Suffix != strings.Repeat("b", 24) {
		t.Fatalf("unexpected suffix %q", fp.Suffix)
	}
}

func TestFingerprintMatches(t *testing.T) {
	base := strings.Repeat("x", 100)
	if !FingerprintOf(base).Matches(FingerprintOf(base)) {
		t.Fatalf("expected identical values to match")
	}
	changedMiddle := base[:50] + "Y" + base[51:]
	if !FingerprintOf(base).Matches(FingerprintOf(changedMiddle)) {
		t.Fatalf("middle-only changes are invisible to the fingerprint")
	}
	if FingerprintOf(base).Matches(FingerprintOf(base + "x")) {
		t.Fatalf("length change must not match")
	}
	if FingerprintOf(base).Matches(FingerprintOf("Y" + base[1:])) {
		t.Fatalf("prefix change must not match")
	}
	if !FingerprintOf("").Zero() {
		t.Fatalf("empty value should produce the zero fingerprint")
	}
}
