package core

import (
	"strings"
	"unicode"
)

// NormalizeTenantID maps a raw tenant identifier to the canonical
// family-number shape: lowercase, "=" treated as a separator, whitespace
// stripped, and the family/number tokens rejoined with a single dash
// (e.g. "ABIMOVEIS=003" -> "abimoveis-003").
func NormalizeTenantID(raw string) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, raw)
	cleaned = strings.ReplaceAll(cleaned, "=", "-")
	if cleaned == "" {
		return ""
	}

	family, number := splitTenantID(cleaned)
	if family == "" || number == "" {
		return cleaned
	}
	return family + "-" + number
}

// splitTenantID extracts the leading alphabetic family token and the
// trailing numeric suffix. Either may be empty.
func splitTenantID(id string) (family string, number string) {
	runes := []rune(id)

	i := 0
	for i < len(runes) && unicode.IsLetter(runes[i]) {
		i++
	}
	family = string(runes[:i])

	j := len(runes)
	for j > 0 && unicode.IsDigit(runes[j-1]) {
		j--
	}
	number = string(runes[j:])
	return family, number
}

// DeriveTenantID selects the tenant id for a session. Preference order:
// exact case-insensitive match against the configured target, fuzzy match
// (normalized id containing the target's family token and numeric suffix),
// first permission, then the static fallback. The result is always
// canonical.
func DeriveTenantID(identity *Identity, target string, fallback string) string {
	normalizedTarget := NormalizeTenantID(target)
	normalizedFallback := NormalizeTenantID(fallback)

	if identity == nil || len(identity.Permissions) == 0 {
		if normalizedFallback != "" {
			return normalizedFallback
		}
		return normalizedTarget
	}

	for _, permission := range identity.Permissions {
		if strings.EqualFold(strings.TrimSpace(permission.TenantID), strings.TrimSpace(target)) {
			return NormalizeTenantID(permission.TenantID)
		}
	}

	family, number := splitTenantID(normalizedTarget)
	if family != "" && number != "" {
		for _, permission := range identity.Permissions {
			normalized := NormalizeTenantID(permission.TenantID)
			if strings.Contains(normalized, family) && strings.Contains(normalized, number) {
				return normalized
			}
		}
	}

	if first := NormalizeTenantID(identity.Permissions[0].TenantID); first != "" {
		return first
	}
	if normalizedFallback != "" {
		return normalizedFallback
	}
	return normalizedTarget
}
