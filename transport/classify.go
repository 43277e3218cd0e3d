package transport

import (
	"net/http"
	"strings"

	"github.com/goliatone/go-session/core"
)

// classify buckets an upstream response. A response carrying a login page
// instead of the requested resource is a masqueraded failure no matter
// what status code decorates it: the upstream decided the session is gone
// but answered as if it were serving content.
func classify(res *http.Response, body []byte) core.ResponseOutcome {
	outcome := core.ResponseOutcome{
		StatusCode: res.StatusCode,
		Headers:    flattenHeader(res.Header),
		Body:       body,
	}

	if isMasqueradedBody(res.Header.Get("Content-Type"), body) {
		outcome.Kind = core.OutcomeMasqueradedFailure
		return outcome
	}

	switch {
	case res.StatusCode >= 200 && res.StatusCode < 300:
		outcome.Kind = core.OutcomeSuccess
		return outcome

	case res.StatusCode >= 300 && res.StatusCode < 400:
		if isLoginRedirect(res.Header.Get("Location")) {
			outcome.Kind = core.OutcomeMasqueradedFailure
			return outcome
		}
		outcome.Kind = core.OutcomeClientError
		return outcome

	case res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden:
		outcome.Kind = core.OutcomeUnauthorized
		return outcome

	case res.StatusCode == http.StatusBadGateway ||
		res.StatusCode == http.StatusServiceUnavailable ||
		res.StatusCode == http.StatusGatewayTimeout:
		outcome.Kind = core.OutcomeTransientServerError
		return outcome

	default:
		outcome.Kind = core.OutcomeClientError
		return outcome
	}
}

// isMasqueradedBody detects a login page served in place of API content.
func isMasqueradedBody(contentType string, body []byte) bool {
	trimmed := strings.ToLower(strings.TrimSpace(string(body)))
	if strings.HasPrefix(trimmed, "<!doctype html") ||
		strings.HasPrefix(trimmed, "<html") ||
		strings.HasPrefix(trimmed, "<head") {
		return true
	}
	return strings.Contains(strings.ToLower(contentType), "text/html") &&
		strings.HasPrefix(trimmed, "<")
}

func isLoginRedirect(location string) bool {
	location = strings.TrimSpace(location)
	if location == "" {
		return false
	}
	return isLoginPath(location)
}

func isLoginPath(path string) bool {
	lowered := strings.ToLower(path)
	return strings.Contains(lowered, "login") || strings.Contains(lowered, "signin") ||
		strings.Contains(lowered, "sign-in")
}

func flattenHeader(header http.Header) map[string]string {
	if len(header) == 0 {
		return map[string]string{}
	}
	out := make(map[string]string, len(header))
	for key := range header {
		out[key] = header.Get(key)
	}
	return out
}
