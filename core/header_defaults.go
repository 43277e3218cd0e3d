package core

import (
	"strings"
	"sync"
)

// Header names the pipeline and the session runtime agree on.
const (
	HeaderAuthorization   = "Authorization"
	HeaderContentType     = "Content-Type"
	HeaderCompanyID       = "x-company-id"
	HeaderCompanyIDLegacy = "company-id"
)

// ContentTypeJSON is the body content type every outbound request carries
// unless a caller overrides it.
const ContentTypeJSON = "application/json"

// BearerValue renders a credential as an Authorization header value.
func BearerValue(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	return "Bearer " + raw
}

// HeaderDefaults is the shared header registry the source resolver installs
// the bearer credential onto as soon as one is found, so requesters created
// before the full session is ready still carry auth.
type HeaderDefaults struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewHeaderDefaults() *HeaderDefaults {
	return &HeaderDefaults{values: map[string]string{}}
}

func (h *HeaderDefaults) Set(key string, value string) {
	if h == nil {
		return
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.values == nil {
		h.values = map[string]string{}
	}
	h.values[key] = strings.TrimSpace(value)
}

func (h *HeaderDefaults) Get(key string) string {
	if h == nil {
		return ""
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.values[strings.TrimSpace(key)]
}

func (h *HeaderDefaults) Delete(key string) {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.values, strings.TrimSpace(key))
}

// Snapshot returns a copy safe to iterate while writers proceed.
func (h *HeaderDefaults) Snapshot() map[string]string {
	if h == nil {
		return map[string]string{}
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make(map[string]string, len(h.values))
	for key, value := range h.values {
		out[key] = value
	}
	return out
}
