package cache

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Entry represents one cached backend response.
type Entry struct {
	// Data is the JSON response body.
	Data []byte `json:"data"`

	// StatusCode of the cached response.
	StatusCode int `json:"status_code"`

	// Header holds the response headers.
	Header http.Header `json:"header"`

	// Expires is when the entry becomes stale.
	Expires time.Time `json:"expires"`

	// CachedAt is when the response was stored.
	CachedAt time.Time `json:"cached_at"`
}

// NewEntry builds an Entry from a response. The TTL comes from the
// Cache-Control max-age directive when present, otherwise fallbackTTL.
// A fallbackTTL of zero yields an already-expired entry, which Manager.Set
// refuses to store.
func NewEntry(data []byte, statusCode int, header http.Header, fallbackTTL time.Duration) *Entry {
	now := time.Now()
	ttl := fallbackTTL
	if maxAge, ok := ParseMaxAge(header); ok {
		ttl = maxAge
	}

	return &Entry{
		Data:       data,
		StatusCode: statusCode,
		Header:     header.Clone(),
		Expires:    now.Add(ttl),
		CachedAt:   now,
	}
}

// IsExpired returns true if the entry has gone stale.
func (e *Entry) IsExpired() bool {
	return time.Now().After(e.Expires)
}

// TTL returns the time until expiration, or 0 if already expired.
func (e *Entry) TTL() time.Duration {
	ttl := time.Until(e.Expires)
	if ttl < 0 {
		return 0
	}
	return ttl
}

// ParseMaxAge extracts the max-age directive from a Cache-Control header.
// no-store and no-cache force a zero TTL regardless of max-age.
func ParseMaxAge(header http.Header) (time.Duration, bool) {
	cacheControl := header.Get("Cache-Control")
	if cacheControl == "" {
		return 0, false
	}

	maxAge := time.Duration(-1)
	for _, directive := range strings.Split(cacheControl, ",") {
		directive = strings.TrimSpace(strings.ToLower(directive))
		switch {
		case directive == "no-store" || directive == "no-cache":
			return 0, true
		case strings.HasPrefix(directive, "max-age="):
			seconds, err := strconv.Atoi(strings.TrimPrefix(directive, "max-age="))
			if err != nil || seconds < 0 {
				continue
			}
			maxAge = time.Duration(seconds) * time.Second
		}
	}

	if maxAge < 0 {
		return 0, false
	}
	return maxAge, true
}
