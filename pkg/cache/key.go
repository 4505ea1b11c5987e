// Package cache provides Redis-backed caching of backend GET responses.
// Dashboard views re-request the same statistics endpoints on every render;
// caching keeps those reads off a backend that computes them slowly.
package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// keyNamespace prefixes every cache key so the Redis database can be
// shared with other tooling.
const keyNamespace = "propwatch:resp"

// Key identifies a cached GET response.
type Key struct {
	// Path is the endpoint path, e.g. "/api/stats/overview".
	Path string

	// Query is the request's query parameters.
	Query url.Values
}

// String generates a deterministic cache key.
// Format: propwatch:resp:<path>:k1=v1:k2=v2 (query sorted by key).
func (k Key) String() string {
	parts := []string{keyNamespace}

	path := strings.Trim(k.Path, "/")
	if path != "" {
		parts = append(parts, path)
	}

	if len(k.Query) > 0 {
		keys := make([]string, 0, len(k.Query))
		for key := range k.Query {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		for _, key := range keys {
			parts = append(parts, fmt.Sprintf("%s=%s", key, k.Query.Get(key)))
		}
	}

	return strings.Join(parts, ":")
}

// PrefixPattern returns the Redis match pattern covering every cached
// response under the given endpoint path. Used for invalidation after
// mutations.
func PrefixPattern(path string) string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return keyNamespace + ":*"
	}
	return keyNamespace + ":" + trimmed + "*"
}
