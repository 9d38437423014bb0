// Package httpcache stores raw catalog responses keyed by the exact outgoing
// request. It has a bounded in-memory tier and an optional bounded on-disk
// tier. Eviction is least-recently-used in both.
package httpcache

import (
	"net/http"
	"sort"
	"strings"
)

// Store is a response body cache. Get reports a miss with ok == false.
type Store interface {
	Get(key string) (body []byte, ok bool, err error)
	Put(key string, body []byte) error
}

// Key derives the cache key for a request from its method, URL and headers.
// Header names are canonicalized and sorted so equal requests map to the same key.
func Key(req *http.Request) string {
	var b strings.Builder
	b.WriteString(req.Method)
	b.WriteByte(' ')
	b.WriteString(req.URL.String())

	names := make([]string, 0, len(req.Header))
	for name := range req.Header {
		names = append(names, http.CanonicalHeaderKey(name))
	}
	sort.Strings(names)

	for _, name := range names {
		b.WriteByte('\n')
		b.WriteString(name)
		b.WriteString(": ")
		b.WriteString(strings.Join(req.Header.Values(name), ", "))
	}
	return b.String()
}
