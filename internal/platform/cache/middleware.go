package cache

import (
	"bytes"
	"net/http"
	"time"
)

// ResponseCache serves cached GET responses keyed by request URI. TTL is
// explicit and injected; there is no background invalidation, writes simply
// wait out the window.
type ResponseCache struct {
	store Store
	ttl   time.Duration
}

// NewResponseCache builds a ResponseCache with the given store and TTL.
func NewResponseCache(store Store, ttl time.Duration) *ResponseCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &ResponseCache{store: store, ttl: ttl}
}

// Middleware caches successful GET responses. Requests carrying an
// Authorization header bypass the cache so user-specific payloads never leak
// across identities.
func (c *ResponseCache) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if c == nil || c.store == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet || r.Header.Get("Authorization") != "" {
				next.ServeHTTP(w, r)
				return
			}

			key := "resp:" + r.URL.RequestURI()
			if cached, err := c.store.Get(r.Context(), key); err == nil {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("X-Cache", "hit")
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write(cached)
				return
			}

			recorder := &captureWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(recorder, r)

			if recorder.status == http.StatusOK && recorder.buf.Len() > 0 {
				_ = c.store.Set(r.Context(), key, recorder.buf.Bytes(), c.ttl)
			}
		})
	}
}

type captureWriter struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
}

func (w *captureWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *captureWriter) Write(b []byte) (int, error) {
	if w.status == http.StatusOK {
		w.buf.Write(b)
	}
	return w.ResponseWriter.Write(b)
}
