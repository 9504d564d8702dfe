package idempotency

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
)

const HeaderKey = "Idempotency-Key"

type keyChecker interface {
	Key(service, clientKey string) string
	Seen(ctx context.Context, key string) (bool, error)
}

// Middleware rejects a repeated Idempotency-Key on POST requests with 409.
// Requests without the header pass through, and a store outage fails open:
// losing duplicate protection is preferable to refusing all writes.
func Middleware(log *slog.Logger, store keyChecker, service string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}
			clientKey := r.Header.Get(HeaderKey)
			if clientKey == "" {
				next.ServeHTTP(w, r)
				return
			}

			seen, err := store.Seen(r.Context(), store.Key(service, clientKey))
			if err != nil {
				log.Warn("idempotency check failed, letting request through", "err", err)
				next.ServeHTTP(w, r)
				return
			}
			if seen {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusConflict)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "duplicate request"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
