package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/stockledger/api/validators"
	"github.com/angelmondragon/stockledger/pkg/logger"
	"github.com/angelmondragon/stockledger/pkg/outbox"
)

const (
	requestIDHeader    = "X-Request-Id"
	maxRequestIDLength = 128
)

// RequestID accepts a caller supplied X-Request-Id or mints one, echoes it on
// the response, and uses it as the correlation id of every event the request
// emits.
func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := validators.SanitizeString(r.Header.Get(requestIDHeader), maxRequestIDLength)
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set(requestIDHeader, id)

			ctx := withRequestID(r.Context(), id)
			ctx = outbox.WithCorrelationID(ctx, id)
			if logg != nil {
				ctx = logg.WithRequestID(ctx, id)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
