package middleware

import (
	"net/http"

	"github.com/angelmondragon/stockledger/api/validators"
	"github.com/angelmondragon/stockledger/pkg/logger"
)

const (
	actorHeader    = "X-Actor-Id"
	maxActorLength = 255
)

// Actor records the X-Actor-Id header on the request context so ledger
// operations can stamp it on audit entries. The header is optional.
func Actor(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := validators.SanitizeString(r.Header.Get(actorHeader), maxActorLength)
			if actor == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := WithActorID(r.Context(), actor)
			if logg != nil {
				ctx = logg.WithActorID(ctx, actor)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
