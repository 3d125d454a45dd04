package validators

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/stockledger/pkg/errors"
)

// queryValue parses the named query parameter with parse, returning fallback
// when it is absent or blank.
func queryValue[T any](r *http.Request, key string, fallback T, parse func(string) (T, error), want string) (T, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := parse(raw)
	if err != nil {
		var zero T
		return zero, pkgerrors.Wrapf(pkgerrors.CodeValidation, err, "query parameter must be %s", want).
			WithDetails(map[string]any{"field": key})
	}
	return v, nil
}

func ParseQueryInt(r *http.Request, key string, defaultVal, min, max int) (int, error) {
	v, err := queryValue(r, key, defaultVal, strconv.Atoi, "numeric")
	if err != nil {
		return 0, err
	}
	if v < min || v > max {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter out of range").
			WithDetails(map[string]any{"field": key, "min": min, "max": max})
	}
	return v, nil
}

// ParseQueryUUID returns nil when the parameter is absent.
func ParseQueryUUID(r *http.Request, key string) (*uuid.UUID, error) {
	return queryValue[*uuid.UUID](r, key, nil, func(raw string) (*uuid.UUID, error) {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, err
		}
		return &id, nil
	}, "a UUID")
}

func ParseQueryBool(r *http.Request, key string) (bool, error) {
	return queryValue(r, key, false, strconv.ParseBool, "a boolean")
}

// ParseQueryTime parses an RFC3339 timestamp, defaulting to fallback when absent.
func ParseQueryTime(r *http.Request, key string, fallback time.Time) (time.Time, error) {
	return queryValue(r, key, fallback, func(raw string) (time.Time, error) {
		return time.Parse(time.RFC3339, raw)
	}, "RFC3339")
}

// ParseUUIDParam reads a chi URL parameter as a UUID.
func ParseUUIDParam(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, name)))
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid path parameter").
			WithDetails(map[string]any{"field": name})
	}
	return id, nil
}
