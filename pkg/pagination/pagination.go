// Package pagination implements the opaque keyset cursors used by every list
// endpoint. Tokens are URL safe and tagged with their kind, so a record cursor
// handed to a history endpoint fails instead of silently restarting.
package pagination

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultLimit = 25
	MaxLimit     = 100

	keysetKind  = "k"
	versionKind = "v"
	separator   = "|"
)

var ErrInvalidCursor = errors.New("invalid cursor")

type Params struct {
	Limit  int
	Cursor string
}

type Page[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"`
}

// Cursor is a (created_at, id) keyset position.
type Cursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

func NormalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}

// LimitWithBuffer fetches one extra row so Trim can tell whether a next page exists.
func LimitWithBuffer(limit int) int {
	return NormalizeLimit(limit) + 1
}

func Trim[T any](rows []T, limit int) ([]T, bool) {
	size := NormalizeLimit(limit)
	if len(rows) > size {
		return rows[:size], true
	}
	return rows, false
}

func EncodeCursor(cursor Cursor) string {
	return encode(keysetKind, cursor.CreatedAt.UTC().Format(time.RFC3339Nano), cursor.ID.String())
}

// ParseCursor returns nil for a blank value.
func ParseCursor(value string) (*Cursor, error) {
	fields, err := decode(value, keysetKind, 2)
	if err != nil || fields == nil {
		return nil, err
	}
	at, err := time.Parse(time.RFC3339Nano, fields[0])
	if err != nil {
		return nil, fmt.Errorf("%w: timestamp", ErrInvalidCursor)
	}
	id, err := uuid.Parse(fields[1])
	if err != nil {
		return nil, fmt.Errorf("%w: id", ErrInvalidCursor)
	}
	return &Cursor{CreatedAt: at, ID: id}, nil
}

// EncodeVersionCursor encodes a per-record audit version position.
func EncodeVersionCursor(version int) string {
	return encode(versionKind, strconv.Itoa(version))
}

// ParseVersionCursor returns zero for a blank value.
func ParseVersionCursor(value string) (int, error) {
	fields, err := decode(value, versionKind, 1)
	if err != nil || fields == nil {
		return 0, err
	}
	version, err := strconv.Atoi(fields[0])
	if err != nil || version < 0 {
		return 0, fmt.Errorf("%w: version", ErrInvalidCursor)
	}
	return version, nil
}

func encode(kind string, fields ...string) string {
	raw := kind + separator + strings.Join(fields, separator)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func decode(value, kind string, n int) ([]string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("%w: encoding", ErrInvalidCursor)
	}
	parts := strings.SplitN(string(raw), separator, n+1)
	if len(parts) != n+1 || parts[0] != kind {
		return nil, fmt.Errorf("%w: format", ErrInvalidCursor)
	}
	return parts[1:], nil
}
