package pagination

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, NormalizeLimit(0))
	assert.Equal(t, MaxLimit, NormalizeLimit(MaxLimit+10))
	assert.Equal(t, 7, NormalizeLimit(7))
	assert.Equal(t, 8, LimitWithBuffer(7))
}

func TestCursorRoundTrip(t *testing.T) {
	original := Cursor{CreatedAt: time.Date(2026, 3, 4, 5, 6, 7, 8, time.UTC), ID: uuid.New()}
	parsed, err := ParseCursor(EncodeCursor(original))
	require.NoError(t, err)
	require.NotNil(t, parsed)
	assert.True(t, parsed.CreatedAt.Equal(original.CreatedAt))
	assert.Equal(t, original.ID, parsed.ID)

	empty, err := ParseCursor("  ")
	require.NoError(t, err)
	assert.Nil(t, empty)

	_, err = ParseCursor("%%%")
	assert.Error(t, err)
}

func TestVersionCursor(t *testing.T) {
	v, err := ParseVersionCursor(EncodeVersionCursor(42))
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	v, err = ParseVersionCursor("")
	require.NoError(t, err)
	assert.Zero(t, v)

	_, err = ParseVersionCursor(EncodeCursor(Cursor{ID: uuid.New()}))
	assert.Error(t, err)
}

func TestTrim(t *testing.T) {
	rows := []int{1, 2, 3, 4}
	page, more := Trim(rows, 3)
	assert.Equal(t, []int{1, 2, 3}, page)
	assert.True(t, more)

	page, more = Trim(rows[:2], 3)
	assert.Len(t, page, 2)
	assert.False(t, more)
}

func TestCursorKindsDoNotMix(t *testing.T) {
	keyset := EncodeCursor(Cursor{CreatedAt: time.Now(), ID: uuid.New()})
	_, err := ParseVersionCursor(keyset)
	assert.ErrorIs(t, err, ErrInvalidCursor)

	_, err = ParseCursor(EncodeVersionCursor(3))
	assert.ErrorIs(t, err, ErrInvalidCursor)

	assert.NotContains(t, keyset, "=")
	assert.NotContains(t, keyset, "+")
	assert.NotContains(t, keyset, "/")
}
