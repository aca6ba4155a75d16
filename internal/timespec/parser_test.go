package timespec

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Run("RFC3339 timestamp", func(t *testing.T) {
		ms, err := Parse("2026-08-29T13:00:00Z")
		require.NoError(t, err)
		assert.Equal(t, time.Date(2026, 8, 29, 13, 0, 0, 0, time.UTC).UnixMilli(), ms)
	})

	t.Run("relative duration", func(t *testing.T) {
		before := time.Now().Add(-time.Hour).UnixMilli()
		ms, err := Parse("1h")
		require.NoError(t, err)
		after := time.Now().Add(-time.Hour).UnixMilli()
		assert.GreaterOrEqual(t, ms, before)
		assert.LessOrEqual(t, ms, after)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := Parse("next tuesday")
		assert.Error(t, err)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := Parse("")
		assert.Error(t, err)
	})
}

func TestParseRange(t *testing.T) {
	t.Run("both bounds", func(t *testing.T) {
		since, until, err := ParseRange("2026-01-01T00:00:00Z", "2026-02-01T00:00:00Z")
		require.NoError(t, err)
		assert.Less(t, since, until)
	})

	t.Run("unbounded", func(t *testing.T) {
		since, until, err := ParseRange("", "")
		require.NoError(t, err)
		assert.Zero(t, since)
		assert.Zero(t, until)
	})

	t.Run("inverted range rejected", func(t *testing.T) {
		_, _, err := ParseRange("2026-02-01T00:00:00Z", "2026-01-01T00:00:00Z")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "--since must be before --until")
	})

	t.Run("bad since flagged as such", func(t *testing.T) {
		_, _, err := ParseRange("bogus", "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid --since")
	})
}
