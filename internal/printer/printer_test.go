package printer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestError(t *testing.T) {
	t.Run("returns error with title", func(t *testing.T) {
		err := Error("Test Error", "This is a test error", nil)
		require.Error(t, err)
		require.Equal(t, "Test Error", err.Error())
	})

	t.Run("returns error with title when including suggestions", func(t *testing.T) {
		err := Error("Test Error", "Explanation", []string{"Try this fix"})
		require.Error(t, err)
		require.Equal(t, "Test Error", err.Error())
	})

	t.Run("returns error with title for multiple suggestions", func(t *testing.T) {
		err := Error("Test Error", "Explanation", []string{
			"First option",
			"Second option",
		})
		require.Error(t, err)
		require.Equal(t, "Test Error", err.Error())
	})
}

func TestWarning(t *testing.T) {
	// Warning writes to stdout; only exercise that both prefix branches run.
	Warning("plain warning\n")
	Warning("⚠️  already prefixed\n")
}

// Note: Error prints formatted output to stderr with colors. The error
// object returned only contains the title for Cobra's error handling.
// This is intentional to avoid duplicate output while providing rich
// formatted errors.
