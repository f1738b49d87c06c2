package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsTransient(t *testing.T) {
	t.Parallel()

	transient := []string{
		"rate limit exceeded",
		"HTTP 429 Too Many Requests",
		"connection reset by peer",
		"request timed out",
		"context deadline exceeded",
		"server overloaded (529)",
		"HTTP 503 Service Unavailable",
	}
	for _, text := range transient {
		assert.True(t, isTransient(errors.New(text)), text)
	}

	assert.False(t, isTransient(errors.New("invalid api key")))
	assert.False(t, isTransient(errors.New("model not found")))
	assert.False(t, isTransient(nil))
}

func TestWithRetry_SuccessFirstTry(t *testing.T) {
	t.Parallel()

	calls := 0
	err := withRetry(context.Background(), func() error {
		calls++

		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestWithRetry_NonTransientStopsImmediately(t *testing.T) {
	t.Parallel()

	calls := 0
	boom := errors.New("invalid api key")
	err := withRetry(context.Background(), func() error {
		calls++

		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}
