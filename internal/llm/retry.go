package llm

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"
)

// Transient failure retry parameters: five attempts with exponential
// backoff starting at two seconds plus up to ten percent jitter.
const (
	transientAttempts = 5
	transientBase     = 2 * time.Second
	jitterFraction    = 0.1
)

// transientMarkers are matched case-insensitively against error text to
// decide whether a call is worth repeating.
var transientMarkers = []string{
	"rate limit",
	"rate_limit",
	"429",
	"connection",
	"timeout",
	"timed out",
	"deadline exceeded",
	"overloaded",
	"internal server error",
	"500",
	"502",
	"503",
	"529",
}

// isTransient reports whether err looks like a temporary API failure.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	text := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(text, marker) {
			return true
		}
	}

	return false
}

// withRetry runs call, repeating on transient failures with backoff.
// Non-transient errors and context cancellation end the loop at once.
func withRetry(ctx context.Context, call func() error) error {
	var err error
	for attempt := 0; attempt < transientAttempts; attempt++ {
		err = call()
		if err == nil {
			return nil
		}
		if !isTransient(err) || attempt == transientAttempts-1 {
			break
		}

		delay := transientBase * (1 << attempt)
		delay += time.Duration(rand.Float64() * jitterFraction * float64(delay))
		fmt.Printf("  Transient API error (attempt %d/%d), retrying in %s: %v\n",
			attempt+1, transientAttempts, delay.Round(100*time.Millisecond), err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return err
}
