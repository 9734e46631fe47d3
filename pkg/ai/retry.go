package ai

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrBlankCompletion reports that the provider returned only whitespace.
var ErrBlankCompletion = errors.New("blank completion")

// RetryConfig controls the retry decorator. Attempts are fixed-delay:
// every failed attempt waits Delay before the next one.
type RetryConfig struct {
	Attempts int
	Delay    time.Duration
}

// retryGenerator is a TextGenerator decorator that retries failed
// generations. A completion consisting only of whitespace is treated
// as a failure.
type retryGenerator struct {
	inner TextGenerator
	cfg   RetryConfig
}

// WithRetry wraps a TextGenerator with fixed-delay retry logic.
func WithRetry(inner TextGenerator, cfg RetryConfig) TextGenerator {
	if cfg.Attempts < 1 {
		cfg.Attempts = 1
	}
	return &retryGenerator{inner: inner, cfg: cfg}
}

func (r *retryGenerator) GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	var lastErr error
	for attempt := 0; attempt < r.cfg.Attempts; attempt++ {
		text, err := r.inner.GenerateText(ctx, systemPrompt, userPrompt)
		if err == nil {
			if strings.TrimSpace(text) == "" {
				err = ErrBlankCompletion
			} else {
				return text, nil
			}
		}
		lastErr = err

		// Context errors are never retried.
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}

		// Last attempt, don't sleep.
		if attempt == r.cfg.Attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(r.cfg.Delay):
		}
	}
	return "", lastErr
}
