package ai

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestWithRetrySucceedsAfterFailures(t *testing.T) {
	calls := 0
	gen := WithRetry(TextGeneratorFunc(func(ctx context.Context, system, user string) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("transient")
		}
		return "ok", nil
	}), RetryConfig{Attempts: 3, Delay: time.Millisecond})

	text, err := gen.GenerateText(context.Background(), "", "prompt")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if text != "ok" {
		t.Fatalf("unexpected text: %q", text)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestWithRetryTreatsBlankAsFailure(t *testing.T) {
	calls := 0
	gen := WithRetry(TextGeneratorFunc(func(ctx context.Context, system, user string) (string, error) {
		calls++
		return "   \n", nil
	}), RetryConfig{Attempts: 3, Delay: time.Millisecond})

	if _, err := gen.GenerateText(context.Background(), "", "prompt"); !errors.Is(err, ErrBlankCompletion) {
		t.Fatalf("expected blank completion error, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestWithRetryExhaustsAttempts(t *testing.T) {
	calls := 0
	wantErr := errors.New("provider down")
	gen := WithRetry(TextGeneratorFunc(func(ctx context.Context, system, user string) (string, error) {
		calls++
		return "", wantErr
	}), RetryConfig{Attempts: 3, Delay: time.Millisecond})

	if _, err := gen.GenerateText(context.Background(), "", "prompt"); !errors.Is(err, wantErr) {
		t.Fatalf("expected provider error, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestWithRetryStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	gen := WithRetry(TextGeneratorFunc(func(ctx context.Context, system, user string) (string, error) {
		calls++
		cancel()
		return "", errors.New("transient")
	}), RetryConfig{Attempts: 3, Delay: time.Minute})

	if _, err := gen.GenerateText(ctx, "", "prompt"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}
