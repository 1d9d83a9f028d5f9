package llm

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Retry retries generation up to maxAttempts with exponential backoff
// starting at baseDelay. If context is canceled, it stops immediately.
func Retry(maxAttempts int, baseDelay time.Duration) Middleware {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if baseDelay <= 0 {
		baseDelay = 300 * time.Millisecond
	}
	return func(next Client) Client {
		return &retrying{next: next, max: maxAttempts, base: baseDelay}
	}
}

type retrying struct {
	next Client
	max  int
	base time.Duration
}

func (r *retrying) Name() string { return r.next.Name() }
func (r *retrying) Close() error { return r.next.Close() }

func (r *retrying) GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, error) {
	return r.attempt(ctx, func() (json.RawMessage, error) {
		return r.next.GenerateJSON(ctx, prompt, input)
	})
}

func (r *retrying) GenerateVisionJSON(ctx context.Context, prompt string, img Image) (json.RawMessage, error) {
	return r.attempt(ctx, func() (json.RawMessage, error) {
		return r.next.GenerateVisionJSON(ctx, prompt, img)
	})
}

func (r *retrying) attempt(ctx context.Context, call func() (json.RawMessage, error)) (json.RawMessage, error) {
	var last error
	for i := 0; i < r.max; i++ {
		resp, err := call()
		if err == nil {
			return resp, nil
		}
		// Permanent errors do not resolve with retries.
		var pErr *PermanentError
		if errors.As(err, &pErr) {
			return nil, err
		}
		last = err
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(r.base * time.Duration(1<<i)):
		}
	}
	return nil, last
}
