package llm

import (
	"context"
	"encoding/json"
	"time"
)

// Timeout bounds every generation call. Capability providers can hang;
// a call exceeding d fails with context.DeadlineExceeded, which callers
// report as that stage's failure. Apply innermost so each retry attempt
// gets its own deadline.
func Timeout(d time.Duration) Middleware {
	if d <= 0 {
		d = 90 * time.Second
	}
	return func(next Client) Client {
		return &timed{next: next, d: d}
	}
}

type timed struct {
	next Client
	d    time.Duration
}

func (t *timed) Name() string { return t.next.Name() }
func (t *timed) Close() error { return t.next.Close() }

func (t *timed) GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()
	return t.next.GenerateJSON(ctx, prompt, input)
}

func (t *timed) GenerateVisionJSON(ctx context.Context, prompt string, img Image) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()
	return t.next.GenerateVisionJSON(ctx, prompt, img)
}
