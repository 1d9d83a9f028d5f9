package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidJSON = errors.New("llm: invalid JSON from model")

// Image is an encoded image handed to a vision-capable model.
type Image struct {
	Data []byte
	MIME string
}

// Client is the capability-provider abstraction. Both text-only and
// vision-backed generation return raw JSON; callers own schema decoding.
// Cross-cutting concerns (retries, logging) are applied via Middleware.
type Client interface {
	Name() string
	Close() error
	GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, error)
	GenerateVisionJSON(ctx context.Context, prompt string, img Image) (json.RawMessage, error)
}

// Middleware wraps a Client with additional behavior.
type Middleware func(Client) Client

// Chain applies middlewares outermost-first.
func Chain(c Client, mws ...Middleware) Client {
	for i := len(mws) - 1; i >= 0; i-- {
		c = mws[i](c)
	}
	return c
}

// PermanentError indicates an error that will not resolve with retries.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

func NewPermanentError(err error) error {
	return &PermanentError{Err: err}
}

// Effort trades latency for accuracy on perception calls.
type Effort string

const (
	EffortLow    Effort = "low"
	EffortMedium Effort = "medium"
	EffortHigh   Effort = "high"
)

// ParseEffort normalizes a user-supplied effort string.
func ParseEffort(s string) (Effort, error) {
	switch Effort(strings.ToLower(strings.TrimSpace(s))) {
	case "", EffortMedium:
		return EffortMedium, nil
	case EffortLow:
		return EffortLow, nil
	case EffortHigh:
		return EffortHigh, nil
	}
	return "", fmt.Errorf("llm: unknown effort %q (want low|medium|high)", s)
}
