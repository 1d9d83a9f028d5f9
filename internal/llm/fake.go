package llm

import (
	"context"
	"encoding/json"
	"sync"
)

// FakeClient returns scripted JSON payloads in order, for offline runs
// and tests. When the script is exhausted it keeps replaying the last
// entry; an entry with a non-nil Err fails the call instead.
type FakeClient struct {
	mu     sync.Mutex
	script []FakeResponse
	calls  int
}

// FakeResponse is one scripted reply.
type FakeResponse struct {
	JSON string
	Err  error
}

func NewFakeClient(script ...FakeResponse) *FakeClient {
	return &FakeClient{script: script}
}

func (f *FakeClient) Name() string { return "FakeLLM" }
func (f *FakeClient) Close() error { return nil }

// Calls reports how many generations were requested.
func (f *FakeClient) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *FakeClient) next() (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if len(f.script) == 0 {
		return json.RawMessage(`{}`), nil
	}
	i := f.calls - 1
	if i >= len(f.script) {
		i = len(f.script) - 1
	}
	r := f.script[i]
	if r.Err != nil {
		return nil, r.Err
	}
	return json.RawMessage(r.JSON), nil
}

func (f *FakeClient) GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return f.next()
}

func (f *FakeClient) GenerateVisionJSON(ctx context.Context, prompt string, img Image) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return f.next()
}
