package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Verdict is the ephemeral result of one verification call. Produced
// fresh per attempt and never persisted past the loop iteration that
// consumed it.
type Verdict struct {
	Compiled      bool
	DiagnosticLog string
}

// Verifier submits source text to an external compilation endpoint.
type Verifier struct {
	Endpoint string
	Compiler string
	HTTP     *http.Client
}

func NewVerifier(endpoint, compiler string) *Verifier {
	if compiler == "" {
		compiler = "pdflatex"
	}
	return &Verifier{
		Endpoint: endpoint,
		Compiler: compiler,
		HTTP:     &http.Client{Timeout: 60 * time.Second},
	}
}

type compileRequest struct {
	SourceCode   string `json:"sourceCode"`
	CompilerName string `json:"compilerName"`
}

type compileResponse struct {
	Status string `json:"status"`
	Log    string `json:"log"`
}

// Run returns a verdict when the compiler answered, or fails with
// VerificationTransportError when the service was unreachable or the
// body was not a structured result (e.g. an HTML error page). The
// distinction matters: a transport error carries no usable log and must
// not consume a correction attempt.
func (v *Verifier) Run(ctx context.Context, artifact Artifact) (Verdict, error) {
	body, _ := json.Marshal(compileRequest{SourceCode: artifact.SourceCode, CompilerName: v.Compiler})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.Endpoint, bytes.NewReader(body))
	if err != nil {
		return Verdict{}, &VerificationTransportError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.HTTP.Do(req)
	if err != nil {
		return Verdict{}, &VerificationTransportError{Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Verdict{}, &VerificationTransportError{Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Verdict{}, &VerificationTransportError{Err: err}
	}
	var result compileResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		return Verdict{}, &VerificationTransportError{Err: fmt.Errorf("non-structured response body")}
	}
	switch result.Status {
	case "ok":
		return Verdict{Compiled: true}, nil
	case "error":
		return Verdict{Compiled: false, DiagnosticLog: result.Log}, nil
	default:
		return Verdict{}, &VerificationTransportError{Err: fmt.Errorf("unknown result status %q", result.Status)}
	}
}
