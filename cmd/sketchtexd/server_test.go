package main

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"sketchtex/internal/geometry"
	"sketchtex/internal/imageproc"
	"sketchtex/internal/pipeline"
	"sketchtex/internal/run"
)

type okExtractor struct{}

func (okExtractor) Run(ctx context.Context, img *imageproc.Normalized) (geometry.AnalysisOutcome, error) {
	return geometry.AnalysisOutcome{
		Found: true,
		Box:   geometry.BoundingBox{X: 10, Y: 10, Width: 100, Height: 100},
		Figure: geometry.Figure{
			Vertices: []geometry.Vertex{{Label: "A"}, {Label: "B"}, {Label: "C"}},
			Edges: []geometry.Edge{
				{From: "A", To: "B", Style: geometry.EdgeSolid},
				{From: "B", To: "C", Style: geometry.EdgeSolid},
				{From: "C", To: "A", Style: geometry.EdgeSolid},
			},
		},
		Confidence: 0.9,
	}, nil
}

type okGenerator struct{}

func (okGenerator) Run(ctx context.Context, figure geometry.Figure) (pipeline.Artifact, error) {
	return pipeline.Artifact{SourceCode: "doc\nbody"}, nil
}

type okCorrector struct{}

func (okCorrector) Run(ctx context.Context, prev pipeline.Artifact, diagnosticLog string) (pipeline.Artifact, error) {
	return prev, nil
}

type okVerifier struct{}

func (okVerifier) Run(ctx context.Context, artifact pipeline.Artifact) (pipeline.Verdict, error) {
	return pipeline.Verdict{Compiled: true}, nil
}

func newTestSession() *run.Session {
	return run.NewSession(run.SessionConfig{
		Orchestrator: run.Orchestrator{
			Extract:  okExtractor{},
			Generate: okGenerator{},
			Correct:  okCorrector{},
			Verify:   okVerifier{},
		},
		Model:  "test-model",
		Effort: "medium",
	})
}

func testImage(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 200, 200))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func awaitResult(t *testing.T, session *run.Session, runID string) *run.Result {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		if r, ok := session.Result(runID); ok {
			return r
		}
		select {
		case <-deadline:
			t.Fatalf("run %s did not finish", runID)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestStartRun_ReturnsRunIDAndSteps(t *testing.T) {
	session := newTestSession()
	srv := httptest.NewServer(newServer(session).routes())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/runs", "image/png", bytes.NewReader(testImage(t)))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var body struct {
		RunID string      `json:"runId"`
		Steps []run.State `json:"steps"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotEmpty(t, body.RunID)
	require.Equal(t, run.Steps, body.Steps)

	result := awaitResult(t, session, body.RunID)
	require.Equal(t, run.StateDone, result.State)
}

func TestWatch_ReplaysTerminalStateForDrainedRun(t *testing.T) {
	session := newTestSession()
	srv := httptest.NewServer(newServer(session).routes())
	defer srv.Close()

	runID := session.StartRun(testImage(t))
	awaitResult(t, session, runID)

	// Drain the event channel as a first watcher would, so a late
	// watcher finds it closed and empty.
	ch, ok := session.Watch(runID)
	require.True(t, ok)
	for range ch {
	}

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/runs/" + runID + "/watch"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	var ev run.Event
	require.NoError(t, conn.ReadJSON(&ev))
	require.Equal(t, run.StateDone, ev.State)
}

func TestResult_UnknownRunIs404(t *testing.T) {
	srv := httptest.NewServer(newServer(newTestSession()).routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/runs/run-unknown/result")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}
