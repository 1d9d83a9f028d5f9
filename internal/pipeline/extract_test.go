package pipeline

import (
	"context"
	"errors"
	"image"
	"testing"

	"sketchtex/internal/imageproc"
	"sketchtex/internal/llm"
)

func testImage() *imageproc.Normalized {
	return &imageproc.Normalized{
		Image: image.NewGray(image.Rect(0, 0, 200, 200)),
		PNG:   []byte("png-bytes"),
		MIME:  "image/png",
	}
}

const foundTriangleJSON = `{
  "figureFound": true,
  "boundingBox": {"x": 10, "y": 10, "width": 100, "height": 100},
  "geometry": {
    "vertices": [
      {"label": "A", "x": 0, "y": 0},
      {"label": "B", "x": 4, "y": 0},
      {"label": "C", "x": 2, "y": 3}
    ],
    "edges": [
      {"from": "A", "to": "B", "style": "solid"},
      {"from": "B", "to": "C", "style": "solid"},
      {"from": "C", "to": "A", "style": "dashed"}
    ],
    "annotations": [
      {"label": "60°", "kind": "angle", "locationHint": "at vertex A"}
    ]
  },
  "confidence": 0.92
}`

func TestExtractor_Found(t *testing.T) {
	ex := &Extractor{LLM: llm.NewFakeClient(llm.FakeResponse{JSON: foundTriangleJSON})}
	out, err := ex.Run(context.Background(), testImage())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if !out.Found {
		t.Fatal("expected Found outcome")
	}
	if len(out.Figure.Vertices) != 3 || len(out.Figure.Edges) != 3 {
		t.Fatalf("unexpected figure: %+v", out.Figure)
	}
	if out.Box.Width != 100 || out.Box.Height != 100 {
		t.Fatalf("unexpected box: %+v", out.Box)
	}
	if out.Confidence != 0.92 {
		t.Fatalf("unexpected confidence %v", out.Confidence)
	}
}

func TestExtractor_NotFoundIsNotAnError(t *testing.T) {
	ex := &Extractor{LLM: llm.NewFakeClient(llm.FakeResponse{JSON: `{"figureFound": false}`})}
	out, err := ex.Run(context.Background(), testImage())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if out.Found {
		t.Fatal("expected NotFound outcome")
	}
}

func TestExtractor_SchemaViolations(t *testing.T) {
	cases := map[string]string{
		"unparseable payload":  `this is not json`,
		"missing fields":       `{"figureFound": true}`,
		"confidence too large": `{"figureFound": true, "boundingBox": {"x":0,"y":0,"width":10,"height":10}, "geometry": {"vertices":[{"label":"A","x":0,"y":0}], "edges":[], "annotations":[]}, "confidence": 1.5}`,
		"dangling edge":        `{"figureFound": true, "boundingBox": {"x":0,"y":0,"width":10,"height":10}, "geometry": {"vertices":[{"label":"A","x":0,"y":0}], "edges":[{"from":"A","to":"Z","style":"solid"}], "annotations":[]}, "confidence": 0.8}`,
	}
	for name, payload := range cases {
		ex := &Extractor{LLM: llm.NewFakeClient(llm.FakeResponse{JSON: payload})}
		_, err := ex.Run(context.Background(), testImage())
		var fErr *ExtractionFormatError
		if !errors.As(err, &fErr) {
			t.Fatalf("%s: expected ExtractionFormatError, got %v", name, err)
		}
	}
}

func TestExtractor_LowConfidenceDoesNotBlock(t *testing.T) {
	payload := `{"figureFound": true, "boundingBox": {"x":0,"y":0,"width":10,"height":10}, "geometry": {"vertices":[{"label":"A","x":0,"y":0}], "edges":[], "annotations":[]}, "confidence": 0.3}`
	ex := &Extractor{LLM: llm.NewFakeClient(llm.FakeResponse{JSON: payload})}
	out, err := ex.Run(context.Background(), testImage())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if !out.Found || !out.LowConfidence() {
		t.Fatalf("expected found, low-confidence outcome, got %+v", out)
	}
}

func TestExtractor_PropagatesCapabilityError(t *testing.T) {
	capErr := errors.New("capability down")
	ex := &Extractor{LLM: llm.NewFakeClient(llm.FakeResponse{Err: capErr})}
	_, err := ex.Run(context.Background(), testImage())
	if !errors.Is(err, capErr) {
		t.Fatalf("expected capability error, got %v", err)
	}
}
