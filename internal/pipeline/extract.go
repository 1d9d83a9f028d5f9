package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"sketchtex/internal/geometry"
	"sketchtex/internal/imageproc"
	"sketchtex/internal/llm"
	"sketchtex/internal/prompt"
)

var promptExtract = prompt.MustBuild(prompt.Spec{
	Purpose: "Analyze the attached image of a hand-drawn or printed geometric diagram and extract its structure as typed data.",
	Background: "The image has been preprocessed: geometry is rendered bright against a dark field and extraneous borders are removed. " +
		"Pixel coordinates are measured from the top-left corner of the image.",
	OutputFields: []prompt.Field{
		{Name: "figureFound", Type: "boolean", Required: true, Description: "true only when a discernible geometric figure is present"},
		{Name: "boundingBox", Type: "object {x,y,width,height: integer}", Required: false, Description: "tightest pixel box around the figure; required when figureFound is true"},
		{Name: "geometry", Type: "object {vertices,edges,annotations}", Required: false, Description: "vertices: [{label,x,y}]; edges: [{from,to,style:\"solid\"|\"dashed\"}]; annotations: [{label,kind:\"angle\"|\"side-label\"|\"relationship\",locationHint}]"},
		{Name: "confidence", Type: "number", Required: false, Description: "0.0-1.0; required when figureFound is true"},
	},
	Constraints: []string{
		"Vertex labels must be unique; every edge endpoint must name an existing vertex.",
		"Return figureFound=false for blank, solid-colored, or text-only images; omit all other fields in that case.",
		"Do not invent vertices or edges that are not visible in the image.",
	},
	Rules: []string{
		"STRICT JSON only. No comments, no trailing commas, no Markdown, no code fences.",
	},
	OutputFormat: "single JSON object matching the OUTPUT fields",
})

// Extractor turns a normalized image into a typed geometric model via
// the perception capability.
type Extractor struct {
	LLM llm.Client
}

type extractResponse struct {
	FigureFound bool                  `json:"figureFound"`
	BoundingBox *geometry.BoundingBox `json:"boundingBox"`
	Geometry    *geometry.Figure      `json:"geometry"`
	Confidence  *float64              `json:"confidence"`
}

// Run calls the perception capability and defensively validates the
// response at the trust boundary. A reported "no figure" is a valid
// outcome, not an error.
func (p *Extractor) Run(ctx context.Context, img *imageproc.Normalized) (geometry.AnalysisOutcome, error) {
	raw, err := p.LLM.GenerateVisionJSON(ctx, promptExtract, llm.Image{Data: img.PNG, MIME: img.MIME})
	if err != nil {
		return geometry.AnalysisOutcome{}, err
	}

	var resp extractResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return geometry.AnalysisOutcome{}, &ExtractionFormatError{Err: err}
	}
	if !resp.FigureFound {
		return geometry.AnalysisOutcome{Found: false}, nil
	}
	if resp.BoundingBox == nil || resp.Geometry == nil || resp.Confidence == nil {
		return geometry.AnalysisOutcome{}, &ExtractionFormatError{Err: fmt.Errorf("figureFound=true but boundingBox, geometry, or confidence is missing")}
	}
	if *resp.Confidence < 0 || *resp.Confidence > 1 {
		return geometry.AnalysisOutcome{}, &ExtractionFormatError{Err: fmt.Errorf("confidence %v outside [0,1]", *resp.Confidence)}
	}
	if err := resp.Geometry.Validate(); err != nil {
		return geometry.AnalysisOutcome{}, &ExtractionFormatError{Err: err}
	}
	if *resp.Confidence < geometry.AdvisoryConfidence {
		log.Printf("extractor: low confidence %.2f (advisory only)", *resp.Confidence)
	}
	return geometry.AnalysisOutcome{
		Found:      true,
		Box:        *resp.BoundingBox,
		Figure:     *resp.Geometry,
		Confidence: *resp.Confidence,
	}, nil
}
