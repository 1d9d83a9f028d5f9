package pipeline

import (
	"context"
	"encoding/json"
	"log"

	"sketchtex/internal/geometry"
	"sketchtex/internal/llm"
	"sketchtex/internal/prompt"
)

var promptGenerate = prompt.MustBuild(prompt.Spec{
	Purpose: "Produce a complete LaTeX document that renders the given geometric figure with TikZ.",
	Background: "The input is a typed geometric model: labeled vertices with coordinates, edges between them " +
		"(solid or dashed), and annotations (angles, side labels, relationships) with textual location hints.",
	OutputFields: []prompt.Field{
		{Name: "sourceCode", Type: "string", Required: true, Description: "the full LaTeX source, from \\documentclass through \\end{document}"},
	},
	Constraints: []string{
		"The document must be syntactically self-contained and compile standalone.",
		"Declare every package the code uses, including \\usepackage{tikz}.",
		"Use embedded line breaks (\\n) throughout; never emit the document as a single unbroken line.",
		"Draw every edge with its stated style; place vertex labels and annotations per their location hints.",
	},
	Rules: []string{
		"STRICT JSON only: a single object with the sourceCode field. No Markdown, no code fences.",
	},
	OutputFormat: "single JSON object: {\"sourceCode\": \"...\"}",
})

// Generator turns a geometric figure into a drawing-language document
// via the generation capability. It never mutates the figure.
type Generator struct {
	LLM llm.Client
}

// Run serializes the figure as structured input and decodes the
// single-field artifact schema.
func (p *Generator) Run(ctx context.Context, figure geometry.Figure) (Artifact, error) {
	raw, err := p.LLM.GenerateJSON(ctx, promptGenerate, map[string]any{"figure": figure})
	if err != nil {
		return Artifact{}, err
	}
	var artifact Artifact
	if err := json.Unmarshal(raw, &artifact); err != nil {
		return Artifact{}, &GenerationFormatError{Err: err}
	}
	if err := checkArtifact(artifact); err != nil {
		return Artifact{}, &GenerationFormatError{Err: err}
	}
	if !bracesBalanced(artifact.SourceCode) {
		// Likely truncated; let the compiler produce the authoritative log.
		log.Printf("generator: artifact has unbalanced braces")
	}
	return artifact, nil
}
