package pipeline

import (
	"context"
	"encoding/json"
	"log"

	"sketchtex/internal/llm"
	"sketchtex/internal/prompt"
)

var promptCorrect = prompt.MustBuild(prompt.Spec{
	Purpose: "Repair a LaTeX/TikZ document that failed to compile, using the compiler's diagnostic log.",
	Background: "The input carries the previous source code and the full diagnostic log from the failed " +
		"compilation. Fix the reported problems while preserving the drawn figure.",
	OutputFields: []prompt.Field{
		{Name: "sourceCode", Type: "string", Required: true, Description: "the complete corrected document, not a diff or patch"},
	},
	Constraints: []string{
		"Return the entire replacement document, from \\documentclass through \\end{document}.",
		"The document must be syntactically self-contained and declare every package it uses.",
		"Use embedded line breaks; never emit a single unbroken line.",
	},
	Rules: []string{
		"STRICT JSON only: a single object with the sourceCode field. No Markdown, no code fences.",
	},
	OutputFormat: "single JSON object: {\"sourceCode\": \"...\"}",
})

// Corrector turns a broken artifact plus its compiler log into a full
// replacement artifact.
type Corrector struct {
	LLM llm.Client
}

func (p *Corrector) Run(ctx context.Context, prev Artifact, diagnosticLog string) (Artifact, error) {
	raw, err := p.LLM.GenerateJSON(ctx, promptCorrect, map[string]any{
		"sourceCode":    prev.SourceCode,
		"diagnosticLog": diagnosticLog,
	})
	if err != nil {
		return Artifact{}, err
	}
	var artifact Artifact
	if err := json.Unmarshal(raw, &artifact); err != nil {
		return Artifact{}, &CorrectionFormatError{Err: err}
	}
	if err := checkArtifact(artifact); err != nil {
		return Artifact{}, &CorrectionFormatError{Err: err}
	}
	if !bracesBalanced(artifact.SourceCode) {
		log.Printf("corrector: artifact has unbalanced braces")
	}
	return artifact, nil
}
