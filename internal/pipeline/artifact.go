package pipeline

import (
	"fmt"
	"strings"
)

// Artifact is one generated drawing-language document. Corrections
// replace the whole artifact; there is no in-place patching, so every
// attempt stays independently inspectable.
type Artifact struct {
	SourceCode string `json:"sourceCode"`
}

// checkArtifact enforces the structural properties the generation schema
// promises: a non-empty document with embedded line breaks. Brace
// balance is reported separately; the compiler stays the authority on
// code semantics.
func checkArtifact(a Artifact) error {
	src := strings.TrimSpace(a.SourceCode)
	if src == "" {
		return fmt.Errorf("sourceCode is empty")
	}
	if !strings.Contains(src, "\n") {
		return fmt.Errorf("sourceCode is a single unbroken line")
	}
	return nil
}

// bracesBalanced walks the source counting { against }. A negative or
// non-zero final depth almost always means a truncated response.
func bracesBalanced(src string) bool {
	depth := 0
	for _, r := range src {
		switch r {
		case '{':
			depth++
		case '}':
			depth--
			if depth < 0 {
				return false
			}
		}
	}
	return depth == 0
}
