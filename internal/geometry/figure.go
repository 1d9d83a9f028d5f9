package geometry

import "fmt"

// EdgeStyle is how an edge is drawn.
type EdgeStyle string

const (
	EdgeSolid  EdgeStyle = "solid"
	EdgeDashed EdgeStyle = "dashed"
)

// AnnotationKind classifies a textual annotation on the figure.
type AnnotationKind string

const (
	AnnotationAngle        AnnotationKind = "angle"
	AnnotationSideLabel    AnnotationKind = "side-label"
	AnnotationRelationship AnnotationKind = "relationship"
)

// Vertex is a labeled point in the extracted coordinate frame.
type Vertex struct {
	Label string  `json:"label"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

// Edge connects two vertices by label.
type Edge struct {
	From  string    `json:"from"`
	To    string    `json:"to"`
	Style EdgeStyle `json:"style"`
}

// Annotation is a free-floating label with a textual location hint.
type Annotation struct {
	Label        string         `json:"label"`
	Kind         AnnotationKind `json:"kind"`
	LocationHint string         `json:"locationHint"`
}

// Figure is the canonical extracted representation. It is immutable once
// produced by the extractor; downstream stages only read it.
type Figure struct {
	Vertices    []Vertex     `json:"vertices"`
	Edges       []Edge       `json:"edges"`
	Annotations []Annotation `json:"annotations"`
}

// Validate enforces the figure invariants: vertex labels are unique,
// every edge endpoint references an existing vertex, and enums carry
// known values.
func (f *Figure) Validate() error {
	if len(f.Vertices) == 0 {
		return fmt.Errorf("figure has no vertices")
	}
	seen := make(map[string]bool, len(f.Vertices))
	for _, v := range f.Vertices {
		if v.Label == "" {
			return fmt.Errorf("vertex with empty label")
		}
		if seen[v.Label] {
			return fmt.Errorf("duplicate vertex label %q", v.Label)
		}
		seen[v.Label] = true
	}
	for _, e := range f.Edges {
		if !seen[e.From] {
			return fmt.Errorf("edge references unknown vertex %q", e.From)
		}
		if !seen[e.To] {
			return fmt.Errorf("edge references unknown vertex %q", e.To)
		}
		switch e.Style {
		case EdgeSolid, EdgeDashed:
		default:
			return fmt.Errorf("edge %s-%s has unknown style %q", e.From, e.To, e.Style)
		}
	}
	for _, a := range f.Annotations {
		switch a.Kind {
		case AnnotationAngle, AnnotationSideLabel, AnnotationRelationship:
		default:
			return fmt.Errorf("annotation %q has unknown kind %q", a.Label, a.Kind)
		}
	}
	return nil
}
