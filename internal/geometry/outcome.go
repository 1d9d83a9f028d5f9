package geometry

// AdvisoryConfidence is the threshold below which an extraction is
// surfaced as low quality. It never blocks the pipeline.
const AdvisoryConfidence = 0.7

// AnalysisOutcome is the tagged result of one extraction. Callers must
// branch on Found before touching the other fields.
type AnalysisOutcome struct {
	Found      bool
	Box        BoundingBox
	Figure     Figure
	Confidence float64
}

// LowConfidence reports whether a found figure fell below the advisory
// threshold.
func (o AnalysisOutcome) LowConfidence() bool {
	return o.Found && o.Confidence < AdvisoryConfidence
}
