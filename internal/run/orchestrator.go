package run

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"

	"sketchtex/internal/geometry"
	"sketchtex/internal/imageproc"
	"sketchtex/internal/pipeline"
)

// MaxCorrectionAttempts bounds the verify/correct cycle: one initial
// generation plus this many corrections, then the run errors out.
const MaxCorrectionAttempts = 2

// Stage interfaces mirror the pipeline components so runs are testable
// with stubs in place of capability-backed implementations.
type Extractor interface {
	Run(ctx context.Context, img *imageproc.Normalized) (geometry.AnalysisOutcome, error)
}

type Generator interface {
	Run(ctx context.Context, figure geometry.Figure) (pipeline.Artifact, error)
}

type Corrector interface {
	Run(ctx context.Context, prev pipeline.Artifact, diagnosticLog string) (pipeline.Artifact, error)
}

type Verifier interface {
	Run(ctx context.Context, artifact pipeline.Artifact) (pipeline.Verdict, error)
}

// Orchestrator sequences one run end to end and owns the bounded
// correction loop.
type Orchestrator struct {
	Extract  Extractor
	Generate Generator
	Correct  Corrector
	Verify   Verifier

	// Progress receives every state transition. Optional.
	Progress func(Event)
}

// Result is the terminal outcome of a run.
type Result struct {
	State        State
	FailureCause string

	Artifact pipeline.Artifact
	Outcome  geometry.AnalysisOutcome
	// Preview is the validated-box crop of the normalized image, produced
	// for display only. Nil when the run errors before cropping.
	Preview image.Image
}

func (o *Orchestrator) emit(s State, detail string) {
	if o.Progress != nil {
		o.Progress(Event{State: s, Detail: detail})
	}
}

func (o *Orchestrator) errored(cause string) (Result, error) {
	o.emit(StateErrored, cause)
	return Result{State: StateErrored, FailureCause: cause}, errors.New(cause)
}

// Run drives a single image through preprocess, analyze, generate and
// the bounded verify/correct cycle. The returned error is non-nil
// exactly when the run terminates in StateErrored, and its message is
// the user-legible cause. A canceled context aborts at the next
// suspension boundary.
func (o *Orchestrator) Run(ctx context.Context, rawImage []byte) (Result, error) {
	o.emit(StatePreprocessing, "")
	norm, err := imageproc.Normalize(rawImage)
	if err != nil {
		var dErr *imageproc.DecodeError
		if errors.As(err, &dErr) {
			return o.errored("the selected file could not be decoded as an image; please supply a PNG or JPEG")
		}
		return o.errored(fmt.Sprintf("image preprocessing failed: %v", err))
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	o.emit(StateAnalyzing, "")
	outcome, err := o.Extract.Run(ctx, norm)
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		var fErr *pipeline.ExtractionFormatError
		if errors.As(err, &fErr) {
			return o.errored("the analysis service returned an unusable response; please try again")
		}
		return o.errored(fmt.Sprintf("image analysis failed: %v", err))
	}
	if !outcome.Found {
		return o.errored("no geometric figure identified in the image")
	}
	if outcome.LowConfidence() {
		o.emit(StateAnalyzing, fmt.Sprintf("low extraction confidence (%.2f)", outcome.Confidence))
	}

	box, err := geometry.ValidateBox(outcome.Box, norm.Width(), norm.Height())
	if err != nil {
		return o.errored("the analysis service located the figure outside the image; please try a clearer photo")
	}
	outcome.Box = box

	// The display crop has no data dependency on code generation, so it
	// runs alongside it.
	previewCh := make(chan image.Image, 1)
	go func() {
		previewCh <- imageproc.Crop(norm.Image, box)
	}()

	o.emit(StateGenerating, "")
	artifact, err := o.Generate.Run(ctx, outcome.Figure)
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		var fErr *pipeline.GenerationFormatError
		if errors.As(err, &fErr) {
			return o.errored("the code generation service returned an unusable response; please try again")
		}
		return o.errored(fmt.Sprintf("code generation failed: %v", err))
	}

	var lastLog string
	for attempt := 0; ; attempt++ {
		o.emit(StateVerifying, fmt.Sprintf("attempt %d", attempt+1))
		verdict, err := o.Verify.Run(ctx, artifact)
		if err != nil {
			if ctx.Err() != nil {
				return Result{}, ctx.Err()
			}
			// Transport failures carry no usable log and do not consume a
			// correction attempt; the run ends here.
			return o.errored(fmt.Sprintf("could not reach the compilation service: %v", err))
		}
		if verdict.Compiled {
			break
		}
		lastLog = verdict.DiagnosticLog
		if attempt == MaxCorrectionAttempts {
			return o.errored(fmt.Sprintf(
				"the generated code failed to compile after %d attempts; last compiler output:\n%s",
				attempt+1, lastLog))
		}

		o.emit(StateCorrecting, fmt.Sprintf("attempt %d", attempt+1))
		log.Printf("run: verification failed (attempt %d), requesting correction", attempt+1)
		artifact, err = o.Correct.Run(ctx, artifact, lastLog)
		if err != nil {
			if ctx.Err() != nil {
				return Result{}, ctx.Err()
			}
			var fErr *pipeline.CorrectionFormatError
			if errors.As(err, &fErr) {
				return o.errored("the code correction service returned an unusable response; please try again")
			}
			return o.errored(fmt.Sprintf("code correction failed: %v", err))
		}
	}

	preview := <-previewCh
	o.emit(StateDone, "")
	return Result{
		State:    StateDone,
		Artifact: artifact,
		Outcome:  outcome,
		Preview:  preview,
	}, nil
}
