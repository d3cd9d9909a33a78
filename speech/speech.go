// Package speech defines the contract for the external text-to-speech
// collaborator and the gate its output must pass before entering a
// manifest. Vendor adapters live outside this repository.
package speech

import (
	"context"

	"shortreel-pipeline/emphasis"
	"shortreel-pipeline/types"
)

// SynthesisResult is what a synthesizer returns for one narration segment.
// Emphasis annotations index into the Timestamps sequence.
type SynthesisResult struct {
	Audio      []byte
	Format     string
	DurationMs int
	Timestamps []types.WordTimestamp
	Emphasis   []types.EmphasisAnnotation
}

// Synthesizer turns narration text into timed, emphasis-annotated audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (*SynthesisResult, error)
}

// GateNarration validates a synthesis result's emphasis annotations against
// its own word count. A violation blocks the segment from the manifest;
// emphasis data is never truncated to fit.
func GateNarration(res *SynthesisResult) error {
	return emphasis.Validate(len(res.Timestamps), res.Emphasis)
}
