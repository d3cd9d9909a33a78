// Package emphasis gates synthesized narration before the manifest accepts
// it: per-word emphasis annotations must stay within density caps and keep
// High-emphasis words spaced apart, regardless of which TTS vendor produced
// them.
package emphasis

import (
	"fmt"
	"math"
	"sort"

	"shortreel-pipeline/types"
)

const (
	// At most 20% of words may carry any emphasis, at most 5% may be High.
	maxDensity     = 0.20
	maxHighDensity = 0.05

	// Minimum word-index delta between two High-emphasis words.
	minHighSpacing = 3
)

// ConstraintError names the violated rule and the offending word indices.
type ConstraintError struct {
	Rule    string
	Indices []int
}

func (e *ConstraintError) Error() string {
	if len(e.Indices) > 0 {
		return fmt.Sprintf("emphasis constraint %q violated at word indices %v", e.Rule, e.Indices)
	}
	return fmt.Sprintf("emphasis constraint %q violated", e.Rule)
}

// Validate checks annotations against a narration segment of wordCount
// words. It performs no mutation; a nil return means the segment may enter
// the manifest.
func Validate(wordCount int, annotations []types.EmphasisAnnotation) error {
	for _, a := range annotations {
		switch a.Level {
		case types.EmphasisNone, types.EmphasisMed, types.EmphasisHigh:
		default:
			return &ConstraintError{Rule: "level", Indices: []int{a.WordIndex}}
		}
		switch a.Tone {
		case "", types.ToneWarm, types.ToneIntense:
		default:
			return &ConstraintError{Rule: "tone", Indices: []int{a.WordIndex}}
		}
		if a.WordIndex < 0 || a.WordIndex >= wordCount {
			return &ConstraintError{Rule: "word-index", Indices: []int{a.WordIndex}}
		}
	}

	var emphasized, high []int
	for _, a := range annotations {
		if a.Level == types.EmphasisNone {
			continue
		}
		emphasized = append(emphasized, a.WordIndex)
		if a.Level == types.EmphasisHigh {
			high = append(high, a.WordIndex)
		}
	}

	maxTotal := int(math.Ceil(maxDensity * float64(wordCount)))
	if len(emphasized) > maxTotal {
		return &ConstraintError{Rule: "density", Indices: emphasized}
	}
	maxHigh := int(math.Ceil(maxHighDensity * float64(wordCount)))
	if len(high) > maxHigh {
		return &ConstraintError{Rule: "high-density", Indices: high}
	}

	sort.Ints(high)
	for i := 1; i < len(high); i++ {
		if high[i]-high[i-1] < minHighSpacing {
			return &ConstraintError{Rule: "high-spacing", Indices: []int{high[i-1], high[i]}}
		}
	}
	return nil
}
