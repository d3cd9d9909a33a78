package emphasis

import (
	"errors"
	"testing"

	"shortreel-pipeline/types"
)

func annotate(index int, level string) types.EmphasisAnnotation {
	return types.EmphasisAnnotation{WordIndex: index, Level: level}
}

// 5 High and 15 Med over 100 words, Highs spaced well apart: the largest
// set that still passes every cap.
func maxedOutSet() []types.EmphasisAnnotation {
	var set []types.EmphasisAnnotation
	for i := 0; i < 5; i++ {
		set = append(set, annotate(i*10, types.EmphasisHigh))
	}
	for i := 0; i < 15; i++ {
		set = append(set, annotate(i*5+2, types.EmphasisMed))
	}
	return set
}

func TestValidateAcceptsMaximalSet(t *testing.T) {
	if err := Validate(100, maxedOutSet()); err != nil {
		t.Fatalf("5 High + 15 Med over 100 words must pass, got %v", err)
	}
}

func TestValidateRejectsTooManyHigh(t *testing.T) {
	var set []types.EmphasisAnnotation
	for i := 0; i < 6; i++ {
		set = append(set, annotate(i*10, types.EmphasisHigh))
	}
	err := Validate(100, set)

	var ce *ConstraintError
	if !errors.As(err, &ce) {
		t.Fatalf("expected *ConstraintError, got %v", err)
	}
	if ce.Rule != "high-density" {
		t.Fatalf("rule = %q, want high-density", ce.Rule)
	}
}

func TestValidateRejectsTotalDensity(t *testing.T) {
	var set []types.EmphasisAnnotation
	for i := 0; i < 21; i++ {
		set = append(set, annotate(i, types.EmphasisMed))
	}
	err := Validate(100, set)

	var ce *ConstraintError
	if !errors.As(err, &ce) {
		t.Fatalf("expected *ConstraintError, got %v", err)
	}
	if ce.Rule != "density" {
		t.Fatalf("rule = %q, want density", ce.Rule)
	}
	if len(ce.Indices) != 21 {
		t.Fatalf("expected all 21 offending indices reported, got %d", len(ce.Indices))
	}
}

func TestValidateRejectsAdjacentHigh(t *testing.T) {
	set := []types.EmphasisAnnotation{
		annotate(10, types.EmphasisHigh),
		annotate(11, types.EmphasisHigh),
	}
	err := Validate(100, set)

	var ce *ConstraintError
	if !errors.As(err, &ce) {
		t.Fatalf("expected *ConstraintError, got %v", err)
	}
	if ce.Rule != "high-spacing" {
		t.Fatalf("rule = %q, want high-spacing", ce.Rule)
	}
	if len(ce.Indices) != 2 || ce.Indices[0] != 10 || ce.Indices[1] != 11 {
		t.Fatalf("expected offending pair [10 11], got %v", ce.Indices)
	}
}

func TestValidateSpacingBoundary(t *testing.T) {
	// Delta of exactly 3 passes; 2 fails.
	pass := []types.EmphasisAnnotation{annotate(0, types.EmphasisHigh), annotate(3, types.EmphasisHigh)}
	if err := Validate(100, pass); err != nil {
		t.Fatalf("index delta 3 must pass, got %v", err)
	}
	fail := []types.EmphasisAnnotation{annotate(0, types.EmphasisHigh), annotate(2, types.EmphasisHigh)}
	if err := Validate(100, fail); err == nil {
		t.Fatal("index delta 2 must fail")
	}
}

func TestValidateFieldValidity(t *testing.T) {
	cases := []struct {
		name string
		ann  types.EmphasisAnnotation
		rule string
	}{
		{"bad level", types.EmphasisAnnotation{WordIndex: 0, Level: "shouty"}, "level"},
		{"bad tone", types.EmphasisAnnotation{WordIndex: 0, Level: types.EmphasisMed, Tone: "gravelly"}, "tone"},
		{"negative index", types.EmphasisAnnotation{WordIndex: -1, Level: types.EmphasisMed}, "word-index"},
		{"index out of range", types.EmphasisAnnotation{WordIndex: 100, Level: types.EmphasisMed}, "word-index"},
	}
	for _, tc := range cases {
		err := Validate(100, []types.EmphasisAnnotation{tc.ann})
		var ce *ConstraintError
		if !errors.As(err, &ce) {
			t.Fatalf("%s: expected *ConstraintError, got %v", tc.name, err)
		}
		if ce.Rule != tc.rule {
			t.Fatalf("%s: rule = %q, want %q", tc.name, ce.Rule, tc.rule)
		}
	}
}

func TestValidateEmptyAnnotations(t *testing.T) {
	if err := Validate(100, nil); err != nil {
		t.Fatalf("no annotations must pass, got %v", err)
	}
}

func TestValidateWarmToneAccepted(t *testing.T) {
	set := []types.EmphasisAnnotation{{WordIndex: 4, Level: types.EmphasisHigh, Tone: types.ToneWarm}}
	if err := Validate(100, set); err != nil {
		t.Fatalf("warm tone must pass, got %v", err)
	}
}
