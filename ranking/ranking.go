package ranking

import (
	"math"
	"sort"
	"strings"

	"shortreel-pipeline/types"
)

// Resolution thresholds measured in total pixels, so a 1080x1920 portrait
// source scores the same as its landscape twin.
const (
	minResolutionPixels   = 1920 * 1080
	idealResolutionPixels = 3840 * 2160
)

const defaultMinQuality = 0.6

// QualityScore breaks a candidate's score into weighted components, each in
// [0,1]. Scores are derived per target aspect ratio at ranking time and
// never cached.
type QualityScore struct {
	Total       float64 `json:"total"`
	Resolution  float64 `json:"resolution"`
	AspectRatio float64 `json:"aspect_ratio"`
	Relevance   float64 `json:"relevance"`
}

// ScoredCandidate pairs a candidate with its derived score.
type ScoredCandidate struct {
	Candidate types.MediaCandidate
	Score     QualityScore
}

// RankOptions configures a ranking pass. A zero MinQuality means the 0.6
// default.
type RankOptions struct {
	AspectRatio float64
	MinQuality  float64
}

// CalculateQualityScore scores a candidate against a target aspect ratio.
// Relevance defaults to 1.0 here; the relevance-aware ranking pass overrides
// it.
func CalculateQualityScore(c types.MediaCandidate, targetAspectRatio float64) QualityScore {
	res := resolutionScore(c.Width, c.Height)
	asp := aspectRatioScore(c.AspectRatio(), targetAspectRatio)
	rel := 1.0
	return QualityScore{
		Total:       0.4*res + 0.3*asp + 0.3*rel,
		Resolution:  res,
		AspectRatio: asp,
		Relevance:   rel,
	}
}

// resolutionScore is 0.5 below 1080p-equivalent, 1.0 at 4K-equivalent or
// above, linear in between.
func resolutionScore(w, h int) float64 {
	pixels := w * h
	switch {
	case pixels >= idealResolutionPixels:
		return 1.0
	case pixels < minResolutionPixels:
		return 0.5
	default:
		return 0.5 + 0.5*float64(pixels-minResolutionPixels)/float64(idealResolutionPixels-minResolutionPixels)
	}
}

func aspectRatioScore(actual, target float64) float64 {
	return math.Max(0, 1-2*math.Abs(actual-target))
}

// RankByQuality scores candidates, drops those under the quality floor and
// sorts the rest best-first. Ties may land in any order.
func RankByQuality(candidates []types.MediaCandidate, opts RankOptions) []ScoredCandidate {
	minQuality := opts.MinQuality
	if minQuality == 0 {
		minQuality = defaultMinQuality
	}

	var ranked []ScoredCandidate
	for _, c := range candidates {
		score := CalculateQualityScore(c, opts.AspectRatio)
		if score.Total >= minQuality {
			ranked = append(ranked, ScoredCandidate{Candidate: c, Score: score})
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		return ranked[i].Score.Total > ranked[j].Score.Total
	})
	return ranked
}

// CalculateRelevanceScore is the fraction of query tokens matched by the
// candidate's tags. A token matches when any tag contains it or it contains
// the tag, case-insensitive. An empty query scores 0.
func CalculateRelevanceScore(c types.MediaCandidate, query string) float64 {
	tokens := strings.Fields(strings.ToLower(query))
	if len(tokens) == 0 {
		return 0
	}

	matched := 0
	for _, token := range tokens {
		for _, tag := range c.Tags {
			tag = strings.ToLower(tag)
			if strings.Contains(tag, token) || strings.Contains(token, tag) {
				matched++
				break
			}
		}
	}
	return float64(matched) / float64(len(tokens))
}

// RankByQualityAndRelevance blends quality (60%) and tag relevance (40%)
// and sorts best-first. No minimum filter is applied.
func RankByQualityAndRelevance(candidates []types.MediaCandidate, query string, opts RankOptions) []ScoredCandidate {
	ranked := make([]ScoredCandidate, 0, len(candidates))
	for _, c := range candidates {
		quality := CalculateQualityScore(c, opts.AspectRatio)
		rel := CalculateRelevanceScore(c, query)
		quality.Relevance = rel
		quality.Total = 0.6*quality.Total + 0.4*rel
		ranked = append(ranked, ScoredCandidate{Candidate: c, Score: quality})
	}
	sort.Slice(ranked, func(i, j int) bool {
		return ranked[i].Score.Total > ranked[j].Score.Total
	})
	return ranked
}

// FuzzyMatch pairs a candidate with its best tag-similarity score.
type FuzzyMatch struct {
	Candidate types.MediaCandidate
	Score     float64
}

// FuzzyMatchTags keeps candidates whose best pairwise similarity between any
// query tag and any candidate tag reaches minScore (0.7 when zero), sorted
// by that score descending.
func FuzzyMatchTags(tags []string, candidates []types.MediaCandidate, minScore float64) []FuzzyMatch {
	if minScore == 0 {
		minScore = 0.7
	}

	var matches []FuzzyMatch
	for _, c := range candidates {
		best := 0.0
		for _, query := range tags {
			for _, tag := range c.Tags {
				if s := StringSimilarity(query, tag); s > best {
					best = s
				}
			}
		}
		if best >= minScore {
			matches = append(matches, FuzzyMatch{Candidate: c, Score: best})
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	return matches
}

// StringSimilarity is a case-insensitive bigram Dice coefficient in [0,1].
// Identical strings score 1.0; disjoint strings score 0.
func StringSimilarity(a, b string) float64 {
	a = strings.ToLower(a)
	b = strings.ToLower(b)
	if a == b {
		return 1
	}
	if len(a) < 2 || len(b) < 2 {
		return 0
	}

	bigrams := make(map[string]int)
	for i := 0; i+2 <= len(a); i++ {
		bigrams[a[i:i+2]]++
	}
	overlap := 0
	for i := 0; i+2 <= len(b); i++ {
		if bigrams[b[i:i+2]] > 0 {
			bigrams[b[i:i+2]]--
			overlap++
		}
	}
	return 2 * float64(overlap) / float64(len(a)+len(b)-2)
}
