package types

import "time"

// MediaKind distinguishes the classes of gatherable media. Music gets a
// longer cache lifetime and download timeout than images and video.
type MediaKind string

const (
	KindImage MediaKind = "image"
	KindVideo MediaKind = "video"
	KindMusic MediaKind = "music"
)

// MediaCandidate is a single searchable media item returned by a provider.
// It is immutable once returned from a search; ranking wraps it with derived
// scores instead of mutating it.
type MediaCandidate struct {
	ID             string    `json:"id"`
	Kind           MediaKind `json:"kind"`
	SourceProvider string    `json:"source_provider"`
	DisplayURL     string    `json:"display_url"`
	DownloadURL    string    `json:"download_url"`
	Tags           []string  `json:"tags"`
	Width          int       `json:"width"`
	Height         int       `json:"height"`
	DurationSec    float64   `json:"duration_sec,omitempty"`
	FPS            float64   `json:"fps,omitempty"`
	Attribution    string    `json:"attribution"`
	LicenseURL     string    `json:"license_url"`
}

// AspectRatio returns width/height, or 0 when the provider did not report
// dimensions.
func (c MediaCandidate) AspectRatio() float64 {
	if c.Height <= 0 {
		return 0
	}
	return float64(c.Width) / float64(c.Height)
}

// CacheEntry is the metadata sidecar written next to a cached payload.
// The sidecar is written after the payload, so a reader that observes the
// sidecar can assume the payload is complete.
type CacheEntry struct {
	ID           string    `json:"id"`
	Source       string    `json:"source"`
	URL          string    `json:"url"`
	DownloadURL  string    `json:"download_url"`
	Tags         []string  `json:"tags"`
	Width        int       `json:"width"`
	Height       int       `json:"height"`
	Attribution  string    `json:"attribution"`
	LicenseURL   string    `json:"license_url"`
	DownloadedAt time.Time `json:"downloaded_at"`
	ExpiresAt    time.Time `json:"expires_at"`
	LocalPath    string    `json:"local_path"`
}

// CharTimestamp is an optional per-character timing inside a word.
type CharTimestamp struct {
	Char    string `json:"char"`
	StartMs int    `json:"start_ms"`
	EndMs   int    `json:"end_ms"`
}

// WordTimestamp is one word of synthesized narration. Sequences are ordered
// and non-overlapping.
type WordTimestamp struct {
	Word       string          `json:"word"`
	StartMs    int             `json:"start_ms"`
	EndMs      int             `json:"end_ms"`
	Characters []CharTimestamp `json:"characters,omitempty"`
}

// Emphasis levels and tones a speech synthesizer may annotate words with.
const (
	EmphasisNone = "none"
	EmphasisMed  = "med"
	EmphasisHigh = "high"

	ToneWarm    = "warm"
	ToneIntense = "intense"
)

// EmphasisAnnotation marks one word of a narration segment for emphasized
// caption styling. WordIndex points into the segment's timestamp sequence.
// Annotations are produced once per segment by the speech synthesizer and
// never mutated after validation passes.
type EmphasisAnnotation struct {
	WordIndex int    `json:"word_index"`
	Level     string `json:"level"`
	Tone      string `json:"tone,omitempty"`
}

// VideoMetadata holds the publish metadata for an uploaded video.
type VideoMetadata struct {
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	Tags             []string `json:"tags"`
	CategoryID       string   `json:"category_id"`
	Visibility       string   `json:"visibility"`
	ScheduledTimeUTC string   `json:"scheduled_time_utc"`
}
