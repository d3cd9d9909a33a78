package aspect

import "math"

// Mode says whether a source is cropped to fill the target frame or
// letterboxed inside it.
type Mode string

const (
	ModeCrop      Mode = "crop"
	ModeLetterbox Mode = "letterbox"
)

// Config controls crop-vs-letterbox geometry. Loaded from the visuals
// section of the pipeline config.
type Config struct {
	SafePaddingPercent float64
	MaxAspectDelta     float64
	TargetWidth        int
	TargetHeight       int
}

// DefaultConfig returns the stock 1080p landscape crop configuration.
func DefaultConfig() Config {
	return Config{
		SafePaddingPercent: 10,
		MaxAspectDelta:     0.3,
		TargetWidth:        1920,
		TargetHeight:       1080,
	}
}

// CropResult describes how to fit a source rectangle onto the target frame.
// For ModeCrop, X/Y/Width/Height is the region of the source to cut out and
// Scale maps that region onto the target frame. For ModeLetterbox they
// locate the scaled source inside the target frame and Scale is the applied
// shrink factor.
type CropResult struct {
	Mode   Mode    `json:"mode"`
	Scale  float64 `json:"scale"`
	X      int     `json:"x"`
	Y      int     `json:"y"`
	Width  int     `json:"width"`
	Height int     `json:"height"`
}

// ShouldCrop reports whether a source aspect ratio is close enough to the
// target to crop rather than letterbox. The crop delta is |source-target|
// normalized by the target; the boundary is inclusive, so exactly at
// maxAspectDelta crop wins. Aspect ratios must be positive and finite.
func ShouldCrop(sourceAspect, targetAspect, maxAspectDelta float64) bool {
	delta := math.Abs(sourceAspect-targetAspect) / targetAspect
	return delta <= maxAspectDelta
}

// CalculateCrop computes the centered crop region that matches the target
// aspect ratio, shrunk by the safe padding margin. Sources whose aspect is
// too far from the target fall through to CalculateLetterbox. Dimensions
// must be positive; behavior for zero or negative inputs is undefined.
func CalculateCrop(sourceW, sourceH int, cfg Config) CropResult {
	sourceAspect := float64(sourceW) / float64(sourceH)
	targetAspect := float64(cfg.TargetWidth) / float64(cfg.TargetHeight)

	if !ShouldCrop(sourceAspect, targetAspect, cfg.MaxAspectDelta) {
		return CalculateLetterbox(sourceW, sourceH, cfg)
	}

	var cropW, cropH float64
	if sourceAspect > targetAspect {
		// Source is wider than the target: keep full height, cut the sides.
		cropH = float64(sourceH)
		cropW = cropH * targetAspect
	} else {
		// Source is taller or matches: keep full width, cut top and bottom.
		cropW = float64(sourceW)
		cropH = cropW / targetAspect
	}

	margin := 1 - cfg.SafePaddingPercent/100
	cropW *= margin
	cropH *= margin

	// SafePaddingPercent = 100 collapses the crop region; report scale 0
	// rather than dividing by zero.
	scale := 0.0
	if cropW > 0 {
		scale = float64(cfg.TargetWidth) / cropW
	}

	return CropResult{
		Mode:   ModeCrop,
		Scale:  scale,
		X:      round((float64(sourceW) - cropW) / 2),
		Y:      round((float64(sourceH) - cropH) / 2),
		Width:  round(cropW),
		Height: round(cropH),
	}
}

// CalculateLetterbox scales the source to fit entirely inside the target
// frame, preserving aspect ratio, and centers the result.
func CalculateLetterbox(sourceW, sourceH int, cfg Config) CropResult {
	scaleW := float64(cfg.TargetWidth) / float64(sourceW)
	scaleH := float64(cfg.TargetHeight) / float64(sourceH)
	scale := math.Min(scaleW, scaleH)

	outW := float64(sourceW) * scale
	outH := float64(sourceH) * scale

	return CropResult{
		Mode:   ModeLetterbox,
		Scale:  scale,
		X:      round((float64(cfg.TargetWidth) - outW) / 2),
		Y:      round((float64(cfg.TargetHeight) - outH) / 2),
		Width:  round(outW),
		Height: round(outH),
	}
}

func round(v float64) int {
	return int(math.Round(v))
}
