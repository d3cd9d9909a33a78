// Package gather is the asset-gathering stage: it fans tags out to the
// search providers, ranks and deduplicates the candidates, downloads the
// best ones through the cache, computes their crop geometry and assembles
// the asset manifest. Partial provider or download failure shrinks the
// manifest; a narration segment that fails the emphasis gate aborts it.
package gather

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"shortreel-pipeline/aspect"
	"shortreel-pipeline/cache"
	"shortreel-pipeline/config"
	"shortreel-pipeline/ranking"
	"shortreel-pipeline/search"
	"shortreel-pipeline/speech"
	"shortreel-pipeline/types"
)

// Request describes one gather run.
type Request struct {
	Tags              []string
	TargetDurationSec float64
	Mood              string
	Narration         []string // narration segment texts, may be empty
}

// Asset is one gathered, downloaded, aspect-fitted media item.
type Asset struct {
	ID        string               `json:"id"`
	Candidate types.MediaCandidate `json:"candidate"`
	LocalPath string               `json:"local_path"`
	Fit       aspect.CropResult    `json:"fit"`
	Quality   ranking.QualityScore `json:"quality"`
}

// NarrationEntry is one gated narration segment.
type NarrationEntry struct {
	Index      int                        `json:"index"`
	Text       string                     `json:"text"`
	AudioPath  string                     `json:"audio_path"`
	DurationMs int                        `json:"duration_ms"`
	Timestamps []types.WordTimestamp      `json:"timestamps"`
	Emphasis   []types.EmphasisAnnotation `json:"emphasis,omitempty"`
}

// Manifest is the gather run's output.
type Manifest struct {
	RunID     string           `json:"run_id"`
	CreatedAt time.Time        `json:"created_at"`
	Tags      []string         `json:"tags"`
	Assets    []Asset          `json:"assets"`
	Narration []NarrationEntry `json:"narration,omitempty"`
	MusicPath string           `json:"music_path,omitempty"`
}

// MusicFetcher is what the gatherer needs from the music picker.
type MusicFetcher interface {
	Fetch(ctx context.Context, mood string) (string, error)
}

// Gatherer runs the gather stage.
type Gatherer struct {
	cfg          *config.Config
	orchestrator *search.Orchestrator
	cache        *cache.Manager
	music        MusicFetcher
	synth        speech.Synthesizer // nil when no narration is requested
	runID        string
	log          *logrus.Entry
}

// New wires a gatherer for one run. music and synth may be nil.
func New(cfg *config.Config, orchestrator *search.Orchestrator, cacheManager *cache.Manager, music MusicFetcher, synth speech.Synthesizer, runID string) *Gatherer {
	return &Gatherer{
		cfg:          cfg,
		orchestrator: orchestrator,
		cache:        cacheManager,
		music:        music,
		synth:        synth,
		runID:        runID,
		log:          logrus.WithField("component", "gather"),
	}
}

// Run executes the full gather flow and returns the manifest.
func (g *Gatherer) Run(ctx context.Context, req Request) (*Manifest, error) {
	if len(req.Tags) == 0 {
		return nil, fmt.Errorf("no tags to gather")
	}

	g.log.Infof("gathering assets for tags %v", req.Tags)
	images, videos := g.orchestrator.SearchMedia(ctx, req.Tags,
		g.cfg.ImageSearchOptions(), g.cfg.VideoSearchOptions())
	g.log.Infof("search found %d images, %d videos", len(images), len(videos))

	candidates := dedupeByDownloadURL(append(images, videos...))
	selected := g.selectCandidates(candidates, req)
	if len(selected) == 0 {
		g.log.Warn("no candidates survived ranking")
	}

	manifest := &Manifest{
		RunID:     g.runID,
		CreatedAt: time.Now().UTC(),
		Tags:      req.Tags,
	}

	manifest.Assets = g.downloadAndFit(ctx, selected)
	g.log.Infof("downloaded %d of %d selected assets", len(manifest.Assets), len(selected))

	narration, err := g.gatherNarration(ctx, req.Narration)
	if err != nil {
		return nil, err
	}
	manifest.Narration = narration

	if g.music != nil && req.Mood != "" {
		musicPath, err := g.music.Fetch(ctx, req.Mood)
		if err != nil {
			g.log.Warnf("background music unavailable: %v", err)
		} else {
			manifest.MusicPath = musicPath
		}
	}

	return manifest, nil
}

// selectCandidates ranks the merged pool by blended quality and relevance
// and keeps enough to cover the target duration.
func (g *Gatherer) selectCandidates(candidates []types.MediaCandidate, req Request) []ranking.ScoredCandidate {
	targetAspect := float64(g.cfg.Visuals.TargetWidth) / float64(g.cfg.Visuals.TargetHeight)
	query := ""
	for i, tag := range req.Tags {
		if i > 0 {
			query += " "
		}
		query += tag
	}

	ranked := ranking.RankByQualityAndRelevance(candidates, query, ranking.RankOptions{AspectRatio: targetAspect})

	limit := len(ranked)
	if req.TargetDurationSec > 0 {
		needed := int(math.Ceil(req.TargetDurationSec / g.cfg.Visuals.SecondsPerAsset))
		if needed < limit {
			limit = needed
		}
	}
	return ranked[:limit]
}

// downloadAndFit batch-downloads the selection and attaches crop geometry
// to everything that landed on disk.
func (g *Gatherer) downloadAndFit(ctx context.Context, selected []ranking.ScoredCandidate) []Asset {
	candidates := make([]types.MediaCandidate, len(selected))
	for i, sc := range selected {
		candidates[i] = sc.Candidate
	}

	paths := g.cache.DownloadBatch(ctx, candidates, cache.BatchOptions{
		MaxConcurrent: g.cfg.Cache.MaxConcurrent,
		OnProgress: func(completed, total int) {
			g.log.Infof("download progress: %d/%d", completed, total)
		},
	})
	downloaded := make(map[string]bool, len(paths))
	for _, p := range paths {
		downloaded[p] = true
	}

	cropCfg := g.cfg.CropConfig()
	var assets []Asset
	for _, sc := range selected {
		local := g.cache.LocalPath(sc.Candidate)
		if !downloaded[local] {
			continue
		}

		var fit aspect.CropResult
		if sc.Candidate.Width > 0 && sc.Candidate.Height > 0 {
			fit = aspect.CalculateCrop(sc.Candidate.Width, sc.Candidate.Height, cropCfg)
		} else {
			// Provider reported no dimensions; assume a target-sized source,
			// which letterboxes to the full frame.
			fit = aspect.CalculateLetterbox(cropCfg.TargetWidth, cropCfg.TargetHeight, cropCfg)
		}

		assets = append(assets, Asset{
			ID:        uuid.NewString()[:8],
			Candidate: sc.Candidate,
			LocalPath: local,
			Fit:       fit,
			Quality:   sc.Score,
		})
	}
	return assets
}

// gatherNarration synthesizes each segment and gates its emphasis data. A
// constraint violation is fatal to the run; it must reach the caller, not
// shrink the manifest.
func (g *Gatherer) gatherNarration(ctx context.Context, segments []string) ([]NarrationEntry, error) {
	if len(segments) == 0 {
		return nil, nil
	}
	if g.synth == nil {
		return nil, fmt.Errorf("narration requested but no synthesizer configured")
	}

	audioDir := filepath.Join(g.cfg.Paths.Output, g.runID, "audio")
	if err := os.MkdirAll(audioDir, 0755); err != nil {
		return nil, fmt.Errorf("create audio dir: %w", err)
	}

	var entries []NarrationEntry
	for i, text := range segments {
		res, err := g.synth.Synthesize(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("narration segment %d: %w", i, err)
		}
		if err := speech.GateNarration(res); err != nil {
			return nil, fmt.Errorf("narration segment %d: %w", i, err)
		}

		format := res.Format
		if format == "" {
			format = "mp3"
		}
		audioPath := filepath.Join(audioDir, fmt.Sprintf("segment_%03d.%s", i, format))
		if err := os.WriteFile(audioPath, res.Audio, 0644); err != nil {
			return nil, fmt.Errorf("write narration audio: %w", err)
		}

		entries = append(entries, NarrationEntry{
			Index:      i,
			Text:       text,
			AudioPath:  audioPath,
			DurationMs: res.DurationMs,
			Timestamps: res.Timestamps,
			Emphasis:   res.Emphasis,
		})
		g.log.Infof("narration segment %d gated: %d words, %dms", i, len(res.Timestamps), res.DurationMs)
	}
	return entries, nil
}

// Save writes the manifest next to the run's other outputs.
func (m *Manifest) Save(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, "manifest.json")
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", err
	}
	return path, nil
}

// dedupeByDownloadURL keeps the first candidate per download URL. Providers
// frequently return the same asset for neighboring tags.
func dedupeByDownloadURL(candidates []types.MediaCandidate) []types.MediaCandidate {
	seen := make(map[string]bool, len(candidates))
	var out []types.MediaCandidate
	for _, c := range candidates {
		if c.DownloadURL == "" || seen[c.DownloadURL] {
			continue
		}
		seen[c.DownloadURL] = true
		out = append(out, c)
	}
	return out
}
