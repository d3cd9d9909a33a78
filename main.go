package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"shortreel-pipeline/cache"
	"shortreel-pipeline/config"
	"shortreel-pipeline/gather"
	"shortreel-pipeline/music"
	"shortreel-pipeline/providers"
	"shortreel-pipeline/search"
	"shortreel-pipeline/types"
	"shortreel-pipeline/upload"
)

// runState is the machine-readable summary written next to the manifest.
type runState struct {
	RunID        string `json:"run_id"`
	StartedAt    string `json:"started_at"`
	CompletedAt  string `json:"completed_at,omitempty"`
	ManifestPath string `json:"manifest_path,omitempty"`
	AssetCount   int    `json:"asset_count"`
	MusicPath    string `json:"music_path,omitempty"`
	YouTubeID    string `json:"youtube_id,omitempty"`
	YouTubeURL   string `json:"youtube_url,omitempty"`
	Error        string `json:"error,omitempty"`
}

func main() {
	// Load .env (local dev only — CI uses secrets)
	_ = godotenv.Load()

	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	log := logrus.WithField("component", "main")

	cfg, err := config.Load("config.yaml")
	if err != nil {
		if !os.IsNotExist(err) {
			log.Fatalf("load config: %v", err)
		}
		log.Warn("config.yaml not found, using defaults")
		cfg = config.Default()
	}

	for _, dir := range []string{cfg.Paths.Output, cfg.Paths.Logs, cfg.Cache.Dir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("create dir %s: %v", dir, err)
		}
	}

	runID := uuid.NewString()[:8]
	runDir := filepath.Join(cfg.Paths.Output, runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		log.Fatalf("create run dir: %v", err)
	}
	log.Infof("gather run %s starting, output dir %s", runID, runDir)

	ctx := context.Background()
	state := &runState{
		RunID:     runID,
		StartedAt: time.Now().UTC().Format(time.RFC3339),
	}
	defer func() {
		state.CompletedAt = time.Now().UTC().Format(time.RFC3339)
		saveJSON(filepath.Join(runDir, "run_state.json"), state)
		if state.Error != "" {
			log.Errorf("run failed: %s", state.Error)
			os.Exit(1)
		}
		log.Infof("run complete: %d assets", state.AssetCount)
	}()

	registry := providers.BuildRegistry(cfg.Search.RedditSubreddits)
	orchestrator, err := search.NewOrchestrator(registry)
	if err != nil {
		var ce *search.ConfigurationError
		if errors.As(err, &ce) {
			log.Error("no media providers configured; set PEXELS_API_KEY, PIXABAY_API_KEY or Reddit credentials")
		}
		state.Error = err.Error()
		return
	}

	cacheManager, err := cache.NewManager(cfg.CacheOptions())
	if err != nil {
		state.Error = err.Error()
		return
	}
	if removed, err := cacheManager.ClearExpiredCache(); err != nil {
		log.Warnf("cache housekeeping: %v", err)
	} else if removed > 0 {
		log.Infof("evicted %d expired cache entries", removed)
	}

	tags := os.Args[1:]
	if len(tags) == 0 {
		tags = cfg.Search.DefaultTags
	}

	req := gather.Request{
		Tags: tags,
		Mood: os.Getenv("GATHER_MOOD"),
	}
	if v := os.Getenv("GATHER_TARGET_DURATION_SEC"); v != "" {
		if d, err := strconv.ParseFloat(v, 64); err == nil {
			req.TargetDurationSec = d
		}
	}

	picker := music.NewPicker(cfg, cacheManager)
	g := gather.New(cfg, orchestrator, cacheManager, picker, nil, runID)

	manifest, err := g.Run(ctx, req)
	if err != nil {
		state.Error = err.Error()
		return
	}

	manifestPath, err := manifest.Save(runDir)
	if err != nil {
		state.Error = err.Error()
		return
	}
	state.ManifestPath = manifestPath
	state.AssetCount = len(manifest.Assets)
	state.MusicPath = manifest.MusicPath
	log.Infof("manifest saved: %s", manifestPath)

	// A downstream renderer hands its finished video back through the
	// environment for publishing.
	if videoFile := os.Getenv("PUBLISH_VIDEO_FILE"); videoFile != "" {
		publish(ctx, cfg, videoFile, tags, state, log)
	}
}

func publish(ctx context.Context, cfg *config.Config, videoFile string, tags []string, state *runState, log *logrus.Entry) {
	metadata := &types.VideoMetadata{
		Title:       os.Getenv("PUBLISH_TITLE"),
		Description: os.Getenv("PUBLISH_DESCRIPTION"),
		Tags:        tags,
		CategoryID:  cfg.Upload.CategoryID,
		Visibility:  cfg.Upload.Visibility,
	}
	if metadata.Title == "" {
		metadata.Title = filepath.Base(videoFile)
	}

	uploader := upload.New(cfg)
	videoID, videoURL, err := uploader.Run(ctx, videoFile, metadata)
	if err != nil {
		state.Error = err.Error()
		return
	}
	state.YouTubeID = videoID
	state.YouTubeURL = videoURL

	if err := upload.LogUpload(videoID, videoURL, videoFile, cfg.Paths.Logs, metadata); err != nil {
		log.Warnf("upload log: %v", err)
	}
}

func saveJSON(path string, v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		logrus.Warnf("marshal %s: %v", path, err)
		return
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		logrus.Warnf("save %s: %v", path, err)
	}
}
