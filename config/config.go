package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"shortreel-pipeline/aspect"
	"shortreel-pipeline/cache"
	"shortreel-pipeline/providers"
	"shortreel-pipeline/retry"
)

type Config struct {
	Search  SearchConfig  `yaml:"search"`
	Visuals VisualsConfig `yaml:"visuals"`
	Cache   CacheConfig   `yaml:"cache"`
	Music   MusicConfig   `yaml:"music"`
	Upload  UploadConfig  `yaml:"upload"`
	Paths   PathsConfig   `yaml:"paths"`
}

type SearchConfig struct {
	DefaultTags         []string `yaml:"default_tags"`
	ImagesPerTag        int      `yaml:"images_per_tag" validate:"min=1"`
	VideosPerTag        int      `yaml:"videos_per_tag" validate:"min=1"`
	Orientation         string   `yaml:"orientation" validate:"oneof=landscape portrait square"`
	MinQuality          float64  `yaml:"min_quality" validate:"gte=0,lte=1"`
	MinVideoDurationSec float64  `yaml:"min_video_duration_sec" validate:"gte=0"`
	MaxVideoDurationSec float64  `yaml:"max_video_duration_sec" validate:"gte=0"`
	RedditSubreddits    []string `yaml:"reddit_subreddits"`
}

type VisualsConfig struct {
	TargetWidth        int     `yaml:"target_width" validate:"gt=0"`
	TargetHeight       int     `yaml:"target_height" validate:"gt=0"`
	SafePaddingPercent float64 `yaml:"safe_padding_percent" validate:"gte=0,lte=100"`
	MaxAspectDelta     float64 `yaml:"max_aspect_delta" validate:"gte=0"`
	SecondsPerAsset    float64 `yaml:"seconds_per_asset" validate:"gt=0"`
}

type CacheConfig struct {
	Dir             string `yaml:"dir"`
	TTLDays         int    `yaml:"ttl_days" validate:"gt=0"`
	MusicTTLDays    int    `yaml:"music_ttl_days" validate:"gt=0"`
	TimeoutSec      int    `yaml:"timeout_sec" validate:"gt=0"`
	MusicTimeoutSec int    `yaml:"music_timeout_sec" validate:"gt=0"`
	MaxRetries      int    `yaml:"max_retries" validate:"gte=0"`
	RetryDelayMs    int    `yaml:"retry_delay_ms" validate:"gt=0"`
	MaxConcurrent   int    `yaml:"max_concurrent" validate:"gt=0"`
}

type MusicConfig struct {
	MoodToTrackMap map[string]string `yaml:"mood_to_track_map"`
}

type UploadConfig struct {
	Visibility        string `yaml:"visibility"`
	NotifySubscribers bool   `yaml:"notify_subscribers"`
	MadeForKids       bool   `yaml:"made_for_kids"`
	DefaultLanguage   string `yaml:"default_language"`
	CategoryID        string `yaml:"category_id"`
}

type PathsConfig struct {
	Output       string `yaml:"output"`
	Logs         string `yaml:"logs"`
	MusicCatalog string `yaml:"music_catalog"`
}

// Load reads the yaml config, applies defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Default returns a config with every default applied, for callers that run
// without a config file.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

func (c *Config) applyDefaults() {
	if c.Search.ImagesPerTag == 0 {
		c.Search.ImagesPerTag = 10
	}
	if c.Search.VideosPerTag == 0 {
		c.Search.VideosPerTag = 5
	}
	if c.Search.Orientation == "" {
		c.Search.Orientation = "landscape"
	}
	if c.Search.MinQuality == 0 {
		c.Search.MinQuality = 0.6
	}
	if c.Visuals.TargetWidth == 0 {
		c.Visuals.TargetWidth = 1920
	}
	if c.Visuals.TargetHeight == 0 {
		c.Visuals.TargetHeight = 1080
	}
	if c.Visuals.SafePaddingPercent == 0 {
		c.Visuals.SafePaddingPercent = 10
	}
	if c.Visuals.MaxAspectDelta == 0 {
		c.Visuals.MaxAspectDelta = 0.3
	}
	if c.Visuals.SecondsPerAsset == 0 {
		c.Visuals.SecondsPerAsset = 5
	}
	if c.Cache.Dir == "" {
		c.Cache.Dir = ".cache/media"
	}
	if c.Cache.TTLDays == 0 {
		c.Cache.TTLDays = 30
	}
	if c.Cache.MusicTTLDays == 0 {
		c.Cache.MusicTTLDays = 90
	}
	if c.Cache.TimeoutSec == 0 {
		c.Cache.TimeoutSec = 30
	}
	if c.Cache.MusicTimeoutSec == 0 {
		c.Cache.MusicTimeoutSec = 60
	}
	if c.Cache.MaxRetries == 0 {
		c.Cache.MaxRetries = 3
	}
	if c.Cache.RetryDelayMs == 0 {
		c.Cache.RetryDelayMs = 1000
	}
	if c.Cache.MaxConcurrent == 0 {
		c.Cache.MaxConcurrent = 5
	}
	if c.Upload.Visibility == "" {
		c.Upload.Visibility = "private"
	}
	if c.Upload.DefaultLanguage == "" {
		c.Upload.DefaultLanguage = "en"
	}
	if c.Upload.CategoryID == "" {
		c.Upload.CategoryID = "24"
	}
	if c.Paths.Output == "" {
		c.Paths.Output = "output"
	}
	if c.Paths.Logs == "" {
		c.Paths.Logs = "logs"
	}
	if c.Paths.MusicCatalog == "" {
		c.Paths.MusicCatalog = "assets/music_catalog.json"
	}
}

// CropConfig converts the visuals section into crop geometry settings.
func (c *Config) CropConfig() aspect.Config {
	return aspect.Config{
		SafePaddingPercent: c.Visuals.SafePaddingPercent,
		MaxAspectDelta:     c.Visuals.MaxAspectDelta,
		TargetWidth:        c.Visuals.TargetWidth,
		TargetHeight:       c.Visuals.TargetHeight,
	}
}

// CacheOptions converts the cache section into manager options.
func (c *Config) CacheOptions() cache.Options {
	return cache.Options{
		Dir:          c.Cache.Dir,
		Timeout:      time.Duration(c.Cache.TimeoutSec) * time.Second,
		MusicTimeout: time.Duration(c.Cache.MusicTimeoutSec) * time.Second,
		TTL:          time.Duration(c.Cache.TTLDays) * 24 * time.Hour,
		MusicTTL:     time.Duration(c.Cache.MusicTTLDays) * 24 * time.Hour,
		Retry: retry.Policy{
			MaxRetries:         c.Cache.MaxRetries,
			RetryDelay:         time.Duration(c.Cache.RetryDelayMs) * time.Millisecond,
			BackoffMultiplier:  2,
			ExponentialBackoff: true,
		},
	}
}

// ImageSearchOptions builds the per-provider options for image searches.
func (c *Config) ImageSearchOptions() providers.SearchOptions {
	return providers.SearchOptions{
		PerTag:      c.Search.ImagesPerTag,
		Orientation: c.Search.Orientation,
	}
}

// VideoSearchOptions builds the per-provider options for video searches.
func (c *Config) VideoSearchOptions() providers.SearchOptions {
	return providers.SearchOptions{
		PerTag:      c.Search.VideosPerTag,
		Orientation: c.Search.Orientation,
		MinDuration: c.Search.MinVideoDurationSec,
		MaxDuration: c.Search.MaxVideoDurationSec,
	}
}
