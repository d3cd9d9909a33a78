package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "search:\n  default_tags: [sunset]\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Visuals.TargetWidth != 1920 || cfg.Visuals.TargetHeight != 1080 {
		t.Fatalf("default target frame = %dx%d, want 1920x1080", cfg.Visuals.TargetWidth, cfg.Visuals.TargetHeight)
	}
	if cfg.Visuals.SafePaddingPercent != 10 || cfg.Visuals.MaxAspectDelta != 0.3 {
		t.Fatalf("default crop settings wrong: %+v", cfg.Visuals)
	}
	if cfg.Cache.TTLDays != 30 || cfg.Cache.MusicTTLDays != 90 {
		t.Fatalf("default TTLs wrong: %+v", cfg.Cache)
	}
	if cfg.Cache.TimeoutSec != 30 || cfg.Cache.MusicTimeoutSec != 60 {
		t.Fatalf("default timeouts wrong: %+v", cfg.Cache)
	}
	if cfg.Search.MinQuality != 0.6 {
		t.Fatalf("default min quality = %v, want 0.6", cfg.Search.MinQuality)
	}
}

func TestLoadRejectsBadOrientation(t *testing.T) {
	_, err := Load(writeConfig(t, "search:\n  orientation: diagonal\n"))
	if err == nil {
		t.Fatal("expected validation error for unknown orientation")
	}
}

func TestLoadRejectsOverflowingPadding(t *testing.T) {
	_, err := Load(writeConfig(t, "visuals:\n  safe_padding_percent: 150\n"))
	if err == nil {
		t.Fatal("expected validation error for padding over 100")
	}
}

func TestCacheOptionsConversion(t *testing.T) {
	cfg := Default()
	opts := cfg.CacheOptions()

	if opts.TTL != 30*24*time.Hour || opts.MusicTTL != 90*24*time.Hour {
		t.Fatalf("TTL conversion wrong: %+v", opts)
	}
	if opts.Timeout != 30*time.Second || opts.MusicTimeout != 60*time.Second {
		t.Fatalf("timeout conversion wrong: %+v", opts)
	}
	if opts.Retry.MaxRetries != 3 || opts.Retry.RetryDelay != time.Second || !opts.Retry.ExponentialBackoff {
		t.Fatalf("retry policy conversion wrong: %+v", opts.Retry)
	}
}

func TestCropConfigConversion(t *testing.T) {
	cfg := Default()
	crop := cfg.CropConfig()
	if crop.TargetWidth != 1920 || crop.TargetHeight != 1080 || crop.SafePaddingPercent != 10 || crop.MaxAspectDelta != 0.3 {
		t.Fatalf("crop config conversion wrong: %+v", crop)
	}
}
