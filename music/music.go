// Package music picks a background track for a mood from a local catalog
// and resolves it through the download cache (music entries get the longer
// timeout and TTL class).
package music

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"shortreel-pipeline/cache"
	"shortreel-pipeline/config"
	"shortreel-pipeline/types"
)

// Picker matches moods to catalog tracks.
type Picker struct {
	cfg     *config.Config
	cache   *cache.Manager
	catalog map[string][]string // track URL -> mood tags
	log     *logrus.Entry
}

// NewPicker loads the catalog. A missing catalog file is not an error; the
// picker just has nothing beyond the config's mood map to offer.
func NewPicker(cfg *config.Config, cacheManager *cache.Manager) *Picker {
	return &Picker{
		cfg:     cfg,
		cache:   cacheManager,
		catalog: loadCatalog(cfg.Paths.MusicCatalog),
		log:     logrus.WithField("component", "music"),
	}
}

// Pick returns the track URL for a mood: the config map first, then catalog
// tag matching, then any catalog track at all.
func (p *Picker) Pick(mood string) string {
	if track, ok := p.cfg.Music.MoodToTrackMap[mood]; ok {
		return track
	}

	for track, tags := range p.catalog {
		for _, tag := range tags {
			if strings.EqualFold(tag, mood) {
				return track
			}
		}
	}

	for track := range p.catalog {
		return track
	}
	return ""
}

// Fetch picks and downloads background music for a mood, returning the
// local path.
func (p *Picker) Fetch(ctx context.Context, mood string) (string, error) {
	track := p.Pick(mood)
	if track == "" {
		return "", fmt.Errorf("no music track for mood %q", mood)
	}

	p.log.Infof("fetching background music for mood %q", mood)
	return p.cache.DownloadMedia(ctx, types.MediaCandidate{
		ID:             "music_" + mood,
		Kind:           types.KindMusic,
		SourceProvider: "catalog",
		DownloadURL:    track,
		Tags:           []string{mood},
	})
}

func loadCatalog(path string) map[string][]string {
	catalog := make(map[string][]string)
	data, err := os.ReadFile(path)
	if err != nil {
		return catalog
	}
	_ = json.Unmarshal(data, &catalog)
	return catalog
}
