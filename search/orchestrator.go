// Package search fans media queries out to every configured provider and
// merges whatever comes back. One failing provider degrades the result set;
// it never aborts the search.
package search

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"shortreel-pipeline/providers"
	"shortreel-pipeline/types"
)

// ConfigurationError means the orchestrator was built with no usable
// providers at all, usually because no search credentials were set. This is
// the one search failure that is fatal to a gather run.
type ConfigurationError struct {
	Detail string
}

func (e *ConfigurationError) Error() string {
	return "no media search providers configured: " + e.Detail
}

// Orchestrator runs concurrent per-(tag, provider) searches.
type Orchestrator struct {
	images []providers.Searcher
	videos []providers.Searcher
	log    *logrus.Entry
}

// NewOrchestrator wires a provider registry. It fails fast when the
// registry is completely empty.
func NewOrchestrator(reg *providers.Registry) (*Orchestrator, error) {
	if len(reg.Images)+len(reg.Videos) == 0 {
		return nil, &ConfigurationError{
			Detail: "set PEXELS_API_KEY, PIXABAY_API_KEY or Reddit credentials",
		}
	}
	return &Orchestrator{
		images: reg.Images,
		videos: reg.Videos,
		log:    logrus.WithField("component", "search"),
	}, nil
}

// SearchImages fans every tag out to every image provider concurrently.
func (o *Orchestrator) SearchImages(ctx context.Context, tags []string, opts providers.SearchOptions) []types.MediaCandidate {
	return o.fanOut(ctx, o.images, tags, opts)
}

// SearchVideos fans every tag out to every video provider concurrently.
func (o *Orchestrator) SearchVideos(ctx context.Context, tags []string, opts providers.SearchOptions) []types.MediaCandidate {
	return o.fanOut(ctx, o.videos, tags, opts)
}

// SearchMedia runs the image and video fan-outs concurrently and returns
// both collections once all provider calls settle.
func (o *Orchestrator) SearchMedia(ctx context.Context, tags []string, imageOpts, videoOpts providers.SearchOptions) (images, videos []types.MediaCandidate) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		images = o.SearchImages(ctx, tags, imageOpts)
	}()
	go func() {
		defer wg.Done()
		videos = o.SearchVideos(ctx, tags, videoOpts)
	}()
	wg.Wait()
	return images, videos
}

// fanOut issues one goroutine per (tag, provider) pair. Results land in a
// fixed slot per pair, so the merged order is tag-major then
// provider-registration order. A provider error contributes an empty slot
// and a warning. No deduplication happens here; that is a downstream
// concern.
func (o *Orchestrator) fanOut(ctx context.Context, searchers []providers.Searcher, tags []string, opts providers.SearchOptions) []types.MediaCandidate {
	if len(searchers) == 0 || len(tags) == 0 {
		return nil
	}

	slots := make([][]types.MediaCandidate, len(tags)*len(searchers))
	var wg sync.WaitGroup
	for ti, tag := range tags {
		for si, s := range searchers {
			wg.Add(1)
			go func(slot int, s providers.Searcher, tag string) {
				defer wg.Done()
				found, err := s.Search(ctx, tag, opts)
				if err != nil {
					o.log.Warnf("provider %s failed for %q: %v", s.Name(), tag, err)
					return
				}
				slots[slot] = found
			}(ti*len(searchers)+si, s, tag)
		}
	}
	wg.Wait()

	var merged []types.MediaCandidate
	for _, found := range slots {
		merged = append(merged, found...)
	}
	return merged
}
