package providers

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/vartanbeno/go-reddit/v2/reddit"
)

// Registry is the fixed provider set for one gather run, built once at
// startup from whatever credentials are present. Absence of a provider is a
// configuration fact recorded here, not a runtime branch per call.
type Registry struct {
	Images []Searcher
	Videos []Searcher
}

// BuildRegistry inspects the environment and constructs every provider
// whose credentials are set. A missing credential just leaves that provider
// out; the orchestrator decides whether zero providers is fatal.
func BuildRegistry(redditSubreddits []string) *Registry {
	log := logrus.WithField("component", "providers")
	reg := &Registry{}

	if key := os.Getenv("PEXELS_API_KEY"); key != "" {
		reg.Images = append(reg.Images, NewPexelsImages(key))
		reg.Videos = append(reg.Videos, NewPexelsVideos(key))
	} else {
		log.Debug("PEXELS_API_KEY not set, skipping Pexels")
	}

	if key := os.Getenv("PIXABAY_API_KEY"); key != "" {
		reg.Images = append(reg.Images, NewPixabayImages(key))
		reg.Videos = append(reg.Videos, NewPixabayVideos(key))
	} else {
		log.Debug("PIXABAY_API_KEY not set, skipping Pixabay")
	}

	creds := reddit.Credentials{
		ID:       os.Getenv("REDDIT_CLIENT_ID"),
		Secret:   os.Getenv("REDDIT_CLIENT_SECRET"),
		Username: os.Getenv("REDDIT_USERNAME"),
		Password: os.Getenv("REDDIT_PASSWORD"),
	}
	if creds.ID != "" && creds.Secret != "" && creds.Username != "" && creds.Password != "" {
		r, err := NewRedditImages(creds, redditSubreddits)
		if err != nil {
			log.Warnf("Reddit provider init failed: %v", err)
		} else {
			reg.Images = append(reg.Images, r)
		}
	} else {
		log.Debug("Reddit credentials incomplete, skipping Reddit")
	}

	log.Infof("providers configured: %d image, %d video", len(reg.Images), len(reg.Videos))
	return reg
}
