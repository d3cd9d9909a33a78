package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"shortreel-pipeline/types"
)

const pexelsLicenseURL = "https://www.pexels.com/license/"

// pexelsClient is the HTTP plumbing shared by the Pexels photo and video
// searchers.
type pexelsClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func newPexelsClient(apiKey string) *pexelsClient {
	return &pexelsClient{
		apiKey:     apiKey,
		baseURL:    "https://api.pexels.com",
		httpClient: newHTTPClient(),
	}
}

func (p *pexelsClient) get(ctx context.Context, name, path string, params url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, "GET", p.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return networkError(name, err)
	}
	req.Header.Set("Authorization", p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return networkError(name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil // no results, leave out empty
	}
	if resp.StatusCode != http.StatusOK {
		return errorFromStatus(name, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ProviderError{Provider: name, Kind: ErrUnknown, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// PexelsImages searches Pexels photos.
type PexelsImages struct {
	client *pexelsClient
}

// NewPexelsImages builds the photo searcher for an API key.
func NewPexelsImages(apiKey string) *PexelsImages {
	return &PexelsImages{client: newPexelsClient(apiKey)}
}

func (p *PexelsImages) Name() string { return "pexels-images" }

type pexelsPhotoResponse struct {
	Photos []struct {
		ID           int    `json:"id"`
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		URL          string `json:"url"`
		Photographer string `json:"photographer"`
		Alt          string `json:"alt"`
		Src          struct {
			Original string `json:"original"`
			Large2x  string `json:"large2x"`
		} `json:"src"`
	} `json:"photos"`
}

func (p *PexelsImages) Search(ctx context.Context, query string, opts SearchOptions) ([]types.MediaCandidate, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("per_page", fmt.Sprintf("%d", perTag(opts)))
	if opts.Orientation != "" {
		params.Set("orientation", opts.Orientation)
	}

	var result pexelsPhotoResponse
	if err := p.client.get(ctx, p.Name(), "/v1/search", params, &result); err != nil {
		return nil, err
	}

	var candidates []types.MediaCandidate
	for _, photo := range result.Photos {
		if opts.MinWidth > 0 && photo.Width < opts.MinWidth {
			continue
		}
		if opts.MinHeight > 0 && photo.Height < opts.MinHeight {
			continue
		}
		downloadURL := photo.Src.Original
		if downloadURL == "" {
			downloadURL = photo.Src.Large2x
		}
		candidates = append(candidates, types.MediaCandidate{
			ID:             fmt.Sprintf("pexels_%d", photo.ID),
			Kind:           types.KindImage,
			SourceProvider: p.Name(),
			DisplayURL:     photo.URL,
			DownloadURL:    downloadURL,
			Tags:           candidateTags(photo.Alt, query),
			Width:          photo.Width,
			Height:         photo.Height,
			Attribution:    fmt.Sprintf("%s via Pexels", photo.Photographer),
			LicenseURL:     pexelsLicenseURL,
		})
	}
	return candidates, nil
}

// PexelsVideos searches Pexels videos.
type PexelsVideos struct {
	client *pexelsClient
}

// NewPexelsVideos builds the video searcher for an API key.
func NewPexelsVideos(apiKey string) *PexelsVideos {
	return &PexelsVideos{client: newPexelsClient(apiKey)}
}

func (p *PexelsVideos) Name() string { return "pexels-videos" }

type pexelsVideoResponse struct {
	Videos []struct {
		ID       int     `json:"id"`
		Width    int     `json:"width"`
		Height   int     `json:"height"`
		Duration float64 `json:"duration"`
		URL      string  `json:"url"`
		User     struct {
			Name string `json:"name"`
		} `json:"user"`
		VideoFiles []struct {
			Width  int     `json:"width"`
			Height int     `json:"height"`
			FPS    float64 `json:"fps"`
			Link   string  `json:"link"`
		} `json:"video_files"`
	} `json:"videos"`
}

func (p *PexelsVideos) Search(ctx context.Context, query string, opts SearchOptions) ([]types.MediaCandidate, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("per_page", fmt.Sprintf("%d", perTag(opts)))
	if opts.Orientation != "" {
		params.Set("orientation", opts.Orientation)
	}

	var result pexelsVideoResponse
	if err := p.client.get(ctx, p.Name(), "/videos/search", params, &result); err != nil {
		return nil, err
	}

	var candidates []types.MediaCandidate
	for _, video := range result.Videos {
		if opts.MinDuration > 0 && video.Duration < opts.MinDuration {
			continue
		}
		if opts.MaxDuration > 0 && video.Duration > opts.MaxDuration {
			continue
		}

		// Pick the largest rendition that still fits the minimums.
		var best struct {
			width, height int
			fps           float64
			link          string
		}
		for _, file := range video.VideoFiles {
			if file.Width*file.Height > best.width*best.height {
				best.width, best.height, best.fps, best.link = file.Width, file.Height, file.FPS, file.Link
			}
		}
		if best.link == "" {
			continue
		}
		if opts.MinWidth > 0 && best.width < opts.MinWidth {
			continue
		}
		if opts.MinHeight > 0 && best.height < opts.MinHeight {
			continue
		}

		candidates = append(candidates, types.MediaCandidate{
			ID:             fmt.Sprintf("pexels_video_%d", video.ID),
			Kind:           types.KindVideo,
			SourceProvider: p.Name(),
			DisplayURL:     video.URL,
			DownloadURL:    best.link,
			Tags:           candidateTags("", query),
			Width:          best.width,
			Height:         best.height,
			DurationSec:    video.Duration,
			FPS:            best.fps,
			Attribution:    fmt.Sprintf("%s via Pexels", video.User.Name),
			LicenseURL:     pexelsLicenseURL,
		})
	}
	return candidates, nil
}

func perTag(opts SearchOptions) int {
	if opts.PerTag > 0 {
		return opts.PerTag
	}
	return 10
}

// candidateTags merges a provider's free-text description with the query so
// downstream relevance matching has something to bite on.
func candidateTags(alt, query string) []string {
	seen := make(map[string]bool)
	var tags []string
	for _, w := range append(strings.Fields(strings.ToLower(alt)), strings.Fields(strings.ToLower(query))...) {
		w = strings.Trim(w, ".,!?\"'")
		if w == "" || seen[w] {
			continue
		}
		seen[w] = true
		tags = append(tags, w)
	}
	return tags
}
