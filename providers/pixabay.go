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

const pixabayLicenseURL = "https://pixabay.com/service/license-summary/"

// pixabayClient is the HTTP plumbing shared by the Pixabay image and video
// searchers.
type pixabayClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func newPixabayClient(apiKey string) *pixabayClient {
	return &pixabayClient{
		apiKey:     apiKey,
		baseURL:    "https://pixabay.com",
		httpClient: newHTTPClient(),
	}
}

func (p *pixabayClient) get(ctx context.Context, name, path string, params url.Values, out interface{}) error {
	params.Set("key", p.apiKey)
	req, err := http.NewRequestWithContext(ctx, "GET", p.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return networkError(name, err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return networkError(name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode != http.StatusOK {
		return errorFromStatus(name, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ProviderError{Provider: name, Kind: ErrUnknown, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// pixabayOrientation maps the pipeline's orientation names onto Pixabay's.
func pixabayOrientation(orientation string) string {
	switch orientation {
	case "landscape":
		return "horizontal"
	case "portrait":
		return "vertical"
	default:
		return ""
	}
}

func splitPixabayTags(raw, query string) []string {
	var tags []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(strings.ToLower(t)); t != "" {
			tags = append(tags, t)
		}
	}
	return append(tags, strings.Fields(strings.ToLower(query))...)
}

// PixabayImages searches Pixabay photos.
type PixabayImages struct {
	client *pixabayClient
}

// NewPixabayImages builds the image searcher for an API key.
func NewPixabayImages(apiKey string) *PixabayImages {
	return &PixabayImages{client: newPixabayClient(apiKey)}
}

func (p *PixabayImages) Name() string { return "pixabay-images" }

type pixabayImageResponse struct {
	Hits []struct {
		ID            int    `json:"id"`
		PageURL       string `json:"pageURL"`
		Tags          string `json:"tags"`
		ImageWidth    int    `json:"imageWidth"`
		ImageHeight   int    `json:"imageHeight"`
		LargeImageURL string `json:"largeImageURL"`
		FullHDURL     string `json:"fullHDURL"`
		User          string `json:"user"`
	} `json:"hits"`
}

func (p *PixabayImages) Search(ctx context.Context, query string, opts SearchOptions) ([]types.MediaCandidate, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("image_type", "photo")
	params.Set("per_page", fmt.Sprintf("%d", perTag(opts)))
	params.Set("safesearch", "true")
	if o := pixabayOrientation(opts.Orientation); o != "" {
		params.Set("orientation", o)
	}
	if opts.MinWidth > 0 {
		params.Set("min_width", fmt.Sprintf("%d", opts.MinWidth))
	}
	if opts.MinHeight > 0 {
		params.Set("min_height", fmt.Sprintf("%d", opts.MinHeight))
	}

	var result pixabayImageResponse
	if err := p.client.get(ctx, p.Name(), "/api/", params, &result); err != nil {
		return nil, err
	}

	var candidates []types.MediaCandidate
	for _, hit := range result.Hits {
		downloadURL := hit.FullHDURL
		if downloadURL == "" {
			downloadURL = hit.LargeImageURL
		}
		if downloadURL == "" {
			continue
		}
		candidates = append(candidates, types.MediaCandidate{
			ID:             fmt.Sprintf("pixabay_%d", hit.ID),
			Kind:           types.KindImage,
			SourceProvider: p.Name(),
			DisplayURL:     hit.PageURL,
			DownloadURL:    downloadURL,
			Tags:           splitPixabayTags(hit.Tags, query),
			Width:          hit.ImageWidth,
			Height:         hit.ImageHeight,
			Attribution:    fmt.Sprintf("%s via Pixabay", hit.User),
			LicenseURL:     pixabayLicenseURL,
		})
	}
	return candidates, nil
}

// PixabayVideos searches Pixabay videos.
type PixabayVideos struct {
	client *pixabayClient
}

// NewPixabayVideos builds the video searcher for an API key.
func NewPixabayVideos(apiKey string) *PixabayVideos {
	return &PixabayVideos{client: newPixabayClient(apiKey)}
}

func (p *PixabayVideos) Name() string { return "pixabay-videos" }

type pixabayVideoRendition struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type pixabayVideoResponse struct {
	Hits []struct {
		ID       int     `json:"id"`
		PageURL  string  `json:"pageURL"`
		Tags     string  `json:"tags"`
		Duration float64 `json:"duration"`
		User     string  `json:"user"`
		Videos   struct {
			Large  pixabayVideoRendition `json:"large"`
			Medium pixabayVideoRendition `json:"medium"`
		} `json:"videos"`
	} `json:"hits"`
}

func (p *PixabayVideos) Search(ctx context.Context, query string, opts SearchOptions) ([]types.MediaCandidate, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("per_page", fmt.Sprintf("%d", perTag(opts)))
	params.Set("safesearch", "true")

	var result pixabayVideoResponse
	if err := p.client.get(ctx, p.Name(), "/api/videos/", params, &result); err != nil {
		return nil, err
	}

	var candidates []types.MediaCandidate
	for _, hit := range result.Hits {
		if opts.MinDuration > 0 && hit.Duration < opts.MinDuration {
			continue
		}
		if opts.MaxDuration > 0 && hit.Duration > opts.MaxDuration {
			continue
		}

		rendition := hit.Videos.Large
		if rendition.URL == "" {
			rendition = hit.Videos.Medium
		}
		if rendition.URL == "" {
			continue
		}
		if opts.MinWidth > 0 && rendition.Width < opts.MinWidth {
			continue
		}
		if opts.MinHeight > 0 && rendition.Height < opts.MinHeight {
			continue
		}

		candidates = append(candidates, types.MediaCandidate{
			ID:             fmt.Sprintf("pixabay_video_%d", hit.ID),
			Kind:           types.KindVideo,
			SourceProvider: p.Name(),
			DisplayURL:     hit.PageURL,
			DownloadURL:    rendition.URL,
			Tags:           splitPixabayTags(hit.Tags, query),
			Width:          rendition.Width,
			Height:         rendition.Height,
			DurationSec:    hit.Duration,
			Attribution:    fmt.Sprintf("%s via Pixabay", hit.User),
			LicenseURL:     pixabayLicenseURL,
		})
	}
	return candidates, nil
}
