package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/vartanbeno/go-reddit/v2/reddit"

	"shortreel-pipeline/types"
)

// RedditImages searches a fixed set of subreddits for directly linked
// images. Reddit does not report image dimensions, so its candidates carry
// zero width/height and rank below the stock providers on resolution.
type RedditImages struct {
	client     *reddit.Client
	subreddits []string
}

// NewRedditImages builds the searcher from explicit credentials. subreddits
// defaults to a small set of photography communities.
func NewRedditImages(creds reddit.Credentials, subreddits []string) (*RedditImages, error) {
	client, err := reddit.NewClient(creds)
	if err != nil {
		return nil, fmt.Errorf("reddit client: %w", err)
	}
	if len(subreddits) == 0 {
		subreddits = []string{"itookapicture", "pics", "earthporn"}
	}
	return &RedditImages{client: client, subreddits: subreddits}, nil
}

func (r *RedditImages) Name() string { return "reddit-images" }

func (r *RedditImages) Search(ctx context.Context, query string, opts SearchOptions) ([]types.MediaCandidate, error) {
	posts, _, err := r.client.Subreddit.SearchPosts(ctx, query, strings.Join(r.subreddits, "+"), &reddit.ListPostSearchOptions{
		ListPostOptions: reddit.ListPostOptions{
			ListOptions: reddit.ListOptions{Limit: perTag(opts)},
			Time:        "all",
		},
		Sort: "relevance",
	})
	if err != nil {
		return nil, &ProviderError{Provider: r.Name(), Kind: ErrNetwork, Err: err}
	}

	var candidates []types.MediaCandidate
	for _, post := range posts {
		if post.NSFW || !isDirectImageURL(post.URL) {
			continue
		}
		candidates = append(candidates, types.MediaCandidate{
			ID:             fmt.Sprintf("reddit_%s", post.ID),
			Kind:           types.KindImage,
			SourceProvider: r.Name(),
			DisplayURL:     "https://reddit.com" + post.Permalink,
			DownloadURL:    post.URL,
			Tags:           candidateTags(post.Title, query),
			Attribution:    fmt.Sprintf("u/%s via r/%s", post.Author, post.SubredditName),
			LicenseURL:     "https://reddit.com" + post.Permalink,
		})
	}
	return candidates, nil
}

func isDirectImageURL(u string) bool {
	lower := strings.ToLower(u)
	return strings.HasSuffix(lower, ".jpg") ||
		strings.HasSuffix(lower, ".jpeg") ||
		strings.HasSuffix(lower, ".png") ||
		strings.HasSuffix(lower, ".webp")
}
