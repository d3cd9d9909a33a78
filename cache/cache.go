// Package cache resolves remote media to local, content-addressed,
// TTL-expiring files. The cache key is a hash of the download URL, so two
// requests for the same URL share one entry and at most one download per
// cache lifetime. The directory is the only cross-task shared resource;
// concurrent writers of the same URL race benignly because content for a
// URL is assumed immutable.
package cache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"shortreel-pipeline/retry"
	"shortreel-pipeline/types"
)

const metadataSuffix = ".metadata.json"

// DownloadError wraps a download that failed after exhausting retries. The
// batch path logs it and drops the asset; single downloads surface it.
type DownloadError struct {
	URL string
	Err error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download %s: %v", e.URL, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// Options configures a Manager. Zero fields take the documented defaults:
// 30s/60s timeouts, 30d/90d TTLs, 3 retries with exponential backoff.
type Options struct {
	Dir          string
	Timeout      time.Duration
	MusicTimeout time.Duration
	TTL          time.Duration
	MusicTTL     time.Duration
	Retry        retry.Policy
}

// Manager is the download and cache manager.
type Manager struct {
	dir          string
	client       *http.Client
	policy       retry.Policy
	mediaTimeout time.Duration
	musicTimeout time.Duration
	mediaTTL     time.Duration
	musicTTL     time.Duration
	log          *logrus.Entry
}

// NewManager creates the cache directory if needed.
func NewManager(opts Options) (*Manager, error) {
	if opts.Dir == "" {
		return nil, fmt.Errorf("cache dir is required")
	}
	if err := os.MkdirAll(opts.Dir, 0755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	m := &Manager{
		dir:          opts.Dir,
		client:       &http.Client{},
		policy:       opts.Retry,
		mediaTimeout: opts.Timeout,
		musicTimeout: opts.MusicTimeout,
		mediaTTL:     opts.TTL,
		musicTTL:     opts.MusicTTL,
		log:          logrus.WithField("component", "cache"),
	}
	if m.policy == (retry.Policy{}) {
		m.policy = retry.DefaultPolicy
	}
	if m.mediaTimeout == 0 {
		m.mediaTimeout = 30 * time.Second
	}
	if m.musicTimeout == 0 {
		m.musicTimeout = 60 * time.Second
	}
	if m.mediaTTL == 0 {
		m.mediaTTL = 30 * 24 * time.Hour
	}
	if m.musicTTL == 0 {
		m.musicTTL = 90 * 24 * time.Hour
	}
	return m, nil
}

// LocalPath returns the content-addressed path a candidate resolves to,
// whether or not it has been downloaded yet.
func (m *Manager) LocalPath(c types.MediaCandidate) string {
	return filepath.Join(m.dir, cacheKey(c.DownloadURL, c.Kind))
}

// DownloadMedia resolves a candidate to a local file. Unexpired cache
// entries are returned without a network call; expired entries are dropped
// and re-fetched. A miss fetches the binary under the retry/timeout
// primitive, persists the payload and then the metadata sidecar.
func (m *Manager) DownloadMedia(ctx context.Context, c types.MediaCandidate) (string, error) {
	payloadPath := m.LocalPath(c)
	metaPath := payloadPath + metadataSuffix

	if entry, ok := readEntry(metaPath); ok {
		if time.Now().Before(entry.ExpiresAt) {
			if _, err := os.Stat(payloadPath); err == nil {
				m.log.Debugf("cache hit: %s", filepath.Base(payloadPath))
				return payloadPath, nil
			}
		} else {
			m.log.Debugf("cache entry expired: %s", filepath.Base(payloadPath))
			_ = os.Remove(payloadPath)
			_ = os.Remove(metaPath)
		}
	}

	timeout, ttl := m.mediaTimeout, m.mediaTTL
	if c.Kind == types.KindMusic {
		timeout, ttl = m.musicTimeout, m.musicTTL
	}

	label := fmt.Sprintf("download %s", c.DownloadURL)
	data, err := retry.WithRetry(ctx, m.policy, label, func(ctx context.Context) ([]byte, error) {
		return retry.WithTimeout(ctx, timeout, label, func(ctx context.Context) ([]byte, error) {
			return m.fetchBinary(ctx, c.DownloadURL)
		})
	})
	if err != nil {
		return "", &DownloadError{URL: c.DownloadURL, Err: err}
	}

	if err := os.WriteFile(payloadPath, data, 0644); err != nil {
		return "", fmt.Errorf("write payload: %w", err)
	}

	now := time.Now().UTC()
	entry := types.CacheEntry{
		ID:           c.ID,
		Source:       c.SourceProvider,
		URL:          c.DisplayURL,
		DownloadURL:  c.DownloadURL,
		Tags:         c.Tags,
		Width:        c.Width,
		Height:       c.Height,
		Attribution:  c.Attribution,
		LicenseURL:   c.LicenseURL,
		DownloadedAt: now,
		ExpiresAt:    now.Add(ttl),
		LocalPath:    payloadPath,
	}
	// Sidecar goes last so observing it implies a complete payload.
	meta, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal metadata: %w", err)
	}
	if err := os.WriteFile(metaPath, meta, 0644); err != nil {
		return "", fmt.Errorf("write metadata: %w", err)
	}

	m.log.Infof("downloaded %s (%d bytes)", filepath.Base(payloadPath), len(data))
	return payloadPath, nil
}

// BatchOptions controls a batch download. MaxConcurrent defaults to 5.
// OnProgress, if set, is invoked once per completed window with the
// cumulative processed count and the total.
type BatchOptions struct {
	MaxConcurrent int
	OnProgress    func(completed, total int)
}

// DownloadBatch processes candidates in fixed-size windows, waiting for a
// whole window before starting the next. Failed items are logged and left
// out of the returned path list.
func (m *Manager) DownloadBatch(ctx context.Context, candidates []types.MediaCandidate, opts BatchOptions) []string {
	maxConcurrent := opts.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 5
	}

	total := len(candidates)
	var paths []string
	completed := 0

	for start := 0; start < total; start += maxConcurrent {
		end := min(start+maxConcurrent, total)
		window := candidates[start:end]

		results := make([]string, len(window))
		errs := make([]error, len(window))
		var wg sync.WaitGroup
		for i, c := range window {
			wg.Add(1)
			go func(i int, c types.MediaCandidate) {
				defer wg.Done()
				results[i], errs[i] = m.DownloadMedia(ctx, c)
			}(i, c)
		}
		wg.Wait()

		for i := range window {
			if errs[i] != nil {
				m.log.Warnf("batch item failed: %v", errs[i])
				continue
			}
			paths = append(paths, results[i])
		}

		completed += len(window)
		if opts.OnProgress != nil {
			opts.OnProgress(completed, total)
		}
	}
	return paths
}

// ClearExpiredCache deletes every entry whose sidecar says it expired and
// returns the number removed.
func (m *Manager) ClearExpiredCache() (int, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return 0, fmt.Errorf("read cache dir: %w", err)
	}

	removed := 0
	now := time.Now()
	for _, de := range entries {
		if !strings.HasSuffix(de.Name(), metadataSuffix) {
			continue
		}
		metaPath := filepath.Join(m.dir, de.Name())
		entry, ok := readEntry(metaPath)
		if !ok || now.Before(entry.ExpiresAt) {
			continue
		}
		_ = os.Remove(strings.TrimSuffix(metaPath, metadataSuffix))
		if err := os.Remove(metaPath); err == nil {
			removed++
		}
	}
	if removed > 0 {
		m.log.Infof("cleared %d expired cache entries", removed)
	}
	return removed, nil
}

func (m *Manager) fetchBinary(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; ShortReelPipeline/1.0)")

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty response body")
	}
	return data, nil
}

func readEntry(metaPath string) (types.CacheEntry, bool) {
	var entry types.CacheEntry
	data, err := os.ReadFile(metaPath)
	if err != nil {
		return entry, false
	}
	if err := json.Unmarshal(data, &entry); err != nil {
		return entry, false
	}
	return entry, true
}

// cacheKey is md5(url) plus the inferred file extension: the URL path's own
// extension when it has one, otherwise a guess from the media kind.
func cacheKey(downloadURL string, kind types.MediaKind) string {
	sum := md5.Sum([]byte(downloadURL))
	return hex.EncodeToString(sum[:]) + inferExtension(downloadURL, kind)
}

func inferExtension(downloadURL string, kind types.MediaKind) string {
	if u, err := url.Parse(downloadURL); err == nil {
		if ext := path.Ext(u.Path); ext != "" && len(ext) <= 5 {
			return strings.ToLower(ext)
		}
	}
	switch kind {
	case types.KindVideo:
		return ".mp4"
	case types.KindMusic:
		return ".mp3"
	default:
		return ".jpg"
	}
}
