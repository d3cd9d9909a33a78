package gather

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"shortreel-pipeline/aspect"
	"shortreel-pipeline/cache"
	"shortreel-pipeline/config"
	"shortreel-pipeline/emphasis"
	"shortreel-pipeline/providers"
	"shortreel-pipeline/retry"
	"shortreel-pipeline/search"
	"shortreel-pipeline/speech"
	"shortreel-pipeline/types"
)

// stubSearcher serves fixed candidates regardless of query.
type stubSearcher struct {
	name       string
	candidates []types.MediaCandidate
	fail       bool
}

func (s *stubSearcher) Name() string { return s.name }

func (s *stubSearcher) Search(ctx context.Context, query string, opts providers.SearchOptions) ([]types.MediaCandidate, error) {
	if s.fail {
		return nil, &providers.ProviderError{Provider: s.name, Kind: providers.ErrNetwork, Err: errors.New("down")}
	}
	return s.candidates, nil
}

// stubSynth returns canned synthesis results per call.
type stubSynth struct {
	results []*speech.SynthesisResult
	call    int
}

func (s *stubSynth) Synthesize(ctx context.Context, text string) (*speech.SynthesisResult, error) {
	res := s.results[s.call]
	s.call++
	return res, nil
}

func timestamps(n int) []types.WordTimestamp {
	out := make([]types.WordTimestamp, n)
	for i := range out {
		out[i] = types.WordTimestamp{Word: fmt.Sprintf("w%d", i), StartMs: i * 300, EndMs: i*300 + 250}
	}
	return out
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Cache.Dir = t.TempDir()
	cfg.Cache.MaxRetries = 0
	cfg.Cache.RetryDelayMs = 1
	cfg.Paths.Output = t.TempDir()
	return cfg
}

func newTestCache(t *testing.T, cfg *config.Config) *cache.Manager {
	t.Helper()
	opts := cfg.CacheOptions()
	opts.Retry = retry.Policy{MaxRetries: 0, RetryDelay: time.Millisecond}
	m, err := cache.NewManager(opts)
	if err != nil {
		t.Fatalf("cache manager: %v", err)
	}
	return m
}

func assetServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "broken") {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("media-bytes"))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func stubCandidate(srv *httptest.Server, id string, w, h int, tags ...string) types.MediaCandidate {
	return types.MediaCandidate{
		ID:             id,
		Kind:           types.KindImage,
		SourceProvider: "stub",
		DownloadURL:    fmt.Sprintf("%s/%s.jpg", srv.URL, id),
		Tags:           tags,
		Width:          w,
		Height:         h,
	}
}

func TestGatherProducesRankedFittedManifest(t *testing.T) {
	srv := assetServer(t)
	cfg := testConfig(t)

	good := stubCandidate(srv, "uhd", 3840, 2160, "sunset", "ocean")
	small := stubCandidate(srv, "small", 640, 480, "sunset")
	searcher := &stubSearcher{name: "stub", candidates: []types.MediaCandidate{good, small}}
	broken := &stubSearcher{name: "broken", fail: true}

	o, err := search.NewOrchestrator(&providers.Registry{Images: []providers.Searcher{searcher, broken}})
	if err != nil {
		t.Fatalf("orchestrator: %v", err)
	}

	g := New(cfg, o, newTestCache(t, cfg), nil, nil, "run1")
	manifest, err := g.Run(context.Background(), Request{Tags: []string{"sunset"}})
	if err != nil {
		t.Fatalf("gather: %v", err)
	}

	if len(manifest.Assets) != 2 {
		t.Fatalf("expected 2 assets (dedup of 1 tag x 1 healthy provider), got %d", len(manifest.Assets))
	}
	if manifest.Assets[0].Candidate.ID != "uhd" {
		t.Fatalf("best candidate must rank first, got %s", manifest.Assets[0].Candidate.ID)
	}
	first := manifest.Assets[0]
	if first.Fit.Mode != aspect.ModeCrop {
		t.Fatalf("matching 16:9 source must crop, got %s", first.Fit.Mode)
	}
	if first.LocalPath == "" {
		t.Fatal("asset must carry its local path")
	}
	if _, err := os.Stat(first.LocalPath); err != nil {
		t.Fatalf("asset payload missing: %v", err)
	}
	if first.Quality.Total <= manifest.Assets[1].Quality.Total {
		t.Fatal("assets must be ordered best-first")
	}
}

func TestGatherExcludesFailedDownloads(t *testing.T) {
	srv := assetServer(t)
	cfg := testConfig(t)

	ok := stubCandidate(srv, "ok", 1920, 1080, "sunset")
	bad := stubCandidate(srv, "broken", 1920, 1080, "sunset")
	searcher := &stubSearcher{name: "stub", candidates: []types.MediaCandidate{ok, bad}}
	o, err := search.NewOrchestrator(&providers.Registry{Images: []providers.Searcher{searcher}})
	if err != nil {
		t.Fatalf("orchestrator: %v", err)
	}

	g := New(cfg, o, newTestCache(t, cfg), nil, nil, "run2")
	manifest, err := g.Run(context.Background(), Request{Tags: []string{"sunset"}})
	if err != nil {
		t.Fatalf("partial download failure must not fail the run: %v", err)
	}

	if len(manifest.Assets) != 1 || manifest.Assets[0].Candidate.ID != "ok" {
		t.Fatalf("only the successful download belongs in the manifest, got %+v", manifest.Assets)
	}
}

func TestGatherTargetDurationLimitsSelection(t *testing.T) {
	srv := assetServer(t)
	cfg := testConfig(t)
	cfg.Visuals.SecondsPerAsset = 5

	var candidates []types.MediaCandidate
	for i := 0; i < 10; i++ {
		candidates = append(candidates, stubCandidate(srv, fmt.Sprintf("c%d", i), 1920, 1080, "sunset"))
	}
	searcher := &stubSearcher{name: "stub", candidates: candidates}
	o, err := search.NewOrchestrator(&providers.Registry{Images: []providers.Searcher{searcher}})
	if err != nil {
		t.Fatalf("orchestrator: %v", err)
	}

	g := New(cfg, o, newTestCache(t, cfg), nil, nil, "run3")
	manifest, err := g.Run(context.Background(), Request{Tags: []string{"sunset"}, TargetDurationSec: 12})
	if err != nil {
		t.Fatalf("gather: %v", err)
	}

	// ceil(12 / 5) = 3 assets cover the target duration.
	if len(manifest.Assets) != 3 {
		t.Fatalf("expected 3 assets for a 12s target, got %d", len(manifest.Assets))
	}
}

func TestGatherNarrationGatePasses(t *testing.T) {
	srv := assetServer(t)
	cfg := testConfig(t)

	searcher := &stubSearcher{name: "stub", candidates: []types.MediaCandidate{stubCandidate(srv, "a", 1920, 1080, "sunset")}}
	o, err := search.NewOrchestrator(&providers.Registry{Images: []providers.Searcher{searcher}})
	if err != nil {
		t.Fatalf("orchestrator: %v", err)
	}

	synth := &stubSynth{results: []*speech.SynthesisResult{{
		Audio:      []byte("audio"),
		Format:     "mp3",
		DurationMs: 3000,
		Timestamps: timestamps(10),
		Emphasis: []types.EmphasisAnnotation{
			{WordIndex: 2, Level: types.EmphasisHigh, Tone: types.ToneIntense},
		},
	}}}

	g := New(cfg, o, newTestCache(t, cfg), nil, synth, "run4")
	manifest, err := g.Run(context.Background(), Request{Tags: []string{"sunset"}, Narration: []string{"ten words of narration"}})
	if err != nil {
		t.Fatalf("gather: %v", err)
	}

	if len(manifest.Narration) != 1 {
		t.Fatalf("expected 1 narration entry, got %d", len(manifest.Narration))
	}
	entry := manifest.Narration[0]
	if entry.AudioPath == "" {
		t.Fatal("narration entry must carry its audio path")
	}
	data, err := os.ReadFile(entry.AudioPath)
	if err != nil || string(data) != "audio" {
		t.Fatalf("narration audio not persisted: %v", err)
	}
}

func TestGatherNarrationGateViolationAborts(t *testing.T) {
	srv := assetServer(t)
	cfg := testConfig(t)

	searcher := &stubSearcher{name: "stub", candidates: []types.MediaCandidate{stubCandidate(srv, "a", 1920, 1080, "sunset")}}
	o, err := search.NewOrchestrator(&providers.Registry{Images: []providers.Searcher{searcher}})
	if err != nil {
		t.Fatalf("orchestrator: %v", err)
	}

	// Two adjacent High words violate the spacing constraint.
	synth := &stubSynth{results: []*speech.SynthesisResult{{
		Audio:      []byte("audio"),
		Timestamps: timestamps(50),
		Emphasis: []types.EmphasisAnnotation{
			{WordIndex: 5, Level: types.EmphasisHigh},
			{WordIndex: 6, Level: types.EmphasisHigh},
		},
	}}}

	g := New(cfg, o, newTestCache(t, cfg), nil, synth, "run5")
	_, err = g.Run(context.Background(), Request{Tags: []string{"sunset"}, Narration: []string{"bad segment"}})

	var ce *emphasis.ConstraintError
	if !errors.As(err, &ce) {
		t.Fatalf("emphasis violation must abort the run with a *ConstraintError, got %v", err)
	}
}

func TestManifestSaveIsIndentedJSON(t *testing.T) {
	dir := t.TempDir()
	m := &Manifest{RunID: "run6", CreatedAt: time.Now().UTC(), Tags: []string{"sunset"}}

	path, err := m.Save(dir)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	if !strings.Contains(string(data), "\n  \"run_id\": \"run6\"") {
		t.Fatalf("manifest must be 2-space indented JSON, got %q", data)
	}
}
