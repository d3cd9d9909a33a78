// Package providers holds the uniform media-search contract and one adapter
// per upstream vendor. Adapters are plain values behind the Searcher
// interface; the orchestrator never knows which vendor it is talking to.
package providers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"shortreel-pipeline/types"
)

// SearchOptions narrows one provider search call.
type SearchOptions struct {
	PerTag      int
	Orientation string // landscape | portrait | square
	MinWidth    int
	MinHeight   int
	MinDuration float64
	MaxDuration float64
}

// Searcher is the per-provider, per-media-kind search contract. "No
// results" returns an empty slice, never an error; real failures return a
// *ProviderError.
type Searcher interface {
	Name() string
	Search(ctx context.Context, query string, opts SearchOptions) ([]types.MediaCandidate, error)
}

// ErrorKind classifies a provider failure.
type ErrorKind string

const (
	ErrAuth        ErrorKind = "invalid-credentials"
	ErrRateLimited ErrorKind = "rate-limited"
	ErrNetwork     ErrorKind = "network"
	ErrUnknown     ErrorKind = "unknown"
)

// ProviderError is a typed per-provider search failure. The orchestrator
// recovers it locally; it never aborts a whole gather.
type ProviderError struct {
	Provider   string
	Kind       ErrorKind
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("provider %s: %s (HTTP %d): %v", e.Provider, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("provider %s: %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// errorFromStatus maps an HTTP status to a classified provider error.
// 404 is not handled here: providers map it to an empty result set.
func errorFromStatus(provider string, status int) *ProviderError {
	kind := ErrUnknown
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		kind = ErrAuth
	case status == http.StatusTooManyRequests:
		kind = ErrRateLimited
	case status >= 500:
		kind = ErrNetwork
	}
	return &ProviderError{Provider: provider, Kind: kind, StatusCode: status, Err: fmt.Errorf("HTTP %d", status)}
}

func networkError(provider string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Kind: ErrNetwork, Err: err}
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 15 * time.Second}
}
