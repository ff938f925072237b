// Package ingest fetches trending pool data from the GeckoTerminal REST API.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pumpwatch/engine/internal/store"
)

const (
	// GeckoAPIBaseURL is the GeckoTerminal public API endpoint
	GeckoAPIBaseURL = "https://api.geckoterminal.com/api/v2"
	// GeckoWebBaseURL is the GeckoTerminal site used for chart links
	GeckoWebBaseURL = "https://www.geckoterminal.com"
	// DefaultTimeout is the default HTTP client timeout
	DefaultTimeout = 10 * time.Second

	// maxBodyBytes caps the response size read from the API
	maxBodyBytes = 8 << 20
)

// ErrFetch is wrapped by every error returned from TrendingPools.
var ErrFetch = errors.New("fetch trending pools")

// StatusError is returned when the API answers with a non-2xx status.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status: %d", e.StatusCode)
}

// Is lets errors.Is(err, ErrFetch) match a bare StatusError.
func (e *StatusError) Is(target error) bool {
	return target == ErrFetch
}

// TrendingClient fetches trending pools for a single network.
type TrendingClient struct {
	baseURL string
	network string
	client  *http.Client
}

// NewTrendingClient creates a new TrendingClient.
func NewTrendingClient(baseURL, network string, timeout time.Duration) *TrendingClient {
	if baseURL == "" {
		baseURL = GeckoAPIBaseURL
	}
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	return &TrendingClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		network: network,
		client:  &http.Client{Timeout: timeout},
	}
}

// Network returns the network this client polls.
func (c *TrendingClient) Network() string {
	return c.network
}

// TrendingPools fetches the current trending pools.
// Records that cannot be decoded are logged and skipped.
func (c *TrendingClient) TrendingPools(ctx context.Context) ([]store.Pool, error) {
	endpoint := fmt.Sprintf("%s/networks/%s/trending_pools", c.baseURL, url.PathEscape(c.network))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create request failed: %v", ErrFetch, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request failed: %w", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body failed: %w", ErrFetch, err)
	}

	pools, skipped, err := ParseTrendingPools(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}

	for _, recErr := range skipped {
		slog.Warn("pool_record_skipped", "network", c.network, "error", recErr)
	}

	return pools, nil
}

// ChartURL builds the GeckoTerminal chart link for a pool.
func ChartURL(webBase, network, poolID string) string {
	if webBase == "" {
		webBase = GeckoWebBaseURL
	}
	return fmt.Sprintf("%s/%s/pools/%s", strings.TrimSuffix(webBase, "/"), network, PoolAddress(poolID))
}

// PoolAddress returns the last "/"-separated segment of a pool ID.
func PoolAddress(poolID string) string {
	if i := strings.LastIndex(poolID, "/"); i >= 0 {
		return poolID[i+1:]
	}
	return poolID
}
