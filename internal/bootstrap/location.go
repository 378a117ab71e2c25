package bootstrap

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/lexiqai/voice-client/internal/protocol"
)

// LocationProvider resolves a best-effort client location from an HTTP
// geolocation endpoint. Failure never blocks a session; callers get a
// Location marked unavailable instead of an error.
type LocationProvider struct {
	url        string
	timeout    time.Duration
	cacheTTL   time.Duration
	httpClient *http.Client
	logger     zerolog.Logger

	mu        sync.Mutex
	cached    protocol.Location
	fetchedAt time.Time
}

// NewLocationProvider creates a provider. An empty URL disables lookups.
func NewLocationProvider(url string, timeout, cacheTTL time.Duration, logger zerolog.Logger) *LocationProvider {
	return &LocationProvider{
		url:        url,
		timeout:    timeout,
		cacheTTL:   cacheTTL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With().Str("component", "location").Logger(),
	}
}

// Lookup returns the current location, served from cache when fresh.
func (p *LocationProvider) Lookup(ctx context.Context) protocol.Location {
	if p.url == "" {
		return protocol.Location{Unavailable: true}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.fetchedAt.IsZero() && time.Since(p.fetchedAt) < p.cacheTTL {
		return p.cached
	}

	loc, err := p.fetch(ctx)
	if err != nil {
		p.logger.Warn().Err(err).Msg("Location lookup failed, degrading to unavailable")
		return protocol.Location{Unavailable: true}
	}

	p.cached = loc
	p.fetchedAt = time.Now()
	return loc
}

func (p *LocationProvider) fetch(ctx context.Context) (protocol.Location, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return protocol.Location{}, err
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return protocol.Location{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return protocol.Location{}, fmt.Errorf("geolocation lookup: status %d", resp.StatusCode)
	}

	var payload struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
		Accuracy  float64 `json:"accuracy"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return protocol.Location{}, err
	}

	return protocol.Location{
		Latitude:  payload.Latitude,
		Longitude: payload.Longitude,
		Accuracy:  payload.Accuracy,
		Timestamp: time.Now().UnixMilli(),
	}, nil
}
