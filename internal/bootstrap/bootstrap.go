package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/lexiqai/voice-client/internal/audio"
	"github.com/lexiqai/voice-client/internal/config"
	"github.com/lexiqai/voice-client/internal/protocol"
)

// ErrMicrophoneDenied means the capture device could not be acquired. The
// condition is retry-eligible; nothing prevents a later attempt from working.
var ErrMicrophoneDenied = errors.New("microphone access denied")

// Result is everything a session needs that must exist before the first
// start: the capture device, the location provider, and client metadata.
type Result struct {
	Device   *audio.MicDevice
	Location *LocationProvider
	Domain   protocol.DomainInfo
}

// Run acquires the microphone and warms the location cache concurrently,
// joining both before returning. Runs once per process before the first
// session start. Microphone failure is fatal; location failure degrades.
func Run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Result, error) {
	domain, err := DomainFromURL(cfg.AgentURL)
	if err != nil {
		return nil, fmt.Errorf("parse agent url: %w", err)
	}

	provider := NewLocationProvider(
		cfg.GeoAPIURL,
		time.Duration(cfg.LocationTimeout)*time.Second,
		time.Duration(cfg.LocationCacheTTL)*time.Second,
		logger,
	)

	var (
		wg     sync.WaitGroup
		device *audio.MicDevice
		micErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		device, micErr = audio.OpenMicDevice(cfg.CaptureSampleRate, cfg.FrameSamples)
	}()
	go func() {
		defer wg.Done()
		loc := provider.Lookup(ctx)
		if loc.Unavailable {
			logger.Debug().Msg("Location unavailable at bootstrap")
		}
	}()
	wg.Wait()

	if micErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrMicrophoneDenied, micErr)
	}

	logger.Info().Str("domain", domain.Domain).Msg("Bootstrap complete")
	return &Result{
		Device:   device,
		Location: provider,
		Domain:   domain,
	}, nil
}

// DomainFromURL captures static client metadata from the agent URL for the
// post-connect announcement.
func DomainFromURL(agentURL string) (protocol.DomainInfo, error) {
	u, err := url.Parse(agentURL)
	if err != nil {
		return protocol.DomainInfo{}, err
	}
	if u.Host == "" {
		return protocol.DomainInfo{}, fmt.Errorf("agent url %q has no host", agentURL)
	}

	port := u.Port()
	if port == "" {
		switch u.Scheme {
		case "wss", "https":
			port = "443"
		default:
			port = "80"
		}
	}

	path := u.Path
	if path == "" {
		path = "/"
	}

	return protocol.DomainInfo{
		Domain:    u.Hostname(),
		Protocol:  u.Scheme,
		Port:      port,
		Pathname:  path,
		Timestamp: time.Now().UnixMilli(),
	}, nil
}
