package configapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/lexiqai/voice-client/internal/resilience"
)

// RemoteConfig is the configuration surface served by the agent's config
// collaborator. Values seed the session controller's cached configuration.
type RemoteConfig struct {
	SystemPrompt string `json:"systemPrompt"`
	VoiceID      string `json:"voiceId"`
	Language     string `json:"language"`
}

// ToolServer describes one tool server the agent can reach.
type ToolServer struct {
	Name    string `json:"name"`
	URL     string `json:"url"`
	Enabled bool   `json:"enabled"`
}

// Client talks to the configuration HTTP surface. All calls go through the
// circuit breaker; reads additionally retry transient network failures.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	circuitBreaker *resilience.CircuitBreaker
	retryConfig    *resilience.RetryConfig
	logger         zerolog.Logger
}

// NewClient creates a configuration client for the given base URL.
func NewClient(baseURL string, maxFailures int, resetTimeout time.Duration, logger zerolog.Logger) *Client {
	return &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		httpClient:     &http.Client{Timeout: 10 * time.Second},
		circuitBreaker: resilience.NewCircuitBreaker("configapi", maxFailures, resetTimeout),
		retryConfig:    resilience.DefaultRetryConfig(),
		logger:         logger.With().Str("component", "configapi").Logger(),
	}
}

// SetRetryConfig overrides the default retry policy for reads.
func (c *Client) SetRetryConfig(cfg *resilience.RetryConfig) {
	if cfg != nil {
		c.retryConfig = cfg
	}
}

// Fetch returns the current remote configuration.
func (c *Client) Fetch(ctx context.Context) (RemoteConfig, error) {
	var remote RemoteConfig
	err := c.getJSON(ctx, "/api/config", &remote)
	return remote, err
}

// SavePrompt persists an edited system prompt.
func (c *Client) SavePrompt(ctx context.Context, prompt string) error {
	body := map[string]string{"systemPrompt": prompt}
	return c.sendJSON(ctx, http.MethodPut, "/api/config/prompt", body, nil)
}

// KnowledgeBase returns the active knowledge-base identifier.
func (c *Client) KnowledgeBase(ctx context.Context) (string, error) {
	var payload struct {
		KnowledgeBaseID string `json:"knowledgeBaseId"`
	}
	if err := c.getJSON(ctx, "/api/config/knowledge-base", &payload); err != nil {
		return "", err
	}
	return payload.KnowledgeBaseID, nil
}

// SetKnowledgeBase selects a knowledge base by identifier.
func (c *Client) SetKnowledgeBase(ctx context.Context, id string) error {
	body := map[string]string{"knowledgeBaseId": id}
	return c.sendJSON(ctx, http.MethodPut, "/api/config/knowledge-base", body, nil)
}

// ListToolServers returns the tool servers known to the agent.
func (c *Client) ListToolServers(ctx context.Context) ([]ToolServer, error) {
	var payload struct {
		Servers []ToolServer `json:"servers"`
	}
	if err := c.getJSON(ctx, "/api/tool-servers", &payload); err != nil {
		return nil, err
	}
	return payload.Servers, nil
}

// HealthCheck probes the configuration surface for the readiness endpoint.
func (c *Client) HealthCheck(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK, nil
}

// getJSON performs a retried GET through the circuit breaker.
func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	return resilience.Retry(ctx, func(ctx context.Context) error {
		return c.circuitBreaker.Call(func() error {
			return c.doJSON(ctx, http.MethodGet, path, nil, out)
		})
	}, c.retryConfig, c.retryable)
}

// sendJSON performs a single write through the circuit breaker. Writes are
// not retried; the surface does not promise idempotency.
func (c *Client) sendJSON(ctx context.Context, method, path string, body, out interface{}) error {
	return c.circuitBreaker.Call(func() error {
		return c.doJSON(ctx, method, path, body, out)
	})
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return resilience.NewRetryableError(fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode))
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// retryable treats explicit retryable errors and transient network failures
// as retry candidates; breaker rejections are not retried.
func (c *Client) retryable(err error) bool {
	if err == resilience.ErrCircuitOpen {
		return false
	}
	return resilience.IsRetryable(err) || resilience.IsRetryableNetworkError(err)
}
