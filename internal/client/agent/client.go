// Package agent provides a client for the external AI agent API.
package agent

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"choco-backend/internal/config"
)

// ErrDisabled is returned when the agent integration is switched off.
var ErrDisabled = fmt.Errorf("agent integration is disabled")

// AskRequest is the payload sent to the agent.
type AskRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

// AskResponse is the agent's answer.
type AskResponse struct {
	Reply     string `json:"reply"`
	SessionID string `json:"session_id,omitempty"`
	Err       string `json:"error,omitempty"`
}

// Client is a client for the AI agent API.
type Client struct {
	enabled    bool               // Whether the integration is active
	endpoint   string             // Agent API endpoint
	timeout    time.Duration      // Request timeout
	retry      config.RetryConfig // Retry configuration
	httpClient *resty.Client      // HTTP client
	logger     zerolog.Logger     // Logger
}

// NewClient creates a new AI agent client.
func NewClient(cfg *config.AgentConfig, retryCfg *config.RetryConfig, logger zerolog.Logger) *Client {
	// Set default timeout if not specified
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	// Set default retry config if not specified
	retry := config.RetryConfig{
		MaxRetries: 3,
		BaseDelay:  1 * time.Second,
	}
	if retryCfg != nil {
		retry = *retryCfg
	}

	// Create resty client
	httpClient := resty.New().
		SetBaseURL(cfg.Endpoint).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetRetryCount(retry.MaxRetries).
		SetRetryWaitTime(retry.BaseDelay).
		SetRetryMaxWaitTime(retry.BaseDelay * 8). // Max wait time for exponential backoff
		AddRetryCondition(retryCondition)

	if cfg.Token != "" {
		httpClient.SetAuthToken(cfg.Token)
	}

	return &Client{
		enabled:    cfg.Enabled,
		endpoint:   cfg.Endpoint,
		timeout:    timeout,
		retry:      retry,
		httpClient: httpClient,
		logger:     logger.With().Str("component", "agent-client").Logger(),
	}
}

// Enabled reports whether the integration is active.
func (c *Client) Enabled() bool {
	return c.enabled
}

// retryCondition determines whether a request should be retried.
// Only retry on timeout, 5xx errors, or connection failures.
// Do not retry on 4xx errors.
func retryCondition(resp *resty.Response, err error) bool {
	// Retry on error (timeout, connection failure, etc.)
	if err != nil {
		return true
	}

	// Retry on 5xx server errors
	if resp != nil && resp.StatusCode() >= 500 {
		return true
	}

	// Do not retry on 4xx client errors
	return false
}

// Ask sends a chat message to the agent and returns its reply. The
// session id threads a conversation across calls.
func (c *Client) Ask(ctx context.Context, sessionID, message string) (string, error) {
	if !c.enabled {
		return "", ErrDisabled
	}

	c.logger.Debug().Str("session_id", sessionID).Int("message_len", len(message)).Msg("asking agent")

	var result AskResponse

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(AskRequest{Message: message, SessionID: sessionID}).
		SetResult(&result).
		Post("/api/v1/chat")

	if err != nil {
		c.logger.Error().Err(err).Msg("failed to reach agent")
		return "", fmt.Errorf("failed to reach agent: %w", err)
	}

	// Check HTTP status code
	if resp.StatusCode() != http.StatusOK {
		c.logger.Error().
			Int("status_code", resp.StatusCode()).
			Str("body", string(resp.Body())).
			Msg("agent API returned non-200 status")
		return "", fmt.Errorf("agent API returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}

	// Check agent API error field
	if result.Err != "" {
		c.logger.Error().Str("api_error", result.Err).Msg("agent API returned error")
		return "", fmt.Errorf("agent API error: %s", result.Err)
	}

	c.logger.Info().Str("session_id", sessionID).Int("reply_len", len(result.Reply)).Msg("agent replied")
	return result.Reply, nil
}
