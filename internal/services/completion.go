package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/ekinacar/solace/internal/config"
	"github.com/ekinacar/solace/pkg/apperrors"
)

// Usage is the token accounting for one upstream call. Cache counters
// default to zero when the upstream omits them.
type Usage struct {
	InputTokens         int `json:"input_tokens"`
	OutputTokens        int `json:"output_tokens"`
	CacheCreationTokens int `json:"cache_creation_tokens"`
	CacheReadTokens     int `json:"cache_read_tokens"`
}

// CompletionClient calls the Anthropic messages API with bounded retry.
// Model, output length and temperature are fixed at construction.
type CompletionClient struct {
	cfg    *config.Config
	client *http.Client
}

func NewCompletionClient(cfg *config.Config) *CompletionClient {
	return &CompletionClient{
		cfg: cfg,
		client: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

type systemBlock struct {
	Type         string        `json:"type"`
	Text         string        `json:"text"`
	CacheControl *cacheControl `json:"cache_control,omitempty"`
}

type cacheControl struct {
	Type string `json:"type"`
}

type apiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type apiResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens              int `json:"input_tokens"`
		OutputTokens             int `json:"output_tokens"`
		CacheCreationInputTokens int `json:"cache_creation_input_tokens"`
		CacheReadInputTokens     int `json:"cache_read_input_tokens"`
	} `json:"usage"`
}

// transientError marks a failure worth retrying (network, ratelimit, 5xx).
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// Complete performs the upstream call. Each tier is sent as its own system
// block with an independent cache marker so the static tier stays cached
// across every user and the dynamic tier across every turn. Retries apply
// only to transient failures; a malformed request or auth problem is
// terminal and surfaced immediately without consuming a retry.
func (c *CompletionClient) Complete(ctx context.Context, staticTier, dynamicTier string, messages []TurnMessage) (string, Usage, error) {
	apiMsgs := make([]apiMessage, 0, len(messages))
	for _, m := range messages {
		apiMsgs = append(apiMsgs, apiMessage{Role: m.Role.String(), Content: m.Content})
	}

	body, err := json.Marshal(map[string]interface{}{
		"model":       c.cfg.AnthropicModel,
		"max_tokens":  c.cfg.MaxOutputTokens,
		"temperature": c.cfg.Temperature,
		"system": []systemBlock{
			{Type: "text", Text: staticTier, CacheControl: &cacheControl{Type: "ephemeral"}},
			{Type: "text", Text: dynamicTier, CacheControl: &cacheControl{Type: "ephemeral"}},
		},
		"messages": apiMsgs,
	})
	if err != nil {
		return "", Usage{}, apperrors.Wrap(apperrors.CodeInternal, "failed to encode completion request", err)
	}

	var lastErr error
	backoff := c.cfg.CompletionBackoff

	for attempt := 1; attempt <= c.cfg.CompletionMaxAttempts; attempt++ {
		if attempt > 1 {
			slog.Warn("retrying completion call", "attempt", attempt, "backoff", backoff)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", Usage{}, apperrors.Wrap(apperrors.CodeDeadlineExceeded, "turn cancelled during retry backoff", ctx.Err())
			}
			backoff *= 2
		}

		text, usage, err := c.call(ctx, body)
		if err == nil {
			return text, usage, nil
		}

		var te *transientError
		if !errors.As(err, &te) {
			return "", Usage{}, err
		}
		lastErr = te.err
	}

	return "", Usage{}, apperrors.ErrUpstreamUnavailable(lastErr)
}

func (c *CompletionClient) call(ctx context.Context, body []byte) (string, Usage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.AnthropicAPIURL, bytes.NewReader(body))
	if err != nil {
		return "", Usage{}, apperrors.Wrap(apperrors.CodeInternal, "failed to build completion request", err)
	}
	req.Header.Set("x-api-key", c.cfg.AnthropicAPIKey)
	req.Header.Set("anthropic-version", "2023-06-01")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", Usage{}, apperrors.Wrap(apperrors.CodeDeadlineExceeded, "turn cancelled during completion call", ctx.Err())
		}
		return "", Usage{}, &transientError{err: err}
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("completion API returned %d: %s", resp.StatusCode, truncate(string(respBody), 200))
		if retryableStatus(resp.StatusCode) {
			return "", Usage{}, &transientError{err: err}
		}
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return "", Usage{}, apperrors.Wrap(apperrors.CodeUnauthenticated, "completion API rejected credentials", err)
		}
		return "", Usage{}, apperrors.ErrUpstreamRejected(err)
	}

	var parsed apiResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", Usage{}, &transientError{err: fmt.Errorf("malformed completion response: %w", err)}
	}

	var sb bytes.Buffer
	for _, block := range parsed.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}

	usage := Usage{
		InputTokens:         parsed.Usage.InputTokens,
		OutputTokens:        parsed.Usage.OutputTokens,
		CacheCreationTokens: parsed.Usage.CacheCreationInputTokens,
		CacheReadTokens:     parsed.Usage.CacheReadInputTokens,
	}
	return sb.String(), usage, nil
}

// retryableStatus: ratelimits and server-side failures are worth another
// attempt; anything else means the request itself is wrong.
func retryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
