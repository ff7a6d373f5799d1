// Package httpchat implements the agent's ChatClient contract against any
// OpenAI-compatible /chat/completions endpoint, with the retry/backoff shape
// the teacher's provider model uses.
package httpchat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/nextlevelbuilder/vibeagent/internal/agent"
	"github.com/nextlevelbuilder/vibeagent/internal/obslog"
)

const (
	maxAttempts  = 3
	retryBackoff = 700 * time.Millisecond
)

// Client is the injectable agent.ChatClient backed by net/http.
type Client struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	httpClient  *http.Client
	log         *obslog.Logger
}

// New builds a Client against baseURL (trimmed of a trailing
// /chat/completions, if present) using apiKey as a bearer token.
func New(baseURL, apiKey, model string, temperature float64, log *obslog.Logger) *Client {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	base = strings.TrimSuffix(base, "/chat/completions")
	return &Client{
		baseURL:     base,
		apiKey:      apiKey,
		model:       model,
		temperature: temperature,
		httpClient:  &http.Client{},
		log:         log,
	}
}

// Complete implements agent.ChatClient. It prefers a JSON-object response
// format when asking the provider for one; if the provider rejects the
// response_format hint, it retries once without it. Empty content is an
// error.
func (c *Client) Complete(ctx context.Context, messages []agent.Message, timeoutMS int) (string, error) {
	timeout := time.Duration(timeoutMS) * time.Millisecond
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	text, err := c.completeOnce(ctx, messages, timeout, true)
	if err != nil && strings.Contains(strings.ToLower(err.Error()), "response_format") {
		if c.log != nil {
			c.log.Warn("provider rejected response_format hint, retrying without it", nil)
		}
		text, err = c.completeOnce(ctx, messages, timeout, false)
	}
	return text, err
}

func (c *Client) completeOnce(ctx context.Context, messages []agent.Message, timeout time.Duration, jsonHint bool) (string, error) {
	chatMessages := make([]map[string]string, 0, len(messages))
	for _, m := range messages {
		chatMessages = append(chatMessages, map[string]string{"role": m.Role, "content": m.Content})
	}

	body := map[string]any{
		"model":       c.model,
		"messages":    chatMessages,
		"temperature": c.temperature,
	}
	if jsonHint {
		body["response_format"] = map[string]string{"type": "json_object"}
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("httpchat: marshal request: %w", err)
	}

	var payload struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Error any `json:"error"`
	}

	statusCode, err := c.doWithRetry(ctx, raw, timeout, &payload)
	if err != nil {
		return "", err
	}
	if statusCode >= 300 {
		return "", fmt.Errorf("httpchat: provider request failed: status=%d error=%v", statusCode, payload.Error)
	}
	if len(payload.Choices) == 0 {
		return "", errors.New("httpchat: provider returned no choices")
	}

	content := strings.TrimSpace(payload.Choices[0].Message.Content)
	if content == "" {
		return "", errors.New("httpchat: provider returned empty content")
	}
	return content, nil
}

func (c *Client) doWithRetry(ctx context.Context, raw []byte, timeout time.Duration, payload any) (int, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		statusCode, err := c.doOnce(attemptCtx, raw, payload)
		cancel()
		if err == nil {
			return statusCode, nil
		}
		lastErr = err
		if !shouldRetry(err) || attempt == maxAttempts {
			return 0, err
		}

		backoff := retryBackoff * time.Duration(1<<(attempt-1))
		if backoff > 5*time.Second {
			backoff = 5 * time.Second
		}
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(backoff):
		}
	}
	return 0, lastErr
}

func (c *Client) doOnce(ctx context.Context, raw []byte, payload any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(raw))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(payload); err != nil {
		return 0, fmt.Errorf("httpchat: decode response: %w", err)
	}
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return resp.StatusCode, fmt.Errorf("httpchat: retryable provider status: %d", resp.StatusCode)
	}
	return resp.StatusCode, nil
}

func shouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "retryable provider status") || strings.Contains(lower, "timeout")
}
