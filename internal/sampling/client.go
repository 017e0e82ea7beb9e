// internal/sampling/client.go
package sampling

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

const (
	gatewayPath    = "/openrouter-gateway"
	completionTool = "create_completion"
	defaultTimeout = 45 * time.Second
	retryDelay     = 500 * time.Millisecond
	maxAttempts    = 2
	maxErrorBody   = 512
)

// CompletionRequest is one prompt for the model.
type CompletionRequest struct {
	System string
	Prompt string
}

// CompletionError reports a failed completion call. Status is the HTTP status
// of the gateway, 0 when no response arrived.
type CompletionError struct {
	Status    int
	Transient bool
	Err       error
}

func (e *CompletionError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("completion failed with status %d: %v", e.Status, e.Err)
	}
	return fmt.Sprintf("completion failed: %v", e.Err)
}

func (e *CompletionError) Unwrap() error { return e.Err }

type Options struct {
	ProxyURL    string
	APIKey      string
	Model       string
	Timeout     time.Duration
	MaxAttempts int
	MaxTokens   int
	Temperature float64
}

// Client asks the LLM gateway behind the MCP proxy for completions by calling
// its create_completion tool over JSON-RPC.
type Client struct {
	httpClient  *http.Client
	proxyURL    string
	apiKey      string
	model       string
	timeout     time.Duration
	maxAttempts int
	maxTokens   int
	temperature float64
	retryDelay  time.Duration
	logger      *zap.Logger
}

func NewClient(opts Options, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	attempts := opts.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	// A completion is retried at most once.
	if attempts > maxAttempts {
		attempts = maxAttempts
	}
	return &Client{
		httpClient:  &http.Client{},
		proxyURL:    strings.TrimRight(opts.ProxyURL, "/"),
		apiKey:      opts.APIKey,
		model:       opts.Model,
		timeout:     timeout,
		maxAttempts: attempts,
		maxTokens:   opts.MaxTokens,
		temperature: opts.Temperature,
		retryDelay:  retryDelay,
		logger:      logger,
	}
}

// Complete returns the model's text for req. Transient failures (network
// errors, timeouts, 429 and 502-504) are retried until MaxAttempts, capped at
// two calls, is used up.
func (c *Client) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	args := map[string]interface{}{
		"model":         c.model,
		"system_prompt": req.System,
		"messages": []map[string]interface{}{
			{
				"role":    "user",
				"content": req.Prompt,
			},
		},
		"max_tokens":  c.maxTokens,
		"temperature": c.temperature,
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		text, err := c.callGateway(ctx, completionTool, args)
		if err == nil {
			return text, nil
		}
		lastErr = err

		var cErr *CompletionError
		if !errors.As(err, &cErr) || !cErr.Transient || attempt == c.maxAttempts {
			break
		}
		c.logger.Warn("completion attempt failed, retrying",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", c.maxAttempts),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return "", &CompletionError{Err: ctx.Err()}
		case <-time.After(c.retryDelay):
		}
	}
	return "", lastErr
}

func (c *Client) callGateway(ctx context.Context, toolName string, args interface{}) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	requestData := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "tools/call",
		"params": map[string]interface{}{
			"name":      toolName,
			"arguments": args,
		},
	}

	jsonData, err := json.Marshal(requestData)
	if err != nil {
		return "", &CompletionError{Err: fmt.Errorf("failed to marshal request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.proxyURL+gatewayPath, bytes.NewReader(jsonData))
	if err != nil {
		return "", &CompletionError{Err: fmt.Errorf("failed to create HTTP request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// A cancelled caller is final; an expired attempt is worth another try.
		transient := !errors.Is(err, context.Canceled)
		return "", &CompletionError{Transient: transient, Err: fmt.Errorf("HTTP request failed: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &CompletionError{Status: resp.StatusCode, Transient: true, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return "", &CompletionError{
			Status:    resp.StatusCode,
			Transient: transientStatus(resp.StatusCode),
			Err:       errors.New(truncate(string(body), maxErrorBody)),
		}
	}

	return parseEnvelope(body)
}

// parseEnvelope pulls the completion text out of the JSON-RPC response. The
// gateway wraps it twice: result.content[0].text holds a JSON document whose
// content field is the model output.
func parseEnvelope(body []byte) (string, error) {
	if !gjson.ValidBytes(body) {
		return "", &CompletionError{Status: http.StatusOK, Err: errors.New("gateway returned invalid JSON")}
	}
	envelope := gjson.ParseBytes(body)

	if rpcErr := envelope.Get("error"); rpcErr.Exists() {
		return "", &CompletionError{
			Status: http.StatusOK,
			Err:    fmt.Errorf("gateway error %d: %s", rpcErr.Get("code").Int(), rpcErr.Get("message").String()),
		}
	}

	text := envelope.Get("result.content.0.text")
	if text.Type != gjson.String {
		return "", &CompletionError{Status: http.StatusOK, Err: errors.New("unexpected response format")}
	}
	if envelope.Get("result.isError").Bool() {
		return "", &CompletionError{Status: http.StatusOK, Err: errors.New(truncate(text.String(), maxErrorBody))}
	}

	inner := text.String()
	if gjson.Valid(inner) {
		if content := gjson.Get(inner, "content"); content.Type == gjson.String {
			return content.String(), nil
		}
	}
	return inner, nil
}

func transientStatus(status int) bool {
	switch status {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
