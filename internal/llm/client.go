// Package llm provides the language-model gateway used for agent decisions,
// work-step prose, and the build-quality judge.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

const (
	apiURL     = "https://api.anthropic.com/v1/messages"
	apiVersion = "2023-06-01"
)

// ModelSpec describes one routable model.
type ModelSpec struct {
	ID                 string
	Model              string
	MaxTokens          int
	InputCentsPerMTok  float64
	OutputCentsPerMTok float64
}

// Known model routes. Unknown ids fall back to the haiku route.
var modelSpecs = map[string]ModelSpec{
	"haiku":  {ID: "haiku", Model: "claude-haiku-4-5-20251001", MaxTokens: 1024, InputCentsPerMTok: 100, OutputCentsPerMTok: 500},
	"sonnet": {ID: "sonnet", Model: "claude-sonnet-4-5-20250929", MaxTokens: 2048, InputCentsPerMTok: 300, OutputCentsPerMTok: 1500},
}

// GetModelSpec resolves a model id.
func GetModelSpec(modelID string) ModelSpec {
	if spec, ok := modelSpecs[modelID]; ok {
		return spec
	}
	return modelSpecs["haiku"]
}

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Completion is a gateway response with token accounting.
type Completion struct {
	Content      string
	InputTokens  int
	OutputTokens int
}

// Cost is the priced record of one call.
type Cost struct {
	Model        string  `json:"model"`
	InputTokens  int     `json:"inputTokens"`
	OutputTokens int     `json:"outputTokens"`
	CostCents    float64 `json:"costCents"`
	LatencyMs    int64   `json:"latencyMs"`
}

// CalculateCost prices a completed call.
func CalculateCost(spec ModelSpec, inputTokens, outputTokens int, latency time.Duration) Cost {
	cents := float64(inputTokens)/1e6*spec.InputCentsPerMTok +
		float64(outputTokens)/1e6*spec.OutputCentsPerMTok
	return Cost{
		Model:        spec.Model,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		CostCents:    cents,
		LatencyMs:    latency.Milliseconds(),
	}
}

// Client wraps the Messages API with a per-minute rate limit.
type Client struct {
	apiKey     string
	httpClient *http.Client

	mu        sync.Mutex
	callCount int
	resetAt   time.Time
	maxPerMin int
}

// NewClient creates a gateway client. Returns nil if apiKey is empty; agents
// then fall back to deterministic decision paths.
func NewClient(apiKey string) *Client {
	if apiKey == "" {
		return nil
	}
	return &Client{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 45 * time.Second},
		maxPerMin:  30,
	}
}

// Enabled returns true if the client has a valid API key.
func (c *Client) Enabled() bool {
	return c != nil && c.apiKey != ""
}

type apiRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
	System      string    `json:"system,omitempty"`
	Messages    []Message `json:"messages"`
}

type apiResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// CallModel sends a conversation to the gateway. A leading system message is
// lifted into the system field. forceNoJSONMode exists for interface parity
// with other gateways; the Messages API needs no toggle.
func (c *Client) CallModel(ctx context.Context, spec ModelSpec, messages []Message, temperature float64, forceNoJSONMode bool) (*Completion, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("llm client not configured")
	}
	_ = forceNoJSONMode

	c.mu.Lock()
	now := time.Now()
	if now.After(c.resetAt) {
		c.callCount = 0
		c.resetAt = now.Add(time.Minute)
	}
	if c.callCount >= c.maxPerMin {
		c.mu.Unlock()
		return nil, fmt.Errorf("rate limit exceeded (%d calls/min)", c.maxPerMin)
	}
	c.callCount++
	c.mu.Unlock()

	req := apiRequest{
		Model:       spec.Model,
		MaxTokens:   spec.MaxTokens,
		Temperature: temperature,
	}
	for _, m := range messages {
		if m.Role == "system" && req.System == "" {
			req.System = m.Content
			continue
		}
		req.Messages = append(req.Messages, m)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", apiVersion)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("API call: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed apiResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if len(parsed.Content) == 0 {
		return nil, fmt.Errorf("empty response")
	}

	slog.Debug("model call",
		"model", spec.Model,
		"input_tokens", parsed.Usage.InputTokens,
		"output_tokens", parsed.Usage.OutputTokens,
	)

	return &Completion{
		Content:      parsed.Content[0].Text,
		InputTokens:  parsed.Usage.InputTokens,
		OutputTokens: parsed.Usage.OutputTokens,
	}, nil
}
