package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client calls a completions-style HTTP backend: prompt in, a list of choices
// with per-token logprob traces out.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

type completionRequest struct {
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens"`
	N           int     `json:"n"`
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	Logprobs    int     `json:"logprobs"`
}

type completionResponse struct {
	Choices []struct {
		Text     string `json:"text"`
		Logprobs struct {
			TokenLogprobs []float64 `json:"token_logprobs"`
			TextOffset    []int     `json:"text_offset"`
		} `json:"logprobs"`
	} `json:"choices"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Complete requests req.N continuations in a single backend call.
func (c *Client) Complete(ctx context.Context, req Request) ([]Completion, error) {
	body, err := json.Marshal(completionRequest{
		Model:       req.Model,
		Prompt:      req.Prompt,
		MaxTokens:   req.Length,
		N:           req.N,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		Logprobs:    1,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("generation backend: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &BackendError{StatusCode: resp.StatusCode, Message: truncate(string(respBody), 200)}
	}

	var apiResp completionResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if apiResp.Error != nil {
		return nil, &BackendError{Message: apiResp.Error.Type + ": " + apiResp.Error.Message}
	}
	if len(apiResp.Choices) == 0 {
		return nil, &BackendError{Message: "empty response"}
	}

	out := make([]Completion, 0, len(apiResp.Choices))
	for _, choice := range apiResp.Choices {
		out = append(out, Completion{
			Text:          choice.Text,
			TokenLogprobs: choice.Logprobs.TokenLogprobs,
			TextOffsets:   choice.Logprobs.TextOffset,
		})
	}
	return out, nil
}

// Close releases resources.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
