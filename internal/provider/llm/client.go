package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// Request is the outbound shape sent to the coach completion endpoint.
type Request struct {
	SystemContext string `json:"system_context"`
	UserMessage   string `json:"user_message"`
}

type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// Complete posts req and returns the model's text. Vendor envelopes are
// unwrapped; anything else is returned as the raw body text.
func (c *Client) Complete(ctx context.Context, req Request) (string, []byte, error) {
	base := strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if base == "" {
		return "", nil, fmt.Errorf("missing coach endpoint URL")
	}
	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return "", nil, fmt.Errorf("marshal coach request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, base, bytes.NewReader(payload))
	if err != nil {
		return "", nil, fmt.Errorf("create coach request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if key := strings.TrimSpace(c.APIKey); key != "" {
		httpReq.Header.Set("Authorization", "Bearer "+key)
	}

	resp, err := httpClient.Do(httpReq)
	if err != nil {
		return "", nil, fmt.Errorf("execute coach request: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", nil, fmt.Errorf("read coach response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", body, fmt.Errorf("coach request failed with status %d", resp.StatusCode)
	}
	return ExtractText(body), body, nil
}

// ExtractText unwraps OpenAI and Gemini style envelopes and plain
// {"text": ...} or {"content": ...} wrappers.
func ExtractText(body []byte) string {
	if !gjson.ValidBytes(body) {
		return string(body)
	}
	for _, path := range []string{
		"choices.0.message.content",
		"candidates.0.content.parts.0.text",
		"text",
		"content",
	} {
		if r := gjson.GetBytes(body, path); r.Type == gjson.String {
			return r.Str
		}
	}
	return string(body)
}

// CleanResponse removes markdown code fences and trims text outside the
// outermost JSON object, if there is one.
func CleanResponse(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```JSON", "")
	text = strings.ReplaceAll(text, "```", "")
	text = strings.TrimSpace(text)

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start != -1 && end > start {
		return text[start : end+1]
	}
	return text
}
