package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client calls any OpenAI-compatible chat-completions endpoint. OpenAI, Groq
// and the Bedrock runtime's OpenAI-compatible surface all speak this wire
// format, so one client covers the three configured providers.
type Client struct {
	name       string
	apiBase    string
	apiKey     string
	model      string
	httpClient *http.Client
}

type ClientConfig struct {
	APIBase string
	APIKey  string
	Model   string
}

// NewOpenAI returns a provider for api.openai.com.
func NewOpenAI(cfg ClientConfig) *Client {
	return newClient("openai", "https://api.openai.com/v1", "gpt-4o-mini", cfg)
}

// NewGroq returns a provider for the Groq cloud endpoint.
func NewGroq(cfg ClientConfig) *Client {
	return newClient("groq", "https://api.groq.com/openai/v1", "llama-3.3-70b-versatile", cfg)
}

// NewBedrock returns a provider for an Amazon Bedrock runtime exposing the
// OpenAI-compatible chat surface with API-key auth.
func NewBedrock(cfg ClientConfig) *Client {
	return newClient("bedrock", "https://bedrock-runtime.us-east-1.amazonaws.com/openai/v1", "anthropic.claude-3-5-haiku-20241022-v1:0", cfg)
}

func newClient(name, defaultBase, defaultModel string, cfg ClientConfig) *Client {
	base := strings.TrimRight(strings.TrimSpace(cfg.APIBase), "/")
	if base == "" {
		base = defaultBase
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}
	return &Client{
		name:    name,
		apiBase: base,
		apiKey:  cfg.APIKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

func (c *Client) Name() string { return c.name }

func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	return c.chat(ctx, req, false)
}

func (c *Client) CompleteStructured(ctx context.Context, req Request) (Extraction, error) {
	raw, err := c.chat(ctx, req, true)
	if err != nil {
		return Extraction{}, err
	}
	return parseExtraction(raw)
}

type chatRespBody struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *Client) chat(ctx context.Context, req Request, structured bool) (string, error) {
	body := map[string]any{
		"model":    c.model,
		"messages": req,
	}
	if structured {
		body["response_format"] = map[string]string{"type": "json_object"}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal %s request: %w", c.name, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.apiBase+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build %s request: %w", c.name, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	res, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%s request: %w", c.name, err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("read %s response: %w", c.name, err)
	}
	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s http status %d: %s", c.name, res.StatusCode, truncateBody(raw))
	}

	var parsed chatRespBody
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("parse %s response: %w", c.name, err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%s response has no choices", c.name)
	}
	return parsed.Choices[0].Message.Content, nil
}

// parseExtraction decodes the structured extraction record. Models sometimes
// wrap JSON in a code fence even when asked not to, so fences are stripped
// before decoding. Anything else malformed is a backend fault.
func parseExtraction(raw string) (Extraction, error) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSuffix(strings.TrimSpace(raw), "```")
		raw = strings.TrimSpace(raw)
	}

	var out Extraction
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return Extraction{}, fmt.Errorf("malformed extraction payload: %w", err)
	}
	return out, nil
}

func truncateBody(raw []byte) string {
	s := strings.TrimSpace(string(raw))
	if len(s) > 300 {
		s = s[:300]
	}
	return s
}
