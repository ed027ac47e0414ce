// Package litellm talks to an OpenAI-compatible model gateway.
package litellm

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

	"ai-chat-gateway/pkg/llm"
)

type Provider struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// Ensure Provider implements llm.Provider
var _ llm.Provider = &Provider{}

func NewProvider(baseURL, apiKey string, timeout time.Duration) *Provider {
	return &Provider{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Client: &http.Client{
			Timeout: timeout,
		},
	}
}

// --- Request/Response structs (Internal to this package) ---

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Stream      bool          `json:"stream"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
	TopP        float64       `json:"top_p,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
	Error json.RawMessage `json:"error,omitempty"`
}

type modelsResponse struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}

type imageRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	N              int    `json:"n"`
	Size           string `json:"size"`
	Quality        string `json:"quality,omitempty"`
	ResponseFormat string `json:"response_format"`
}

type imageResponse struct {
	Data []struct {
		URL string `json:"url"`
	} `json:"data"`
}

// --- Interface Implementation ---

func (p *Provider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (*llm.Reply, error) {
	options := &llm.Options{}
	for _, opt := range opts {
		opt(options)
	}
	if options.Model == "" {
		return nil, errors.New("litellm: model is required")
	}

	messages := make([]chatMessage, len(history))
	for i, msg := range history {
		messages[i] = chatMessage{Role: msg.Role, Content: msg.Content}
	}

	reqPayload := chatRequest{
		Model:       options.Model,
		Messages:    messages,
		Stream:      false,
		MaxTokens:   options.MaxTokens,
		Temperature: options.Temperature,
		TopP:        options.TopP,
	}

	body, err := p.post(ctx, "/chat/completions", reqPayload)
	if err != nil {
		return nil, err
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", llm.ErrMalformedResponse)
	}
	// LiteLLM reports upstream errors in-band with a 200 sometimes.
	if len(parsed.Error) > 0 && string(parsed.Error) != "null" {
		return nil, &llm.RejectedError{Status: http.StatusOK, Body: string(parsed.Error)}
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return nil, fmt.Errorf("no choices in response: %w", llm.ErrMalformedResponse)
	}

	return &llm.Reply{
		Content:    parsed.Choices[0].Message.Content,
		TokensUsed: parsed.Usage.TotalTokens,
	}, nil
}

func (p *Provider) ListModels(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.BaseURL+"/models", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	p.setHeaders(req)

	body, err := p.do(req)
	if err != nil {
		return nil, err
	}

	var parsed modelsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("unmarshal models: %w", llm.ErrMalformedResponse)
	}

	models := make([]string, 0, len(parsed.Data))
	for _, m := range parsed.Data {
		models = append(models, m.ID)
	}
	return models, nil
}

func (p *Provider) GenerateImage(ctx context.Context, prompt string, opts ...llm.Option) (*llm.Reply, error) {
	options := &llm.Options{}
	for _, opt := range opts {
		opt(options)
	}

	reqPayload := imageRequest{
		Model:          options.Model,
		Prompt:         prompt,
		N:              1,
		Size:           "1024x1024",
		Quality:        "standard",
		ResponseFormat: "url",
	}

	body, err := p.post(ctx, "/images/generations", reqPayload)
	if err != nil {
		return nil, err
	}

	var parsed imageResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("unmarshal image response: %w", llm.ErrMalformedResponse)
	}
	if len(parsed.Data) == 0 || parsed.Data[0].URL == "" {
		return nil, fmt.Errorf("no image in response: %w", llm.ErrMalformedResponse)
	}

	return &llm.Reply{ImageURL: parsed.Data[0].URL}, nil
}

// --- Transport helpers ---

func (p *Provider) post(ctx context.Context, path string, payload interface{}) ([]byte, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL+path, bytes.NewReader(payloadBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	p.setHeaders(req)

	return p.do(req)
}

func (p *Provider) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if p.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.APIKey)
	}
}

func (p *Provider) do(req *http.Request) ([]byte, error) {
	resp, err := p.Client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("gateway call: %w", llm.ErrTimeout)
		}
		return nil, fmt.Errorf("gateway call: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &llm.RejectedError{Status: resp.StatusCode, Body: string(bodyBytes)}
	}
	return bodyBytes, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}
