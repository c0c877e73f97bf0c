// Package llmgateway defines the minimal generate/embed boundary the
// forge calls out to (spec.md's explicit non-goal: LLM gateway
// internals are out of scope, so this package is a thin client against
// an OpenAI-compatible HTTP endpoint, not a provider implementation).
package llmgateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrUnavailable is the gateway's single failure mode: the endpoint
// could not be reached, returned a non-2xx status, or did not return
// content body shaped as expected. Callers never see transport-level
// detail beyond this.
var ErrUnavailable = errors.New("llm gateway unavailable")

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Gateway is the forge's only window onto language-model capability.
type Gateway interface {
	// Generate completes a chat-style prompt and returns the response text.
	Generate(ctx context.Context, messages []Message) (string, error)
	// Embed returns one embedding vector per input text.
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// HTTPGateway talks to an OpenAI-compatible endpoint over HTTP.
type HTTPGateway struct {
	BaseURL string
	APIKey  string
	Model   string
	Client  *http.Client
}

// NewHTTPGateway builds an HTTPGateway with a bounded default client.
func NewHTTPGateway(baseURL, apiKey, model string) *HTTPGateway {
	return &HTTPGateway{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Model:   model,
		Client:  &http.Client{Timeout: 60 * time.Second},
	}
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

func (g *HTTPGateway) Generate(ctx context.Context, messages []Message) (string, error) {
	body, err := json.Marshal(chatRequest{Model: g.Model, Messages: messages})
	if err != nil {
		return "", ErrUnavailable
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", ErrUnavailable
	}
	g.setHeaders(req)

	resp, err := g.Client.Do(req)
	if err != nil {
		return "", ErrUnavailable
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", ErrUnavailable
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", ErrUnavailable
	}
	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil || len(parsed.Choices) == 0 {
		return "", ErrUnavailable
	}
	return parsed.Choices[0].Message.Content, nil
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

func (g *HTTPGateway) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	body, err := json.Marshal(embedRequest{Model: g.Model, Input: texts})
	if err != nil {
		return nil, ErrUnavailable
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.BaseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, ErrUnavailable
	}
	g.setHeaders(req)

	resp, err := g.Client.Do(req)
	if err != nil {
		return nil, ErrUnavailable
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, ErrUnavailable
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ErrUnavailable
	}
	var parsed embedResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, ErrUnavailable
	}
	vectors := make([][]float64, len(parsed.Data))
	for i, d := range parsed.Data {
		vectors[i] = d.Embedding
	}
	return vectors, nil
}

func (g *HTTPGateway) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if g.APIKey != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", g.APIKey))
	}
}
