// Package assist talks to the external conversion assistant. It is the
// only part of portforge that leaves the machine, and the only part
// where a retry policy applies.
package assist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

var (
	// ErrInvocation marks transient assistant faults (network, HTTP,
	// timeout). Eligible for bounded retry.
	ErrInvocation = errors.New("assistant invocation failed")

	// ErrRefusal marks an assistant that declined or returned empty
	// content. Never retried; surfaced to the operator.
	ErrRefusal = errors.New("assistant refused conversion")
)

// Message represents a single chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client produces one raw response for one conversion request. The raw
// text is returned unmodified; the splitter owns its interpretation.
type Client interface {
	Convert(ctx context.Context, messages []Message) (string, error)
}

// OllamaClient calls the Ollama /api/chat endpoint for conversions.
type OllamaClient struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewOllamaClient creates a client targeting the given Ollama instance
// and model. The per-invocation timeout comes from the request context.
func NewOllamaClient(baseURL, model string) *OllamaClient {
	return &OllamaClient{
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{},
	}
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

type chatResponse struct {
	Message Message `json:"message"`
}

// Convert sends the conversation to the assistant and returns its raw
// textual response.
func (c *OllamaClient) Convert(ctx context.Context, messages []Message) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   false,
	})
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvocation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: chat returned %d: %s", ErrInvocation, resp.StatusCode, string(respBody))
	}

	var result chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("%w: decode chat response: %v", ErrInvocation, err)
	}

	if strings.TrimSpace(result.Message.Content) == "" {
		return "", fmt.Errorf("%w: empty response", ErrRefusal)
	}

	return result.Message.Content, nil
}
