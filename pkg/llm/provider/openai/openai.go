// Package openai implements the provider interface for OpenAI-compatible
// chat-completion endpoints (OpenAI, vLLM, DeepSeek, Qwen, and most local
// inference servers speak this dialect).
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/spoolhq/spool/pkg/llm"
	"github.com/spoolhq/spool/pkg/llm/provider"
)

// Client opens streaming completion calls against one OpenAI-compatible
// endpoint. A zero API key is valid for unauthenticated local servers.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger attaches a logger for debug output on skipped chunks.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a Client for the given base URL (e.g. "https://api.openai.com/v1").
func New(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			// LLM responses can be slow, especially with thinking spans
			Timeout: 5 * time.Minute,
		},
		logger: zap.NewNop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *Client) Name() string {
	return "openai"
}

// OpenStream starts a streaming chat completion. The returned ChunkStream
// yields chunks strictly in arrival order and io.EOF after the terminal
// chunk (or the "[DONE]" sentinel).
func (c *Client) OpenStream(ctx context.Context, req *llm.ChatRequest) (provider.ChunkStream, error) {
	wireReq := buildWireRequest(req)

	body, err := json.Marshal(wireReq)
	if err != nil {
		return nil, llm.TransportError{Cause: fmt.Errorf("marshaling request: %w", err)}
	}

	url := c.baseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, llm.TransportError{Cause: fmt.Errorf("creating request: %w", err)}
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	c.logger.Debug("opening completion stream",
		zap.String("url", url),
		zap.String("model", req.Model),
		zap.Int("message_count", len(req.Messages)),
	)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, llm.TransportError{Cause: err}
	}

	if httpResp.StatusCode != http.StatusOK {
		defer httpResp.Body.Close()
		respBody, _ := io.ReadAll(httpResp.Body)

		return nil, classifyError(req.Model, httpResp.StatusCode, respBody)
	}

	return newStream(httpResp, c.logger), nil
}

// buildWireRequest translates the provider-agnostic request into the OpenAI
// wire format. Text-only messages collapse to a plain content string; mixed
// content becomes a part array.
func buildWireRequest(req *llm.ChatRequest) *openaiRequest {
	messages := make([]openaiMessage, 0, len(req.Messages))
	for _, msg := range req.Messages {
		messages = append(messages, openaiMessage{
			Role:    msg.Role,
			Content: wireContent(msg),
		})
	}

	return &openaiRequest{
		Model:    req.Model,
		Messages: messages,
		Stream:   true,
		// Ask for usage on the terminal chunk.
		StreamOptions: &streamOptions{IncludeUsage: true},
		MaxTokens:     req.MaxTokens,
		Temperature:   req.Temperature,
		TopP:          req.TopP,
		Stop:          req.Stop,
	}
}

func wireContent(msg llm.Message) any {
	textOnly := true
	for _, block := range msg.Content {
		if block.Type != "text" {
			textOnly = false
			break
		}
	}

	if textOnly {
		return msg.GetText()
	}

	parts := make([]openaiContentPart, 0, len(msg.Content))
	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			parts = append(parts, openaiContentPart{Type: "text", Text: block.Text})
		case "image":
			parts = append(parts, openaiContentPart{
				Type:     "image_url",
				ImageURL: &openaiImagePart{URL: block.ImageURL},
			})
		}
	}

	return parts
}

// classifyError maps a non-200 provider response to the error kinds the
// core understands. Context-window overflows get their own kind so callers
// can shrink input and retry.
func classifyError(model string, status int, body []byte) error {
	msg := string(body)

	var envelope openaiError
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		msg = envelope.Error.Message
	}

	if llm.IsContextLengthMessage(msg) {
		return llm.ContextLengthError{
			Model: model,
			Cause: fmt.Errorf("provider returned status %d: %s", status, msg),
		}
	}

	return llm.TransportError{
		Cause: fmt.Errorf("provider returned status %d: %s", status, msg),
	}
}
