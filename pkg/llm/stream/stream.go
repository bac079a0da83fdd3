// Package stream executes streaming chat-completion calls: it normalizes
// input messages, consumes the provider's chunk sequence strictly in
// arrival order, forwards content and reasoning tokens to an observer,
// tracks usage and timing, polls a cooperative stop flag once per chunk,
// and returns the aggregated message with the raw chunk list retained for
// diagnostics.
package stream

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spoolhq/spool/pkg/llm"
	"github.com/spoolhq/spool/pkg/llm/provider"
	"github.com/spoolhq/spool/pkg/monitor"
	"github.com/spoolhq/spool/pkg/track"
)

// noThinkDirective is the literal hint appended to the trailing user
// message to discourage hidden reasoning for the turn. Qwen-family models
// honor it as a soft switch; others ignore it.
const noThinkDirective = " /no_think"

// Options configures a single streaming call. Observer is required; the
// remaining collaborators are optional.
type Options struct {
	// Observer receives forwarded tokens and the completion flush.
	Observer Observer

	// Tracker receives token timing events, if attached.
	Tracker track.Tracker

	// Monitor receives call lifecycle events, if attached.
	Monitor monitor.Monitor

	// Stop is the shared cooperative cancellation flag, if attached.
	Stop *StopFlag

	// NoThink appends the no-think directive to the trailing user message.
	// The directive mutates the outgoing message in place, not a copy.
	NoThink bool

	// Generation parameters passed through to the provider.
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
}

// Client executes streaming completion calls against one provider
// endpoint. The usage counters are call-scoped: they are reset at call
// start and overwritten exactly once from the terminal chunk. A single
// Client must not serve two concurrently in-flight calls — use one
// instance per call or synchronize externally.
type Client struct {
	opener provider.Opener
	logger *zap.Logger

	// LastInputTokenCount and LastOutputTokenCount mirror the terminal
	// chunk's usage object of the most recent call, or 0 if no chunk
	// carried usage.
	LastInputTokenCount  int
	LastOutputTokenCount int
}

// New creates a stream client over the given provider opener.
func New(opener provider.Opener, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		opener: opener,
		logger: logger,
	}
}

// Call runs one streaming completion over the given messages. Messages may
// be typed llm.Message values or plain mappings with "role" and "content"
// keys; anything else fails with llm.InvalidMessageError before any
// network activity.
//
// On success the aggregated message's content is the concatenation of all
// forwarded content deltas. On any failure no partial result is returned.
func (c *Client) Call(ctx context.Context, model string, messages []any, opts Options) (*llm.AggregatedResult, error) {
	// Usage counters are overwritten exactly once per call, from the
	// terminal chunk; they stay 0 if no usage ever arrives. Reset up
	// front so a failed call never shows a previous call's counters.
	c.LastInputTokenCount = 0
	c.LastOutputTokenCount = 0

	msgs, err := llm.NormalizeMessages(messages)
	if err != nil {
		return nil, err
	}

	if opts.Observer == nil {
		opts.Observer = NopObserver{}
	}

	if opts.NoThink && len(msgs) > 0 && msgs[len(msgs)-1].Role == "user" {
		msgs[len(msgs)-1].AppendText(noThinkDirective)
	}

	callID := uuid.NewString()
	startedAt := time.Now()

	c.addEvent(opts, monitor.EventCompletionStarted, monitor.Attrs{
		"call_id":       callID,
		"model":         model,
		"message_count": len(msgs),
	})

	chunks, err := c.opener.OpenStream(ctx, &llm.ChatRequest{
		Model:       model,
		Messages:    msgs,
		Stream:      true,
		Temperature: opts.Temperature,
		TopP:        opts.TopP,
		MaxTokens:   opts.MaxTokens,
	})
	if err != nil {
		return nil, c.raise(opts, callID, err)
	}
	defer chunks.Close()

	var (
		raw        []*llm.StreamChunk
		content    strings.Builder
		reasoning  strings.Builder
		usage      *llm.Usage
		role       = "assistant"
		firstToken = true
	)

	for {
		// Cooperative cancellation: polled once per chunk boundary,
		// including before the first chunk. Already-forwarded tokens are
		// never retracted.
		if opts.Stop != nil && opts.Stop.Stopped() {
			c.addEvent(opts, monitor.EventModelStopped, monitor.Attrs{
				"call_id": callID,
				"model":   model,
			})
			return nil, llm.ErrInterrupted
		}

		chunk, err := chunks.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, c.raise(opts, callID, err)
		}

		raw = append(raw, chunk)

		if chunk.Delta.Role != "" {
			role = chunk.Delta.Role
		}

		if len(raw) == 1 {
			c.setAttributes(opts, monitor.Attrs{
				"call_id": callID,
				"model":   model,
				"role":    role,
			})
		}

		if chunk.HasReasoning() && *chunk.Delta.ReasoningContent != "" {
			text := *chunk.Delta.ReasoningContent
			if firstToken {
				firstToken = false
				c.recordFirstToken(opts)
			}
			reasoning.WriteString(text)
			opts.Observer.OnReasoning(text)
		}

		if chunk.HasContent() && *chunk.Delta.Content != "" {
			text := *chunk.Delta.Content
			if firstToken {
				firstToken = false
				c.recordFirstToken(opts)
			}
			content.WriteString(text)
			opts.Observer.OnToken(text)
			if opts.Tracker != nil {
				opts.Tracker.RecordToken(text)
			}
		}

		// Copied verbatim from the terminal chunk — never accumulated.
		if chunk.Usage != nil {
			usage = chunk.Usage
		}
	}

	if usage != nil {
		c.LastInputTokenCount = usage.PromptTokens
		c.LastOutputTokenCount = usage.CompletionTokens
	}

	if opts.Tracker != nil {
		opts.Tracker.RecordCompletion(c.LastInputTokenCount, c.LastOutputTokenCount)
	}

	opts.Observer.Flush()

	completedAt := time.Now()
	c.addEvent(opts, monitor.EventCompletionFinished, monitor.Attrs{
		"call_id":       callID,
		"model":         model,
		"input_tokens":  c.LastInputTokenCount,
		"output_tokens": c.LastOutputTokenCount,
		"chunk_count":   len(raw),
		"elapsed_ms":    completedAt.Sub(startedAt).Milliseconds(),
	})

	return &llm.AggregatedResult{
		Message:     llm.NewTextMessage(role, content.String()),
		Reasoning:   reasoning.String(),
		Raw:         raw,
		Usage:       usage,
		StartedAt:   startedAt,
		CompletedAt: completedAt,
	}, nil
}

// raise emits the failure event matching the error kind and returns the
// error unchanged (wrapping untyped failures as TransportError).
func (c *Client) raise(opts Options, callID string, err error) error {
	var ctxErr llm.ContextLengthError
	if errors.As(err, &ctxErr) {
		c.addEvent(opts, monitor.EventContextLengthExceeded, monitor.Attrs{
			"call_id": callID,
			"model":   ctxErr.Model,
		})
		return err
	}

	c.addEvent(opts, monitor.EventErrorOccurred, monitor.Attrs{
		"call_id": callID,
		"error":   err.Error(),
	})

	var transportErr llm.TransportError
	if errors.As(err, &transportErr) {
		return err
	}

	return llm.TransportError{Cause: err}
}

func (c *Client) recordFirstToken(opts Options) {
	if opts.Tracker != nil {
		opts.Tracker.RecordFirstToken()
	}
}

func (c *Client) addEvent(opts Options, name string, attrs monitor.Attrs) {
	if opts.Monitor != nil {
		opts.Monitor.AddEvent(name, attrs)
	}
}

func (c *Client) setAttributes(opts Options, attrs monitor.Attrs) {
	if opts.Monitor != nil {
		opts.Monitor.SetAttributes(attrs)
	}
}
