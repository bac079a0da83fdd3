// Package prompt runs one-shot internal completion calls whose output is a
// single string with all thinking spans removed. It is the second consumer
// of the provider chunk stream, next to the interactive stream client, and
// the only one that routes content through the think-tag filter.
package prompt

import (
	"context"
	"errors"
	"io"

	"go.uber.org/zap"

	"github.com/spoolhq/spool/pkg/llm"
	"github.com/spoolhq/spool/pkg/llm/provider"
	"github.com/spoolhq/spool/pkg/llm/provider/openai"
	"github.com/spoolhq/spool/pkg/llm/thinktag"
	"github.com/spoolhq/spool/pkg/modelcfg"
)

// Generation parameters are fixed for internal prompt tasks: low
// temperature for reproducible phrasing, high top_p to avoid degenerate
// repetition.
const (
	generateTemperature = 0.3
	generateTopP        = 0.95
)

// OpenerFunc builds a provider opener from resolved connection parameters.
type OpenerFunc func(cfg modelcfg.ModelConfig) provider.Opener

// Generator produces fully-filtered strings from one-shot streaming calls.
type Generator struct {
	resolver modelcfg.Resolver
	open     OpenerFunc
	logger   *zap.Logger
}

// Option configures a Generator.
type Option func(*Generator)

// WithOpener overrides how a provider opener is built from a resolved
// model configuration. Tests use this to substitute a fake provider.
func WithOpener(open OpenerFunc) Option {
	return func(g *Generator) {
		g.open = open
	}
}

// WithLogger attaches a logger for reasoning traces and suppression warnings.
func WithLogger(logger *zap.Logger) Option {
	return func(g *Generator) {
		g.logger = logger
	}
}

// New creates a Generator over the given model-configuration resolver.
// Resolver may be nil, in which case every call uses empty connection
// parameters (valid for local unauthenticated endpoints).
func New(resolver modelcfg.Resolver, opts ...Option) *Generator {
	g := &Generator{
		resolver: resolver,
		logger:   zap.NewNop(),
	}

	for _, opt := range opts {
		opt(g)
	}

	if g.open == nil {
		logger := g.logger
		g.open = func(cfg modelcfg.ModelConfig) provider.Opener {
			return openai.New(cfg.BaseURL, cfg.APIKey, openai.WithLogger(logger))
		}
	}

	return g
}

// Generate runs one streaming completion with a system+user payload and
// returns the concatenation of all visible content with thinking spans
// removed. The optional progress sink receives the visible output so far
// after each change, including resets when a span is closed.
//
// An absent model configuration is not an error: the call proceeds with
// empty connection parameters. Transport and provider failures propagate
// unchanged; there is no local retry.
func (g *Generator) Generate(ctx context.Context, modelID, tenantID, systemPrompt, userPrompt string, progress thinktag.Sink) (string, error) {
	cfg, err := g.resolveConfig(ctx, modelID, tenantID)
	if err != nil {
		return "", err
	}

	model := modelID
	if cfg.ModelName != "" {
		model = cfg.ModelName
	}

	temperature := generateTemperature
	topP := generateTopP

	chunks, err := g.open(cfg).OpenStream(ctx, &llm.ChatRequest{
		Model: model,
		Messages: []llm.Message{
			llm.NewTextMessage("system", systemPrompt),
			llm.NewTextMessage("user", userPrompt),
		},
		Stream:      true,
		Temperature: &temperature,
		TopP:        &topP,
	})
	if err != nil {
		return "", err
	}
	defer chunks.Close()

	filter := thinktag.NewFilter()
	sawContent := false

	for {
		chunk, err := chunks.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}

		if chunk.HasReasoning() && *chunk.Delta.ReasoningContent != "" {
			// Reasoning is a side channel, never tag-filtered.
			g.logger.Debug("reasoning",
				zap.String("model", model),
				zap.String("text", *chunk.Delta.ReasoningContent))
		}

		if chunk.HasContent() {
			sawContent = true
			filter.Process(*chunk.Delta.Content, progress)
		}
	}

	result := filter.Flush(progress)

	if sawContent && result == "" {
		// The whole turn was inside a thinking span. Not an error.
		g.logger.Warn("generated output fully suppressed by thinking spans",
			zap.String("model", model))
	}

	return result, nil
}

func (g *Generator) resolveConfig(ctx context.Context, modelID, tenantID string) (modelcfg.ModelConfig, error) {
	if g.resolver == nil {
		return modelcfg.ModelConfig{}, nil
	}

	cfg, err := g.resolver.Lookup(ctx, modelID, tenantID)
	if err != nil {
		return modelcfg.ModelConfig{}, err
	}
	if cfg == nil {
		return modelcfg.ModelConfig{}, nil
	}

	return *cfg, nil
}
