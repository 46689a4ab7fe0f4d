package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"

	"github.com/sentinelai/sentinel/internal/interfaces"
)

const (
	claudeModel     = "claude-sonnet-4-20250514"
	claudeMaxTokens = 8192
)

// ClaudeProvider runs the language stages (translation, summarization, graph
// extraction) on Claude. Anthropic has no audio, vision-over-video, or
// embedding API, so those collaborators delegate to a Gemini backend.
type ClaudeProvider struct {
	client anthropic.Client
	media  *GeminiProvider
	logger arbor.ILogger
}

// NewClaudeProvider creates a Claude-backed provider. googleAPIKey is
// required for the media collaborators.
func NewClaudeProvider(ctx context.Context, anthropicAPIKey, googleAPIKey string, embeddingDim int, logger arbor.ILogger) (*ClaudeProvider, error) {
	if anthropicAPIKey == "" {
		return nil, fmt.Errorf("anthropic API key is required for the claude provider")
	}
	media, err := NewGeminiProvider(ctx, googleAPIKey, embeddingDim, logger)
	if err != nil {
		return nil, fmt.Errorf("claude provider needs a media backend: %w", err)
	}
	client := anthropic.NewClient(option.WithAPIKey(anthropicAPIKey))
	return &ClaudeProvider{client: client, media: media, logger: logger}, nil
}

func (p *ClaudeProvider) complete(ctx context.Context, system, prompt string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(claudeModel),
		MaxTokens: claudeMaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("claude API call failed: %w", err)
	}

	var out strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			out.WriteString(block.Text)
		}
	}
	if out.Len() == 0 {
		return "", fmt.Errorf("no response generated from claude")
	}
	return out.String(), nil
}

func (p *ClaudeProvider) Translate(ctx context.Context, text, srcLang, dstLang string) (string, error) {
	prompt := fmt.Sprintf("Translate the following text from %q to %q. Return only the translation.\n\n%s",
		srcLang, dstLang, text)
	return p.complete(ctx, "You translate investigative evidence precisely, preserving names and numbers.", prompt)
}

func (p *ClaudeProvider) Summarize(ctx context.Context, text string, hints map[string]string) (string, error) {
	return p.complete(ctx, "", summaryPrompt(text, hints))
}

func (p *ClaudeProvider) ExtractGraph(ctx context.Context, text string) ([]interfaces.ExtractedNode, []interfaces.ExtractedEdge, error) {
	raw, err := p.complete(ctx,
		"You extract entities and relations from investigative evidence. Respond with JSON only.",
		graphPrompt(text))
	if err != nil {
		return nil, nil, err
	}
	return parseGraphJSON(raw)
}

func (p *ClaudeProvider) Transcribe(ctx context.Context, audio []byte, language string) (string, []interfaces.TranscriptSegment, error) {
	return p.media.Transcribe(ctx, audio, language)
}

func (p *ClaudeProvider) ExtractDocument(ctx context.Context, doc []byte, language string) (string, error) {
	return p.media.ExtractDocument(ctx, doc, language)
}

func (p *ClaudeProvider) ExtractFrames(ctx context.Context, video []byte) ([][]byte, error) {
	return p.media.ExtractFrames(ctx, video)
}

func (p *ClaudeProvider) AnalyzeFrames(ctx context.Context, frames [][]byte) (string, error) {
	return p.media.AnalyzeFrames(ctx, frames)
}

func (p *ClaudeProvider) Embed(ctx context.Context, chunks []string) ([][]float32, error) {
	return p.media.Embed(ctx, chunks)
}
