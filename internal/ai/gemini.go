package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"
	"google.golang.org/genai"

	"github.com/sentinelai/sentinel/internal/interfaces"
)

const (
	geminiChatModel  = "gemini-2.5-flash"
	geminiEmbedModel = "gemini-embedding-001"
)

// GeminiProvider implements every AI collaborator on the Gemini API.
// Video analysis sends media directly to the model, so frame extraction is a
// pass-through of the original bytes.
type GeminiProvider struct {
	client       *genai.Client
	embeddingDim int
	logger       arbor.ILogger
}

// NewGeminiProvider creates a Gemini-backed provider
func NewGeminiProvider(ctx context.Context, apiKey string, embeddingDim int, logger arbor.ILogger) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("google API key is required for the gemini provider")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	if embeddingDim <= 0 {
		embeddingDim = 768
	}
	return &GeminiProvider{client: client, embeddingDim: embeddingDim, logger: logger}, nil
}

func (p *GeminiProvider) generate(ctx context.Context, parts []*genai.Part, system string) (string, error) {
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(0.2)),
	}
	if system != "" {
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	contents := []*genai.Content{{Role: genai.RoleUser, Parts: parts}}

	resp, err := p.client.Models.GenerateContent(ctx, geminiChatModel, contents, config)
	if err != nil {
		return "", fmt.Errorf("gemini generation failed: %w", err)
	}

	var out strings.Builder
	if resp != nil {
		for _, candidate := range resp.Candidates {
			if candidate.Content == nil {
				continue
			}
			for _, part := range candidate.Content.Parts {
				if part.Text != "" {
					out.WriteString(part.Text)
				}
			}
			if out.Len() > 0 {
				break
			}
		}
	}
	if out.Len() == 0 {
		return "", fmt.Errorf("no response generated from gemini")
	}
	return out.String(), nil
}

func (p *GeminiProvider) Transcribe(ctx context.Context, audio []byte, language string) (string, []interfaces.TranscriptSegment, error) {
	prompt := fmt.Sprintf(
		"Transcribe this audio recording verbatim. The spoken language is %q. "+
			"Return one line per utterance in the form: [start_seconds-end_seconds] text",
		language)
	text, err := p.generate(ctx, []*genai.Part{
		genai.NewPartFromText(prompt),
		genai.NewPartFromBytes(audio, "audio/mpeg"),
	}, "You are a precise transcription engine for investigative audio evidence.")
	if err != nil {
		return "", nil, err
	}
	return text, parseTimedSegments(text), nil
}

func (p *GeminiProvider) ExtractDocument(ctx context.Context, doc []byte, language string) (string, error) {
	prompt := fmt.Sprintf(
		"Extract the complete text of this document in reading order, preserving headings, "+
			"lists, and table structure as plain text markers. The document language is %q. "+
			"Return only the extracted text.", language)
	return p.generate(ctx, []*genai.Part{
		genai.NewPartFromText(prompt),
		genai.NewPartFromBytes(doc, "application/pdf"),
	}, "")
}

func (p *GeminiProvider) Translate(ctx context.Context, text, srcLang, dstLang string) (string, error) {
	prompt := fmt.Sprintf("Translate the following text from %q to %q. Return only the translation.\n\n%s",
		srcLang, dstLang, text)
	return p.generate(ctx, []*genai.Part{genai.NewPartFromText(prompt)}, "")
}

func (p *GeminiProvider) Summarize(ctx context.Context, text string, hints map[string]string) (string, error) {
	return p.generate(ctx, []*genai.Part{genai.NewPartFromText(summaryPrompt(text, hints))}, "")
}

// ExtractFrames returns the video bytes unchanged: the analysis stage sends
// the media to the model directly instead of sampling stills locally.
func (p *GeminiProvider) ExtractFrames(ctx context.Context, video []byte) ([][]byte, error) {
	if len(video) == 0 {
		return nil, fmt.Errorf("empty video")
	}
	return [][]byte{video}, nil
}

func (p *GeminiProvider) AnalyzeFrames(ctx context.Context, frames [][]byte) (string, error) {
	parts := []*genai.Part{
		genai.NewPartFromText(
			"Describe the visual content of this footage for an investigation record: " +
				"people, vehicles, locations, objects, text visible in frame, and notable actions. " +
				"Be factual and specific."),
	}
	for _, frame := range frames {
		parts = append(parts, genai.NewPartFromBytes(frame, "video/mp4"))
	}
	return p.generate(ctx, parts, "")
}

func (p *GeminiProvider) Embed(ctx context.Context, chunks []string) ([][]float32, error) {
	outputDim := int32(p.embeddingDim)
	config := &genai.EmbedContentConfig{OutputDimensionality: &outputDim}

	vectors := make([][]float32, len(chunks))
	for i, chunk := range chunks {
		result, err := p.client.Models.EmbedContent(ctx, geminiEmbedModel,
			[]*genai.Content{genai.NewContentFromText(chunk, genai.RoleUser)}, config)
		if err != nil {
			return nil, fmt.Errorf("embedding generation failed: %w", err)
		}
		if result == nil || len(result.Embeddings) == 0 || result.Embeddings[0].Values == nil {
			return nil, fmt.Errorf("no embedding returned for chunk %d", i)
		}
		values := result.Embeddings[0].Values
		if len(values) != p.embeddingDim {
			return nil, fmt.Errorf("embedding dimension mismatch: expected %d, got %d", p.embeddingDim, len(values))
		}
		vectors[i] = values
	}
	return vectors, nil
}

func (p *GeminiProvider) ExtractGraph(ctx context.Context, text string) ([]interfaces.ExtractedNode, []interfaces.ExtractedEdge, error) {
	raw, err := p.generate(ctx, []*genai.Part{genai.NewPartFromText(graphPrompt(text))},
		"You extract entities and relations from investigative evidence. Respond with JSON only.")
	if err != nil {
		return nil, nil, err
	}
	return parseGraphJSON(raw)
}
