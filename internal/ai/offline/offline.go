// Package offline provides a deterministic AI collaborator used in tests and
// air-gapped deployments. Outputs are derived from input content only, so
// repeated runs over the same artifact produce identical results.
package offline

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/sentinelai/sentinel/internal/interfaces"
)

// Provider implements every AI collaborator without network access
type Provider struct {
	embeddingDim int
}

// NewProvider creates an offline provider producing embeddings of the given
// dimensionality
func NewProvider(embeddingDim int) *Provider {
	if embeddingDim <= 0 {
		embeddingDim = 768
	}
	return &Provider{embeddingDim: embeddingDim}
}

func (p *Provider) Transcribe(ctx context.Context, audio []byte, language string) (string, []interfaces.TranscriptSegment, error) {
	text := fmt.Sprintf("[offline transcript lang=%s bytes=%d sha=%x]", language, len(audio), sha256.Sum256(audio))
	segments := []interfaces.TranscriptSegment{
		{Start: 0, End: float64(len(audio)) / 16000, Text: text},
	}
	return text, segments, nil
}

func (p *Provider) ExtractDocument(ctx context.Context, doc []byte, language string) (string, error) {
	// Plain text passes through; binary formats get a placeholder body
	if isMostlyText(doc) {
		return string(doc), nil
	}
	return fmt.Sprintf("[offline extraction lang=%s bytes=%d sha=%x]", language, len(doc), sha256.Sum256(doc)), nil
}

func (p *Provider) Translate(ctx context.Context, text, srcLang, dstLang string) (string, error) {
	return fmt.Sprintf("[%s->%s] %s", srcLang, dstLang, text), nil
}

func (p *Provider) Summarize(ctx context.Context, text string, hints map[string]string) (string, error) {
	const limit = 400
	trimmed := strings.TrimSpace(text)
	if len(trimmed) > limit {
		trimmed = trimmed[:limit]
	}
	return "Summary: " + trimmed, nil
}

func (p *Provider) ExtractFrames(ctx context.Context, video []byte) ([][]byte, error) {
	// Three deterministic slices stand in for sampled frames
	if len(video) == 0 {
		return nil, fmt.Errorf("empty video")
	}
	n := len(video)
	cut := func(at int) []byte {
		end := at + 64
		if end > n {
			end = n
		}
		return video[at:end]
	}
	return [][]byte{cut(0), cut(n / 2), cut(n - min(64, n))}, nil
}

func (p *Provider) AnalyzeFrames(ctx context.Context, frames [][]byte) (string, error) {
	total := 0
	for _, f := range frames {
		total += len(f)
	}
	return fmt.Sprintf("[offline scene description frames=%d bytes=%d]", len(frames), total), nil
}

// Embed maps each chunk to a unit-norm vector derived from its content hash.
// Identical chunks always embed identically.
func (p *Provider) Embed(ctx context.Context, chunks []string) ([][]float32, error) {
	vectors := make([][]float32, len(chunks))
	for i, chunk := range chunks {
		vectors[i] = p.embedOne(chunk)
	}
	return vectors, nil
}

func (p *Provider) embedOne(chunk string) []float32 {
	seed := sha256.Sum256([]byte(chunk))
	vec := make([]float32, p.embeddingDim)
	var norm float64
	for i := range vec {
		// Stretch the 32-byte digest across the vector by re-hashing with
		// the block index
		block := sha256.Sum256(append(seed[:], byte(i/8), byte(i%8)))
		bits := binary.BigEndian.Uint32(block[:4])
		v := float32(int32(bits)) / float32(1<<31)
		vec[i] = v
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		inv := float32(1.0 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= inv
		}
	}
	return vec
}

func (p *Provider) ExtractGraph(ctx context.Context, text string) ([]interfaces.ExtractedNode, []interfaces.ExtractedEdge, error) {
	// Capitalized words become person nodes linked in mention order. Crude,
	// but stable, which is what pipeline tests need.
	var nodes []interfaces.ExtractedNode
	seen := make(map[string]bool)
	for _, word := range strings.Fields(text) {
		word = strings.Trim(word, ".,;:!?\"'()[]")
		if len(word) < 3 || !unicode.IsUpper(rune(word[0])) {
			continue
		}
		if strings.ToUpper(word) == word {
			continue // Acronyms and shouting
		}
		if seen[word] {
			continue
		}
		seen[word] = true
		nodes = append(nodes, interfaces.ExtractedNode{Label: word, Type: "person"})
		if len(nodes) >= 8 {
			break
		}
	}
	var edges []interfaces.ExtractedEdge
	for i := 1; i < len(nodes); i++ {
		edges = append(edges, interfaces.ExtractedEdge{
			SourceLabel: nodes[i-1].Label,
			TargetLabel: nodes[i].Label,
			Type:        "associated_with",
		})
	}
	return nodes, edges, nil
}

func isMostlyText(data []byte) bool {
	if len(data) == 0 {
		return true
	}
	printable := 0
	sample := data
	if len(sample) > 512 {
		sample = sample[:512]
	}
	for _, b := range sample {
		if b == '\n' || b == '\r' || b == '\t' || (b >= 0x20 && b < 0x7f) || b >= 0x80 {
			printable++
		}
	}
	return printable*10 >= len(sample)*9
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
