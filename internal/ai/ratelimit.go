package ai

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/sentinelai/sentinel/internal/interfaces"
)

// rateLimited throttles every collaborator call through a shared token
// bucket so worker pools cannot exceed the provider's request budget.
type rateLimited struct {
	inner   interfaces.AIProvider
	limiter *rate.Limiter
}

// RateLimited wraps a provider with a calls-per-second budget. A limit of
// zero or less returns the provider unwrapped.
func RateLimited(inner interfaces.AIProvider, callsPerSecond float64) interfaces.AIProvider {
	if callsPerSecond <= 0 {
		return inner
	}
	burst := int(callsPerSecond)
	if burst < 1 {
		burst = 1
	}
	return &rateLimited{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(callsPerSecond), burst),
	}
}

func (r *rateLimited) Transcribe(ctx context.Context, audio []byte, language string) (string, []interfaces.TranscriptSegment, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", nil, err
	}
	return r.inner.Transcribe(ctx, audio, language)
}

func (r *rateLimited) ExtractDocument(ctx context.Context, doc []byte, language string) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return r.inner.ExtractDocument(ctx, doc, language)
}

func (r *rateLimited) Translate(ctx context.Context, text, srcLang, dstLang string) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return r.inner.Translate(ctx, text, srcLang, dstLang)
}

func (r *rateLimited) Summarize(ctx context.Context, text string, hints map[string]string) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return r.inner.Summarize(ctx, text, hints)
}

func (r *rateLimited) ExtractFrames(ctx context.Context, video []byte) ([][]byte, error) {
	// Local operation, no provider call to budget
	return r.inner.ExtractFrames(ctx, video)
}

func (r *rateLimited) AnalyzeFrames(ctx context.Context, frames [][]byte) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return r.inner.AnalyzeFrames(ctx, frames)
}

func (r *rateLimited) Embed(ctx context.Context, chunks []string) ([][]float32, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.inner.Embed(ctx, chunks)
}

func (r *rateLimited) ExtractGraph(ctx context.Context, text string) ([]interfaces.ExtractedNode, []interfaces.ExtractedEdge, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, nil, err
	}
	return r.inner.ExtractGraph(ctx, text)
}
