package ai

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/sentinelai/sentinel/internal/ai/offline"
	"github.com/sentinelai/sentinel/internal/common"
	"github.com/sentinelai/sentinel/internal/interfaces"
)

// NewProvider creates the configured AI collaborator bundle, wrapped with the
// configured rate limit.
func NewProvider(ctx context.Context, cfg *common.Config, logger arbor.ILogger) (interfaces.AIProvider, error) {
	var (
		provider interfaces.AIProvider
		err      error
	)
	switch cfg.AI.Provider {
	case "claude":
		provider, err = NewClaudeProvider(ctx, cfg.AI.AnthropicAPIKey, cfg.AI.GoogleAPIKey, cfg.AI.EmbeddingDim, logger)
	case "gemini":
		provider, err = NewGeminiProvider(ctx, cfg.AI.GoogleAPIKey, cfg.AI.EmbeddingDim, logger)
	case "offline", "":
		provider = offline.NewProvider(cfg.AI.EmbeddingDim)
	default:
		return nil, fmt.Errorf("unknown AI provider: %s", cfg.AI.Provider)
	}
	if err != nil {
		return nil, err
	}

	logger.Info().
		Str("provider", cfg.AI.Provider).
		Int("embedding_dim", cfg.AI.EmbeddingDim).
		Float64("rate_limit", cfg.Workers.AIRateLimit).
		Msg("AI provider initialized")

	return RateLimited(provider, cfg.Workers.AIRateLimit), nil
}
