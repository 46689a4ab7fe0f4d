package blob

import (
	"context"
	"fmt"

	"github.com/sentinelai/sentinel/internal/common"
	"github.com/sentinelai/sentinel/internal/interfaces"
)

// NewBlobStore creates the configured blob store backend
func NewBlobStore(ctx context.Context, cfg common.BlobConfig) (interfaces.BlobStore, error) {
	switch cfg.Backend {
	case "filesystem", "":
		return NewFilesystemStore(cfg.Path)
	case "s3":
		return NewS3Store(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown blob backend: %s", cfg.Backend)
	}
}
