package interfaces

import (
	"context"
	"io"
)

// BlobStore is the artifact store: content-addressable writes, prefix-scoped
// reads. Paths use <job_id>/<filename> for originals and
// <job_id>/<filename>.<stage>.<ext> for derivatives. Append-only within a
// job; Put overwrites are the idempotence mechanism for re-run stages.
type BlobStore interface {
	Put(ctx context.Context, path string, r io.Reader) error
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]string, error)
	// DeletePrefix removes every blob under prefix. Used by the sweeper.
	DeletePrefix(ctx context.Context, prefix string) error
}
