package blob

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilesystemPutGetRoundtrip(t *testing.T) {
	store, err := NewFilesystemStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	content := []byte("evidence body")
	require.NoError(t, store.Put(ctx, "mgr/mgr/job-1/report.txt", bytes.NewReader(content)))

	rc, err := store.Get(ctx, "mgr/mgr/job-1/report.txt")
	require.NoError(t, err)
	defer rc.Close()
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestFilesystemPutOverwrites(t *testing.T) {
	store, err := NewFilesystemStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "a/b.txt", strings.NewReader("first")))
	require.NoError(t, store.Put(ctx, "a/b.txt", strings.NewReader("second")))

	rc, err := store.Get(ctx, "a/b.txt")
	require.NoError(t, err)
	defer rc.Close()
	got, _ := io.ReadAll(rc)
	assert.Equal(t, "second", string(got))
}

func TestFilesystemGetMissing(t *testing.T) {
	store, err := NewFilesystemStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Get(context.Background(), "nope/missing.txt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestFilesystemRejectsTraversal(t *testing.T) {
	store, err := NewFilesystemStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	for _, path := range []string{"../escape.txt", "a/../../escape.txt", "/etc/passwd", ""} {
		err := store.Put(ctx, path, strings.NewReader("x"))
		assert.Error(t, err, "path %q must be rejected", path)
	}
}

func TestFilesystemListAndDeletePrefix(t *testing.T) {
	store, err := NewFilesystemStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "mgr/mgr/job-1/a.txt", strings.NewReader("a")))
	require.NoError(t, store.Put(ctx, "mgr/mgr/job-1/a.txt.extraction.txt", strings.NewReader("aa")))
	require.NoError(t, store.Put(ctx, "mgr/mgr/job-2/b.txt", strings.NewReader("b")))

	paths, err := store.List(ctx, "mgr/mgr/job-1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		"mgr/mgr/job-1/a.txt",
		"mgr/mgr/job-1/a.txt.extraction.txt",
	}, paths)

	require.NoError(t, store.DeletePrefix(ctx, "mgr/mgr/job-1"))

	paths, err = store.List(ctx, "mgr/mgr/job-1")
	require.NoError(t, err)
	assert.Empty(t, paths)

	// Other prefixes untouched
	paths, err = store.List(ctx, "mgr/mgr/job-2")
	require.NoError(t, err)
	assert.Len(t, paths, 1)
}

func TestFilesystemListMissingPrefix(t *testing.T) {
	store, err := NewFilesystemStore(t.TempDir())
	require.NoError(t, err)

	paths, err := store.List(context.Background(), "never/written")
	require.NoError(t, err)
	assert.Empty(t, paths)
}
