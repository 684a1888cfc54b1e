package artifacts

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memStore struct {
	ensured bool
	objects map[string][]byte
}

func (m *memStore) EnsureBucket(context.Context) error { m.ensured = true; return nil }

func (m *memStore) Put(_ context.Context, key string, data []byte) error {
	if m.objects == nil {
		m.objects = map[string][]byte{}
	}
	m.objects[key] = data
	return nil
}

func tarEntries(t *testing.T, data []byte) map[string]string {
	t.Helper()
	gz, err := gzip.NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	tr := tar.NewReader(gz)
	out := map[string]string{}
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		body, err := io.ReadAll(tr)
		require.NoError(t, err)
		out[hdr.Name] = string(body)
	}
	return out
}

func TestArchiveHostDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.tf"), []byte("module vm"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "ansible"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ansible", "inventory.yaml"), []byte("all:"), 0o600))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".terraform", "providers"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".terraform", "providers", "plugin"), []byte("big"), 0o644))

	store := &memStore{}
	a := New(store, zap.NewNop())
	require.NoError(t, a.ArchiveHostDir(context.Background(), "run-1", "web-01", dir))

	assert.True(t, store.ensured)
	data, ok := store.objects["runs/run-1/web-01.tar.gz"]
	require.True(t, ok)

	entries := tarEntries(t, data)
	assert.Equal(t, "module vm", entries["main.tf"])
	assert.Equal(t, "all:", entries["ansible/inventory.yaml"])
	assert.NotContains(t, entries, ".terraform/providers/plugin",
		"provider caches are excluded")
}

func TestPutSummary(t *testing.T) {
	store := &memStore{}
	a := New(store, zap.NewNop())
	require.NoError(t, a.PutSummary(context.Background(), "run-1", []byte(`{"hosts":2}`)))
	assert.Equal(t, []byte(`{"hosts":2}`), store.objects["runs/run-1/summary.json"])
}
