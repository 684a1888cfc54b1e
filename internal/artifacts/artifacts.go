// Package artifacts archives per-host provisioning workdirs and run
// summaries into the configured object store.
package artifacts

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Store is the object-store surface the archiver uses.
type Store interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, data []byte) error
}

// Archiver uploads run artifacts under runs/<run-id>/.
type Archiver struct {
	store Store
	log   *zap.Logger
}

// New builds an Archiver.
func New(store Store, log *zap.Logger) *Archiver {
	return &Archiver{store: store, log: log.Named("artifacts")}
}

// ArchiveHostDir tars the host workdir and uploads it as
// runs/<runID>/<host>.tar.gz. Provider caches under .terraform are
// skipped; they are large and reproducible.
func (a *Archiver) ArchiveHostDir(ctx context.Context, runID, host, dir string) error {
	if err := a.store.EnsureBucket(ctx); err != nil {
		return err
	}
	data, err := tarDir(dir)
	if err != nil {
		return fmt.Errorf("failed to archive %s: %w", dir, err)
	}
	key := fmt.Sprintf("runs/%s/%s.tar.gz", runID, host)
	if err := a.store.Put(ctx, key, data); err != nil {
		return err
	}
	a.log.Info("archived host workdir", zap.String("host", host), zap.String("key", key))
	return nil
}

// PutSummary uploads the run summary as runs/<runID>/summary.json.
func (a *Archiver) PutSummary(ctx context.Context, runID string, summary []byte) error {
	if err := a.store.EnsureBucket(ctx); err != nil {
		return err
	}
	return a.store.Put(ctx, fmt.Sprintf("runs/%s/summary.json", runID), summary)
}

func tarDir(dir string) ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		if d.IsDir() {
			if d.Name() == ".terraform" {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(d.Name(), ".terraform.lock.hcl") {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(tw, f)
		return err
	})
	if err != nil {
		return nil, err
	}
	if err := tw.Close(); err != nil {
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
