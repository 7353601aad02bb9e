package storage

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/klauspost/compress/gzip"

	"github.com/cuemby/kvault/pkg/errs"
)

// Local is a filesystem-backed Backend. A "bucket" is a subdirectory of
// BaseDir; keys are relative paths beneath it.
type Local struct {
	BaseDir string
}

// NewLocal returns a Local backend rooted at baseDir, creating it if
// necessary.
func NewLocal(baseDir string) (*Local, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("%w: local storage requires base_dir", errs.ErrConfig)
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: creating base_dir: %v", errs.ErrConfig, err)
	}
	return &Local{BaseDir: baseDir}, nil
}

func (l *Local) path(bucket, key string) string {
	return filepath.Join(l.BaseDir, bucket, filepath.FromSlash(key))
}

// Put writes data via a temp file in the same directory followed by a
// rename, so a reader never observes a partially written object.
func (l *Local) Put(ctx context.Context, bucket, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrCanceled, err)
	}
	dst := l.path(bucket, key)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrConfig, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".kvault-tmp-*")
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrConfig, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %v", errs.ErrConfig, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrConfig, err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrConfig, err)
	}
	return nil
}

// Get reads bucket/key, failing ErrNotFound if it is absent.
func (l *Local) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrCanceled, err)
	}
	data, err := os.ReadFile(l.path(bucket, key))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s/%s", errs.ErrNotFound, bucket, key)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrConfig, err)
	}
	return data, nil
}

// List returns keys relative to bucket, rooted under prefix.
func (l *Local) List(ctx context.Context, bucket, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrCanceled, err)
	}
	root := l.path(bucket, prefix)
	var keys []string
	err := filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(l.path(bucket, ""), p)
		if relErr != nil {
			return relErr
		}
		keys = append(keys, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrConfig, err)
	}
	sort.Strings(keys)
	return keys, nil
}

// UploadTree mirrors localDir under bucket, or tars+gzips it into a single
// <basename>.tar.gz object when tar is true.
func (l *Local) UploadTree(ctx context.Context, bucket, localDir string, tar_ bool) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrCanceled, err)
	}
	if tar_ {
		data, err := tarGzipDir(localDir)
		if err != nil {
			return err
		}
		name := filepath.Base(localDir) + ".tar.gz"
		return l.Put(ctx, bucket, name, data)
	}
	return filepath.WalkDir(localDir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(localDir, p)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("%w: %v", errs.ErrConfig, err)
		}
		return l.Put(ctx, bucket, filepath.ToSlash(rel), data)
	})
}

// DownloadTree materialises bucket's contents under localDir.
func (l *Local) DownloadTree(ctx context.Context, bucket, localDir string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrCanceled, err)
	}
	keys, err := l.List(ctx, bucket, "")
	if err != nil {
		return err
	}
	for _, key := range keys {
		data, err := l.Get(ctx, bucket, key)
		if err != nil {
			return err
		}
		dst := filepath.Join(localDir, filepath.FromSlash(key))
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return fmt.Errorf("%w: %v", errs.ErrConfig, err)
		}
		if err := os.WriteFile(dst, data, 0o644); err != nil {
			return fmt.Errorf("%w: %v", errs.ErrConfig, err)
		}
	}
	return nil
}

func tarGzipDir(dir string) ([]byte, error) {
	pr, pw := io.Pipe()
	errCh := make(chan error, 1)

	go func() {
		gw := gzip.NewWriter(pw)
		tw := tar.NewWriter(gw)

		walkErr := filepath.WalkDir(dir, func(p string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			rel, err := filepath.Rel(dir, p)
			if err != nil {
				return err
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
			f, err := os.Open(p)
			if err != nil {
				return err
			}
			defer f.Close()
			_, err = io.Copy(tw, f)
			return err
		})

		closeErr := tw.Close()
		gzErr := gw.Close()
		switch {
		case walkErr != nil:
			errCh <- walkErr
		case closeErr != nil:
			errCh <- closeErr
		case gzErr != nil:
			errCh <- gzErr
		default:
			errCh <- nil
		}
		pw.CloseWithError(nil)
	}()

	data, readErr := io.ReadAll(pr)
	if err := <-errCh; err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrConfig, err)
	}
	if readErr != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrConfig, readErr)
	}
	return data, nil
}
