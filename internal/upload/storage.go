package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

var (
	// ErrExists is returned by Storage.Put when the key is already taken.
	ErrExists = errors.New("object already exists")
	// ErrObjectNotFound is returned by Storage.Open for unknown keys.
	ErrObjectNotFound = errors.New("object not found")
)

// Storage persists uploaded files under slash-separated keys.
type Storage interface {
	// Put writes body under key and must not overwrite an existing object.
	Put(ctx context.Context, key string, body io.ReadSeeker, size int64, contentType string) error
	// Open returns the stored object. The reader may also implement io.Seeker.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// CleanKey normalizes a client supplied key and rejects keys escaping the root.
func CleanKey(key string) (string, bool) {
	cleaned := strings.TrimPrefix(path.Clean("/"+strings.ReplaceAll(key, `\`, "/")), "/")
	if cleaned == "" || cleaned == "." {
		return "", false
	}
	return cleaned, true
}

// DiskStorage keeps files under a local directory.
type DiskStorage struct {
	Root string
}

// NewDiskStorage creates root if needed.
func NewDiskStorage(root string) (*DiskStorage, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &DiskStorage{Root: root}, nil
}

func (d *DiskStorage) path(key string) (string, error) {
	cleaned, ok := CleanKey(key)
	if !ok {
		return "", ErrObjectNotFound
	}
	return filepath.Join(d.Root, filepath.FromSlash(cleaned)), nil
}

func (d *DiskStorage) Put(_ context.Context, key string, body io.ReadSeeker, _ int64, _ string) error {
	p, err := d.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}

	f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return ErrExists
		}
		return fmt.Errorf("create file: %w", err)
	}

	if _, err := io.Copy(f, body); err != nil {
		_ = f.Close()
		_ = os.Remove(p)
		return fmt.Errorf("write file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(p)
		return fmt.Errorf("close file: %w", err)
	}
	return nil
}

func (d *DiskStorage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	p, err := d.path(key)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrObjectNotFound
		}
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, ErrObjectNotFound
	}
	return f, nil
}

// Storage backends selectable by name.
const (
	BackendDisk = "disk"
	BackendS3   = "s3"
)

// NewStorage builds the named backend.
func NewStorage(ctx context.Context, backend, diskRoot string, s3cfg S3Config) (Storage, error) {
	switch backend {
	case BackendDisk, "":
		return NewDiskStorage(diskRoot)
	case BackendS3:
		return NewS3Storage(ctx, s3cfg)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}
