package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotFound is returned by Blob.Open when no object has the given name.
var ErrNotFound = errors.New("upload not found")

// Blob stores uploaded files under flat names.
type Blob interface {
	Put(ctx context.Context, name string, r io.Reader, size int64, contentType string) error
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	Remove(ctx context.Context, name string) error
}

// ValidName reports whether name is a single flat file name.
func ValidName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`) && !strings.Contains(name, "..")
}

// DiskBlob stores files in a local directory.
type DiskBlob struct {
	Dir string
}

// NewDiskBlob creates dir if needed and returns a blob rooted there.
func NewDiskBlob(dir string) (*DiskBlob, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload dir: %w", err)
	}
	return &DiskBlob{Dir: dir}, nil
}

func (d *DiskBlob) path(name string) (string, error) {
	if !ValidName(name) {
		return "", fmt.Errorf("invalid upload name %q", name)
	}
	return filepath.Join(d.Dir, name), nil
}

func (d *DiskBlob) Put(_ context.Context, name string, r io.Reader, _ int64, _ string) error {
	p, err := d.path(name)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("creating %s: %w", name, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(p)
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return f.Close()
}

func (d *DiskBlob) Open(_ context.Context, name string) (io.ReadCloser, error) {
	p, err := d.path(name)
	if err != nil {
		return nil, ErrNotFound
	}
	f, err := os.Open(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", name, err)
	}
	return f, nil
}

func (d *DiskBlob) Remove(_ context.Context, name string) error {
	p, err := d.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing %s: %w", name, err)
	}
	return nil
}
