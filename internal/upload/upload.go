package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"mime"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/erazemk/labborrow/internal/imaging"
)

// RefPrefix is prepended to stored names to form the refs kept on records
// and served under /uploads/.
const RefPrefix = "uploads/"

// Uploader names, normalises and stores uploaded files.
type Uploader struct {
	Blob Blob
	// MaxImageDimension downscales larger JPEG/PNG uploads. 0 keeps originals.
	MaxImageDimension int
	Now               func() time.Time
}

// New returns an Uploader storing into blob.
func New(blob Blob, maxImageDimension int) *Uploader {
	return &Uploader{Blob: blob, MaxImageDimension: maxImageDimension, Now: time.Now}
}

// Save stores each file and returns their refs in order. If any file fails,
// the ones already stored are removed.
func (u *Uploader) Save(ctx context.Context, files []*multipart.FileHeader) ([]string, error) {
	refs := make([]string, 0, len(files))
	for _, fh := range files {
		ref, err := u.saveOne(ctx, fh)
		if err != nil {
			u.Remove(ctx, refs)
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

func (u *Uploader) saveOne(ctx context.Context, fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("opening upload %q: %w", fh.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return "", fmt.Errorf("reading upload %q: %w", fh.Filename, err)
	}

	result, err := imaging.Downscale(data, u.MaxImageDimension)
	if err != nil {
		return "", fmt.Errorf("processing upload %q: %w", fh.Filename, err)
	}

	name := u.fileName(fh.Filename)
	contentType := fh.Header.Get("Content-Type")
	if result.Resized || contentType == "" {
		contentType = result.MIME
	}

	if err := u.Blob.Put(ctx, name, bytes.NewReader(result.Data), int64(len(result.Data)), contentType); err != nil {
		return "", err
	}
	return RefPrefix + name, nil
}

// fileName returns "<unix-millis>-<random 0..1e9><ext>".
func (u *Uploader) fileName(original string) string {
	now := time.Now
	if u.Now != nil {
		now = u.Now
	}
	ext := strings.ToLower(filepath.Ext(filepath.Base(original)))
	if !ValidName("x" + ext) {
		ext = ""
	}
	return fmt.Sprintf("%d-%d%s", now().UnixMilli(), rand.Int64N(1_000_000_000), ext)
}

// Remove deletes the files behind refs, returning every failure joined.
func (u *Uploader) Remove(ctx context.Context, refs []string) error {
	var errs []error
	for _, ref := range refs {
		if err := u.Blob.Remove(ctx, strings.TrimPrefix(ref, RefPrefix)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Open streams a stored file by name and reports its content type.
func (u *Uploader) Open(ctx context.Context, name string) (io.ReadCloser, string, error) {
	if !ValidName(name) {
		return nil, "", ErrNotFound
	}
	rc, err := u.Blob.Open(ctx, name)
	if err != nil {
		return nil, "", err
	}
	contentType := mime.TypeByExtension(filepath.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return rc, contentType, nil
}
