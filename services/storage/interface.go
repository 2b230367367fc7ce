package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"folio/models"

	"github.com/gabriel-vasile/mimetype"
)

// Categories accepted by the object stores; each maps to a folder.
var Categories = map[string]bool{
	"images":    true,
	"videos":    true,
	"documents": true,
}

var ErrInvalidCategory = errors.New("invalid upload category; allowed values are images, videos and documents")

// ObjectStore stores file bytes under a category and returns where they live.
// progress, when non-nil, receives fractions in [0,1].
type ObjectStore interface {
	Put(ctx context.Context, file models.UploadFile, progress func(float64)) (models.UploadResult, error)
}

// CheckCategory validates an upload category.
func CheckCategory(category string) error {
	if !Categories[category] {
		return fmt.Errorf("%w: %q", ErrInvalidCategory, category)
	}
	return nil
}

// objectName builds a collision-free object path like images/1700000000000-photo.png.
func objectName(file models.UploadFile, now time.Time) string {
	base := path.Base(strings.ReplaceAll(file.Name, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		base = "upload"
	}
	return fmt.Sprintf("%s/%d-%s", file.Category, now.UnixMilli(), base)
}

// detectMime sniffs the content type from the file bytes.
func detectMime(data []byte) string {
	return mimetype.Detect(data).String()
}

// progressReader reports the fraction of bytes consumed.
type progressReader struct {
	data     []byte
	offset   int
	progress func(float64)
}

func (r *progressReader) Read(p []byte) (int, error) {
	if r.offset >= len(r.data) {
		return 0, io.EOF
	}
	n := copy(p, r.data[r.offset:])
	r.offset += n
	if r.progress != nil && len(r.data) > 0 {
		r.progress(float64(r.offset) / float64(len(r.data)))
	}
	return n, nil
}
