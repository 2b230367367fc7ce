package storage

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"folio/models"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// CloudinaryStore uploads files to Cloudinary under the portfolio folder.
type CloudinaryStore struct {
	cld    *cloudinary.Cloudinary
	folder string
	now    func() time.Time
}

func NewCloudinaryStore(cld *cloudinary.Cloudinary, folder string) *CloudinaryStore {
	return &CloudinaryStore{cld: cld, folder: folder, now: time.Now}
}

func resourceType(category string) string {
	switch category {
	case "images":
		return "image"
	case "videos":
		return "video"
	default:
		return "raw"
	}
}

func (s *CloudinaryStore) Put(ctx context.Context, file models.UploadFile, progress func(float64)) (models.UploadResult, error) {
	if err := CheckCategory(file.Category); err != nil {
		return models.UploadResult{}, err
	}
	name := objectName(file, s.now())
	publicID := strings.TrimSuffix(name, path.Ext(name))

	res, err := s.cld.Upload.Upload(ctx, &progressReader{data: file.Data, progress: progress}, uploader.UploadParams{
		PublicID:     path.Join(s.folder, publicID),
		ResourceType: resourceType(file.Category),
	})
	if err != nil {
		return models.UploadResult{}, fmt.Errorf("cloudinary upload failed: %w", err)
	}
	if res.Error.Message != "" {
		return models.UploadResult{}, fmt.Errorf("cloudinary upload failed: %s", res.Error.Message)
	}
	if progress != nil {
		progress(1)
	}

	return models.UploadResult{
		URL:      res.SecureURL,
		Name:     path.Base(file.Name),
		Size:     int64(len(file.Data)),
		MimeType: detectMime(file.Data),
	}, nil
}
