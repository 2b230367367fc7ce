package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"time"

	"folio/models"

	"cloud.google.com/go/storage"
)

// FirebaseStore uploads public files to a Firebase Storage bucket.
type FirebaseStore struct {
	client     *storage.Client
	bucketName string
	now        func() time.Time
}

func NewFirebaseStore(client *storage.Client, bucketName string) *FirebaseStore {
	return &FirebaseStore{client: client, bucketName: bucketName, now: time.Now}
}

func (s *FirebaseStore) Put(ctx context.Context, file models.UploadFile, progress func(float64)) (models.UploadResult, error) {
	if err := CheckCategory(file.Category); err != nil {
		return models.UploadResult{}, err
	}
	objectPath := objectName(file, s.now())
	mimeType := detectMime(file.Data)

	w := s.client.Bucket(s.bucketName).Object(objectPath).NewWriter(ctx)
	w.ACL = []storage.ACLRule{{Entity: storage.AllUsers, Role: storage.RoleReader}}
	w.ObjectAttrs.ContentType = mimeType
	if progress != nil && len(file.Data) > 0 {
		total := float64(len(file.Data))
		w.ProgressFunc = func(n int64) { progress(float64(n) / total) }
	}

	if _, err := io.Copy(w, bytes.NewReader(file.Data)); err != nil {
		w.Close()
		return models.UploadResult{}, fmt.Errorf("failed to copy file to storage: %w", err)
	}
	if err := w.Close(); err != nil {
		return models.UploadResult{}, fmt.Errorf("failed to close writer: %w", err)
	}
	if progress != nil {
		progress(1)
	}

	return models.UploadResult{
		URL:      s.downloadURL(objectPath),
		Name:     path.Base(file.Name),
		Size:     int64(len(file.Data)),
		MimeType: mimeType,
	}, nil
}

// downloadURL is the public URL of a publicly readable object.
func (s *FirebaseStore) downloadURL(objectPath string) string {
	return fmt.Sprintf("https://firebasestorage.googleapis.com/v0/b/%s/o/%s?alt=media", s.bucketName, url.QueryEscape(objectPath))
}
