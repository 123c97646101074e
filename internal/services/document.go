package services

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dynexia/portal/internal/apperr"
	"github.com/dynexia/portal/internal/metrics"
	"github.com/dynexia/portal/internal/models"
	"github.com/dynexia/portal/internal/storage"
)

// DocumentService orchestrates the two-step upload: blob first, row second.
type DocumentService struct {
	DB      *gorm.DB
	Blobs   storage.BlobStore
	Log     *zap.Logger
	Timeout time.Duration
}

func NewDocumentService(db *gorm.DB, blobs storage.BlobStore, log *zap.Logger, timeout time.Duration) *DocumentService {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &DocumentService{DB: db, Blobs: blobs, Log: log, Timeout: timeout}
}

// objectKey derives a collision-free blob key from the original filename.
func objectKey(filename string) string {
	name := filepath.Base(strings.TrimSpace(filename))
	if name == "" || name == "." {
		name = "document"
	}
	return uuid.NewString() + "-" + name
}

// Upload stores the bytes and then persists the document row. If the row
// insert fails after a successful store, the orphaned object key is logged
// for manual cleanup; there is no compensating delete.
func (s *DocumentService) Upload(ctx context.Context, doc *models.Document, r io.Reader, size int64) error {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	key := objectKey(doc.Name)
	if err := s.Blobs.Put(ctx, key, r, size, doc.MimeType); err != nil {
		metrics.IncrementDocumentUpload("failed")
		return apperr.Upstream("store document", err)
	}
	url, err := s.Blobs.URL(ctx, key)
	if err != nil {
		metrics.IncrementDocumentUpload("failed")
		s.Log.Error("orphaned blob: url resolution failed after store",
			zap.String("object_key", key), zap.Error(err))
		return apperr.Upstream("resolve document url", err)
	}

	doc.ObjectKey = key
	doc.URL = url
	doc.Size = size
	if err := s.DB.WithContext(ctx).Create(doc).Error; err != nil {
		metrics.IncrementDocumentUpload("failed")
		s.Log.Error("orphaned blob: row insert failed after store",
			zap.String("object_key", key), zap.Error(err))
		return apperr.Upstream("persist document", err)
	}
	metrics.IncrementDocumentUpload("success")
	return nil
}

// Delete removes the row and then best-effort removes the blob; a failed
// blob removal is logged, not surfaced.
func (s *DocumentService) Delete(ctx context.Context, doc *models.Document) error {
	if err := s.DB.WithContext(ctx).Delete(&models.Document{}, doc.ID).Error; err != nil {
		return apperr.Upstream("delete document", err)
	}
	if doc.ObjectKey != "" {
		if err := s.Blobs.Remove(ctx, doc.ObjectKey); err != nil {
			s.Log.Warn("blob removal failed after row delete",
				zap.String("object_key", doc.ObjectKey), zap.Error(err))
		}
	}
	return nil
}
