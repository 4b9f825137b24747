package services

import (
	"bytes"
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/charlesng35/catalog/internal/storage"
	"github.com/charlesng35/catalog/pkg/metrics"
)

// Upload is a file received from a client, already bounded in size by the HTTP layer.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

func (u Upload) contentType() string {
	if ct := strings.TrimSpace(u.ContentType); ct != "" && ct != "application/octet-stream" {
		return ct
	}
	return http.DetectContentType(u.Data)
}

// putUpload stores u under name and records the outcome for kind.
func putUpload(ctx context.Context, blobs storage.Store, kind, name string, u Upload) (string, error) {
	url, err := blobs.Put(ctx, name, bytes.NewReader(u.Data), int64(len(u.Data)), u.contentType())
	if err != nil {
		metrics.Uploads.WithLabelValues(kind, "error").Inc()
		return "", err
	}
	metrics.Uploads.WithLabelValues(kind, "ok").Inc()
	return url, nil
}

// deleteBlobs removes objects stored for a write that did not commit.
func deleteBlobs(blobs storage.Store, log *zap.Logger, names []string) {
	for _, name := range names {
		if err := blobs.Delete(context.Background(), name); err != nil {
			log.Warn("failed to delete orphaned blob", zap.String("name", name), zap.Error(err))
		}
	}
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

// trimmedPtr returns nil for nil or blank input so partial updates skip the field.
func trimmedPtr(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
