package cloudevent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/kirillkom/paperpulse/internal/core/domain"
	"github.com/kirillkom/paperpulse/internal/core/ports"
)

const ObjectFinalizedType = "google.cloud.storage.object.v1.finalized"

// StorageObject is the subset of the GCS object payload the trigger reads.
type StorageObject struct {
	Bucket      string `json:"bucket"`
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Size        string `json:"size"`
}

// Handler turns storage finalize events into processing runs.
type Handler struct {
	uploads ports.UploadHandler
	bucket  string
	logger  *slog.Logger
}

// NewHandler builds a handler. A non-empty bucket restricts it to events
// from that bucket.
func NewHandler(uploads ports.UploadHandler, bucket string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{uploads: uploads, bucket: bucket, logger: logger}
}

func (h *Handler) Handle(ctx context.Context, e cloudevents.Event) error {
	if e.Type() != ObjectFinalizedType {
		h.logger.Debug("cloudevent_ignored", "event_id", e.ID(), "type", e.Type())
		return nil
	}

	var obj StorageObject
	if err := e.DataAs(&obj); err != nil {
		h.logger.Error("cloudevent_decode_failed", "event_id", e.ID(), "error", err)
		return fmt.Errorf("decode storage event: %w", err)
	}
	if obj.Name == "" {
		return domain.WrapError(domain.ErrInvalidInput, "handle storage event", errors.New("object name is empty"))
	}
	if h.bucket != "" && obj.Bucket != h.bucket {
		h.logger.Debug("cloudevent_other_bucket", "event_id", e.ID(), "bucket", obj.Bucket)
		return nil
	}

	meta, err := h.uploads.HandleUpload(ctx, domain.UploadEvent{BlobName: obj.Name})
	if err != nil {
		if domain.UploadSettled(meta, err) {
			// The Error record is the failure surface; a retry would duplicate it.
			h.logger.Warn("document_processing_failed",
				"event_id", e.ID(), "blob_name", obj.Name, "document_id", meta.ID, "error", err)
			return nil
		}
		h.logger.Error("document_processing_failed", "event_id", e.ID(), "blob_name", obj.Name, "error", err)
		return err
	}
	h.logger.Info("document_processed",
		"event_id", e.ID(),
		"blob_name", obj.Name,
		"document_id", meta.ID,
		"document_type", string(meta.DocumentType),
	)
	return nil
}
