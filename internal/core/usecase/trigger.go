package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/kirillkom/paperpulse/internal/core/domain"
	"github.com/kirillkom/paperpulse/internal/core/ports"
)

// UploadTriggerUseCase reacts to a stored upload: it reads the blob, runs the
// processing pipeline and persists whatever record comes out of it.
type UploadTriggerUseCase struct {
	storage   ports.BlobStorage
	processor ports.DocumentProcessor
	repo      ports.MetadataRepository
	logger    *slog.Logger
}

func NewUploadTriggerUseCase(
	storage ports.BlobStorage,
	processor ports.DocumentProcessor,
	repo ports.MetadataRepository,
	logger *slog.Logger,
) *UploadTriggerUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &UploadTriggerUseCase{
		storage:   storage,
		processor: processor,
		repo:      repo,
		logger:    logger,
	}
}

// HandleUpload persists the record even when processing failed, then returns
// the processing error so the caller can log or nack.
func (uc *UploadTriggerUseCase) HandleUpload(ctx context.Context, event domain.UploadEvent) (*domain.DocumentMetadata, error) {
	if event.BlobName == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "handle upload", errors.New("blob name is required"))
	}
	fileName := event.FileName
	if fileName == "" {
		fileName = event.BlobName
	}
	if filepath.Ext(fileName) == "" {
		fileName += filepath.Ext(event.BlobName)
	}

	blob, err := uc.storage.Open(ctx, event.BlobName)
	if err != nil {
		return nil, fmt.Errorf("open blob %s: %w", event.BlobName, err)
	}
	defer blob.Close()

	meta, procErr := uc.processor.ProcessDocument(ctx, blob, fileName)
	if meta == nil {
		return nil, procErr
	}
	meta.BlobName = event.BlobName

	if err := uc.repo.Upsert(ctx, meta); err != nil {
		uc.logger.Error("document_persist_failed", "document_id", meta.ID, "blob_name", event.BlobName, "error", err)
		return meta, errors.Join(procErr, domain.WrapError(domain.ErrPersistence, "persist document metadata", err))
	}
	uc.logger.Info("document_persisted",
		"document_id", meta.ID,
		"blob_name", event.BlobName,
		"status", string(meta.Status),
	)
	return meta, procErr
}
