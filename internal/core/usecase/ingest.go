package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/kirillkom/paperpulse/internal/core/domain"
	"github.com/kirillkom/paperpulse/internal/core/ports"
)

// defaultBlobExt is used when an upload carries no usable file name.
const defaultBlobExt = ".pdf"

type IngestDocumentUseCase struct {
	storage ports.BlobStorage
	queue   ports.MessageQueue
	logger  *slog.Logger
	maxSize int64
}

// NewIngestDocumentUseCase builds the upload flow. queue may be nil when the
// deployment relies on a storage-native trigger instead.
func NewIngestDocumentUseCase(
	storage ports.BlobStorage,
	queue ports.MessageQueue,
	maxSize int64,
	logger *slog.Logger,
) *IngestDocumentUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &IngestDocumentUseCase{
		storage: storage,
		queue:   queue,
		logger:  logger,
		maxSize: maxSize,
	}
}

// Upload stores the bytes under a fresh blob name and returns that name.
func (uc *IngestDocumentUseCase) Upload(ctx context.Context, fileName string, body io.Reader) (string, error) {
	if body == nil {
		return "", domain.WrapError(domain.ErrInvalidInput, "upload", errors.New("no file uploaded"))
	}
	content, err := uc.read(body)
	if err != nil {
		return "", err
	}

	ext := blobExt(fileName)
	if ext == defaultBlobExt {
		if err := validatePDF(content); err != nil {
			uc.logger.Debug("pdf_validation_failed", "file_name", fileName, "error", err)
			return "", domain.WrapError(domain.ErrInvalidInput, "upload",
				errors.New("body is not a valid PDF; pass ?fileName= with the real extension"))
		}
	}

	blobName := uuid.NewString() + ext
	if err := uc.storage.Save(ctx, blobName, bytes.NewReader(content)); err != nil {
		return "", fmt.Errorf("save to blob storage: %w", err)
	}

	if uc.queue != nil {
		event := domain.UploadEvent{BlobName: blobName, FileName: displayName(fileName, blobName, ext)}
		if err := uc.queue.PublishDocumentUploaded(ctx, event); err != nil {
			return "", fmt.Errorf("publish upload event: %w", err)
		}
	}

	uc.logger.Info("document_uploaded", "blob_name", blobName, "file_name", fileName, "size", len(content))
	return blobName, nil
}

func (uc *IngestDocumentUseCase) read(body io.Reader) ([]byte, error) {
	reader := body
	if uc.maxSize > 0 {
		reader = io.LimitReader(body, uc.maxSize+1)
	}
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "read upload", err)
	}
	if len(content) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload", errors.New("no file uploaded"))
	}
	if uc.maxSize > 0 && int64(len(content)) > uc.maxSize {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload", fmt.Errorf("file exceeds %d bytes", uc.maxSize))
	}
	return content, nil
}

func validatePDF(content []byte) error {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return api.Validate(bytes.NewReader(content), conf)
}

func blobExt(fileName string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(strings.TrimSpace(fileName))))
	if ext == "" || ext == "." {
		return defaultBlobExt
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return defaultBlobExt
		}
	}
	return ext
}

// displayName keeps the client's base name but makes it end in the blob's
// extension, so later stages resolve the same content type the upload was
// validated and stored under.
func displayName(fileName, blobName, ext string) string {
	base := filepath.Base(strings.TrimSpace(fileName))
	if base == "" || base == "." || base == "/" {
		return blobName
	}
	if !strings.EqualFold(filepath.Ext(base), ext) {
		base += ext
	}
	return base
}
