package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kirillkom/paperpulse/internal/core/domain"
	"github.com/kirillkom/paperpulse/internal/core/ports"
)

// MaxListLimit caps a client-supplied page size and is the page size used
// when walking the whole table.
const MaxListLimit = 500

type CatalogUseCase struct {
	repo    ports.MetadataRepository
	storage ports.BlobStorage
	logger  *slog.Logger
}

func NewCatalogUseCase(repo ports.MetadataRepository, storage ports.BlobStorage, logger *slog.Logger) *CatalogUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &CatalogUseCase{repo: repo, storage: storage, logger: logger}
}

// List returns one page when opts.Limit is set and every record from
// opts.Offset on otherwise.
func (uc *CatalogUseCase) List(ctx context.Context, opts domain.ListOptions) ([]domain.DocumentMetadata, error) {
	opts = normalizeListOptions(opts)
	if opts.Limit == 0 {
		docs := []domain.DocumentMetadata{}
		err := walkDocuments(ctx, uc.repo, opts.Offset, MaxListLimit, func(page []domain.DocumentMetadata) error {
			docs = append(docs, page...)
			return nil
		})
		if err != nil {
			return nil, err
		}
		return docs, nil
	}
	docs, err := uc.repo.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	if docs == nil {
		docs = []domain.DocumentMetadata{}
	}
	return docs, nil
}

func (uc *CatalogUseCase) GetByID(ctx context.Context, id string) (*domain.DocumentMetadata, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "get document", errors.New("id is required"))
	}
	return uc.repo.GetByID(ctx, id)
}

// Delete removes the record first and then its blob. A blob that is already
// gone does not fail the call.
func (uc *CatalogUseCase) Delete(ctx context.Context, id string) error {
	meta, err := uc.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := uc.repo.Delete(ctx, id); err != nil {
		return err
	}
	if meta.BlobName == "" || uc.storage == nil {
		return nil
	}
	if err := uc.storage.Delete(ctx, meta.BlobName); err != nil && !errors.Is(err, domain.ErrDocumentNotFound) {
		uc.logger.Warn("blob_delete_failed", "document_id", id, "blob_name", meta.BlobName, "error", err)
	}
	return nil
}

func normalizeListOptions(opts domain.ListOptions) domain.ListOptions {
	if opts.Limit < 0 {
		opts.Limit = 0
	}
	if opts.Limit > MaxListLimit {
		opts.Limit = MaxListLimit
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}
	return opts
}

// walkDocuments hands the repository's records to fn one page at a time,
// newest first, until a short page marks the end.
func walkDocuments(ctx context.Context, repo ports.MetadataRepository, offset, pageSize int, fn func([]domain.DocumentMetadata) error) error {
	for ; ; offset += pageSize {
		docs, err := repo.List(ctx, domain.ListOptions{Limit: pageSize, Offset: offset})
		if err != nil {
			return fmt.Errorf("list documents: %w", err)
		}
		if err := fn(docs); err != nil {
			return err
		}
		if len(docs) < pageSize {
			return nil
		}
	}
}
