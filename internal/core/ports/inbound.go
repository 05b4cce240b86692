package ports

import (
	"context"
	"io"

	"github.com/kirillkom/paperpulse/internal/core/domain"
)

// DocumentProcessor classifies a document and extracts its metadata.
// On failure it returns both the Error-status record and the error.
type DocumentProcessor interface {
	ProcessDocument(ctx context.Context, body io.Reader, fileName string) (*domain.DocumentMetadata, error)
}

// DocumentIngestor stores uploaded bytes and announces them to the trigger.
type DocumentIngestor interface {
	Upload(ctx context.Context, fileName string, body io.Reader) (string, error)
}

// UploadHandler is what a blob trigger invokes for each new upload.
type UploadHandler interface {
	HandleUpload(ctx context.Context, event domain.UploadEvent) (*domain.DocumentMetadata, error)
}

// DocumentCatalog is the read/delete model behind the REST surface.
type DocumentCatalog interface {
	List(ctx context.Context, opts domain.ListOptions) ([]domain.DocumentMetadata, error)
	GetByID(ctx context.Context, id string) (*domain.DocumentMetadata, error)
	Delete(ctx context.Context, id string) error
}

// DocumentExporter renders the catalog as a spreadsheet.
type DocumentExporter interface {
	ExportXLSX(ctx context.Context) ([]byte, error)
}
