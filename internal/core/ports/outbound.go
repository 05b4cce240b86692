package ports

import (
	"context"
	"io"

	"github.com/kirillkom/paperpulse/internal/core/domain"
)

// Recognizer submits bytes to one recognition capability and waits for the
// result. Implementations own any submit/poll protocol.
type Recognizer interface {
	Recognize(ctx context.Context, kind domain.DocumentType, content []byte, format domain.FormatTag) (*domain.RecognitionResult, error)
}

// MetadataRepository persists processed records.
type MetadataRepository interface {
	Upsert(ctx context.Context, meta *domain.DocumentMetadata) error
	GetByID(ctx context.Context, id string) (*domain.DocumentMetadata, error)
	List(ctx context.Context, opts domain.ListOptions) ([]domain.DocumentMetadata, error)
	Delete(ctx context.Context, id string) error
}

// BlobStorage stores raw uploaded bytes.
type BlobStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// MessageQueue publishes/consumes upload events.
type MessageQueue interface {
	PublishDocumentUploaded(ctx context.Context, event domain.UploadEvent) error
	SubscribeDocumentUploaded(ctx context.Context, handler func(context.Context, domain.UploadEvent) error) error
}

// ProcessingObserver receives per-document processing signals.
type ProcessingObserver interface {
	ObserveClassification(kind domain.DocumentType, outcome string)
	ObserveDocument(meta *domain.DocumentMetadata, err error)
}
