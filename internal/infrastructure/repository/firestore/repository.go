package firestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/kirillkom/paperpulse/internal/core/domain"
)

// record is the stored shape of one document. Field names match the JSON
// representation so records read the same in the console and the API.
type record struct {
	ID                string             `firestore:"id"`
	FileName          string             `firestore:"fileName"`
	ContentType       string             `firestore:"contentType"`
	DocumentType      string             `firestore:"documentType"`
	Status            string             `firestore:"status"`
	ProcessedDate     time.Time          `firestore:"processedDate"`
	ExtractedMetadata map[string]string  `firestore:"extractedMetadata"`
	Confidence        map[string]float64 `firestore:"confidence,omitempty"`
	BlobName          string             `firestore:"blobName,omitempty"`
}

type Repository struct {
	client     *firestore.Client
	collection string
}

func New(ctx context.Context, projectID, collection string) (*Repository, error) {
	if projectID == "" {
		return nil, errors.New("firestore project id is required")
	}
	if collection == "" {
		collection = "documents"
	}
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("firestore.NewClient: %w", err)
	}
	return &Repository{client: client, collection: collection}, nil
}

func (r *Repository) Close() error {
	return r.client.Close()
}

func (r *Repository) Upsert(ctx context.Context, meta *domain.DocumentMetadata) error {
	if _, err := r.client.Collection(r.collection).Doc(meta.ID).Set(ctx, toRecord(meta)); err != nil {
		return mapError("upsert document", meta.ID, err)
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*domain.DocumentMetadata, error) {
	snap, err := r.client.Collection(r.collection).Doc(id).Get(ctx)
	if err != nil {
		return nil, mapError("get document", id, err)
	}
	var rec record
	if err := snap.DataTo(&rec); err != nil {
		return nil, fmt.Errorf("decode document %s: %w", id, err)
	}
	return fromRecord(rec), nil
}

func (r *Repository) List(ctx context.Context, opts domain.ListOptions) ([]domain.DocumentMetadata, error) {
	query := r.client.Collection(r.collection).
		OrderBy("processedDate", firestore.Desc).
		Offset(opts.Offset).
		Limit(opts.Limit)

	snaps, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, mapError("list documents", "", err)
	}
	out := make([]domain.DocumentMetadata, 0, len(snaps))
	for _, snap := range snaps {
		var rec record
		if err := snap.DataTo(&rec); err != nil {
			return nil, fmt.Errorf("decode document %s: %w", snap.Ref.ID, err)
		}
		out = append(out, *fromRecord(rec))
	}
	return out, nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	if _, err := r.client.Collection(r.collection).Doc(id).Delete(ctx, firestore.Exists); err != nil {
		return mapError("delete document", id, err)
	}
	return nil
}

func mapError(op, id string, err error) error {
	switch status.Code(err) {
	case codes.NotFound:
		return domain.WrapError(domain.ErrDocumentNotFound, op, fmt.Errorf("id=%s: %w", id, err))
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted:
		return domain.WrapError(domain.ErrTemporary, op, err)
	case codes.PermissionDenied, codes.Unauthenticated:
		return domain.WrapError(domain.ErrUnauthorized, op, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

func toRecord(meta *domain.DocumentMetadata) record {
	rec := record{
		ID:                meta.ID,
		FileName:          meta.FileName,
		ContentType:       meta.ContentType,
		DocumentType:      string(meta.DocumentType),
		Status:            string(meta.Status),
		ProcessedDate:     meta.ProcessedDate.UTC(),
		ExtractedMetadata: meta.ExtractedMetadata,
		BlobName:          meta.BlobName,
	}
	if rec.ExtractedMetadata == nil {
		rec.ExtractedMetadata = map[string]string{}
	}
	if len(meta.Confidence) > 0 {
		rec.Confidence = make(map[string]float64, len(meta.Confidence))
		for k, v := range meta.Confidence {
			rec.Confidence[k] = float64(v)
		}
	}
	return rec
}

func fromRecord(rec record) *domain.DocumentMetadata {
	meta := &domain.DocumentMetadata{
		ID:                rec.ID,
		FileName:          rec.FileName,
		ContentType:       rec.ContentType,
		DocumentType:      domain.DocumentType(rec.DocumentType),
		Status:            domain.DocumentStatus(rec.Status),
		ProcessedDate:     rec.ProcessedDate.UTC(),
		ExtractedMetadata: rec.ExtractedMetadata,
		BlobName:          rec.BlobName,
	}
	if meta.ExtractedMetadata == nil {
		meta.ExtractedMetadata = map[string]string{}
	}
	if len(rec.Confidence) > 0 {
		meta.Confidence = make(map[string]float32, len(rec.Confidence))
		for k, v := range rec.Confidence {
			meta.Confidence[k] = float32(v)
		}
	}
	return meta
}
