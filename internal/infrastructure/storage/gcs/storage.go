package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"

	"github.com/kirillkom/paperpulse/internal/core/domain"
)

// Storage keeps uploads as objects in a single bucket.
type Storage struct {
	client *storage.Client
	bucket *storage.BucketHandle
}

func New(ctx context.Context, bucket string) (*Storage, error) {
	if bucket == "" {
		return nil, errors.New("gcs bucket is required")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("storage.NewClient: %w", err)
	}
	return &Storage{client: client, bucket: client.Bucket(bucket)}, nil
}

func (s *Storage) Close() error {
	return s.client.Close()
}

// Save never overwrites: blob names are unique, so an existing object means
// the same upload was delivered twice.
func (s *Storage) Save(ctx context.Context, key string, data io.Reader) error {
	writer := s.bucket.Object(key).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	if _, err := io.Copy(writer, data); err != nil {
		_ = writer.Close()
		return mapError("write object "+key, err)
	}
	if err := writer.Close(); err != nil {
		return mapError("finalize object "+key, err)
	}
	return nil
}

func (s *Storage) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	reader, err := s.bucket.Object(key).NewReader(ctx)
	if err != nil {
		return nil, mapError("open object "+key, err)
	}
	return reader, nil
}

func (s *Storage) Delete(ctx context.Context, key string) error {
	err := s.bucket.Object(key).Delete(ctx)
	if err == nil || errors.Is(err, storage.ErrObjectNotExist) {
		return nil
	}
	return mapError("delete object "+key, err)
}

func mapError(op string, err error) error {
	if errors.Is(err, storage.ErrObjectNotExist) {
		return domain.WrapError(domain.ErrDocumentNotFound, op, err)
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusPreconditionFailed:
			return domain.WrapError(domain.ErrConflict, op, err)
		case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return domain.WrapError(domain.ErrTemporary, op, err)
		case http.StatusUnauthorized, http.StatusForbidden:
			return domain.WrapError(domain.ErrUnauthorized, op, err)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
