package httpadapter

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/kirillkom/paperpulse/internal/config"
	"github.com/kirillkom/paperpulse/internal/core/domain"
)

type ingestFake struct {
	err      error
	fileName string
	body     []byte
}

func (f *ingestFake) Upload(_ context.Context, fileName string, body io.Reader) (string, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	f.fileName = fileName
	f.body = raw
	if f.err != nil {
		return "", f.err
	}
	return "blob-1.pdf", nil
}

type catalogFake struct {
	docs     []domain.DocumentMetadata
	err      error
	listOpts domain.ListOptions
	deleted  []string
}

func (f *catalogFake) List(_ context.Context, opts domain.ListOptions) ([]domain.DocumentMetadata, error) {
	f.listOpts = opts
	return f.docs, f.err
}

func (f *catalogFake) GetByID(_ context.Context, id string) (*domain.DocumentMetadata, error) {
	if f.err != nil {
		return nil, f.err
	}
	for i := range f.docs {
		if f.docs[i].ID == id {
			return &f.docs[i], nil
		}
	}
	return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", fmt.Errorf("id=%s", id))
}

func (f *catalogFake) Delete(_ context.Context, id string) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, id)
	return nil
}

type exporterFake struct {
	content []byte
	err     error
}

func (f exporterFake) ExportXLSX(context.Context) ([]byte, error) {
	return f.content, f.err
}

func newTestHandler(cfg config.Config, ingest *ingestFake, catalog *catalogFake, opts ...Option) http.Handler {
	if ingest == nil {
		ingest = &ingestFake{}
	}
	if catalog == nil {
		catalog = &catalogFake{}
	}
	return NewRouter(cfg, ingest, catalog, exporterFake{content: []byte("PK")}, opts...).Handler()
}
