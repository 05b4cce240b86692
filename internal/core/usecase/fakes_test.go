package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/kirillkom/paperpulse/internal/core/domain"
)

type recognizeCall struct {
	kind    domain.DocumentType
	content string
	format  domain.FormatTag
}

type recognizerFake struct {
	mu      sync.Mutex
	results map[domain.DocumentType]*domain.RecognitionResult
	errs    map[domain.DocumentType]error
	calls   []recognizeCall
}

func newRecognizerFake() *recognizerFake {
	return &recognizerFake{
		results: map[domain.DocumentType]*domain.RecognitionResult{},
		errs:    map[domain.DocumentType]error{},
	}
}

func (f *recognizerFake) Recognize(_ context.Context, kind domain.DocumentType, content []byte, format domain.FormatTag) (*domain.RecognitionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, recognizeCall{kind: kind, content: string(content), format: format})
	if err := f.errs[kind]; err != nil {
		return nil, err
	}
	if res, ok := f.results[kind]; ok {
		return res, nil
	}
	return &domain.RecognitionResult{}, nil
}

func (f *recognizerFake) callsFor(kind domain.DocumentType) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.kind == kind {
			n++
		}
	}
	return n
}

func formResult(fields map[string]string) *domain.RecognitionResult {
	form := domain.RecognizedForm{Fields: map[string]domain.FormField{}}
	for name, value := range fields {
		form.Fields[name] = domain.FormField{Name: name, Value: value, ValueType: domain.FieldString}
	}
	return &domain.RecognitionResult{Forms: []domain.RecognizedForm{form}}
}

type repoFake struct {
	mu        sync.Mutex
	records   map[string]domain.DocumentMetadata
	upserted  []domain.DocumentMetadata
	upsertErr error
	deleteErr error
	listErr   error
	listCalls []domain.ListOptions
}

func newRepoFake() *repoFake {
	return &repoFake{records: map[string]domain.DocumentMetadata{}}
}

func (f *repoFake) Upsert(_ context.Context, meta *domain.DocumentMetadata) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.records[meta.ID] = *meta
	f.upserted = append(f.upserted, *meta)
	return nil
}

func (f *repoFake) GetByID(_ context.Context, id string) (*domain.DocumentMetadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "get", errors.New("id="+id))
	}
	return &rec, nil
}

func (f *repoFake) List(_ context.Context, opts domain.ListOptions) ([]domain.DocumentMetadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls = append(f.listCalls, opts)
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]domain.DocumentMetadata, 0, len(f.records))
	for _, rec := range f.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ProcessedDate.Equal(out[j].ProcessedDate) {
			return out[i].ProcessedDate.After(out[j].ProcessedDate)
		}
		return out[i].ID < out[j].ID
	})
	if opts.Offset >= len(out) {
		return nil, nil
	}
	out = out[opts.Offset:]
	if opts.Limit > 0 && opts.Limit < len(out) {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (f *repoFake) lastListOpts() domain.ListOptions {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.listCalls) == 0 {
		return domain.ListOptions{}
	}
	return f.listCalls[len(f.listCalls)-1]
}

func (f *repoFake) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.records[id]; !ok {
		return domain.WrapError(domain.ErrDocumentNotFound, "delete", errors.New("id="+id))
	}
	delete(f.records, id)
	return nil
}

type blobFake struct {
	mu        sync.Mutex
	blobs     map[string][]byte
	saveErr   error
	deleted   []string
	deleteErr error
}

func newBlobFake() *blobFake {
	return &blobFake{blobs: map[string][]byte{}}
}

func (f *blobFake) Save(_ context.Context, key string, data io.Reader) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blobs[key] = raw
	return nil
}

func (f *blobFake) Open(_ context.Context, key string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, ok := f.blobs[key]
	if !ok {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "open blob", errors.New(key))
	}
	return io.NopCloser(bytes.NewReader(raw)), nil
}

func (f *blobFake) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, key)
	delete(f.blobs, key)
	return nil
}

type queueFake struct {
	events []domain.UploadEvent
	err    error
}

func (f *queueFake) PublishDocumentUploaded(_ context.Context, event domain.UploadEvent) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

func (f *queueFake) SubscribeDocumentUploaded(context.Context, func(context.Context, domain.UploadEvent) error) error {
	return errors.New("not implemented")
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk unplugged") }

func newTestProcessor(rec *recognizerFake) *ProcessDocumentUseCase {
	return NewProcessDocumentUseCase(NewClassifier(rec, nil, nil), DefaultExtractors(rec), nil, nil)
}

func readerOf(s string) io.Reader { return strings.NewReader(s) }
