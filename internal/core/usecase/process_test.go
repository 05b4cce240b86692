package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/paperpulse/internal/core/domain"
)

func TestProcessDocumentInvoice(t *testing.T) {
	rec := newRecognizerFake()
	rec.results[domain.TypeInvoice] = formResult(map[string]string{
		"InvoiceId":    "INV-7",
		"InvoiceTotal": "120.50",
	})
	observer := &observerFake{}
	uc := NewProcessDocumentUseCase(NewClassifier(rec, observer, nil), DefaultExtractors(rec), observer, nil)

	meta, err := uc.ProcessDocument(context.Background(), readerOf("%PDF-1.7"), "invoice.pdf")
	if err != nil {
		t.Fatalf("ProcessDocument() error = %v", err)
	}
	if meta.Status != domain.StatusProcessed {
		t.Fatalf("expected Processed, got %s", meta.Status)
	}
	if meta.DocumentType != domain.TypeInvoice {
		t.Fatalf("expected Invoice, got %s", meta.DocumentType)
	}
	if meta.ContentType != domain.MimePDF {
		t.Fatalf("expected %s content type, got %s", domain.MimePDF, meta.ContentType)
	}
	if meta.ExtractedMetadata["InvoiceId"] != "INV-7" || meta.ExtractedMetadata["Total"] != "120.50" {
		t.Fatalf("unexpected metadata: %+v", meta.ExtractedMetadata)
	}
	if rec.callsFor(domain.TypeReceipt) != 0 || rec.callsFor(domain.TypeBusinessCard) != 0 {
		t.Fatalf("unexpected calls after invoice match: %+v", rec.calls)
	}
	for _, call := range rec.calls {
		if call.format != domain.FormatPDF {
			t.Fatalf("expected pdf format tag, got %q", call.format)
		}
	}
	if len(observer.docs) != 1 || observer.errs[0] != nil {
		t.Fatalf("expected one successful observation, got %+v", observer.errs)
	}
}

func TestProcessDocumentGeneralPages(t *testing.T) {
	rec := newRecognizerFake()
	rec.results[domain.TypeGeneral] = &domain.RecognitionResult{Pages: []domain.RecognizedPage{
		{PageNumber: 1, Lines: []string{"Dear", "reader"}},
		{PageNumber: 2, Lines: []string{"Regards"}},
	}}

	meta, err := newTestProcessor(rec).ProcessDocument(context.Background(), readerOf("letter"), "letter.txt")
	if err != nil {
		t.Fatalf("ProcessDocument() error = %v", err)
	}
	if meta.DocumentType != domain.TypeGeneral {
		t.Fatalf("expected General, got %s", meta.DocumentType)
	}
	if meta.ExtractedMetadata["Page1"] != "Dear reader" || meta.ExtractedMetadata["Page2"] != "Regards" {
		t.Fatalf("unexpected metadata: %+v", meta.ExtractedMetadata)
	}
	if meta.ContentType != domain.MimeText {
		t.Fatalf("expected text/plain, got %s", meta.ContentType)
	}
	for _, call := range rec.calls {
		if call.format != domain.FormatGeneric {
			t.Fatalf("expected generic format tag, got %q", call.format)
		}
	}
}

func TestProcessDocumentUnreadableStream(t *testing.T) {
	rec := newRecognizerFake()

	meta, err := newTestProcessor(rec).ProcessDocument(context.Background(), failingReader{}, "broken.pdf")
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if meta == nil || meta.Status != domain.StatusError {
		t.Fatalf("expected Error record, got %+v", meta)
	}
	if meta.DocumentType != "" {
		t.Fatalf("document type must stay unset, got %s", meta.DocumentType)
	}
	if !strings.Contains(meta.ExtractedMetadata[domain.MetadataKeyError], "invalid input") {
		t.Fatalf("unexpected Error entry: %q", meta.ExtractedMetadata[domain.MetadataKeyError])
	}
	if meta.ExtractedMetadata[domain.MetadataKeyInnerError] != "disk unplugged" {
		t.Fatalf("unexpected InnerError entry: %q", meta.ExtractedMetadata[domain.MetadataKeyInnerError])
	}
	if len(rec.calls) != 0 {
		t.Fatalf("no recognizer call expected, got %+v", rec.calls)
	}
}

func TestProcessDocumentRejectsInvalidInput(t *testing.T) {
	cases := []struct {
		name     string
		fileName string
	}{
		{name: "nil stream", fileName: "a.pdf"},
		{name: "empty file name", fileName: "  "},
		{name: "empty content", fileName: "a.pdf"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := newRecognizerFake()
			uc := newTestProcessor(rec)
			var err error
			switch tc.name {
			case "nil stream":
				_, err = uc.ProcessDocument(context.Background(), nil, tc.fileName)
			case "empty content":
				_, err = uc.ProcessDocument(context.Background(), readerOf(""), tc.fileName)
			default:
				_, err = uc.ProcessDocument(context.Background(), readerOf("x"), tc.fileName)
			}
			if !errors.Is(err, domain.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
			if len(rec.calls) != 0 {
				t.Fatalf("no recognizer call expected")
			}
		})
	}
}

func TestProcessDocumentExtractionFailure(t *testing.T) {
	rec := newRecognizerFake()
	rec.results[domain.TypeReceipt] = formResult(map[string]string{"Total": "1"})
	rec.errs[domain.TypeInvoice] = errors.New("throttled")

	// The receipt attempt succeeds; the subsequent extraction call for the
	// same capability is made to fail.
	calls := 0
	failing := &sequencedRecognizer{inner: rec, failOn: func(kind domain.DocumentType) bool {
		if kind != domain.TypeReceipt {
			return false
		}
		calls++
		return calls > 1
	}}
	uc := NewProcessDocumentUseCase(NewClassifier(failing, nil, nil), DefaultExtractors(failing), nil, nil)

	meta, err := uc.ProcessDocument(context.Background(), readerOf("r"), "r.pdf")
	if !errors.Is(err, domain.ErrExtraction) {
		t.Fatalf("expected ErrExtraction, got %v", err)
	}
	if meta.Status != domain.StatusError || meta.DocumentType != domain.TypeReceipt {
		t.Fatalf("unexpected record: %+v", meta)
	}
	if meta.ExtractedMetadata[domain.MetadataKeyInnerError] != "extraction unavailable" {
		t.Fatalf("unexpected InnerError: %q", meta.ExtractedMetadata[domain.MetadataKeyInnerError])
	}
}

func TestProcessDocumentIsDeterministic(t *testing.T) {
	rec := newRecognizerFake()
	rec.results[domain.TypeBusinessCard] = formResult(map[string]string{"ContactNames": "Grace", "Emails": "g@navy.mil"})
	uc := newTestProcessor(rec)

	tick := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	uc.now = func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	}

	first, err := uc.ProcessDocument(context.Background(), readerOf("card"), "card.png")
	if err != nil {
		t.Fatalf("ProcessDocument() error = %v", err)
	}
	second, err := uc.ProcessDocument(context.Background(), readerOf("card"), "card.png")
	if err != nil {
		t.Fatalf("ProcessDocument() error = %v", err)
	}
	if first.ID == second.ID {
		t.Fatalf("expected distinct ids")
	}
	if first.ProcessedDate.Equal(second.ProcessedDate) {
		t.Fatalf("expected distinct timestamps")
	}
	if first.DocumentType != second.DocumentType || first.Status != second.Status || first.ContentType != second.ContentType {
		t.Fatalf("records diverged: %+v vs %+v", first, second)
	}
	if len(first.ExtractedMetadata) != len(second.ExtractedMetadata) {
		t.Fatalf("metadata diverged: %+v vs %+v", first.ExtractedMetadata, second.ExtractedMetadata)
	}
	for k, v := range first.ExtractedMetadata {
		if second.ExtractedMetadata[k] != v {
			t.Fatalf("metadata %s diverged: %q vs %q", k, v, second.ExtractedMetadata[k])
		}
	}
}

type sequencedRecognizer struct {
	inner  *recognizerFake
	failOn func(kind domain.DocumentType) bool
}

func (s *sequencedRecognizer) Recognize(ctx context.Context, kind domain.DocumentType, content []byte, format domain.FormatTag) (*domain.RecognitionResult, error) {
	if s.failOn(kind) {
		return nil, errors.New("extraction unavailable")
	}
	return s.inner.Recognize(ctx, kind, content, format)
}
