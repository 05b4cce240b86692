package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/kirillkom/paperpulse/internal/core/domain"
)

type observerFake struct {
	outcomes map[domain.DocumentType]string
	docs     []*domain.DocumentMetadata
	errs     []error
}

func (f *observerFake) ObserveClassification(kind domain.DocumentType, outcome string) {
	if f.outcomes == nil {
		f.outcomes = map[domain.DocumentType]string{}
	}
	f.outcomes[kind] = outcome
}

func (f *observerFake) ObserveDocument(meta *domain.DocumentMetadata, err error) {
	f.docs = append(f.docs, meta)
	f.errs = append(f.errs, err)
}

func TestClassifyInvoiceShortCircuits(t *testing.T) {
	rec := newRecognizerFake()
	rec.results[domain.TypeInvoice] = formResult(map[string]string{"InvoiceId": "INV-1"})

	got := NewClassifier(rec, nil, nil).Classify(context.Background(), []byte("pdf"), domain.FormatPDF)
	if got != domain.TypeInvoice {
		t.Fatalf("expected Invoice, got %s", got)
	}
	if rec.callsFor(domain.TypeReceipt) != 0 || rec.callsFor(domain.TypeBusinessCard) != 0 {
		t.Fatalf("receipt/business card must not be tried after invoice match: %+v", rec.calls)
	}
}

func TestClassifyDefaultsToGeneralAfterThreeAttempts(t *testing.T) {
	rec := newRecognizerFake()

	got := NewClassifier(rec, nil, nil).Classify(context.Background(), []byte("text"), domain.FormatGeneric)
	if got != domain.TypeGeneral {
		t.Fatalf("expected General, got %s", got)
	}
	for _, kind := range []domain.DocumentType{domain.TypeInvoice, domain.TypeReceipt, domain.TypeBusinessCard} {
		if n := rec.callsFor(kind); n != 1 {
			t.Fatalf("expected exactly one %s attempt, got %d", kind, n)
		}
	}
	if rec.callsFor(domain.TypeGeneral) != 0 {
		t.Fatalf("general capability must not be tried during classification")
	}
}

func TestClassifyServiceErrorDoesNotAbort(t *testing.T) {
	rec := newRecognizerFake()
	rec.errs[domain.TypeInvoice] = errors.New("503 from service")
	rec.results[domain.TypeReceipt] = formResult(map[string]string{"Total": "9.99"})
	observer := &observerFake{}

	got := NewClassifier(rec, observer, nil).Classify(context.Background(), []byte("r"), domain.FormatPDF)
	if got != domain.TypeReceipt {
		t.Fatalf("expected Receipt, got %s", got)
	}
	if observer.outcomes[domain.TypeInvoice] != "service_error" {
		t.Fatalf("expected invoice service_error outcome, got %+v", observer.outcomes)
	}
	if observer.outcomes[domain.TypeReceipt] != "match" {
		t.Fatalf("expected receipt match outcome, got %+v", observer.outcomes)
	}
}

func TestClassifyAllErrorsFallBackToGeneral(t *testing.T) {
	rec := newRecognizerFake()
	for _, kind := range classificationOrder {
		rec.errs[kind] = errors.New("down")
	}

	got := NewClassifier(rec, nil, nil).Classify(context.Background(), []byte("x"), domain.FormatPDF)
	if got != domain.TypeGeneral {
		t.Fatalf("expected General, got %s", got)
	}
}

func TestClassifyRequiresFieldsOnFirstInstance(t *testing.T) {
	rec := newRecognizerFake()
	rec.results[domain.TypeInvoice] = &domain.RecognitionResult{
		Forms: []domain.RecognizedForm{{Fields: map[string]domain.FormField{}}},
	}
	rec.results[domain.TypeBusinessCard] = formResult(map[string]string{"ContactNames": "Ada"})

	got := NewClassifier(rec, nil, nil).Classify(context.Background(), []byte("x"), domain.FormatPDF)
	if got != domain.TypeBusinessCard {
		t.Fatalf("expected BusinessCard, got %s", got)
	}
}

func TestClassifyReusesFullBufferEachAttempt(t *testing.T) {
	rec := newRecognizerFake()

	NewClassifier(rec, nil, nil).Classify(context.Background(), []byte("same bytes"), domain.FormatGeneric)
	for _, call := range rec.calls {
		if call.content != "same bytes" {
			t.Fatalf("attempt %s received %q", call.kind, call.content)
		}
		if call.format != domain.FormatGeneric {
			t.Fatalf("attempt %s received format %q", call.kind, call.format)
		}
	}
}
