package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/kirillkom/paperpulse/internal/core/domain"
	"github.com/kirillkom/paperpulse/internal/core/ports"
)

// FieldExtractor pulls a flat key/value mapping out of one document kind.
type FieldExtractor interface {
	Kind() domain.DocumentType
	Extract(ctx context.Context, content []byte, format domain.FormatTag) (domain.Extraction, error)
}

// fieldMapping pairs a service field name with the output key.
type fieldMapping struct {
	source string
	target string
}

var (
	invoiceFields = []fieldMapping{
		{source: "InvoiceId", target: "InvoiceId"},
		{source: "InvoiceTotal", target: "Total"},
		{source: "InvoiceDate", target: "Date"},
		{source: "VendorName", target: "VendorName"},
	}
	receiptFields = []fieldMapping{
		{source: "MerchantName", target: "MerchantName"},
		{source: "Total", target: "Total"},
		{source: "TransactionDate", target: "Date"},
	}
	businessCardFields = []fieldMapping{
		{source: "ContactNames", target: "Name"},
		{source: "CompanyNames", target: "Company"},
		{source: "Emails", target: "Email"},
		{source: "PhoneNumbers", target: "Phone"},
	}
)

// FormExtractor copies a fixed set of named fields out of every recognized
// instance. When a document holds several instances, later ones overwrite
// earlier ones key by key.
type FormExtractor struct {
	kind       domain.DocumentType
	mappings   []fieldMapping
	recognizer ports.Recognizer
}

func NewInvoiceExtractor(recognizer ports.Recognizer) *FormExtractor {
	return &FormExtractor{kind: domain.TypeInvoice, mappings: invoiceFields, recognizer: recognizer}
}

func NewReceiptExtractor(recognizer ports.Recognizer) *FormExtractor {
	return &FormExtractor{kind: domain.TypeReceipt, mappings: receiptFields, recognizer: recognizer}
}

func NewBusinessCardExtractor(recognizer ports.Recognizer) *FormExtractor {
	return &FormExtractor{kind: domain.TypeBusinessCard, mappings: businessCardFields, recognizer: recognizer}
}

func (e *FormExtractor) Kind() domain.DocumentType { return e.kind }

func (e *FormExtractor) Extract(ctx context.Context, content []byte, format domain.FormatTag) (domain.Extraction, error) {
	result, err := e.recognizer.Recognize(ctx, e.kind, content, format)
	if err != nil {
		return domain.Extraction{}, domain.WrapError(domain.ErrExtraction, "extract "+string(e.kind), err)
	}

	out := domain.NewExtraction()
	if result == nil {
		return out, nil
	}
	for _, form := range result.Forms {
		for _, m := range e.mappings {
			field, ok := form.Fields[m.source]
			if !ok {
				continue
			}
			out.Fields[m.target] = field.Value
			if field.Confidence > 0 {
				out.Confidence[m.target] = field.Confidence
			}
		}
	}
	return out, nil
}

// GeneralExtractor flattens OCR output into one Page<N> entry per page.
type GeneralExtractor struct {
	recognizer ports.Recognizer
}

func NewGeneralExtractor(recognizer ports.Recognizer) *GeneralExtractor {
	return &GeneralExtractor{recognizer: recognizer}
}

func (e *GeneralExtractor) Kind() domain.DocumentType { return domain.TypeGeneral }

func (e *GeneralExtractor) Extract(ctx context.Context, content []byte, format domain.FormatTag) (domain.Extraction, error) {
	result, err := e.recognizer.Recognize(ctx, domain.TypeGeneral, content, format)
	if err != nil {
		return domain.Extraction{}, domain.WrapError(domain.ErrExtraction, "extract "+string(domain.TypeGeneral), err)
	}

	out := domain.NewExtraction()
	if result == nil {
		return out, nil
	}
	for _, page := range result.Pages {
		out.Fields[fmt.Sprintf("Page%d", page.PageNumber)] = strings.Join(page.Lines, " ")
	}
	return out, nil
}

// ExtractorSet dispatches to the extractor registered for a document type.
type ExtractorSet struct {
	byKind map[domain.DocumentType]FieldExtractor
}

func NewExtractorSet(extractors ...FieldExtractor) *ExtractorSet {
	set := &ExtractorSet{byKind: make(map[domain.DocumentType]FieldExtractor, len(extractors))}
	for _, ex := range extractors {
		set.byKind[ex.Kind()] = ex
	}
	return set
}

// DefaultExtractors wires the four built-in extractors to one recognizer.
func DefaultExtractors(recognizer ports.Recognizer) *ExtractorSet {
	return NewExtractorSet(
		NewInvoiceExtractor(recognizer),
		NewReceiptExtractor(recognizer),
		NewBusinessCardExtractor(recognizer),
		NewGeneralExtractor(recognizer),
	)
}

func (s *ExtractorSet) For(kind domain.DocumentType) (FieldExtractor, error) {
	ex, ok := s.byKind[kind]
	if !ok {
		return nil, fmt.Errorf("no extractor registered for %s", kind)
	}
	return ex, nil
}
