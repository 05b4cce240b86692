package domain

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

type DocumentType string

const (
	TypeInvoice      DocumentType = "Invoice"
	TypeReceipt      DocumentType = "Receipt"
	TypeBusinessCard DocumentType = "BusinessCard"
	TypeGeneral      DocumentType = "General"
)

func (t DocumentType) Valid() bool {
	switch t {
	case TypeInvoice, TypeReceipt, TypeBusinessCard, TypeGeneral:
		return true
	default:
		return false
	}
}

type DocumentStatus string

const (
	StatusPending   DocumentStatus = "Pending"
	StatusProcessed DocumentStatus = "Processed"
	StatusError     DocumentStatus = "Error"
)

func (s DocumentStatus) Terminal() bool {
	return s == StatusProcessed || s == StatusError
}

// Keys written into ExtractedMetadata when processing fails.
const (
	MetadataKeyError      = "Error"
	MetadataKeyInnerError = "InnerError"
)

var errStatusFinal = errors.New("document status already terminal")

// DocumentMetadata is the single record produced per processed upload.
type DocumentMetadata struct {
	ID                string             `json:"id"`
	FileName          string             `json:"fileName"`
	ContentType       string             `json:"contentType"`
	DocumentType      DocumentType       `json:"documentType,omitempty"`
	Status            DocumentStatus     `json:"status"`
	ProcessedDate     time.Time          `json:"processedDate"`
	ExtractedMetadata map[string]string  `json:"extractedMetadata"`
	Confidence        map[string]float32 `json:"confidence,omitempty"`
	BlobName          string             `json:"blobName,omitempty"`
}

// NewDocumentMetadata creates a Pending record. ProcessedDate is stamped here
// and never moved on completion.
func NewDocumentMetadata(fileName string, now time.Time) *DocumentMetadata {
	return &DocumentMetadata{
		ID:                uuid.NewString(),
		FileName:          fileName,
		ContentType:       ResolveContentType(filepath.Ext(fileName)),
		Status:            StatusPending,
		ProcessedDate:     now.UTC(),
		ExtractedMetadata: map[string]string{},
		Confidence:        map[string]float32{},
	}
}

func (m *DocumentMetadata) AssignType(t DocumentType) error {
	if !t.Valid() {
		return fmt.Errorf("unknown document type %q", t)
	}
	if m.DocumentType != "" {
		return fmt.Errorf("document type already assigned: %s", m.DocumentType)
	}
	m.DocumentType = t
	return nil
}

// Merge copies extracted values into the record; existing keys are overwritten.
func (m *DocumentMetadata) Merge(ex Extraction) {
	if m.ExtractedMetadata == nil {
		m.ExtractedMetadata = map[string]string{}
	}
	if m.Confidence == nil {
		m.Confidence = map[string]float32{}
	}
	for k, v := range ex.Fields {
		m.ExtractedMetadata[k] = v
	}
	for k, v := range ex.Confidence {
		m.Confidence[k] = v
	}
}

func (m *DocumentMetadata) MarkProcessed() error {
	if m.Status.Terminal() {
		return errStatusFinal
	}
	m.Status = StatusProcessed
	return nil
}

// MarkFailed records err on the record. A record that already reached a
// terminal status is left untouched.
func (m *DocumentMetadata) MarkFailed(err error) {
	if m.Status.Terminal() || err == nil {
		return
	}
	if m.ExtractedMetadata == nil {
		m.ExtractedMetadata = map[string]string{}
	}
	m.Status = StatusError
	m.ExtractedMetadata[MetadataKeyError] = err.Error()
	if cause := Cause(err); cause != nil && cause.Error() != err.Error() {
		m.ExtractedMetadata[MetadataKeyInnerError] = cause.Error()
	}
}

// Extraction is the output of a single field extractor run.
type Extraction struct {
	Fields     map[string]string
	Confidence map[string]float32
}

func NewExtraction() Extraction {
	return Extraction{
		Fields:     map[string]string{},
		Confidence: map[string]float32{},
	}
}

// UploadEvent announces a freshly stored blob to the processing trigger.
type UploadEvent struct {
	BlobName string `json:"blobName"`
	FileName string `json:"fileName"`
}

// UploadSettled reports whether handling an upload left a stored record.
// A settled upload must not be redelivered: every retry would store another
// record pointing at the same blob.
func UploadSettled(meta *DocumentMetadata, err error) bool {
	return meta != nil && !errors.Is(err, ErrPersistence)
}

type ListOptions struct {
	Limit  int
	Offset int
}
