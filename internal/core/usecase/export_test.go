package usecase

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/paperpulse/internal/core/domain"
)

func TestExportXLSX(t *testing.T) {
	repo := newRepoFake()
	repo.records["doc-1"] = domain.DocumentMetadata{
		ID:                "doc-1",
		FileName:          "inv.pdf",
		ContentType:       domain.MimePDF,
		DocumentType:      domain.TypeInvoice,
		Status:            domain.StatusProcessed,
		ProcessedDate:     time.Date(2026, 5, 4, 3, 2, 1, 0, time.UTC),
		ExtractedMetadata: map[string]string{"Total": "10", "InvoiceId": "X"},
	}

	raw, err := NewExportUseCase(repo).ExportXLSX(context.Background())
	if err != nil {
		t.Fatalf("ExportXLSX() error = %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(exportSheet)
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected header + 1 row, got %d", len(rows))
	}
	if rows[0][0] != "Id" || rows[1][0] != "doc-1" {
		t.Fatalf("unexpected rows: %+v", rows)
	}
	if rows[1][3] != "Invoice" || rows[1][5] != "2026-05-04T03:02:01Z" {
		t.Fatalf("unexpected row: %+v", rows[1])
	}
	if rows[1][6] != "InvoiceId=X; Total=10" {
		t.Fatalf("unexpected flattened metadata: %q", rows[1][6])
	}
}

func TestExportXLSXPropagatesListError(t *testing.T) {
	repo := newRepoFake()
	repo.listErr = errors.New("db down")

	if _, err := NewExportUseCase(repo).ExportXLSX(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
}
