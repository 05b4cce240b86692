package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/paperpulse/internal/core/domain"
	"github.com/kirillkom/paperpulse/internal/core/ports"
)

const exportSheet = "Documents"

var exportHeader = []any{"Id", "FileName", "ContentType", "DocumentType", "Status", "ProcessedDate", "ExtractedMetadata"}

type ExportUseCase struct {
	repo     ports.MetadataRepository
	pageSize int
}

func NewExportUseCase(repo ports.MetadataRepository) *ExportUseCase {
	return &ExportUseCase{repo: repo, pageSize: MaxListLimit}
}

// ExportXLSX renders every stored record, newest first, as one worksheet row.
func (uc *ExportUseCase) ExportXLSX(ctx context.Context) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), exportSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(exportSheet, "A1", &exportHeader); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	row := 2
	err := walkDocuments(ctx, uc.repo, 0, uc.pageSize, func(docs []domain.DocumentMetadata) error {
		for _, doc := range docs {
			cell, err := excelize.CoordinatesToCellName(1, row)
			if err != nil {
				return err
			}
			values := []any{
				doc.ID,
				doc.FileName,
				doc.ContentType,
				string(doc.DocumentType),
				string(doc.Status),
				doc.ProcessedDate.UTC().Format(time.RFC3339),
				flattenMetadata(doc.ExtractedMetadata),
			}
			if err := f.SetSheetRow(exportSheet, cell, &values); err != nil {
				return fmt.Errorf("write row %d: %w", row, err)
			}
			row++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("render workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func flattenMetadata(m map[string]string) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+m[k])
	}
	return strings.Join(parts, "; ")
}
