package local

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"github.com/kirillkom/paperpulse/internal/core/domain"
)

// Recognizer is an offline stand-in for the managed service. It only reads
// text: structured kinds never match, so documents classify as General.
type Recognizer struct{}

func New() *Recognizer {
	return &Recognizer{}
}

func (r *Recognizer) Recognize(ctx context.Context, kind domain.DocumentType, content []byte, format domain.FormatTag) (*domain.RecognitionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if kind != domain.TypeGeneral {
		return &domain.RecognitionResult{}, nil
	}

	var (
		pages []domain.RecognizedPage
		err   error
	)
	if format == domain.FormatPDF {
		pages, err = pdfPages(content)
	} else {
		pages, err = textPages(content)
	}
	if err != nil {
		return nil, err
	}
	return &domain.RecognitionResult{Pages: pages}, nil
}

func pdfPages(content []byte) ([]domain.RecognizedPage, error) {
	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	pages := make([]domain.RecognizedPage, 0, reader.NumPage())
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("read pdf page %d: %w", i, err)
		}
		pages = append(pages, domain.RecognizedPage{PageNumber: i, Lines: splitLines(text)})
	}
	return pages, nil
}

func textPages(content []byte) ([]domain.RecognizedPage, error) {
	if !utf8.Valid(content) {
		return nil, fmt.Errorf("unsupported binary format")
	}
	// Form feed is the conventional page break in plain text.
	chunks := strings.Split(string(content), "\f")
	if len(chunks) > 1 && strings.TrimSpace(chunks[len(chunks)-1]) == "" {
		chunks = chunks[:len(chunks)-1]
	}
	pages := make([]domain.RecognizedPage, 0, len(chunks))
	for i, chunk := range chunks {
		pages = append(pages, domain.RecognizedPage{PageNumber: i + 1, Lines: splitLines(chunk)})
	}
	return pages, nil
}

func splitLines(text string) []string {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
