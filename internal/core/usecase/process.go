package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/kirillkom/paperpulse/internal/core/domain"
	"github.com/kirillkom/paperpulse/internal/core/ports"
)

type ProcessDocumentUseCase struct {
	classifier *Classifier
	extractors *ExtractorSet
	observer   ports.ProcessingObserver
	logger     *slog.Logger
	now        func() time.Time
}

func NewProcessDocumentUseCase(
	classifier *Classifier,
	extractors *ExtractorSet,
	observer ports.ProcessingObserver,
	logger *slog.Logger,
) *ProcessDocumentUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	if observer == nil {
		observer = noopObserver{}
	}
	return &ProcessDocumentUseCase{
		classifier: classifier,
		extractors: extractors,
		observer:   observer,
		logger:     logger,
		now:        time.Now,
	}
}

// ProcessDocument runs validation, classification and extraction for one
// upload. The returned record is always non-nil; when err is non-nil the
// record carries status Error and the failure details.
func (uc *ProcessDocumentUseCase) ProcessDocument(ctx context.Context, body io.Reader, fileName string) (*domain.DocumentMetadata, error) {
	meta := domain.NewDocumentMetadata(fileName, uc.now())
	log := uc.logger.With("document_id", meta.ID, "file_name", fileName)
	log.Info("document_processing_started")

	err := uc.run(ctx, meta, body)
	if err != nil {
		meta.MarkFailed(err)
		log.Error("document_processing_failed", "error", err)
	} else if markErr := meta.MarkProcessed(); markErr != nil {
		err = markErr
	} else {
		log.Info("document_processing_succeeded",
			"document_type", string(meta.DocumentType),
			"fields", len(meta.ExtractedMetadata),
		)
	}

	uc.observer.ObserveDocument(meta, err)
	return meta, err
}

func (uc *ProcessDocumentUseCase) run(ctx context.Context, meta *domain.DocumentMetadata, body io.Reader) error {
	content, err := readContent(body, meta.FileName)
	if err != nil {
		return err
	}
	format := domain.ToFormatTag(meta.ContentType)

	kind := uc.classifier.Classify(ctx, content, format)
	if err := meta.AssignType(kind); err != nil {
		return fmt.Errorf("assign document type: %w", err)
	}

	extractor, err := uc.extractors.For(kind)
	if err != nil {
		return domain.WrapError(domain.ErrExtraction, "select extractor", err)
	}
	extraction, err := extractor.Extract(ctx, content, format)
	if err != nil {
		return err
	}
	meta.Merge(extraction)
	return nil
}

// readContent drains the stream once. Every later phase reads the same
// immutable slice, so no rewinding is needed.
func readContent(body io.Reader, fileName string) ([]byte, error) {
	if strings.TrimSpace(fileName) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "validate input", errors.New("file name is required"))
	}
	if body == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "validate input", errors.New("document stream is not readable"))
	}
	if seeker, ok := body.(io.Seeker); ok {
		if _, err := seeker.Seek(0, io.SeekStart); err != nil {
			return nil, domain.WrapError(domain.ErrInvalidInput, "rewind document stream", err)
		}
	}
	content, err := io.ReadAll(body)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "read document stream", err)
	}
	if len(content) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "validate input", errors.New("document is empty"))
	}
	return content, nil
}
