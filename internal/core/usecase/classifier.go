package usecase

import (
	"context"
	"log/slog"

	"github.com/kirillkom/paperpulse/internal/core/domain"
	"github.com/kirillkom/paperpulse/internal/core/ports"
)

// classificationOrder is the fixed probing sequence. General is the fallback
// and is never tried.
var classificationOrder = []domain.DocumentType{
	domain.TypeInvoice,
	domain.TypeReceipt,
	domain.TypeBusinessCard,
}

type attemptOutcome int

const (
	outcomeNoMatch attemptOutcome = iota
	outcomeMatch
	outcomeServiceError
)

func (o attemptOutcome) String() string {
	switch o {
	case outcomeMatch:
		return "match"
	case outcomeServiceError:
		return "service_error"
	default:
		return "no_match"
	}
}

type Classifier struct {
	recognizer ports.Recognizer
	observer   ports.ProcessingObserver
	logger     *slog.Logger
}

func NewClassifier(recognizer ports.Recognizer, observer ports.ProcessingObserver, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	if observer == nil {
		observer = noopObserver{}
	}
	return &Classifier{
		recognizer: recognizer,
		observer:   observer,
		logger:     logger,
	}
}

// Classify tries the structured capabilities in order and returns the first
// that recognizes an instance with fields. It never fails: service errors
// count as a non-match and the result defaults to General.
func (c *Classifier) Classify(ctx context.Context, content []byte, format domain.FormatTag) domain.DocumentType {
	for _, kind := range classificationOrder {
		outcome := c.attempt(ctx, kind, content, format)
		c.observer.ObserveClassification(kind, outcome.String())
		if outcome == outcomeMatch {
			return kind
		}
	}
	return domain.TypeGeneral
}

func (c *Classifier) attempt(ctx context.Context, kind domain.DocumentType, content []byte, format domain.FormatTag) attemptOutcome {
	result, err := c.recognizer.Recognize(ctx, kind, content, format)
	if err != nil {
		c.logger.Warn("classification_attempt_failed",
			"kind", string(kind),
			"error", domain.WrapError(domain.ErrExternalService, "recognize "+string(kind), err),
		)
		return outcomeServiceError
	}
	if result.HasFields() {
		return outcomeMatch
	}
	return outcomeNoMatch
}

type noopObserver struct{}

func (noopObserver) ObserveClassification(domain.DocumentType, string) {}

func (noopObserver) ObserveDocument(*domain.DocumentMetadata, error) {}
