package formrecognizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/paperpulse/internal/core/domain"
	"github.com/kirillkom/paperpulse/internal/infrastructure/resilience"
)

const (
	apiKeyHeader       = "Ocp-Apim-Subscription-Key"
	operationLocation  = "Operation-Location"
	defaultPollEvery   = time.Second
	defaultPollTimeout = 2 * time.Minute
)

type Options struct {
	Endpoint     string
	APIKey       string
	PollInterval time.Duration
	PollTimeout  time.Duration
	HTTPClient   *http.Client
	Executor     *resilience.Executor
	Logger       *slog.Logger
}

// Client talks to the v2.1 REST API of the managed form recognition service.
// Every analyze call is a submit followed by polling of the returned
// operation URL.
type Client struct {
	endpoint     string
	apiKey       string
	pollInterval time.Duration
	pollTimeout  time.Duration
	httpClient   *http.Client
	executor     *resilience.Executor
	logger       *slog.Logger
}

func New(opts Options) (*Client, error) {
	endpoint := strings.TrimRight(strings.TrimSpace(opts.Endpoint), "/")
	if endpoint == "" {
		return nil, errors.New("form recognizer endpoint is required")
	}
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("form recognizer api key is required")
	}
	c := &Client{
		endpoint:     endpoint,
		apiKey:       opts.APIKey,
		pollInterval: opts.PollInterval,
		pollTimeout:  opts.PollTimeout,
		httpClient:   opts.HTTPClient,
		executor:     opts.Executor,
		logger:       opts.Logger,
	}
	if c.pollInterval <= 0 {
		c.pollInterval = defaultPollEvery
	}
	if c.pollTimeout <= 0 {
		c.pollTimeout = defaultPollTimeout
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	if c.executor == nil {
		c.executor = resilience.NewExecutor(resilience.SingleAttemptConfig())
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c, nil
}

func analyzePath(kind domain.DocumentType) (string, error) {
	switch kind {
	case domain.TypeInvoice:
		return "/formrecognizer/v2.1/prebuilt/invoice/analyze", nil
	case domain.TypeReceipt:
		return "/formrecognizer/v2.1/prebuilt/receipt/analyze", nil
	case domain.TypeBusinessCard:
		return "/formrecognizer/v2.1/prebuilt/businessCard/analyze", nil
	case domain.TypeGeneral:
		return "/formrecognizer/v2.1/layout/analyze", nil
	default:
		return "", fmt.Errorf("unsupported recognition kind %q", kind)
	}
}

func requestContentType(format domain.FormatTag) string {
	if format == domain.FormatPDF {
		return domain.MimePDF
	}
	return domain.MimeGeneric
}

func (c *Client) Recognize(ctx context.Context, kind domain.DocumentType, content []byte, format domain.FormatTag) (*domain.RecognitionResult, error) {
	path, err := analyzePath(kind)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "recognize", err)
	}

	operation := "formrecognizer_analyze_" + strings.ToLower(string(kind))
	var location string
	err = c.executor.Execute(ctx, operation, func(callCtx context.Context) error {
		loc, submitErr := c.submit(callCtx, path, content, requestContentType(format))
		if submitErr != nil {
			return wrapTemporaryIfNeeded(operation, submitErr)
		}
		location = loc
		return nil
	}, classifyFormRecognizerError)
	if err != nil {
		return nil, domain.WrapError(domain.ErrExternalService, operation, err)
	}

	pollCtx, cancel := context.WithTimeout(ctx, c.pollTimeout)
	defer cancel()
	result, err := c.poll(pollCtx, location, operation)
	if err != nil {
		return nil, domain.WrapError(domain.ErrExternalService, operation, err)
	}
	return toRecognitionResult(kind, result), nil
}

func (c *Client) poll(ctx context.Context, location, operation string) (*analyzeOperation, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		op, err := c.getOperation(ctx, location)
		if err != nil {
			return nil, err
		}
		switch strings.ToLower(op.Status) {
		case statusSucceeded:
			return op, nil
		case statusFailed:
			return nil, op.failure()
		}
		c.logger.Debug("recognition_poll_pending", "operation", operation, "status", op.Status)

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("poll %s: %w", operation, ctx.Err())
		case <-ticker.C:
		}
	}
}
