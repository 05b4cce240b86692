package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/paperpulse/internal/core/domain"
)

func scrape(t *testing.T, h http.Handler) string {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	return string(body)
}

func TestWorkerMetricsObserveProcessing(t *testing.T) {
	m := NewWorkerMetrics("worker")

	m.ObserveClassification(domain.TypeInvoice, "service_error")
	m.ObserveClassification(domain.TypeReceipt, "match")
	m.ObserveDocument(&domain.DocumentMetadata{Status: domain.StatusProcessed, DocumentType: domain.TypeReceipt}, nil)
	m.ObserveDocument(&domain.DocumentMetadata{Status: domain.StatusError}, errors.New("x"))
	m.StartDocument()
	m.FinishDocument(time.Second, nil)

	out := scrape(t, m.Handler())
	for _, want := range []string{
		`paperpulse_worker_classification_attempts_total{kind="Invoice",outcome="service_error",service="worker"} 1`,
		`paperpulse_worker_document_process_total{document_type="Receipt",service="worker",status="Processed"} 1`,
		`paperpulse_worker_document_process_total{document_type="unknown",service="worker",status="Error"} 1`,
		`paperpulse_worker_document_process_in_flight{service="worker"} 0`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}

func TestHTTPMiddlewareNormalizesDocumentPaths(t *testing.T) {
	m := NewHTTPServerMetrics("api")
	h := m.Middleware("api", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/documents/abc-123", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/documents/export", nil))

	out := scrape(t, m.Handler())
	if !strings.Contains(out, `paperpulse_http_requests_total{method="GET",path="/documents/{id}",service="api",status="404"} 1`) {
		t.Fatalf("expected normalized id path in:\n%s", out)
	}
	if !strings.Contains(out, `path="/documents/export"`) {
		t.Fatalf("expected export path kept in:\n%s", out)
	}
}
