package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kirillkom/paperpulse/internal/core/domain"
)

// WorkerMetrics records processing outcomes. It satisfies
// ports.ProcessingObserver.
type WorkerMetrics struct {
	service  string
	registry *prometheus.Registry

	processTotal       *prometheus.CounterVec
	processDuration    *prometheus.HistogramVec
	processInFlight    prometheus.Gauge
	classificationHits *prometheus.CounterVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	processTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "document_process_total",
			Help:      "Total processed documents by status and type.",
		},
		[]string{"service", "status", "document_type"},
	)
	processDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "document_process_duration_seconds",
			Help:      "Document processing duration in seconds by status.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
		[]string{"service", "status"},
	)
	processInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "document_process_in_flight",
			Help:      "Number of in-flight document processing tasks.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	classificationHits := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "classification_attempts_total",
			Help:      "Classification attempts by capability and outcome.",
		},
		[]string{"service", "kind", "outcome"},
	)

	registry.MustRegister(processTotal, processDuration, processInFlight, classificationHits)

	return &WorkerMetrics{
		service:            service,
		registry:           registry,
		processTotal:       processTotal,
		processDuration:    processDuration,
		processInFlight:    processInFlight,
		classificationHits: classificationHits,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartDocument() {
	m.processInFlight.Inc()
}

func (m *WorkerMetrics) FinishDocument(duration time.Duration, err error) {
	m.processInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}
	m.processDuration.WithLabelValues(m.service, status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) ObserveClassification(kind domain.DocumentType, outcome string) {
	m.classificationHits.WithLabelValues(m.service, string(kind), outcome).Inc()
}

func (m *WorkerMetrics) ObserveDocument(meta *domain.DocumentMetadata, _ error) {
	if meta == nil {
		return
	}
	docType := string(meta.DocumentType)
	if docType == "" {
		docType = "unknown"
	}
	m.processTotal.WithLabelValues(m.service, string(meta.Status), docType).Inc()
}
