package httpadapter

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/oapi-codegen/runtime"

	"github.com/kirillkom/paperpulse/internal/config"
	"github.com/kirillkom/paperpulse/internal/core/domain"
	"github.com/kirillkom/paperpulse/internal/core/ports"
	"github.com/kirillkom/paperpulse/internal/observability/metrics"
)

const (
	serviceName  = "paperpulse-api"
	xlsxMIMEType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	// Room for multipart boundaries and headers on top of the payload limit.
	multipartOverhead = 1 << 20
)

type Router struct {
	cfg      config.Config
	ingest   ports.DocumentIngestor
	catalog  ports.DocumentCatalog
	exporter ports.DocumentExporter
	metrics  *metrics.HTTPServerMetrics
	openAPI  *openapi3.T
	logger   *slog.Logger
}

type Option func(*Router)

func WithLogger(logger *slog.Logger) Option {
	return func(rt *Router) { rt.logger = logger }
}

func WithMetrics(m *metrics.HTTPServerMetrics) Option {
	return func(rt *Router) { rt.metrics = m }
}

// WithOpenAPI enables /openapi.json and, when configured, parameter
// validation against doc.
func WithOpenAPI(doc *openapi3.T) Option {
	return func(rt *Router) { rt.openAPI = doc }
}

func NewRouter(
	cfg config.Config,
	ingest ports.DocumentIngestor,
	catalog ports.DocumentCatalog,
	exporter ports.DocumentExporter,
	opts ...Option,
) *Router {
	rt := &Router{
		cfg:      cfg,
		ingest:   ingest,
		catalog:  catalog,
		exporter: exporter,
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(func(next http.Handler) http.Handler {
		return jwtAuthMiddleware(next, rt.cfg.AuthJWTSecret)
	})
	if rt.openAPI != nil && rt.cfg.APIRequestValidation {
		validate, err := requestValidationMiddleware(rt.openAPI)
		if err != nil {
			panic(fmt.Sprintf("openapi validation: %v", err))
		}
		r.Use(validate)
	}

	r.Get("/healthz", rt.healthz)
	if rt.metrics != nil {
		r.Method(http.MethodGet, "/metrics", rt.metrics.Handler())
	}
	if rt.openAPI != nil {
		r.Get("/openapi.json", rt.openAPIJSON)
	}
	r.Route("/documents", func(r chi.Router) {
		r.Get("/", rt.listDocuments)
		r.Post("/upload", rt.uploadDocument)
		r.Get("/export", rt.exportDocuments)
		r.Get("/{id}", rt.getDocument)
		r.Delete("/{id}", rt.deleteDocument)
	})
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	})

	var handler http.Handler = r
	handler = backpressureMiddleware(handler, rt.cfg.APIBackpressureMaxInFlight, rt.cfg.APIBackpressureWaitTimeout)
	handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(handler, rt.logger)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) openAPIJSON(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, rt.openAPI)
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	if rt.cfg.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, rt.cfg.MaxUploadBytes+multipartOverhead)
	}

	var (
		fileName string
		body     io.Reader
	)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		file, header, err := r.FormFile("file")
		if err != nil {
			if mapErrorToHTTPStatus(err) == http.StatusRequestEntityTooLarge {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
			return
		}
		defer file.Close()
		fileName = header.Filename
		body = file
	} else {
		if err := runtime.BindQueryParameter("form", true, false, "fileName", r.URL.Query(), &fileName); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid fileName parameter"})
			return
		}
		body = r.Body
	}

	counter := &countingReader{r: body}
	blobName, err := rt.ingest.Upload(r.Context(), fileName, counter)
	if rt.metrics != nil {
		rt.metrics.RecordUpload(serviceName, counter.n, err)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"blobName": blobName})
}

func (rt *Router) listDocuments(w http.ResponseWriter, r *http.Request) {
	var opts domain.ListOptions
	query := r.URL.Query()
	if err := runtime.BindQueryParameter("form", true, false, "limit", query, &opts.Limit); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit parameter"})
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "offset", query, &opts.Offset); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid offset parameter"})
		return
	}

	docs, err := rt.catalog.List(r.Context(), opts)
	if err != nil {
		writeError(w, err)
		return
	}
	if docs == nil {
		docs = []domain.DocumentMetadata{}
	}
	writeJSON(w, http.StatusOK, docs)
}

func (rt *Router) exportDocuments(w http.ResponseWriter, r *http.Request) {
	content, err := rt.exporter.ExportXLSX(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", xlsxMIMEType)
	w.Header().Set("Content-Disposition", `attachment; filename="documents.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(content)
}

func (rt *Router) getDocument(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	doc, err := rt.catalog.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (rt *Router) deleteDocument(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if err := rt.catalog.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Document deleted successfully"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
