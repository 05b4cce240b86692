package vertex

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"cloud.google.com/go/vertexai/genai"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/kirillkom/paperpulse/internal/core/domain"
	"github.com/kirillkom/paperpulse/internal/infrastructure/resilience"
)

const systemPrompt = "You are a document recognition service. You read the attached document and answer only with JSON that matches the requested shape. Never invent values that are not printed on the document."

// generator is the subset of *genai.GenerativeModel the recognizer needs.
type generator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

type Recognizer struct {
	model    generator
	schema   *jsonschema.Schema
	executor *resilience.Executor
	logger   *slog.Logger
	closer   func() error
}

// New connects to Vertex AI and configures a JSON-only Gemini model.
func New(ctx context.Context, projectID, region, modelName string, executor *resilience.Executor, logger *slog.Logger) (*Recognizer, error) {
	if projectID == "" || region == "" {
		return nil, errors.New("vertex: project id and region are required")
	}
	client, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}
	model := client.GenerativeModel(modelName)
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(systemPrompt)}}
	model.GenerationConfig = genai.GenerationConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0.0),
	}

	r, err := newRecognizer(model, executor, logger)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	r.closer = client.Close
	return r, nil
}

func newRecognizer(model generator, executor *resilience.Executor, logger *slog.Logger) (*Recognizer, error) {
	schema, err := compileResultSchema()
	if err != nil {
		return nil, err
	}
	if executor == nil {
		executor = resilience.NewExecutor(resilience.SingleAttemptConfig())
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Recognizer{model: model, schema: schema, executor: executor, logger: logger}, nil
}

func (r *Recognizer) Close() error {
	if r.closer != nil {
		return r.closer()
	}
	return nil
}

func (r *Recognizer) Recognize(ctx context.Context, kind domain.DocumentType, content []byte, format domain.FormatTag) (*domain.RecognitionResult, error) {
	prompt, err := promptFor(kind)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "recognize", err)
	}

	operation := "vertex_recognize_" + strings.ToLower(string(kind))
	var raw string
	err = r.executor.Execute(ctx, operation, func(callCtx context.Context) error {
		resp, genErr := r.model.GenerateContent(callCtx,
			genai.Blob{MIMEType: blobMIMEType(format), Data: content},
			genai.Text(prompt),
		)
		if genErr != nil {
			return genErr
		}
		raw = responseText(resp)
		return nil
	}, nil)
	if err != nil {
		return nil, domain.WrapError(domain.ErrExternalService, operation, err)
	}

	result, err := r.parse(raw)
	if err != nil {
		r.logger.Warn("vertex_response_rejected", "kind", string(kind), "error", err)
		return nil, domain.WrapError(domain.ErrExternalService, operation, err)
	}
	return result, nil
}

func blobMIMEType(format domain.FormatTag) string {
	if format == domain.FormatPDF {
		return domain.MimePDF
	}
	return domain.MimeText
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if txt, ok := part.(genai.Text); ok {
				sb.WriteString(string(txt))
			}
		}
		break
	}
	return sb.String()
}

func (r *Recognizer) parse(raw string) (*domain.RecognitionResult, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("empty model response")
	}
	var doc any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("decode model json: %w", err)
	}
	if err := r.schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("model json does not match schema: %w", err)
	}

	var answer modelAnswer
	if err := json.Unmarshal([]byte(raw), &answer); err != nil {
		return nil, fmt.Errorf("decode model answer: %w", err)
	}
	return answer.toResult(), nil
}

type modelAnswer struct {
	Forms []struct {
		Fields map[string]struct {
			Value      string  `json:"value"`
			Confidence float32 `json:"confidence"`
		} `json:"fields"`
	} `json:"forms"`
	Pages []struct {
		PageNumber int      `json:"pageNumber"`
		Lines      []string `json:"lines"`
	} `json:"pages"`
}

func (a modelAnswer) toResult() *domain.RecognitionResult {
	out := &domain.RecognitionResult{}
	for _, f := range a.Forms {
		form := domain.RecognizedForm{Fields: make(map[string]domain.FormField, len(f.Fields))}
		for name, field := range f.Fields {
			if strings.TrimSpace(field.Value) == "" {
				continue
			}
			form.Fields[name] = domain.FormField{
				Name:       name,
				Value:      field.Value,
				ValueType:  domain.FieldString,
				Confidence: field.Confidence,
			}
		}
		out.Forms = append(out.Forms, form)
	}
	for _, p := range a.Pages {
		out.Pages = append(out.Pages, domain.RecognizedPage{PageNumber: p.PageNumber, Lines: p.Lines})
	}
	return out
}

var resultSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"forms": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":     "object",
				"required": []string{"fields"},
				"properties": map[string]any{
					"fields": map[string]any{
						"type": "object",
						"additionalProperties": map[string]any{
							"type":     "object",
							"required": []string{"value"},
							"properties": map[string]any{
								"value":      map[string]any{"type": "string"},
								"confidence": map[string]any{"type": "number", "minimum": 0, "maximum": 1},
							},
						},
					},
				},
			},
		},
		"pages": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":     "object",
				"required": []string{"pageNumber", "lines"},
				"properties": map[string]any{
					"pageNumber": map[string]any{"type": "integer", "minimum": 1},
					"lines":      map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				},
			},
		},
	},
}

func compileResultSchema() (*jsonschema.Schema, error) {
	b, err := json.Marshal(resultSchema)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("recognition.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("recognition.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}
