package formrecognizer

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/kirillkom/paperpulse/internal/core/domain"
)

const (
	statusSucceeded = "succeeded"
	statusFailed    = "failed"
)

type analyzeOperation struct {
	Status        string         `json:"status"`
	AnalyzeResult *analyzeResult `json:"analyzeResult"`
	Error         *serviceError  `json:"error"`
}

type serviceError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type analyzeResult struct {
	ReadResults     []readResult     `json:"readResults"`
	DocumentResults []documentResult `json:"documentResults"`
}

type readResult struct {
	Page  int        `json:"page"`
	Lines []textLine `json:"lines"`
}

type textLine struct {
	Text string `json:"text"`
}

type documentResult struct {
	DocType string                 `json:"docType"`
	Fields  map[string]*fieldValue `json:"fields"`
}

type fieldValue struct {
	Type             string                 `json:"type"`
	Text             string                 `json:"text"`
	Confidence       float32                `json:"confidence"`
	ValueString      *string                `json:"valueString"`
	ValueNumber      *float64               `json:"valueNumber"`
	ValueInteger     *int64                 `json:"valueInteger"`
	ValueDate        *string                `json:"valueDate"`
	ValueTime        *string                `json:"valueTime"`
	ValuePhoneNumber *string                `json:"valuePhoneNumber"`
	ValueArray       []*fieldValue          `json:"valueArray"`
	ValueObject      map[string]*fieldValue `json:"valueObject"`
}

func (op *analyzeOperation) failure() error {
	if op.Error != nil && op.Error.Message != "" {
		return fmt.Errorf("analyze failed: %s: %s", op.Error.Code, op.Error.Message)
	}
	return errors.New("analyze failed")
}

func toRecognitionResult(kind domain.DocumentType, op *analyzeOperation) *domain.RecognitionResult {
	out := &domain.RecognitionResult{}
	if op == nil || op.AnalyzeResult == nil {
		return out
	}
	for _, read := range op.AnalyzeResult.ReadResults {
		page := domain.RecognizedPage{PageNumber: read.Page, Lines: make([]string, 0, len(read.Lines))}
		for _, line := range read.Lines {
			page.Lines = append(page.Lines, line.Text)
		}
		out.Pages = append(out.Pages, page)
	}
	sort.SliceStable(out.Pages, func(i, j int) bool { return out.Pages[i].PageNumber < out.Pages[j].PageNumber })

	if kind == domain.TypeGeneral {
		return out
	}
	for _, doc := range op.AnalyzeResult.DocumentResults {
		form := domain.RecognizedForm{FormType: doc.DocType, Fields: make(map[string]domain.FormField, len(doc.Fields))}
		for name, value := range doc.Fields {
			if value == nil {
				continue
			}
			form.Fields[name] = domain.FormField{
				Name:       name,
				Value:      value.String(),
				ValueType:  domain.FieldValueType(value.Type),
				Confidence: value.Confidence,
			}
		}
		out.Forms = append(out.Forms, form)
	}
	return out
}

// String renders the typed value the way it would be shown to a person.
func (v *fieldValue) String() string {
	if v == nil {
		return ""
	}
	switch v.Type {
	case "string":
		if v.ValueString != nil {
			return *v.ValueString
		}
	case "number":
		if v.ValueNumber != nil {
			return strconv.FormatFloat(*v.ValueNumber, 'f', -1, 64)
		}
	case "integer":
		if v.ValueInteger != nil {
			return strconv.FormatInt(*v.ValueInteger, 10)
		}
	case "date":
		if v.ValueDate != nil {
			return *v.ValueDate
		}
	case "time":
		if v.ValueTime != nil {
			return *v.ValueTime
		}
	case "phoneNumber":
		if v.ValuePhoneNumber != nil {
			return *v.ValuePhoneNumber
		}
	case "array":
		parts := make([]string, 0, len(v.ValueArray))
		for _, item := range v.ValueArray {
			if s := item.String(); s != "" {
				parts = append(parts, s)
			}
		}
		if len(parts) > 0 {
			return strings.Join(parts, ", ")
		}
	}
	return v.Text
}
