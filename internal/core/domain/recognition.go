package domain

// RecognitionResult is what one call to a recognition capability returns.
// Structured kinds fill Forms; the general OCR kind fills Pages.
type RecognitionResult struct {
	Forms []RecognizedForm `json:"forms,omitempty"`
	Pages []RecognizedPage `json:"pages,omitempty"`
}

type RecognizedForm struct {
	FormType string               `json:"formType"`
	Fields   map[string]FormField `json:"fields"`
}

type FieldValueType string

const (
	FieldString      FieldValueType = "string"
	FieldNumber      FieldValueType = "number"
	FieldDate        FieldValueType = "date"
	FieldTime        FieldValueType = "time"
	FieldPhoneNumber FieldValueType = "phoneNumber"
	FieldArray       FieldValueType = "array"
	FieldObject      FieldValueType = "object"
)

type FormField struct {
	Name       string         `json:"name"`
	Value      string         `json:"value"`
	ValueType  FieldValueType `json:"valueType,omitempty"`
	Confidence float32        `json:"confidence,omitempty"`
}

type RecognizedPage struct {
	PageNumber int      `json:"pageNumber"`
	Lines      []string `json:"lines"`
}

// HasFields reports whether the first recognized instance carries at least
// one extracted field.
func (r *RecognitionResult) HasFields() bool {
	if r == nil || len(r.Forms) == 0 {
		return false
	}
	return len(r.Forms[0].Fields) > 0
}
