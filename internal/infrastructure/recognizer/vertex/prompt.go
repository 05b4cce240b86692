package vertex

import (
	"fmt"
	"strings"

	"github.com/kirillkom/paperpulse/internal/core/domain"
)

var structuredFields = map[domain.DocumentType][]string{
	domain.TypeInvoice:      {"InvoiceId", "InvoiceTotal", "InvoiceDate", "VendorName"},
	domain.TypeReceipt:      {"MerchantName", "Total", "TransactionDate"},
	domain.TypeBusinessCard: {"ContactNames", "CompanyNames", "Emails", "PhoneNumbers"},
}

var kindLabels = map[domain.DocumentType]string{
	domain.TypeInvoice:      "an invoice",
	domain.TypeReceipt:      "a sales receipt",
	domain.TypeBusinessCard: "a business card",
}

const layoutPrompt = `Transcribe every line of text in the attached document.
Answer with {"pages":[{"pageNumber":1,"lines":["..."]}]}, one entry per page, lines in reading order.`

func promptFor(kind domain.DocumentType) (string, error) {
	if kind == domain.TypeGeneral {
		return layoutPrompt, nil
	}
	fields, ok := structuredFields[kind]
	if !ok {
		return "", fmt.Errorf("unsupported recognition kind %q", kind)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Decide whether the attached document is %s.\n", kindLabels[kind])
	sb.WriteString(`If it is not, answer {"forms":[]}.` + "\n")
	sb.WriteString(`Otherwise answer {"forms":[{"fields":{"<name>":{"value":"...","confidence":0.0}}}]} with one form per instance found.` + "\n")
	fmt.Fprintf(&sb, "Use only these field names and omit any you cannot read: %s.\n", strings.Join(fields, ", "))
	sb.WriteString("Join multiple values of one field with \", \".")
	return sb.String(), nil
}
