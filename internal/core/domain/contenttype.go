package domain

import "strings"

const (
	MimePDF     = "application/pdf"
	MimeDOC     = "application/msword"
	MimeDOCX    = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimeText    = "text/plain"
	MimeGeneric = "application/octet-stream"
)

// FormatTag is the input-encoding hint handed to the recognition service.
// Only PDFs are distinguished; everything else shares one tag.
type FormatTag string

const (
	FormatPDF     FormatTag = "pdf"
	FormatGeneric FormatTag = "generic"
)

// ResolveContentType maps a file extension (with or without the leading dot)
// to a MIME type. Unknown extensions resolve to the generic binary type.
func ResolveContentType(extension string) string {
	ext := strings.ToLower(strings.TrimSpace(extension))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	switch ext {
	case ".pdf":
		return MimePDF
	case ".doc":
		return MimeDOC
	case ".docx":
		return MimeDOCX
	case ".txt":
		return MimeText
	default:
		return MimeGeneric
	}
}

func ToFormatTag(mime string) FormatTag {
	if mime == MimePDF {
		return FormatPDF
	}
	return FormatGeneric
}
