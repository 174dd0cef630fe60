package fetch

import (
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"MaterialHarvester/internal/domain"
)

// Sniff classifies a payload by its magic bytes. The URL extension and any
// HTTP-declared content type are ignored here: remote hosts mislabel content,
// so the bytes are the only authority.
func Sniff(payload []byte) domain.ContentType {
	mtype := mimetype.Detect(payload)

	switch {
	case mtype.Is("application/pdf"):
		return domain.ContentTypePDF
	case mtype.Is("application/vnd.openxmlformats-officedocument.wordprocessingml.document"),
		mtype.Is("application/msword"),
		mtype.Is("application/x-ole-storage"):
		// Legacy OLE containers are still Word documents for dispatch; the
		// extractor decides whether the sub-format is supported.
		return domain.ContentTypeWord
	case mtype.Is("text/html"), mtype.Is("application/xhtml+xml"):
		return domain.ContentTypeHTML
	case strings.HasPrefix(mtype.String(), "text/"):
		return domain.ContentTypeText
	default:
		return domain.ContentTypeUnknown
	}
}

// MatchesHint reports whether the sniffed type is compatible with the
// catalog's declared media hint. Used only for the mismatch report; the hint
// never influences dispatch.
func MatchesHint(sniffed domain.ContentType, hint string) bool {
	if hint == "" || sniffed == domain.ContentTypeUnknown {
		return true
	}

	hint = strings.ToLower(hint)
	switch sniffed {
	case domain.ContentTypePDF:
		return strings.Contains(hint, "pdf")
	case domain.ContentTypeWord:
		return strings.Contains(hint, "document") || strings.Contains(hint, "word")
	case domain.ContentTypeHTML:
		return strings.Contains(hint, "html") || strings.Contains(hint, "website") || strings.Contains(hint, "web page")
	case domain.ContentTypeText:
		return strings.Contains(hint, "text") || strings.Contains(hint, "html") || strings.Contains(hint, "website")
	default:
		return true
	}
}
