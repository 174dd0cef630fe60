package extract

import (
	"MaterialHarvester/internal/domain"
)

// Handler recovers plain text from a payload of one sniffed content type.
// Handlers are pure: no network, no cache access.
type Handler func(payload []byte) (string, error)

// Extractor dispatches payloads to format handlers by sniffed content type.
// The variant set is closed: adding a format means registering one handler.
type Extractor struct {
	handlers map[domain.ContentType]Handler
}

// New builds an extractor with all supported format handlers registered.
func New() *Extractor {
	return &Extractor{
		handlers: map[domain.ContentType]Handler{
			domain.ContentTypePDF:  PDFText,
			domain.ContentTypeWord: WordText,
			domain.ContentTypeHTML: HTMLText,
			domain.ContentTypeText: PlainText,
		},
	}
}

// Extract recovers text for a payload. The returned error, when non-nil, is
// always a *domain.ExtractionError tagging the failure as unsupported,
// corrupt, or empty.
func (e *Extractor) Extract(contentType domain.ContentType, payload []byte) (string, error) {
	handler, ok := e.handlers[contentType]
	if !ok {
		return "", domain.NewExtractionError(domain.FailureUnsupported, nil)
	}
	return handler(payload)
}
