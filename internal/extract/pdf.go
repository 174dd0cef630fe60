package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"MaterialHarvester/internal/domain"
)

// PDFText recovers text per page and concatenates in page order.
// A password-protected or malformed stream yields a corrupt failure rather
// than partial text mixed with garbage.
func PDFText(payload []byte) (text string, err error) {
	// The pdf library panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = domain.NewExtractionError(domain.FailureCorrupt, fmt.Errorf("pdf parser panic: %v", r))
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(payload), int64(len(payload)))
	if err != nil {
		return "", domain.NewExtractionError(domain.FailureCorrupt, err)
	}

	var builder strings.Builder
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", domain.NewExtractionError(domain.FailureCorrupt, fmt.Errorf("page %d: %w", pageNum, err))
		}
		builder.WriteString(pageText)
		builder.WriteString("\n")
	}

	result := strings.TrimSpace(builder.String())
	if result == "" {
		return "", domain.NewExtractionError(domain.FailureEmpty, nil)
	}
	return result, nil
}
