package extract

import (
	"bytes"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/transform"

	"MaterialHarvester/internal/domain"
)

// PlainText decodes a text payload with a best-effort encoding detector and
// passes the result through.
func PlainText(payload []byte) (string, error) {
	encoding, _, _ := charset.DetermineEncoding(payload, "text/plain")

	decoded, err := io.ReadAll(transform.NewReader(bytes.NewReader(payload), encoding.NewDecoder()))
	if err != nil {
		return "", domain.NewExtractionError(domain.FailureCorrupt, err)
	}

	text := strings.TrimSpace(string(decoded))
	if text == "" {
		return "", domain.NewExtractionError(domain.FailureEmpty, nil)
	}
	return text, nil
}
