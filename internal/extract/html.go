package extract

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"

	"MaterialHarvester/internal/domain"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// HTMLText strips markup, scripts, and styles from an HTML payload and
// collapses whitespace. Nothing left after stripping is an empty failure.
func HTMLText(payload []byte) (string, error) {
	// Payloads arrive in whatever encoding the host served; normalize to
	// UTF-8 before parsing.
	reader, err := charset.NewReader(bytes.NewReader(payload), "text/html")
	if err != nil {
		return "", domain.NewExtractionError(domain.FailureCorrupt, err)
	}

	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return "", domain.NewExtractionError(domain.FailureCorrupt, err)
	}

	doc.Find("script, style, noscript").Remove()

	text := whitespaceRun.ReplaceAllString(doc.Text(), " ")
	text = strings.TrimSpace(text)
	if text == "" {
		return "", domain.NewExtractionError(domain.FailureEmpty, nil)
	}

	return text, nil
}
