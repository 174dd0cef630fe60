package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"MaterialHarvester/internal/domain"
)

// Legacy binary Word documents start with the OLE compound-file signature.
var oleSignature = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

// WordText recovers text from the document body of a DOCX payload.
// Headers, footers, and embedded objects live in separate archive parts and
// are deliberately not read. Legacy OLE .doc payloads are unsupported.
func WordText(payload []byte) (string, error) {
	if bytes.HasPrefix(payload, oleSignature) {
		return "", domain.NewExtractionError(domain.FailureUnsupported, fmt.Errorf("legacy binary word format"))
	}

	archive, err := zip.NewReader(bytes.NewReader(payload), int64(len(payload)))
	if err != nil {
		return "", domain.NewExtractionError(domain.FailureCorrupt, err)
	}

	var document *zip.File
	for _, file := range archive.File {
		if file.Name == "word/document.xml" {
			document = file
			break
		}
	}
	if document == nil {
		return "", domain.NewExtractionError(domain.FailureUnsupported, fmt.Errorf("no word/document.xml part"))
	}

	part, err := document.Open()
	if err != nil {
		return "", domain.NewExtractionError(domain.FailureCorrupt, err)
	}
	defer part.Close()

	text, err := documentBodyText(part)
	if err != nil {
		return "", domain.NewExtractionError(domain.FailureCorrupt, err)
	}
	if text == "" {
		return "", domain.NewExtractionError(domain.FailureEmpty, nil)
	}
	return text, nil
}

// documentBodyText walks the WordprocessingML token stream collecting the
// contents of <w:t> runs, with paragraph ends becoming newlines.
func documentBodyText(r io.Reader) (string, error) {
	decoder := xml.NewDecoder(r)

	var builder strings.Builder
	inText := false

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("decode document xml: %w", err)
		}

		switch tok := token.(type) {
		case xml.StartElement:
			if tok.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch tok.Name.Local {
			case "t":
				inText = false
			case "p":
				builder.WriteString("\n")
			}
		case xml.CharData:
			if inText {
				builder.Write(tok)
			}
		}
	}

	return strings.TrimSpace(builder.String()), nil
}
