package convert

import (
	"bytes"
	"context"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pkg/errors"

	"github.com/customeros/attachstack/internal/enum"
)

type pdfConverter struct{}

func newPDFConverter() *pdfConverter {
	return &pdfConverter{}
}

func (c *pdfConverter) Kind() enum.ConverterKind {
	return enum.ConverterPDF
}

// Convert extracts text page by page, preserving page order
func (c *pdfConverter) Convert(ctx context.Context, content []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", errors.Wrap(err, "failed to open pdf")
	}

	var pages []string
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", errors.Wrapf(err, "failed to extract text from page %d", i)
		}
		if trimmed := strings.TrimSpace(text); trimmed != "" {
			pages = append(pages, trimmed)
		}
	}
	return strings.Join(pages, sectionSeparator), nil
}
