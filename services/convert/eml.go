package convert

import (
	"bytes"
	"context"
	"strings"

	"github.com/jaytaylor/html2text"
	"github.com/jhillyerd/enmime"
	"github.com/pkg/errors"

	"github.com/customeros/attachstack/internal/enum"
)

// emlConverter extracts the readable body from a forwarded message
type emlConverter struct{}

func newEMLConverter() *emlConverter {
	return &emlConverter{}
}

func (c *emlConverter) Kind() enum.ConverterKind {
	return enum.ConverterEML
}

func (c *emlConverter) Convert(ctx context.Context, content []byte) (string, error) {
	envelope, err := enmime.ReadEnvelope(bytes.NewReader(content))
	if err != nil {
		return "", errors.Wrap(err, "failed to parse message")
	}

	body := envelope.Text
	if body == "" && envelope.HTML != "" {
		rendered, err := html2text.FromString(envelope.HTML, html2text.Options{TextOnly: true})
		if err != nil {
			return "", errors.Wrap(err, "failed to render html body")
		}
		body = rendered
	}

	var sb strings.Builder
	for _, header := range []string{"From", "To", "Date", "Subject"} {
		if value := envelope.GetHeader(header); value != "" {
			sb.WriteString(header + ": " + value + "\n")
		}
	}
	sb.WriteString("\n")
	sb.WriteString(body)
	return strings.TrimSpace(sb.String()), nil
}
