package convert

import (
	"context"

	"github.com/jaytaylor/html2text"
	"github.com/pkg/errors"

	"github.com/customeros/attachstack/internal/enum"
)

type htmlConverter struct{}

func newHTMLConverter() *htmlConverter {
	return &htmlConverter{}
}

func (c *htmlConverter) Kind() enum.ConverterKind {
	return enum.ConverterHTML
}

func (c *htmlConverter) Convert(ctx context.Context, content []byte) (string, error) {
	normalized, err := normalizeToUTF8(content)
	if err != nil {
		return "", err
	}
	text, err := html2text.FromString(normalized, html2text.Options{TextOnly: true})
	if err != nil {
		return "", errors.Wrap(err, "failed to render html as text")
	}
	return text, nil
}
