package convert

import (
	"bytes"
	"context"
	"strings"
	"unicode/utf8"

	"github.com/gogs/chardet"
	"github.com/pkg/errors"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/customeros/attachstack/internal/enum"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// plaintextConverter normalizes the txt/csv/json/xml/markdown family to
// UTF-8. No structural extraction, encoding normalization only.
type plaintextConverter struct{}

func newPlaintextConverter() *plaintextConverter {
	return &plaintextConverter{}
}

func (c *plaintextConverter) Kind() enum.ConverterKind {
	return enum.ConverterPlaintext
}

func (c *plaintextConverter) Convert(ctx context.Context, content []byte) (string, error) {
	return normalizeToUTF8(content)
}

func normalizeToUTF8(content []byte) (string, error) {
	content = bytes.TrimPrefix(content, utf8BOM)
	if utf8.Valid(content) {
		return string(content), nil
	}

	detector := chardet.NewTextDetector()
	best, err := detector.DetectBest(content)
	if err != nil {
		return "", errors.Wrap(err, "failed to detect text encoding")
	}

	encoding, err := htmlindex.Get(strings.ToLower(best.Charset))
	if err != nil {
		return "", errors.Wrapf(err, "unsupported text encoding %s", best.Charset)
	}

	decoded, err := encoding.NewDecoder().Bytes(content)
	if err != nil {
		return "", errors.Wrapf(err, "failed to decode %s text", best.Charset)
	}
	return string(decoded), nil
}
