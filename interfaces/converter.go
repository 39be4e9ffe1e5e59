package interfaces

import (
	"context"

	"github.com/customeros/attachstack/internal/enum"
	"github.com/customeros/attachstack/internal/models"
)

// Converter extracts plain text from one document format
type Converter interface {
	Kind() enum.ConverterKind
	Convert(ctx context.Context, content []byte) (string, error)
}

// ConversionService dispatches to a format converter by file extension and
// reports failures without ever raising: an unsupported or failed conversion
// comes back as Succeeded=false and the caller stores the original bytes.
type ConversionService interface {
	Convert(ctx context.Context, ref models.AttachmentRef, content []byte) *models.ConversionResult
	ConvertAll(ctx context.Context, attachments []*models.FetchedAttachment) []*models.ConversionResult
}
