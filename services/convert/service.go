package convert

import (
	"context"
	stderrors "errors"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/opentracing/opentracing-go"
	tracingLog "github.com/opentracing/opentracing-go/log"
	"golang.org/x/sync/errgroup"

	"github.com/customeros/attachstack/internal/enum"
	er "github.com/customeros/attachstack/internal/errors"
	"github.com/customeros/attachstack/internal/logger"
	"github.com/customeros/attachstack/internal/models"
	"github.com/customeros/attachstack/internal/tracing"
	"github.com/customeros/attachstack/interfaces"
)

// sectionSeparator joins pages, sheets and slides in natural document order
const sectionSeparator = "\n\n"

type conversionService struct {
	registry map[string]interfaces.Converter
	budget   int
	workers  int
	log      logger.Logger
}

// NewConversionService builds the extension registry once. Dispatch is a map
// lookup; there is no runtime type sniffing.
func NewConversionService(log logger.Logger) interfaces.ConversionService {
	plaintext := newPlaintextConverter()
	html := newHTMLConverter()

	s := &conversionService{
		budget:  defaultTokenBudget,
		workers: runtime.GOMAXPROCS(0),
		log:     log,
	}
	s.registry = map[string]interfaces.Converter{
		".pdf":      newPDFConverter(),
		".docx":     newWordConverter(),
		".doc":      legacyConverter{format: "legacy Word (.doc)"},
		".hwp":      newHWPConverter(),
		".hwpx":     newHWPXConverter(),
		".xlsx":     newExcelConverter(),
		".xls":      legacyConverter{format: "legacy Excel (.xls)"},
		".pptx":     newPowerPointConverter(),
		".ppt":      legacyConverter{format: "legacy PowerPoint (.ppt)"},
		".txt":      plaintext,
		".csv":      plaintext,
		".json":     plaintext,
		".xml":      plaintext,
		".md":       plaintext,
		".markdown": plaintext,
		".html":     html,
		".htm":      html,
		".eml":      newEMLConverter(),
	}
	return s
}

// Convert never raises: unsupported formats and extractor faults come back
// as Succeeded=false so the caller can store the original bytes instead.
func (s *conversionService) Convert(ctx context.Context, ref models.AttachmentRef, content []byte) *models.ConversionResult {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ConversionService.Convert")
	defer span.Finish()
	tracing.TagComponentConverter(span)
	span.LogFields(tracingLog.String("filename", ref.Filename), tracingLog.Int("size", len(content)))

	result := &models.ConversionResult{SourceRef: ref}

	ext := normalizeExtension(ref.Filename)
	converter, ok := s.registry[ext]
	if !ok {
		result.ErrorKind = er.KindUnsupportedFormat
		result.ErrorReason = fmt.Sprintf("no converter registered for %q", ext)
		return result
	}

	text, err := s.safeConvert(ctx, converter, content)
	if err != nil {
		result.ErrorKind = classifyConvertError(err)
		result.ErrorReason = err.Error()
		tracing.TraceErr(span, err)
		return result
	}

	result.Succeeded = true
	result.ConverterUsed = converter.Kind()
	result.OutputText = truncateToBudget(text, s.budget)
	return result
}

// ConvertAll distributes CPU-bound extraction across a worker pool sized to
// the available cores. Results keep the input order; unrelated attachments
// have no ordering requirement between each other.
func (s *conversionService) ConvertAll(ctx context.Context, attachments []*models.FetchedAttachment) []*models.ConversionResult {
	results := make([]*models.ConversionResult, len(attachments))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, attachment := range attachments {
		i, attachment := i, attachment
		g.Go(func() error {
			results[i] = s.Convert(gctx, attachment.AttachmentRef, attachment.Content)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// safeConvert guards against extractor panics; a fault in one document must
// not take down the run.
func (s *conversionService) safeConvert(ctx context.Context, converter interfaces.Converter, content []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = er.NewItemError(er.KindConversionFailure, fmt.Sprintf("converter panic: %v", r))
		}
	}()
	return converter.Convert(ctx, content)
}

func classifyConvertError(err error) er.Kind {
	var itemErr *er.ItemError
	if stderrors.As(err, &itemErr) && itemErr.Kind() == er.KindUnsupportedFormat {
		return er.KindUnsupportedFormat
	}
	return er.KindConversionFailure
}

func normalizeExtension(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}

// legacyConverter marks formats the pipeline knows about but explicitly does
// not extract. They always fall back to storing the original bytes.
type legacyConverter struct {
	format string
}

func (c legacyConverter) Kind() enum.ConverterKind {
	return ""
}

func (c legacyConverter) Convert(ctx context.Context, content []byte) (string, error) {
	return "", er.NewItemError(er.KindUnsupportedFormat, c.format+" extraction is not supported")
}
