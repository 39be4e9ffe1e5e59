package storage

import (
	"context"
	"os"
	"path/filepath"

	"github.com/opentracing/opentracing-go"
	tracingLog "github.com/opentracing/opentracing-go/log"
	"github.com/pkg/errors"

	"github.com/customeros/attachstack/internal/enum"
	"github.com/customeros/attachstack/internal/logger"
	"github.com/customeros/attachstack/internal/models"
	"github.com/customeros/attachstack/internal/tracing"
	"github.com/customeros/attachstack/interfaces"
)

type localBackend struct {
	root  string
	names *NamingRegistry
	log   logger.Logger
}

// NewLocalBackend stores files under root. The naming registry is owned by
// the calling run.
func NewLocalBackend(root string, names *NamingRegistry, log logger.Logger) interfaces.StorageBackend {
	return &localBackend{
		root:  root,
		names: names,
		log:   log,
	}
}

func (b *localBackend) CreateFolder(ctx context.Context, path string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "LocalBackend.CreateFolder")
	defer span.Finish()
	tracing.TagComponentStorage(span)

	if err := os.MkdirAll(filepath.Join(b.root, path), 0o755); err != nil {
		err = errors.Wrap(err, "failed to create folder")
		tracing.TraceErr(span, err)
		return err
	}
	return nil
}

func (b *localBackend) SaveFile(ctx context.Context, folder, filename string, content []byte, contentType string) (*models.StoredItem, error) {
	return b.save(ctx, folder, filename, content, enum.ContentOriginalBytes)
}

func (b *localBackend) SaveText(ctx context.Context, folder, name, text string) (*models.StoredItem, error) {
	return b.save(ctx, folder, name, []byte(text), enum.ContentConvertedText)
}

func (b *localBackend) save(ctx context.Context, folder, filename string, content []byte, contentKind enum.ContentKind) (*models.StoredItem, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "LocalBackend.Save")
	defer span.Finish()
	tracing.TagComponentStorage(span)
	span.LogFields(tracingLog.String("folder", folder), tracingLog.String("filename", filename))

	if err := b.CreateFolder(ctx, folder); err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	dir := filepath.Join(b.root, folder)
	name := b.names.Claim(folder, SanitizeFilename(filename), func(candidate string) bool {
		_, err := os.Stat(filepath.Join(dir, candidate))
		return err == nil
	})

	destination := filepath.Join(dir, name)
	if err := os.WriteFile(destination, content, 0o644); err != nil {
		err = errors.Wrap(err, "failed to write file")
		tracing.TraceErr(span, err)
		return nil, err
	}

	return &models.StoredItem{
		Destination:  destination,
		BytesWritten: int64(len(content)),
		StorageKind:  enum.StorageLocal,
		ContentKind:  contentKind,
	}, nil
}
