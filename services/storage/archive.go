package storage

import (
	"context"
	"path"

	"github.com/opentracing/opentracing-go"
	tracingLog "github.com/opentracing/opentracing-go/log"

	"github.com/customeros/attachstack/internal/enum"
	"github.com/customeros/attachstack/internal/logger"
	"github.com/customeros/attachstack/internal/models"
	"github.com/customeros/attachstack/internal/tracing"
	"github.com/customeros/attachstack/interfaces"
	"github.com/customeros/attachstack/services/storage/aws_client"
)

type archiveBackend struct {
	s3     aws_client.S3Client
	bucket string
	names  *NamingRegistry
	log    logger.Logger
}

// NewArchiveBackend stores files as objects in an R2 bucket. Object keys are
// folder/filename, so folder creation is a no-op.
func NewArchiveBackend(s3 aws_client.S3Client, bucket string, names *NamingRegistry, log logger.Logger) interfaces.StorageBackend {
	return &archiveBackend{
		s3:     s3,
		bucket: bucket,
		names:  names,
		log:    log,
	}
}

func (b *archiveBackend) CreateFolder(ctx context.Context, folderPath string) error {
	return nil
}

func (b *archiveBackend) SaveFile(ctx context.Context, folder, filename string, content []byte, contentType string) (*models.StoredItem, error) {
	return b.save(ctx, folder, filename, content, contentType, enum.ContentOriginalBytes)
}

func (b *archiveBackend) SaveText(ctx context.Context, folder, name, text string) (*models.StoredItem, error) {
	return b.save(ctx, folder, name, []byte(text), "text/plain", enum.ContentConvertedText)
}

func (b *archiveBackend) save(ctx context.Context, folder, filename string, content []byte, contentType string, contentKind enum.ContentKind) (*models.StoredItem, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ArchiveBackend.Save")
	defer span.Finish()
	tracing.TagComponentStorage(span)
	span.LogFields(tracingLog.String("folder", folder), tracingLog.String("filename", filename))

	name := b.names.Claim(folder, SanitizeFilename(filename), nil)
	key := path.Join(folder, name)

	if err := b.s3.Upload(ctx, b.bucket, key, content, contentType); err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	return &models.StoredItem{
		Destination:  key,
		BytesWritten: int64(len(content)),
		StorageKind:  enum.StorageArchive,
		ContentKind:  contentKind,
	}, nil
}
