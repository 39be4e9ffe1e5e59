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
)

type remoteBackend struct {
	drive    interfaces.DriveClient
	basePath string
	names    *NamingRegistry
	log      logger.Logger
}

// NewRemoteBackend stores files on the remote drive under basePath. Size
// branching between the single PUT and the upload session lives in the drive
// client; this backend owns destination naming.
func NewRemoteBackend(drive interfaces.DriveClient, basePath string, names *NamingRegistry, log logger.Logger) interfaces.StorageBackend {
	return &remoteBackend{
		drive:    drive,
		basePath: basePath,
		names:    names,
		log:      log,
	}
}

func (b *remoteBackend) CreateFolder(ctx context.Context, folderPath string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "RemoteBackend.CreateFolder")
	defer span.Finish()
	tracing.TagComponentStorage(span)

	if err := b.drive.CreateFolder(ctx, path.Join(b.basePath, folderPath)); err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	return nil
}

func (b *remoteBackend) SaveFile(ctx context.Context, folder, filename string, content []byte, contentType string) (*models.StoredItem, error) {
	return b.save(ctx, folder, filename, content, contentType, enum.ContentOriginalBytes)
}

func (b *remoteBackend) SaveText(ctx context.Context, folder, name, text string) (*models.StoredItem, error) {
	return b.save(ctx, folder, name, []byte(text), "text/plain", enum.ContentConvertedText)
}

func (b *remoteBackend) save(ctx context.Context, folder, filename string, content []byte, contentType string, contentKind enum.ContentKind) (*models.StoredItem, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "RemoteBackend.Save")
	defer span.Finish()
	tracing.TagComponentStorage(span)
	span.LogFields(tracingLog.String("folder", folder), tracingLog.String("filename", filename))

	name := b.names.Claim(folder, SanitizeFilename(filename), nil)
	drivePath := path.Join(b.basePath, folder, name)

	item, err := b.drive.UploadFile(ctx, drivePath, content, contentType)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	return &models.StoredItem{
		Destination:  item.Path,
		BytesWritten: item.Size,
		StorageKind:  enum.StorageRemote,
		ContentKind:  contentKind,
	}, nil
}
