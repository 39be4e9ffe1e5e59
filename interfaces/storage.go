package interfaces

import (
	"context"

	"github.com/customeros/attachstack/internal/enum"
	"github.com/customeros/attachstack/internal/models"
)

// StorageBackend persists attachment content into a destination folder.
// CreateFolder is idempotent. SaveFile and SaveText guarantee a unique stored
// name within one folder for the lifetime of the owning run.
type StorageBackend interface {
	CreateFolder(ctx context.Context, path string) error
	SaveFile(ctx context.Context, folder, filename string, content []byte, contentType string) (*models.StoredItem, error)
	SaveText(ctx context.Context, folder, name, text string) (*models.StoredItem, error)
}

// StorageProvider hands out a fresh backend per run so collision-suffix
// naming state never leaks between runs.
type StorageProvider interface {
	Backend(kind enum.StorageKind) (StorageBackend, error)
}

// DriveClient is the remote drive protocol surface the remote backend needs:
// idempotent folder creation plus a size-aware upload that switches between a
// single PUT and a chunked upload session.
type DriveClient interface {
	CreateFolder(ctx context.Context, path string) error
	UploadFile(ctx context.Context, path string, content []byte, contentType string) (*models.RemoteItem, error)
}
