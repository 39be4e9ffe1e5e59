package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/customeros/attachstack/internal/enum"
	"github.com/customeros/attachstack/internal/models"
)

type fakeDriveClient struct {
	folders []string
	uploads map[string][]byte
}

func (d *fakeDriveClient) CreateFolder(ctx context.Context, path string) error {
	d.folders = append(d.folders, path)
	return nil
}

func (d *fakeDriveClient) UploadFile(ctx context.Context, path string, content []byte, contentType string) (*models.RemoteItem, error) {
	if d.uploads == nil {
		d.uploads = make(map[string][]byte)
	}
	d.uploads[path] = content
	return &models.RemoteItem{ID: "item", Name: path, Path: path, Size: int64(len(content))}, nil
}

func TestRemoteBackend_UploadsUnderBasePath(t *testing.T) {
	drive := &fakeDriveClient{}
	backend := NewRemoteBackend(drive, "mail-archive", NewNamingRegistry(), getTestLogger())

	stored, err := backend.SaveFile(context.Background(), "msg-folder", "report.pdf", []byte("pdf bytes"), "application/pdf")
	require.NoError(t, err)

	assert.Equal(t, enum.StorageRemote, stored.StorageKind)
	assert.Equal(t, "mail-archive/msg-folder/report.pdf", stored.Destination)
	assert.Equal(t, []byte("pdf bytes"), drive.uploads["mail-archive/msg-folder/report.pdf"])
}

func TestRemoteBackend_CollisionSuffixWithinRun(t *testing.T) {
	drive := &fakeDriveClient{}
	backend := NewRemoteBackend(drive, "mail-archive", NewNamingRegistry(), getTestLogger())

	first, err := backend.SaveText(context.Background(), "msg", "body.txt", "one")
	require.NoError(t, err)
	second, err := backend.SaveText(context.Background(), "msg", "body.txt", "two")
	require.NoError(t, err)

	assert.Equal(t, "mail-archive/msg/body.txt", first.Destination)
	assert.Equal(t, "mail-archive/msg/body (1).txt", second.Destination)
	assert.Equal(t, enum.ContentConvertedText, second.ContentKind)
}

func TestRemoteBackend_CreateFolderDelegates(t *testing.T) {
	drive := &fakeDriveClient{}
	backend := NewRemoteBackend(drive, "mail-archive", NewNamingRegistry(), getTestLogger())

	require.NoError(t, backend.CreateFolder(context.Background(), "2025-03-01_jane_subject"))
	assert.Equal(t, []string{"mail-archive/2025-03-01_jane_subject"}, drive.folders)
}
