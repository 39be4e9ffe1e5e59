package storage

import (
	"github.com/customeros/attachstack/internal/enum"
	"github.com/customeros/attachstack/internal/errors"
	"github.com/customeros/attachstack/internal/logger"
	"github.com/customeros/attachstack/interfaces"
	"github.com/customeros/attachstack/services/storage/aws_client"
)

// Provider builds storage backends on demand. Each Backend call returns a
// backend with a fresh NamingRegistry, so " (n)" collision suffixes are
// scoped to the run that requested it.
type Provider struct {
	localRoot     string
	drive         interfaces.DriveClient
	driveBasePath string
	s3            aws_client.S3Client
	archiveBucket string
	log           logger.Logger
}

func NewProvider(localRoot string, drive interfaces.DriveClient, driveBasePath string, s3 aws_client.S3Client, archiveBucket string, log logger.Logger) *Provider {
	return &Provider{
		localRoot:     localRoot,
		drive:         drive,
		driveBasePath: driveBasePath,
		s3:            s3,
		archiveBucket: archiveBucket,
		log:           log,
	}
}

func (p *Provider) Backend(kind enum.StorageKind) (interfaces.StorageBackend, error) {
	switch kind {
	case enum.StorageLocal:
		return NewLocalBackend(p.localRoot, NewNamingRegistry(), p.log), nil
	case enum.StorageRemote:
		if p.drive == nil {
			return nil, errors.ErrInvalidStorageKind
		}
		return NewRemoteBackend(p.drive, p.driveBasePath, NewNamingRegistry(), p.log), nil
	case enum.StorageArchive:
		if p.s3 == nil {
			return nil, errors.ErrInvalidStorageKind
		}
		return NewArchiveBackend(p.s3, p.archiveBucket, NewNamingRegistry(), p.log), nil
	default:
		return nil, errors.ErrInvalidStorageKind
	}
}
