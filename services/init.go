package services

import (
	"github.com/customeros/attachstack/config"
	"github.com/customeros/attachstack/internal/logger"
	"github.com/customeros/attachstack/internal/repository"
	"github.com/customeros/attachstack/interfaces"
	"github.com/customeros/attachstack/services/archiver"
	"github.com/customeros/attachstack/services/convert"
	"github.com/customeros/attachstack/services/events"
	"github.com/customeros/attachstack/services/graph"
	"github.com/customeros/attachstack/services/storage"
	"github.com/customeros/attachstack/services/storage/aws_client"
)

type Services struct {
	GraphClient       *graph.Client
	MailFetcher       interfaces.MailFetcher
	ConversionService interfaces.ConversionService
	StorageProvider   interfaces.StorageProvider
	EventPublisher    interfaces.EventPublisher
	ArchiverService   interfaces.ArchiverService
}

func InitServices(cfg *config.Config, log logger.Logger, repos *repository.Repositories) (*Services, error) {
	graphClient := graph.NewClient(cfg.GraphConfig, graph.StaticTokenProvider{Token: cfg.GraphConfig.AccessToken}, log)
	fetcher := graph.NewFetcher(graphClient, cfg.GraphConfig, log)
	converter := convert.NewConversionService(log)

	var s3 aws_client.S3Client
	if cfg.R2Storage.Configured() {
		s3 = aws_client.NewR2Client(cfg.R2Storage)
	}
	provider := storage.NewProvider(
		cfg.StorageConfig.LocalRoot,
		graphClient,
		cfg.GraphConfig.DriveBasePath,
		s3,
		cfg.R2Storage.ArchiveBucket,
		log,
	)

	var publisher interfaces.EventPublisher
	if cfg.AppConfig.RabbitMQURL != "" {
		var err error
		publisher, err = events.NewRabbitMQPublisher(cfg.AppConfig.RabbitMQURL, log, nil)
		if err != nil {
			return nil, err
		}
	}

	var dedup interfaces.DedupIndex
	if repos != nil {
		dedup = repos.ProcessedMessageRepository
	}

	archiverService := archiver.NewArchiverService(
		fetcher,
		converter,
		provider,
		dedup,
		publisher,
		cfg.GraphConfig.BatchFanOut,
		log,
	)

	services := Services{
		GraphClient:       graphClient,
		MailFetcher:       fetcher,
		ConversionService: converter,
		StorageProvider:   provider,
		EventPublisher:    publisher,
		ArchiverService:   archiverService,
	}

	return &services, nil
}
