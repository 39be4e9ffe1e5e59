package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/opentracing/opentracing-go"
	"gorm.io/gorm"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"

	"github.com/customeros/attachstack/config"
	"github.com/customeros/attachstack/internal/cron"
	"github.com/customeros/attachstack/internal/database"
	"github.com/customeros/attachstack/internal/enum"
	"github.com/customeros/attachstack/internal/logger"
	"github.com/customeros/attachstack/internal/models"
	"github.com/customeros/attachstack/internal/repository"
	"github.com/customeros/attachstack/internal/tracing"
	"github.com/customeros/attachstack/services"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.InitConfig()
	if err != nil {
		log.Fatalf("Config initialization failed: %v", err)
	}
	if cfg == nil {
		log.Fatalf("config is empty")
	}

	var attachstackDB *gorm.DB
	var repos *repository.Repositories
	if cfg.DatabaseConfig.Configured() {
		attachstackDB, err = database.InitAttachstackDatabase(cfg.DatabaseConfig)
		if err != nil {
			log.Fatalf("Attachstack database initialization failed: %v", err)
		}
		repos = repository.InitRepositories(attachstackDB)
	}

	switch os.Args[1] {
	case "migrate":

		if attachstackDB == nil {
			log.Fatalf("Database is not configured")
		}
		err := repository.MigrateAttachstackDB(cfg.DatabaseConfig, attachstackDB)
		if err != nil {
			log.Fatalf("Database migration failed: %v", err)
		}
		log.Println("Database migration completed successfully")

	case "run":

		runArchival(cfg, repos, os.Args[2:])

	case "cron":

		runCron(cfg)

	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: attachstack <command>")
	fmt.Println("Commands:")
	fmt.Println("  migrate   Run database migrations")
	fmt.Println("  run       Archive attachments for a set of message ids")
	fmt.Println("  cron      Start the scheduled maintenance jobs")
}

func initLogger(cfg *config.Config) logger.Logger {
	appLogger := logger.NewAppLogger(cfg.Logger)
	appLogger.InitLogger()
	return appLogger
}

func runArchival(cfg *config.Config, repos *repository.Repositories, args []string) {
	flags := flag.NewFlagSet("run", flag.ExitOnError)
	ids := flags.String("ids", "", "comma separated message ids")
	storageKind := flags.String("storage", "local", "storage backend: local, remote or archive")
	destination := flags.String("destination", "", "destination folder for this run")
	convert := flags.Bool("convert", true, "convert attachments to plain text")
	flags.Parse(args)

	appLogger := initLogger(cfg)

	tracer, closer, err := tracing.NewJaegerTracer(cfg.Tracing, appLogger)
	if err != nil {
		log.Fatalf("Could not initialize jaeger tracer: %s", err.Error())
	}
	defer closer.Close()
	opentracing.SetGlobalTracer(tracer)

	svc, err := services.InitServices(cfg, appLogger, repos)
	if err != nil {
		appLogger.Fatalf("Service initialization failed: %v", err)
	}
	if svc.EventPublisher != nil {
		defer svc.EventPublisher.Close()
	}

	kind := enum.DecodeStorageKind(*storageKind)
	if kind == "" {
		appLogger.Fatalf("Invalid storage kind %q", *storageKind)
	}

	request := &models.ProcessRequest{
		MessageIDs:  splitIDs(*ids),
		Storage:     kind,
		Convert:     *convert,
		Destination: *destination,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	run, err := svc.ArchiverService.Process(ctx, request)
	if err != nil {
		appLogger.Fatalf("Archival run failed: %v", err)
	}

	if repos != nil {
		markProcessed(ctx, repos, run)
	}

	output, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		appLogger.Fatalf("Failed to encode run result: %v", err)
	}
	fmt.Println(string(output))
}

// markProcessed records succeeded messages in the dedup index so later runs
// skip them.
func markProcessed(ctx context.Context, repos *repository.Repositories, run *models.RunResult) {
	for _, item := range run.Results {
		if item.Outcome != enum.OutcomeSucceeded {
			continue
		}
		metadata := map[string]interface{}{
			"runId":  run.RunID,
			"folder": item.Folder,
		}
		if err := repos.ProcessedMessageRepository.MarkProcessed(ctx, item.MessageID, metadata); err != nil {
			log.Printf("Failed to mark message %s processed: %v", item.MessageID, err)
		}
	}
}

func splitIDs(raw string) []string {
	var ids []string
	for _, id := range strings.Split(raw, ",") {
		id = strings.TrimSpace(id)
		if id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

func runCron(cfg *config.Config) {
	appLogger := initLogger(cfg)

	var k8sClient kubernetes.Interface
	if k8sConfig, err := rest.InClusterConfig(); err == nil {
		k8sClient, err = kubernetes.NewForConfig(k8sConfig)
		if err != nil {
			appLogger.Warnf("Could not create kubernetes client: %v", err)
		}
	}

	manager := cron.NewCronManager(cfg, appLogger, k8sClient)
	if err := manager.Start(os.Getenv("POD_NAME"), os.Getenv("POD_NAMESPACE")); err != nil {
		appLogger.Fatalf("Cron manager failed to start: %v", err)
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	<-shutdown

	manager.Stop()
	appLogger.Info("Shutdown complete")
}
