package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/customeros/attachstack/config"
	"github.com/customeros/attachstack/internal/models"
)

type Repositories struct {
	ProcessedMessageRepository ProcessedMessageRepository
}

func InitRepositories(attachstackDB *gorm.DB) *Repositories {
	return &Repositories{
		ProcessedMessageRepository: NewProcessedMessageRepository(attachstackDB),
	}
}

func MigrateAttachstackDB(dbConfig *config.AttachstackDatabaseConfig, attachstackDB *gorm.DB) error {
	db, err := attachstackDB.DB()
	if err != nil {
		return err
	}

	db.SetMaxOpenConns(5)

	err = attachstackDB.AutoMigrate(
		&models.ProcessedMessage{},
	)
	if err != nil {
		return err
	}

	db.SetMaxIdleConns(dbConfig.MaxIdleConn)
	db.SetMaxOpenConns(dbConfig.MaxConn)
	db.SetConnMaxLifetime(time.Duration(dbConfig.ConnMaxLifetime) * time.Minute)

	return nil
}
