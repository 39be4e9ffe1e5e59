package database

import (
	"log"

	"gorm.io/gorm"

	"github.com/customeros/attachstack/config"
)

func InitAttachstackDatabase(dbConfig *config.AttachstackDatabaseConfig) (*gorm.DB, error) {
	db, err := NewConnection(dbConfig)
	if err != nil {
		log.Fatalf("Failed to connect to the database: %v", err)
	}

	return db, nil
}
