package config

import (
	"log"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"

	"github.com/customeros/attachstack/internal/logger"
	"github.com/customeros/attachstack/internal/tracing"
)

type Config struct {
	AppConfig      *AppConfig
	Logger         *logger.Config
	Tracing        *tracing.JaegerConfig
	GraphConfig    *GraphConfig
	StorageConfig  *StorageConfig
	DatabaseConfig *AttachstackDatabaseConfig
	R2Storage      *R2StorageConfig
}

func InitConfig() (*Config, error) {
	config := &Config{
		AppConfig:      &AppConfig{},
		Logger:         &logger.Config{},
		Tracing:        &tracing.JaegerConfig{},
		GraphConfig:    &GraphConfig{},
		StorageConfig:  &StorageConfig{},
		DatabaseConfig: &AttachstackDatabaseConfig{},
		R2Storage:      &R2StorageConfig{},
	}

	err := godotenv.Load()
	if err != nil {
		log.Print("Unable to load .env file")
	}

	err = env.Parse(config)
	if err != nil {
		log.Fatalf("Error loading attachstack config: %v", err)
	}

	return config, nil
}
