package infra

import (
	"fmt"

	"github.com/apex/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func InitPostgresql(dsn string) (*gorm.DB, error) {
	connectionPool, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	log.Info("connected to PostgreSQL")
	return connectionPool, nil
}

func ClosePostgresql(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		log.WithError(err).Error("get database instance")
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.WithError(err).Error("close database connection")
	} else {
		log.Info("PostgreSQL database connection closed successfully")
	}
}
