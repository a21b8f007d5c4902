// Package postgres persists the relational User Repository via GORM,
// grounded on Bipul-Dubey-ai-knowledgebase's shared/db + shared/models
// pattern (uuid-string primary keys, gorm.io/driver/postgres).
package postgres

import (
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&userRow{}); err != nil {
		return nil, err
	}
	return db, nil
}
