package db

import (
	stdlog "log"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/monocle-dev/fleetwatch/internal/models"
)

// ConnectDatabase opens the postgres store, routing SQL logs into log.
func ConnectDatabase(dsn string, log zerolog.Logger) (*gorm.DB, error) {
	return Open(postgres.Open(dsn), log)
}

func Open(dialector gorm.Dialector, log zerolog.Logger) (*gorm.DB, error) {
	gormLogger := logger.New(
		stdlog.New(log.With().Str("component", "gorm").Logger(), "", 0),
		logger.Config{
			SlowThreshold:             300 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	return gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         gormLogger,
	})
}

func MigrateDatabase(db *gorm.DB) error {
	models := []interface{}{
		&models.Server{},
		&models.Incident{},
		&models.SweepRun{},
	}

	for _, model := range models {
		if err := db.AutoMigrate(model); err != nil {
			return err
		}
	}

	return nil
}
