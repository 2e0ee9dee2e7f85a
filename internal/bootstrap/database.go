package bootstrap

import (
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/north-cloud/muniwatch/internal/config"
	"github.com/jonesrussell/north-cloud/muniwatch/internal/database"
	"github.com/jonesrussell/north-cloud/muniwatch/internal/logger"
)

// SetupDatabase opens and pings the Postgres pool.
func SetupDatabase(cfg *config.Config, log logger.Logger) (*sqlx.DB, error) {
	db, err := database.New(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("database connection: %w", err)
	}
	log.Info("Connected to database",
		logger.String("host", cfg.Database.Host),
		logger.Int("port", cfg.Database.Port),
		logger.String("dbname", cfg.Database.DBName),
	)
	return db, nil
}
