// Package di provides dependency injection for database connections.
package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/reportdesk/internal/config"
	"github.com/aristath/reportdesk/internal/database"
)

// InitializeDatabases opens the store database and applies its schema.
// An empty data directory keeps everything in memory.
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{}

	dbCfg := database.Config{
		Path:    cfg.DatabasePath(),
		Profile: database.ProfileStandard,
		Name:    "store",
	}
	if dbCfg.Path == "" {
		dbCfg.Profile = database.ProfileMemory
	}

	storeDB, err := database.New(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store database: %w", err)
	}

	if err := storeDB.Migrate(); err != nil {
		storeDB.Close()
		return nil, fmt.Errorf("failed to migrate store database: %w", err)
	}
	container.StoreDB = storeDB

	log.Info().
		Str("path", storeDB.Path()).
		Msg("Store database initialized")

	return container, nil
}
