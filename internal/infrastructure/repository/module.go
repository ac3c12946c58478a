package repository

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"signflow/internal/config"
	"signflow/internal/domain/repository"
	"signflow/internal/infrastructure/database"
)

// NewStore selects the Store implementation configured by database.driver
func NewStore(cfg *config.Config, db *database.Database, logger *zap.Logger) repository.Store {
	if cfg.Database.IsMemory() {
		logger.Warn("Using in-memory store, data is lost on restart")
		return NewMemoryStore(logger)
	}
	return NewPostgresStore(db, logger)
}

var Module = fx.Module("repository",
	fx.Provide(NewStore),
)
