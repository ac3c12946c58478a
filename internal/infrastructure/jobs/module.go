package jobs

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"signflow/internal/config"
	"signflow/internal/infrastructure/redis"
	"signflow/internal/usecase"
)

// NewDispatcher selects the dispatcher configured by jobs.driver
func NewDispatcher(cfg *config.Config, redisClient *redis.RedisClient, logger *zap.Logger) usecase.JobDispatcher {
	if cfg.Jobs.Driver == config.JobDriverLog {
		return NewLogDispatcher(logger)
	}
	return NewRedisDispatcher(redisClient, cfg, logger)
}

var Module = fx.Module("jobs",
	fx.Provide(NewDispatcher),
)
