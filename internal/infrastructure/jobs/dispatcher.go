package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"signflow/internal/config"
	"signflow/internal/domain/entity"
)

const (
	// Redis key prefix guarding against duplicate seal requests
	sealGuardKeyPrefix = "signflow:seal:"
)

// Dispatcher enqueues named background jobs
type Dispatcher interface {
	Enqueue(ctx context.Context, name string, payload interface{}) error
}

// queueBackend is the subset of the Redis client the dispatcher needs
type queueBackend interface {
	Push(ctx context.Context, key string, values ...interface{}) error
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
}

type redisDispatcher struct {
	backend   queueBackend
	queueKey  string
	sealGuard time.Duration
	now       func() time.Time
	logger    *zap.Logger
}

// NewRedisDispatcher pushes jobs as JSON onto a Redis list consumed by the worker
func NewRedisDispatcher(backend queueBackend, cfg *config.Config, logger *zap.Logger) Dispatcher {
	return &redisDispatcher{
		backend:   backend,
		queueKey:  cfg.Jobs.QueueKey,
		sealGuard: cfg.Jobs.SealGuard,
		now:       time.Now,
		logger:    logger,
	}
}

func (d *redisDispatcher) Enqueue(ctx context.Context, name string, payload interface{}) error {
	guardKey := ""
	if seal, ok := payload.(entity.SealDocumentPayload); ok && !seal.IsResealing {
		guardKey = fmt.Sprintf("%s%d", sealGuardKeyPrefix, seal.EnvelopeID)
		acquired, err := d.backend.SetNX(ctx, guardKey, d.now().Unix(), d.sealGuard)
		if err != nil {
			return fmt.Errorf("failed to acquire seal guard: %w", err)
		}
		if !acquired {
			d.logger.Warn("Seal already requested, skipping duplicate",
				zap.Int64("envelope_id", seal.EnvelopeID),
			)
			return nil
		}
	}

	job := entity.Job{
		ID:         uuid.NewString(),
		Name:       name,
		Payload:    payload,
		EnqueuedAt: d.now(),
	}

	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	if err := d.backend.Push(ctx, d.queueKey, string(body)); err != nil {
		// Release the guard so a later request can still seal
		if guardKey != "" {
			if delErr := d.backend.Del(ctx, guardKey); delErr != nil {
				d.logger.Error("Failed to release seal guard", zap.String("key", guardKey), zap.Error(delErr))
			}
		}
		return fmt.Errorf("failed to enqueue job %s: %w", name, err)
	}

	d.logger.Info("Job enqueued",
		zap.String("job_id", job.ID),
		zap.String("job_name", name),
		zap.String("queue", d.queueKey),
	)

	return nil
}

type logDispatcher struct {
	logger *zap.Logger
}

// NewLogDispatcher only logs jobs; for development without a worker
func NewLogDispatcher(logger *zap.Logger) Dispatcher {
	return &logDispatcher{logger: logger}
}

func (d *logDispatcher) Enqueue(ctx context.Context, name string, payload interface{}) error {
	body, _ := json.Marshal(payload)
	d.logger.Info("Job dispatched (log driver)",
		zap.String("job_name", name),
		zap.String("payload", string(body)),
	)
	return nil
}
