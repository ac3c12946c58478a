package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"signflow/internal/config"
	"signflow/internal/domain/entity"
)

const (
	maxBodyLogLength = 500 // Maximum characters to log for response body
)

// Emitter delivers outbound webhook events to subscribers
type Emitter interface {
	// Emit queues delivery of the event to every matching subscriber and returns immediately
	Emit(ctx context.Context, event entity.WebhookEvent, payload interface{}, scope entity.WebhookScope) error
	// Wait blocks until queued deliveries finish
	Wait()
}

type httpEmitter struct {
	client      *http.Client
	subscribers []config.WebhookSubscriber
	timeout     time.Duration
	logger      *zap.Logger
	wg          sync.WaitGroup
}

func NewEmitter(cfg *config.Config, logger *zap.Logger) Emitter {
	timeout := cfg.Webhook.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	logger.Info("Webhook emitter initialized",
		zap.Int("subscribers", len(cfg.Webhook.Subscribers)),
	)

	return &httpEmitter{
		client:      &http.Client{Timeout: timeout},
		subscribers: cfg.Webhook.Subscribers,
		timeout:     timeout,
		logger:      logger,
	}
}

func (e *httpEmitter) Emit(ctx context.Context, event entity.WebhookEvent, payload interface{}, scope entity.WebhookScope) error {
	body := entity.WebhookPayload{
		ID:        uuid.NewString(),
		Event:     event,
		Payload:   payload,
		Scope:     scope,
		CreatedAt: time.Now().UTC(),
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	for _, subscriber := range e.subscribers {
		if !subscribes(subscriber, event, scope) {
			continue
		}

		// Deliveries run in the background; Wait drains them
		e.wg.Add(1)
		go func(subscriber config.WebhookSubscriber) {
			defer e.wg.Done()

			deliverCtx, cancel := context.WithTimeout(context.Background(), e.timeout)
			defer cancel()

			if err := e.deliver(deliverCtx, subscriber, body.ID, string(event), jsonBody); err != nil {
				e.logger.Warn("Failed to deliver webhook",
					zap.String("event", string(event)),
					zap.String("event_id", body.ID),
					zap.String("url", subscriber.URL),
					zap.Error(err),
				)
			}
		}(subscriber)
	}

	return nil
}

func (e *httpEmitter) Wait() {
	e.wg.Wait()
}

func (e *httpEmitter) deliver(ctx context.Context, subscriber config.WebhookSubscriber, eventID, eventType string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, subscriber.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	NewHMACSignature(subscriber.Secret).SignRequest(req, body, eventID, eventType)

	startTime := time.Now()
	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyLogLength))

	e.logger.Info("Webhook delivered",
		zap.String("event", eventType),
		zap.String("event_id", eventID),
		zap.String("url", subscriber.URL),
		zap.Int("status_code", resp.StatusCode),
		zap.Duration("duration", time.Since(startTime)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook rejected: status=%d, body=%s", resp.StatusCode, string(respBody))
	}

	return nil
}

// subscribes reports whether subscriber wants event for scope. Team subscribers receive
// team envelopes; personal subscribers receive the user's own envelopes.
func subscribes(subscriber config.WebhookSubscriber, event entity.WebhookEvent, scope entity.WebhookScope) bool {
	if scope.TeamID != nil {
		if subscriber.TeamID != *scope.TeamID {
			return false
		}
	} else if subscriber.TeamID != 0 || subscriber.UserID != scope.UserID {
		return false
	}

	if len(subscriber.Events) == 0 {
		return true
	}
	for _, e := range subscriber.Events {
		if e == string(event) {
			return true
		}
	}
	return false
}
