package usecase

import (
	"context"

	"signflow/internal/domain/entity"
)

// JobDispatcher hands named jobs to the background worker. Delivery is fire-and-forget.
type JobDispatcher interface {
	Enqueue(ctx context.Context, name string, payload interface{}) error
}

// WebhookEmitter notifies webhook subscribers within the given scope
type WebhookEmitter interface {
	Emit(ctx context.Context, event entity.WebhookEvent, payload interface{}, scope entity.WebhookScope) error
}

// AuthValidator checks the second factor supplied with a recipient action
type AuthValidator interface {
	ValidateSecondFactor(ctx context.Context, recipient *entity.Recipient, credentials *entity.SecondFactorCredentials) bool
}

// SecondFactorIssuer creates the one-time code a recipient later presents to AuthValidator
type SecondFactorIssuer interface {
	IssueCode(ctx context.Context, recipient *entity.Recipient) (string, error)
}

// PDFInspector reads structural information from an uploaded document
type PDFInspector interface {
	PageCount(data []byte) (int, error)
}
