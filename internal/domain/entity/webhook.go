package entity

import "time"

// WebhookEvent names an outbound webhook trigger
type WebhookEvent string

const (
	WebhookEventDocumentSent     WebhookEvent = "DOCUMENT_SENT"
	WebhookEventDocumentSigned   WebhookEvent = "DOCUMENT_SIGNED"
	WebhookEventDocumentRejected WebhookEvent = "DOCUMENT_REJECTED"
)

// WebhookScope identifies whose subscriptions receive an event
type WebhookScope struct {
	UserID int64  `json:"user_id"`
	TeamID *int64 `json:"team_id,omitempty"`
}

// WebhookPayload is the body posted to webhook subscribers
type WebhookPayload struct {
	ID        string       `json:"id"`
	Event     WebhookEvent `json:"event"`
	Payload   interface{}  `json:"payload"`
	Scope     WebhookScope `json:"scope"`
	CreatedAt time.Time    `json:"created_at"`
}
