package entity

import "time"

// EnvelopeStatus is the lifecycle state of an envelope
type EnvelopeStatus string

const (
	EnvelopeStatusDraft     EnvelopeStatus = "DRAFT"
	EnvelopeStatusPending   EnvelopeStatus = "PENDING"
	EnvelopeStatusCompleted EnvelopeStatus = "COMPLETED"
)

// SigningOrder controls whether recipients act in turn or all at once
type SigningOrder string

const (
	SigningOrderParallel   SigningOrder = "PARALLEL"
	SigningOrderSequential SigningOrder = "SEQUENTIAL"
)

// ActionAuth is an authentication method required before a recipient may act
type ActionAuth string

const (
	ActionAuthAccount      ActionAuth = "ACCOUNT"
	ActionAuthPasskey      ActionAuth = "PASSKEY"
	ActionAuthTwoFactor    ActionAuth = "TWO_FACTOR_AUTH"
	ActionAuthExplicitNone ActionAuth = "EXPLICIT_NONE"
)

// EnvelopeMeta holds per-envelope behaviour switches
type EnvelopeMeta struct {
	AllowDictateNextSigner bool `json:"allow_dictate_next_signer"`
}

// EnvelopeAuthOptions are the envelope-wide authentication defaults
type EnvelopeAuthOptions struct {
	GlobalActionAuth []ActionAuth `json:"global_action_auth"`
}

// Envelope is one signable document together with its signing configuration
type Envelope struct {
	ID           int64               `json:"id"`
	Title        string              `json:"title"`
	Status       EnvelopeStatus      `json:"status"`
	SigningOrder SigningOrder        `json:"signing_order"`
	UserID       int64               `json:"user_id"`
	TeamID       *int64              `json:"team_id,omitempty"`
	Meta         EnvelopeMeta        `json:"meta"`
	AuthOptions  EnvelopeAuthOptions `json:"auth_options"`
	PageCount    int                 `json:"page_count"`
	DocumentData []byte              `json:"-"`
	CompletedAt  *time.Time          `json:"completed_at,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

// IsSequential reports whether recipients must sign in turn
func (e *Envelope) IsSequential() bool {
	return e.SigningOrder == SigningOrderSequential
}

// EnvelopeSnapshot is the envelope with its recipients, used for webhook payloads and API responses
type EnvelopeSnapshot struct {
	Envelope
	Recipients []Recipient `json:"recipients"`
	Fields     []Field     `json:"fields,omitempty"`
}

// CreateEnvelopeRequest is the payload for creating a draft envelope
type CreateEnvelopeRequest struct {
	Title                  string                   `json:"title"`
	SigningOrder           SigningOrder             `json:"signing_order"`
	UserID                 int64                    `json:"user_id"`
	TeamID                 *int64                   `json:"team_id,omitempty"`
	Doc                    string                   `json:"doc"` // base64 encoded PDF
	AllowDictateNextSigner bool                     `json:"allow_dictate_next_signer"`
	GlobalActionAuth       []ActionAuth             `json:"global_action_auth,omitempty"`
	Recipients             []CreateRecipientRequest `json:"recipients"`
}

// CreateRecipientRequest describes a recipient and the fields assigned to them
type CreateRecipientRequest struct {
	Name         string               `json:"name"`
	Email        string               `json:"email"`
	Role         RecipientRole        `json:"role"`
	SigningOrder *int                 `json:"signing_order,omitempty"`
	ActionAuth   []ActionAuth         `json:"action_auth,omitempty"`
	Fields       []CreateFieldRequest `json:"fields,omitempty"`
}

// CreateFieldRequest places a field on a page of the envelope document
type CreateFieldRequest struct {
	Type      FieldType `json:"type"`
	Page      int       `json:"page"`
	PositionX float64   `json:"position_x"`
	PositionY float64   `json:"position_y"`
	Width     float64   `json:"width"`
	Height    float64   `json:"height"`
	AutoSign  bool      `json:"autosign"`
	Required  bool      `json:"required"`
}
