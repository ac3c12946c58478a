package repository

import (
	"context"
	"errors"
	"time"

	"signflow/internal/domain/entity"
)

// ErrNotFound is returned by updates that target a missing row
var ErrNotFound = errors.New("record not found")

// ErrConflict is returned by guarded updates whose expected state no longer holds
var ErrConflict = errors.New("conflicting update: row is no longer in the expected state")

// EnvelopeFilter selects one envelope
type EnvelopeFilter struct {
	ID *int64
	// RecipientToken finds the envelope owning the recipient with this token
	RecipientToken string
}

// RecipientFilter selects recipients; zero values are ignored
type RecipientFilter struct {
	EnvelopeID int64
	ID         *int64
	Token      string
}

// FieldFilter selects fields; nil pointers are ignored
type FieldFilter struct {
	EnvelopeID  int64
	RecipientID *int64
	AutoSign    *bool
	Inserted    *bool
}

// EnvelopePatch updates an envelope. ExpectStatus makes the update conditional.
type EnvelopePatch struct {
	Status       *entity.EnvelopeStatus
	CompletedAt  *time.Time
	ExpectStatus *entity.EnvelopeStatus
}

// RecipientPatch updates a recipient. ExpectSigningStatus makes the update conditional.
type RecipientPatch struct {
	Name                *string
	Email               *string
	SigningStatus       *entity.SigningStatus
	SendStatus          *entity.SendStatus
	SignedAt            *time.Time
	RejectionReason     *string
	ExpectSigningStatus *entity.SigningStatus
}

// FieldPatch updates a field
type FieldPatch struct {
	Inserted   *bool
	CustomText *string
}

// OperationKind tags an entry of the transaction journal
type OperationKind string

const (
	OpUpdateEnvelope  OperationKind = "update_envelope"
	OpUpdateRecipient OperationKind = "update_recipient"
	OpUpdateField     OperationKind = "update_field"
	OpCreateSignature OperationKind = "create_signature"
	OpCreateAuditLog  OperationKind = "create_audit_log"
	OpCreateEnvelope  OperationKind = "create_envelope"
	OpCreateRecipient OperationKind = "create_recipient"
	OpCreateField     OperationKind = "create_field"
)

// Operation is one write recorded by a transaction
type Operation struct {
	Kind     OperationKind
	TargetID int64
}

// Queries are the reads and writes available inside and outside a transaction
type Queries interface {
	FindEnvelope(ctx context.Context, filter EnvelopeFilter) (*entity.Envelope, error)
	FindRecipients(ctx context.Context, filter RecipientFilter) ([]entity.Recipient, error)
	FindFields(ctx context.Context, filter FieldFilter) ([]entity.Field, error)

	UpdateEnvelope(ctx context.Context, id int64, patch EnvelopePatch) error
	UpdateRecipient(ctx context.Context, id int64, patch RecipientPatch) error
	UpdateField(ctx context.Context, id int64, patch FieldPatch) error
	CreateSignature(ctx context.Context, signature *entity.Signature) error
	CreateAuditLogEntry(ctx context.Context, entry *entity.AuditLogEntry) error

	CreateEnvelope(ctx context.Context, envelope *entity.Envelope) error
	CreateRecipient(ctx context.Context, recipient *entity.Recipient) error
	CreateField(ctx context.Context, field *entity.Field) error

	// Operations returns the writes recorded so far, in order
	Operations() []Operation
}

// Store is the persistence boundary of the signing core
type Store interface {
	Queries

	// RunTransaction executes fn atomically: every write made through q commits together,
	// or none does if fn returns an error
	RunTransaction(ctx context.Context, fn func(q Queries) error) error

	ListAuditLogs(ctx context.Context, envelopeID int64, limit int) ([]entity.AuditLogEntry, error)
}
