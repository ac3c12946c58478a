package usecase

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"signflow/internal/domain/entity"
	"signflow/internal/domain/repository"
	"signflow/internal/domain/signing"
)

const (
	defaultAuditLogLimit = 100
	maxAuditLogLimit     = 500
)

// EnvelopeUsecase manages draft envelopes and exposes their state
type EnvelopeUsecase interface {
	CreateEnvelope(ctx context.Context, req *entity.CreateEnvelopeRequest, meta entity.RequestMetadata) (*entity.EnvelopeSnapshot, error)
	GetEnvelope(ctx context.Context, id int64) (*entity.EnvelopeSnapshot, error)
	ListAuditLogs(ctx context.Context, envelopeID int64, limit int) ([]entity.AuditLogEntry, error)
}

type envelopeUsecase struct {
	store     repository.Store
	inspector PDFInspector
	logger    *zap.Logger
}

func NewEnvelopeUsecase(store repository.Store, inspector PDFInspector, logger *zap.Logger) EnvelopeUsecase {
	return &envelopeUsecase{
		store:     store,
		inspector: inspector,
		logger:    logger,
	}
}

func (u *envelopeUsecase) CreateEnvelope(ctx context.Context, req *entity.CreateEnvelopeRequest, meta entity.RequestMetadata) (*entity.EnvelopeSnapshot, error) {
	u.logger.Info("Creating envelope",
		zap.String("title", req.Title),
		zap.Int("recipients_count", len(req.Recipients)),
		zap.String("request_id", meta.RequestID),
	)

	if err := validateCreateEnvelope(req); err != nil {
		return nil, err
	}

	doc, err := base64.StdEncoding.DecodeString(req.Doc)
	if err != nil {
		return nil, entity.NewValidationError("doc must be base64 encoded")
	}

	pageCount, err := u.inspector.PageCount(doc)
	if err != nil {
		u.logger.Warn("Rejected unreadable document", zap.Error(err))
		return nil, entity.NewValidationError("doc is not a readable PDF")
	}

	for i, r := range req.Recipients {
		for j, f := range r.Fields {
			if f.Page < 1 || f.Page > pageCount {
				return nil, entity.NewValidationError("recipients[%d].fields[%d]: page %d is outside the document (1-%d)", i, j, f.Page, pageCount)
			}
		}
	}

	signingOrder := req.SigningOrder
	if signingOrder == "" {
		signingOrder = entity.SigningOrderParallel
	}

	envelope := &entity.Envelope{
		Title:        strings.TrimSpace(req.Title),
		Status:       entity.EnvelopeStatusDraft,
		SigningOrder: signingOrder,
		UserID:       req.UserID,
		TeamID:       req.TeamID,
		Meta:         entity.EnvelopeMeta{AllowDictateNextSigner: req.AllowDictateNextSigner},
		AuthOptions:  entity.EnvelopeAuthOptions{GlobalActionAuth: req.GlobalActionAuth},
		PageCount:    pageCount,
		DocumentData: doc,
	}

	err = u.store.RunTransaction(ctx, func(q repository.Queries) error {
		if err := q.CreateEnvelope(ctx, envelope); err != nil {
			return fmt.Errorf("failed to create envelope: %w", err)
		}

		for _, r := range req.Recipients {
			role := r.Role
			if role == "" {
				role = entity.RecipientRoleSigner
			}

			recipient := &entity.Recipient{
				EnvelopeID:    envelope.ID,
				Name:          strings.TrimSpace(r.Name),
				Email:         strings.ToLower(strings.TrimSpace(r.Email)),
				Token:         uuid.NewString(),
				Role:          role,
				SigningOrder:  r.SigningOrder,
				SigningStatus: entity.SigningStatusNotSigned,
				SendStatus:    entity.SendStatusNotSent,
				AuthOptions:   entity.RecipientAuthOptions{ActionAuth: r.ActionAuth},
			}
			if err := q.CreateRecipient(ctx, recipient); err != nil {
				return fmt.Errorf("failed to create recipient: %w", err)
			}

			for _, f := range r.Fields {
				field := &entity.Field{
					EnvelopeID:  envelope.ID,
					RecipientID: recipient.ID,
					Type:        f.Type,
					Page:        f.Page,
					PositionX:   f.PositionX,
					PositionY:   f.PositionY,
					Width:       f.Width,
					Height:      f.Height,
					AutoSign:    f.AutoSign,
					Meta:        entity.FieldMeta{Required: f.Required},
				}
				if err := q.CreateField(ctx, field); err != nil {
					return fmt.Errorf("failed to create field: %w", err)
				}
			}
		}
		return nil
	})
	if err != nil {
		u.logger.Error("Failed to create envelope", zap.Error(err))
		return nil, err
	}

	u.logger.Info("Envelope created",
		zap.Int64("envelope_id", envelope.ID),
		zap.Int("page_count", pageCount),
	)

	return loadSnapshot(ctx, u.store, envelope.ID, true)
}

func (u *envelopeUsecase) GetEnvelope(ctx context.Context, id int64) (*entity.EnvelopeSnapshot, error) {
	return loadSnapshot(ctx, u.store, id, true)
}

func (u *envelopeUsecase) ListAuditLogs(ctx context.Context, envelopeID int64, limit int) ([]entity.AuditLogEntry, error) {
	if limit <= 0 {
		limit = defaultAuditLogLimit
	}
	if limit > maxAuditLogLimit {
		limit = maxAuditLogLimit
	}

	envelope, err := u.store.FindEnvelope(ctx, repository.EnvelopeFilter{ID: &envelopeID})
	if err != nil {
		return nil, fmt.Errorf("failed to find envelope: %w", err)
	}
	if envelope == nil {
		return nil, entity.NewNotFoundError("envelope not found")
	}

	logs, err := u.store.ListAuditLogs(ctx, envelopeID, limit)
	if err != nil {
		u.logger.Error("Failed to list audit logs", zap.Int64("envelope_id", envelopeID), zap.Error(err))
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}
	return logs, nil
}

func validateCreateEnvelope(req *entity.CreateEnvelopeRequest) error {
	if strings.TrimSpace(req.Title) == "" {
		return entity.NewValidationError("title is required")
	}
	switch req.SigningOrder {
	case "", entity.SigningOrderParallel, entity.SigningOrderSequential:
	default:
		return entity.NewValidationError("unknown signing order %q", req.SigningOrder)
	}
	if req.Doc == "" {
		return entity.NewValidationError("doc is required")
	}
	if len(req.Recipients) == 0 {
		return entity.NewValidationError("at least one recipient is required")
	}

	seen := make(map[string]bool, len(req.Recipients))
	for i, r := range req.Recipients {
		if addr, err := mail.ParseAddress(r.Email); err != nil || addr.Address != strings.TrimSpace(r.Email) {
			return entity.NewValidationError("recipients[%d]: invalid email %q", i, r.Email)
		}
		email := strings.ToLower(strings.TrimSpace(r.Email))
		if seen[email] {
			return entity.NewValidationError("recipients[%d]: duplicate email %q", i, r.Email)
		}
		seen[email] = true

		switch r.Role {
		case "", entity.RecipientRoleSigner, entity.RecipientRoleApprover, entity.RecipientRoleViewer,
			entity.RecipientRoleAssistant, entity.RecipientRoleCC:
		default:
			return entity.NewValidationError("recipients[%d]: unknown role %q", i, r.Role)
		}
		if r.SigningOrder != nil && *r.SigningOrder < 0 {
			return entity.NewValidationError("recipients[%d]: signing order must not be negative", i)
		}

		for j, f := range r.Fields {
			if !f.Type.IsValid() {
				return entity.NewValidationError("recipients[%d].fields[%d]: unknown field type %q", i, j, f.Type)
			}
			if f.Width <= 0 || f.Height <= 0 || f.PositionX < 0 || f.PositionY < 0 {
				return entity.NewValidationError("recipients[%d].fields[%d]: invalid placement", i, j)
			}
		}
	}
	return nil
}

// loadSnapshot reads the envelope with its recipients in signing order
func loadSnapshot(ctx context.Context, q repository.Queries, envelopeID int64, withFields bool) (*entity.EnvelopeSnapshot, error) {
	envelope, err := q.FindEnvelope(ctx, repository.EnvelopeFilter{ID: &envelopeID})
	if err != nil {
		return nil, fmt.Errorf("failed to find envelope: %w", err)
	}
	if envelope == nil {
		return nil, entity.NewNotFoundError("envelope not found")
	}

	recipients, err := q.FindRecipients(ctx, repository.RecipientFilter{EnvelopeID: envelopeID})
	if err != nil {
		return nil, fmt.Errorf("failed to find recipients: %w", err)
	}

	snapshot := &entity.EnvelopeSnapshot{
		Envelope:   *envelope,
		Recipients: signing.SortBySigningOrder(recipients),
	}

	if withFields {
		fields, err := q.FindFields(ctx, repository.FieldFilter{EnvelopeID: envelopeID})
		if err != nil {
			return nil, fmt.Errorf("failed to find fields: %w", err)
		}
		snapshot.Fields = fields
	}

	return snapshot, nil
}
