package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"signflow/internal/domain/entity"
	"signflow/internal/domain/repository"
	"signflow/internal/domain/signing"
)

// ProgressionEngine decides who may act next on an envelope and advances the signing turn
type ProgressionEngine interface {
	// IsRecipientsTurn reports whether the recipient holding token is the active recipient
	// of its envelope. Parallel envelopes always admit any pending recipient.
	IsRecipientsTurn(ctx context.Context, token string) (bool, error)
	// Advance runs inside the caller's transaction after a recipient completes. It marks the
	// recipients that should now be notified as SENT and returns them.
	Advance(ctx context.Context, q repository.Queries, envelope *entity.Envelope, completed *entity.Recipient, override *entity.NextSigner, meta *entity.RequestMetadata) ([]entity.Recipient, error)
}

type progressionEngine struct {
	store  repository.Store
	logger *zap.Logger
}

func NewProgressionEngine(store repository.Store, logger *zap.Logger) ProgressionEngine {
	return &progressionEngine{
		store:  store,
		logger: logger,
	}
}

func (p *progressionEngine) IsRecipientsTurn(ctx context.Context, token string) (bool, error) {
	envelope, err := p.store.FindEnvelope(ctx, repository.EnvelopeFilter{RecipientToken: token})
	if err != nil {
		return false, fmt.Errorf("failed to find envelope: %w", err)
	}
	if envelope == nil {
		return false, entity.NewNotFoundError("recipient not found")
	}

	recipients, err := p.store.FindRecipients(ctx, repository.RecipientFilter{EnvelopeID: envelope.ID})
	if err != nil {
		return false, fmt.Errorf("failed to find recipients: %w", err)
	}

	var recipient *entity.Recipient
	for i := range recipients {
		if recipients[i].Token == token {
			recipient = &recipients[i]
			break
		}
	}
	if recipient == nil {
		return false, entity.NewNotFoundError("recipient not found")
	}

	return isRecipientsTurn(envelope, recipients, recipient), nil
}

func isRecipientsTurn(envelope *entity.Envelope, recipients []entity.Recipient, recipient *entity.Recipient) bool {
	if recipient.IsCC() || recipient.IsTerminal() {
		return false
	}
	if !envelope.IsSequential() {
		return true
	}

	active := signing.ActiveRecipient(recipients)
	return active != nil && active.ID == recipient.ID
}

func (p *progressionEngine) Advance(ctx context.Context, q repository.Queries, envelope *entity.Envelope, completed *entity.Recipient, override *entity.NextSigner, meta *entity.RequestMetadata) ([]entity.Recipient, error) {
	recipients, err := q.FindRecipients(ctx, repository.RecipientFilter{EnvelopeID: envelope.ID})
	if err != nil {
		return nil, fmt.Errorf("failed to reload recipients: %w", err)
	}

	next := signing.RecipientsToNotify(envelope, recipients)
	if len(next) == 0 {
		p.logger.Debug("No recipient to advance to",
			zap.Int64("envelope_id", envelope.ID),
			zap.Int64("completed_recipient_id", completed.ID),
		)
		return nil, nil
	}

	if envelope.IsSequential() && override != nil {
		if !envelope.Meta.AllowDictateNextSigner {
			return nil, entity.NewValidationError("envelope does not allow dictating the next signer")
		}
		if err := p.dictateNextSigner(ctx, q, envelope, &next[0], override, meta); err != nil {
			return nil, err
		}
	}

	sent := entity.SendStatusSent
	for i := range next {
		if err := q.UpdateRecipient(ctx, next[i].ID, repository.RecipientPatch{SendStatus: &sent}); err != nil {
			return nil, fmt.Errorf("failed to mark recipient %d as sent: %w", next[i].ID, err)
		}
		next[i].SendStatus = sent
	}

	p.logger.Info("Signing advanced",
		zap.Int64("envelope_id", envelope.ID),
		zap.Int64("completed_recipient_id", completed.ID),
		zap.Int("next_recipients", len(next)),
	)

	return next, nil
}

// dictateNextSigner rewrites the next recipient as chosen by the completing signer
func (p *progressionEngine) dictateNextSigner(ctx context.Context, q repository.Queries, envelope *entity.Envelope, next *entity.Recipient, override *entity.NextSigner, meta *entity.RequestMetadata) error {
	changes := make([]entity.RecipientUpdatedChange, 0, 2)
	patch := repository.RecipientPatch{}

	if override.Name != "" && override.Name != next.Name {
		changes = append(changes, entity.RecipientUpdatedChange{Type: "NAME", From: next.Name, To: override.Name})
		name := override.Name
		patch.Name = &name
	}
	if override.Email != "" && override.Email != next.Email {
		changes = append(changes, entity.RecipientUpdatedChange{Type: "EMAIL", From: next.Email, To: override.Email})
		email := override.Email
		patch.Email = &email
	}
	if len(changes) == 0 {
		return nil
	}

	if err := q.UpdateRecipient(ctx, next.ID, patch); err != nil {
		return fmt.Errorf("failed to update next signer: %w", err)
	}

	data := entity.RecipientUpdatedData{
		RecipientID:    next.ID,
		RecipientEmail: next.Email,
		RecipientName:  next.Name,
		Changes:        changes,
	}
	if err := writeAuditLog(ctx, q, envelope.ID, entity.AuditLogRecipientUpdated, data, next, meta); err != nil {
		return err
	}

	if patch.Name != nil {
		next.Name = *patch.Name
	}
	if patch.Email != nil {
		next.Email = *patch.Email
	}

	p.logger.Info("Next signer dictated",
		zap.Int64("envelope_id", envelope.ID),
		zap.Int64("recipient_id", next.ID),
	)
	return nil
}
