package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"signflow/internal/domain/entity"
	"signflow/internal/domain/repository"
	"signflow/internal/domain/signing"
)

// SigningUsecase coordinates recipient actions and the envelope lifecycle
type SigningUsecase interface {
	CompleteRecipientAction(ctx context.Context, token string, req *entity.CompleteRecipientRequest, meta entity.RequestMetadata) (*entity.CompletionResult, error)
	SendDocument(ctx context.Context, envelopeID int64, meta entity.RequestMetadata) (*entity.SendResult, error)
	RejectRecipient(ctx context.Context, token string, req *entity.RejectRecipientRequest, meta entity.RequestMetadata) (*entity.EnvelopeSnapshot, error)
	// RequestSecondFactor issues a one-time code to a recipient whose actions require 2FA
	RequestSecondFactor(ctx context.Context, token string, meta entity.RequestMetadata) error
}

type signingUsecase struct {
	store       repository.Store
	autoSign    AutoSignResolver
	progression ProgressionEngine
	jobs        JobDispatcher
	webhooks    WebhookEmitter
	auth        AuthValidator
	codes       SecondFactorIssuer
	logger      *zap.Logger
}

func NewSigningUsecase(
	store repository.Store,
	autoSign AutoSignResolver,
	progression ProgressionEngine,
	jobs JobDispatcher,
	webhooks WebhookEmitter,
	auth AuthValidator,
	codes SecondFactorIssuer,
	logger *zap.Logger,
) SigningUsecase {
	return &signingUsecase{
		store:       store,
		autoSign:    autoSign,
		progression: progression,
		jobs:        jobs,
		webhooks:    webhooks,
		auth:        auth,
		codes:       codes,
		logger:      logger,
	}
}

func (u *signingUsecase) CompleteRecipientAction(ctx context.Context, token string, req *entity.CompleteRecipientRequest, meta entity.RequestMetadata) (*entity.CompletionResult, error) {
	u.logger.Info("Completing recipient action",
		zap.Int64("envelope_id", req.EnvelopeID),
		zap.String("request_id", meta.RequestID),
	)

	envelope, err := u.findEnvelope(ctx, repository.EnvelopeFilter{ID: &req.EnvelopeID})
	if err != nil {
		return nil, err
	}
	if envelope.Status != entity.EnvelopeStatusPending {
		return nil, entity.NewInvalidStateError("envelope %d is %s, expected %s", envelope.ID, envelope.Status, entity.EnvelopeStatusPending)
	}

	recipients, err := u.store.FindRecipients(ctx, repository.RecipientFilter{EnvelopeID: envelope.ID})
	if err != nil {
		return nil, fmt.Errorf("failed to find recipients: %w", err)
	}
	recipient := recipientByToken(recipients, token)
	if recipient == nil {
		return nil, entity.NewNotFoundError("recipient not found on envelope %d", envelope.ID)
	}
	if recipient.IsTerminal() {
		return nil, entity.NewInvalidStateError("recipient %d has already %s", recipient.ID, strings.ToLower(string(recipient.SigningStatus)))
	}
	if recipient.IsCC() {
		return nil, entity.NewInvalidStateError("CC recipients have no action to complete")
	}
	if envelope.IsSequential() && !isRecipientsTurn(envelope, recipients, recipient) {
		return nil, entity.NewInvalidStateError("it is not recipient %d's turn to sign", recipient.ID)
	}

	if req.NextSigner != nil {
		if !envelope.IsSequential() || !envelope.Meta.AllowDictateNextSigner {
			return nil, entity.NewValidationError("envelope does not allow dictating the next signer")
		}
		if req.NextSigner.Email == "" {
			return nil, entity.NewValidationError("next signer email is required")
		}
	}

	fields, err := u.store.FindFields(ctx, repository.FieldFilter{EnvelopeID: envelope.ID, RecipientID: &recipient.ID})
	if err != nil {
		return nil, fmt.Errorf("failed to find fields: %w", err)
	}
	if signing.HasUnsignedRequiredField(signing.FieldsExcludingAutoSign(fields)) {
		return nil, entity.NewValidationError("recipient %d has unsigned required fields", recipient.ID)
	}

	secondFactorValidated := false
	if signing.RequiresSecondFactor(envelope, recipient) {
		if !u.auth.ValidateSecondFactor(ctx, recipient, req.Auth) {
			u.recordSecondFactorFailure(ctx, envelope, recipient, &meta)
			return nil, entity.NewAuthenticationError("invalid or missing second factor")
		}
		secondFactorValidated = true
	}

	var (
		next          []entity.Recipient
		autoSigned    []int64
		sealRequested bool
	)

	err = u.store.RunTransaction(ctx, func(q repository.Queries) error {
		// Lock the envelope row so concurrent completions observe each other
		if err := lockPendingEnvelope(ctx, q, envelope.ID); err != nil {
			return err
		}

		if secondFactorValidated {
			data := accessAuthData(recipient)
			if err := writeAuditLog(ctx, q, envelope.ID, entity.AuditLogAccessAuth2FAValidated, data, recipient, &meta); err != nil {
				return err
			}
		}

		now := time.Now()
		signed, notSigned := entity.SigningStatusSigned, entity.SigningStatusNotSigned
		err := q.UpdateRecipient(ctx, recipient.ID, repository.RecipientPatch{
			SigningStatus:       &signed,
			SignedAt:            &now,
			ExpectSigningStatus: &notSigned,
		})
		if errors.Is(err, repository.ErrConflict) {
			return entity.NewInvalidStateError("recipient %d has already completed", recipient.ID)
		}
		if err != nil {
			return fmt.Errorf("failed to mark recipient signed: %w", err)
		}

		data := entity.RecipientCompletedData{
			RecipientID:    recipient.ID,
			RecipientEmail: recipient.Email,
			RecipientName:  recipient.Name,
			RecipientRole:  recipient.Role,
			ActionAuth:     signing.DerivedActionAuth(envelope, recipient),
		}
		if err := writeAuditLog(ctx, q, envelope.ID, entity.AuditLogDocumentRecipientCompleted, data, recipient, &meta); err != nil {
			return err
		}

		autoSigned, err = u.autoSign.ResolveAutoSign(ctx, q, envelope.ID)
		if err != nil {
			return fmt.Errorf("failed to resolve auto-sign: %w", err)
		}

		next, err = u.progression.Advance(ctx, q, envelope, recipient, req.NextSigner, &meta)
		if err != nil {
			return err
		}

		sealRequested, err = completeIfDone(ctx, q, envelope.ID)
		return err
	})
	if err != nil {
		u.logger.Error("Failed to complete recipient action",
			zap.Int64("envelope_id", envelope.ID),
			zap.Int64("recipient_id", recipient.ID),
			zap.Error(err),
		)
		return nil, err
	}

	u.enqueue(ctx, entity.JobSendRecipientSignedEmail, entity.RecipientJobPayload{EnvelopeID: envelope.ID, RecipientID: recipient.ID})
	for _, n := range next {
		u.enqueue(ctx, entity.JobSendSigningRequestedEmail, entity.RecipientJobPayload{EnvelopeID: envelope.ID, RecipientID: n.ID})
	}
	if sealRequested {
		u.enqueue(ctx, entity.JobSealDocument, entity.SealDocumentPayload{EnvelopeID: envelope.ID, SendEmail: true})
	}

	snapshot, err := loadSnapshot(ctx, u.store, envelope.ID, false)
	if err != nil {
		return nil, err
	}
	u.emit(ctx, entity.WebhookEventDocumentSigned, snapshot)

	u.logger.Info("Recipient action completed",
		zap.Int64("envelope_id", envelope.ID),
		zap.Int64("recipient_id", recipient.ID),
		zap.Int("next_recipients", len(next)),
		zap.Bool("seal_requested", sealRequested),
	)

	return &entity.CompletionResult{
		Envelope:       *snapshot,
		NextRecipients: next,
		AutoSigned:     autoSigned,
		SealRequested:  sealRequested,
	}, nil
}

func (u *signingUsecase) SendDocument(ctx context.Context, envelopeID int64, meta entity.RequestMetadata) (*entity.SendResult, error) {
	u.logger.Info("Sending document",
		zap.Int64("envelope_id", envelopeID),
		zap.String("request_id", meta.RequestID),
	)

	envelope, err := u.findEnvelope(ctx, repository.EnvelopeFilter{ID: &envelopeID})
	if err != nil {
		return nil, err
	}
	if envelope.Status == entity.EnvelopeStatusCompleted {
		return nil, entity.NewInvalidStateError("envelope %d is already completed", envelope.ID)
	}

	recipients, err := u.store.FindRecipients(ctx, repository.RecipientFilter{EnvelopeID: envelope.ID})
	if err != nil {
		return nil, fmt.Errorf("failed to find recipients: %w", err)
	}
	if len(recipients) == 0 {
		return nil, entity.NewValidationError("envelope %d has no recipients", envelope.ID)
	}

	var (
		notified      []entity.Recipient
		sealRequested bool
	)

	err = u.store.RunTransaction(ctx, func(q repository.Queries) error {
		if envelope.Status == entity.EnvelopeStatusDraft {
			pending, draft := entity.EnvelopeStatusPending, entity.EnvelopeStatusDraft
			err := q.UpdateEnvelope(ctx, envelope.ID, repository.EnvelopePatch{Status: &pending, ExpectStatus: &draft})
			if errors.Is(err, repository.ErrConflict) {
				return entity.NewInvalidStateError("envelope %d was sent concurrently", envelope.ID)
			}
			if err != nil {
				return fmt.Errorf("failed to mark envelope pending: %w", err)
			}

			data := entity.DocumentSentData{Title: envelope.Title, SigningOrder: envelope.SigningOrder}
			if err := writeAuditLog(ctx, q, envelope.ID, entity.AuditLogDocumentSent, data, nil, &meta); err != nil {
				return err
			}
		} else if err := lockPendingEnvelope(ctx, q, envelope.ID); err != nil {
			return err
		}

		current, err := q.FindRecipients(ctx, repository.RecipientFilter{EnvelopeID: envelope.ID})
		if err != nil {
			return fmt.Errorf("failed to reload recipients: %w", err)
		}

		// Nothing left to act on: sending is itself the terminal transition
		if !signing.RequiresAction(current) {
			sealRequested, err = completeIfDone(ctx, q, envelope.ID)
			return err
		}

		notified = signing.RecipientsToNotify(envelope, current)
		sent := entity.SendStatusSent
		for i := range notified {
			if err := q.UpdateRecipient(ctx, notified[i].ID, repository.RecipientPatch{SendStatus: &sent}); err != nil {
				return fmt.Errorf("failed to mark recipient %d as sent: %w", notified[i].ID, err)
			}
			notified[i].SendStatus = sent
		}
		return nil
	})
	if err != nil {
		u.logger.Error("Failed to send document", zap.Int64("envelope_id", envelope.ID), zap.Error(err))
		return nil, err
	}

	snapshot, err := loadSnapshot(ctx, u.store, envelope.ID, false)
	if err != nil {
		return nil, err
	}

	if sealRequested {
		u.enqueue(ctx, entity.JobSealDocument, entity.SealDocumentPayload{EnvelopeID: envelope.ID, SendEmail: true})
	} else {
		for _, recipient := range notified {
			u.enqueue(ctx, entity.JobSendSigningRequestedEmail, entity.RecipientJobPayload{EnvelopeID: envelope.ID, RecipientID: recipient.ID})
		}
		u.emit(ctx, entity.WebhookEventDocumentSent, snapshot)
	}

	u.logger.Info("Document sent",
		zap.Int64("envelope_id", envelope.ID),
		zap.Int("notified", len(notified)),
		zap.Bool("seal_requested", sealRequested),
	)

	return &entity.SendResult{
		Envelope:      *snapshot,
		Notified:      notified,
		SealRequested: sealRequested,
	}, nil
}

func (u *signingUsecase) RejectRecipient(ctx context.Context, token string, req *entity.RejectRecipientRequest, meta entity.RequestMetadata) (*entity.EnvelopeSnapshot, error) {
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, entity.NewValidationError("rejection reason is required")
	}

	envelope, recipient, err := u.findByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if envelope.Status != entity.EnvelopeStatusPending {
		return nil, entity.NewInvalidStateError("envelope %d is %s, expected %s", envelope.ID, envelope.Status, entity.EnvelopeStatusPending)
	}
	if recipient.IsTerminal() {
		return nil, entity.NewInvalidStateError("recipient %d has already %s", recipient.ID, strings.ToLower(string(recipient.SigningStatus)))
	}
	if recipient.IsCC() {
		return nil, entity.NewInvalidStateError("CC recipients cannot reject")
	}

	u.logger.Info("Rejecting envelope",
		zap.Int64("envelope_id", envelope.ID),
		zap.Int64("recipient_id", recipient.ID),
		zap.String("request_id", meta.RequestID),
	)

	err = u.store.RunTransaction(ctx, func(q repository.Queries) error {
		if err := lockPendingEnvelope(ctx, q, envelope.ID); err != nil {
			return err
		}

		now := time.Now()
		rejected, notSigned := entity.SigningStatusRejected, entity.SigningStatusNotSigned
		err := q.UpdateRecipient(ctx, recipient.ID, repository.RecipientPatch{
			SigningStatus:       &rejected,
			SignedAt:            &now,
			RejectionReason:     &reason,
			ExpectSigningStatus: &notSigned,
		})
		if errors.Is(err, repository.ErrConflict) {
			return entity.NewInvalidStateError("recipient %d has already completed", recipient.ID)
		}
		if err != nil {
			return fmt.Errorf("failed to mark recipient rejected: %w", err)
		}

		data := entity.RecipientRejectedData{
			RecipientID:    recipient.ID,
			RecipientEmail: recipient.Email,
			RecipientName:  recipient.Name,
			RecipientRole:  recipient.Role,
			Reason:         reason,
		}
		return writeAuditLog(ctx, q, envelope.ID, entity.AuditLogDocumentRecipientRejected, data, recipient, &meta)
	})
	if err != nil {
		u.logger.Error("Failed to reject envelope", zap.Int64("envelope_id", envelope.ID), zap.Error(err))
		return nil, err
	}

	u.enqueue(ctx, entity.JobSendSigningRejectedEmails, entity.RecipientJobPayload{EnvelopeID: envelope.ID, RecipientID: recipient.ID})

	snapshot, err := loadSnapshot(ctx, u.store, envelope.ID, false)
	if err != nil {
		return nil, err
	}
	u.emit(ctx, entity.WebhookEventDocumentRejected, snapshot)

	return snapshot, nil
}

func (u *signingUsecase) RequestSecondFactor(ctx context.Context, token string, meta entity.RequestMetadata) error {
	envelope, recipient, err := u.findByToken(ctx, token)
	if err != nil {
		return err
	}
	if envelope.Status != entity.EnvelopeStatusPending {
		return entity.NewInvalidStateError("envelope %d is %s, expected %s", envelope.ID, envelope.Status, entity.EnvelopeStatusPending)
	}
	if recipient.IsTerminal() {
		return entity.NewInvalidStateError("recipient %d has already %s", recipient.ID, strings.ToLower(string(recipient.SigningStatus)))
	}
	if !signing.RequiresSecondFactor(envelope, recipient) {
		return entity.NewValidationError("recipient %d does not require two-factor authentication", recipient.ID)
	}

	code, err := u.codes.IssueCode(ctx, recipient)
	if err != nil {
		return fmt.Errorf("failed to issue second factor code: %w", err)
	}

	if err := writeAuditLog(ctx, u.store, envelope.ID, entity.AuditLogAccessAuth2FARequested, accessAuthData(recipient), recipient, &meta); err != nil {
		return err
	}

	payload := entity.SecondFactorCodePayload{
		EnvelopeID:  envelope.ID,
		RecipientID: recipient.ID,
		Email:       recipient.Email,
		Code:        code,
	}
	if err := u.jobs.Enqueue(ctx, entity.JobSendSecondFactorCodeEmail, payload); err != nil {
		return fmt.Errorf("failed to enqueue second factor email: %w", err)
	}

	u.logger.Info("Second factor requested",
		zap.Int64("envelope_id", envelope.ID),
		zap.Int64("recipient_id", recipient.ID),
	)
	return nil
}

// recordSecondFactorFailure commits the failed attempt on its own, since the action itself is aborted
func (u *signingUsecase) recordSecondFactorFailure(ctx context.Context, envelope *entity.Envelope, recipient *entity.Recipient, meta *entity.RequestMetadata) {
	u.logger.Warn("Second factor validation failed",
		zap.Int64("envelope_id", envelope.ID),
		zap.Int64("recipient_id", recipient.ID),
		zap.String("ip_address", meta.IPAddress),
	)

	if err := writeAuditLog(ctx, u.store, envelope.ID, entity.AuditLogAccessAuth2FAFailed, accessAuthData(recipient), recipient, meta); err != nil {
		u.logger.Error("Failed to record second factor failure", zap.Error(err))
	}
}

func (u *signingUsecase) findEnvelope(ctx context.Context, filter repository.EnvelopeFilter) (*entity.Envelope, error) {
	envelope, err := u.store.FindEnvelope(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find envelope: %w", err)
	}
	if envelope == nil {
		return nil, entity.NewNotFoundError("envelope not found")
	}
	return envelope, nil
}

func (u *signingUsecase) findByToken(ctx context.Context, token string) (*entity.Envelope, *entity.Recipient, error) {
	envelope, err := u.findEnvelope(ctx, repository.EnvelopeFilter{RecipientToken: token})
	if err != nil {
		return nil, nil, err
	}

	recipients, err := u.store.FindRecipients(ctx, repository.RecipientFilter{EnvelopeID: envelope.ID, Token: token})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find recipient: %w", err)
	}
	if len(recipients) == 0 {
		return nil, nil, entity.NewNotFoundError("recipient not found")
	}
	return envelope, &recipients[0], nil
}

// enqueue dispatches a post-commit job. The state change is already durable, so a
// dispatch failure is logged rather than returned.
func (u *signingUsecase) enqueue(ctx context.Context, name string, payload interface{}) {
	if err := u.jobs.Enqueue(ctx, name, payload); err != nil {
		u.logger.Error("Failed to enqueue job", zap.String("job", name), zap.Error(err))
	}
}

func (u *signingUsecase) emit(ctx context.Context, event entity.WebhookEvent, snapshot *entity.EnvelopeSnapshot) {
	scope := entity.WebhookScope{UserID: snapshot.UserID, TeamID: snapshot.TeamID}
	if err := u.webhooks.Emit(ctx, event, snapshot, scope); err != nil {
		u.logger.Error("Failed to emit webhook", zap.String("event", string(event)), zap.Error(err))
	}
}

func recipientByToken(recipients []entity.Recipient, token string) *entity.Recipient {
	for i := range recipients {
		if recipients[i].Token == token {
			r := recipients[i]
			return &r
		}
	}
	return nil
}

func accessAuthData(recipient *entity.Recipient) entity.AccessAuthData {
	return entity.AccessAuthData{
		RecipientID:    recipient.ID,
		RecipientEmail: recipient.Email,
		RecipientName:  recipient.Name,
	}
}

// lockPendingEnvelope touches the envelope row, failing if it is no longer PENDING
func lockPendingEnvelope(ctx context.Context, q repository.Queries, envelopeID int64) error {
	pending := entity.EnvelopeStatusPending
	err := q.UpdateEnvelope(ctx, envelopeID, repository.EnvelopePatch{ExpectStatus: &pending})
	if errors.Is(err, repository.ErrConflict) {
		return entity.NewInvalidStateError("envelope %d is no longer pending", envelopeID)
	}
	if err != nil {
		return fmt.Errorf("failed to lock envelope: %w", err)
	}
	return nil
}

// completeIfDone moves the envelope to COMPLETED once every recipient is CC or signed.
// It reports true only for the caller that performed the transition.
func completeIfDone(ctx context.Context, q repository.Queries, envelopeID int64) (bool, error) {
	recipients, err := q.FindRecipients(ctx, repository.RecipientFilter{EnvelopeID: envelopeID})
	if err != nil {
		return false, fmt.Errorf("failed to reload recipients: %w", err)
	}
	if !signing.IsComplete(recipients) {
		return false, nil
	}

	now := time.Now()
	completed, pending := entity.EnvelopeStatusCompleted, entity.EnvelopeStatusPending
	err = q.UpdateEnvelope(ctx, envelopeID, repository.EnvelopePatch{
		Status:       &completed,
		CompletedAt:  &now,
		ExpectStatus: &pending,
	})
	if errors.Is(err, repository.ErrConflict) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to complete envelope: %w", err)
	}
	return true, nil
}
