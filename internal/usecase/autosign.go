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

const autoSignDateLayout = "2006-01-02"

// AutoSignResolver fills pending auto-sign fields and completes the recipients they unblock
type AutoSignResolver interface {
	// ResolveAutoSign runs inside the caller's transaction and returns the IDs of
	// recipients that owned at least one auto-signed field, in processing order
	ResolveAutoSign(ctx context.Context, q repository.Queries, envelopeID int64) ([]int64, error)
}

type autoSignResolver struct {
	logger *zap.Logger
}

func NewAutoSignResolver(logger *zap.Logger) AutoSignResolver {
	return &autoSignResolver{logger: logger}
}

func (r *autoSignResolver) ResolveAutoSign(ctx context.Context, q repository.Queries, envelopeID int64) ([]int64, error) {
	autoSign, inserted := true, false
	fields, err := q.FindFields(ctx, repository.FieldFilter{
		EnvelopeID: envelopeID,
		AutoSign:   &autoSign,
		Inserted:   &inserted,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load auto-sign fields: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}

	recipients, err := q.FindRecipients(ctx, repository.RecipientFilter{EnvelopeID: envelopeID})
	if err != nil {
		return nil, fmt.Errorf("failed to load recipients: %w", err)
	}
	byID := make(map[int64]entity.Recipient, len(recipients))
	for _, recipient := range recipients {
		byID[recipient.ID] = recipient
	}

	now := time.Now()
	touched := make([]int64, 0)
	seen := make(map[int64]bool)

	for _, field := range fields {
		recipient, ok := byID[field.RecipientID]
		if !ok {
			return nil, fmt.Errorf("field %d references unknown recipient %d", field.ID, field.RecipientID)
		}
		// Rejected recipients accept no further edits
		if recipient.SigningStatus == entity.SigningStatusRejected {
			continue
		}

		if err := r.insertField(ctx, q, field, &recipient, now); err != nil {
			return nil, err
		}

		if !seen[recipient.ID] {
			seen[recipient.ID] = true
			touched = append(touched, recipient.ID)
		}
	}

	for _, recipientID := range touched {
		recipient := byID[recipientID]
		if err := r.completeIfReady(ctx, q, envelopeID, &recipient, now); err != nil {
			return nil, err
		}
	}

	r.logger.Info("Auto-sign resolved",
		zap.Int64("envelope_id", envelopeID),
		zap.Int("fields", len(fields)),
		zap.Int64s("recipients", touched),
	)

	return touched, nil
}

func (r *autoSignResolver) insertField(ctx context.Context, q repository.Queries, field entity.Field, recipient *entity.Recipient, now time.Time) error {
	value := autoSignValue(field.Type, recipient, now)

	if field.Type.IsSignatureType() {
		signature := &entity.Signature{
			FieldID:        field.ID,
			RecipientID:    recipient.ID,
			TypedSignature: value,
		}
		if err := q.CreateSignature(ctx, signature); err != nil {
			return fmt.Errorf("failed to create signature for field %d: %w", field.ID, err)
		}
	}

	inserted := true
	patch := repository.FieldPatch{Inserted: &inserted}
	if !field.Type.IsSignatureType() && value != "" {
		patch.CustomText = &value
	}
	if err := q.UpdateField(ctx, field.ID, patch); err != nil {
		return fmt.Errorf("failed to mark field %d inserted: %w", field.ID, err)
	}

	data := entity.FieldInsertedData{
		FieldID:        field.ID,
		FieldType:      field.Type,
		RecipientID:    recipient.ID,
		RecipientEmail: recipient.Email,
		RecipientName:  recipient.Name,
		RecipientRole:  recipient.Role,
		Value:          value,
	}
	return writeAuditLog(ctx, q, field.EnvelopeID, entity.AuditLogDocumentFieldInserted, data, recipient, nil)
}

func (r *autoSignResolver) completeIfReady(ctx context.Context, q repository.Queries, envelopeID int64, recipient *entity.Recipient, now time.Time) error {
	current, err := q.FindRecipients(ctx, repository.RecipientFilter{EnvelopeID: envelopeID, ID: &recipient.ID})
	if err != nil {
		return fmt.Errorf("failed to reload recipient %d: %w", recipient.ID, err)
	}
	if len(current) == 0 {
		return fmt.Errorf("recipient %d disappeared during auto-sign", recipient.ID)
	}
	*recipient = current[0]

	if recipient.SigningStatus != entity.SigningStatusNotSigned {
		return nil
	}

	fields, err := q.FindFields(ctx, repository.FieldFilter{EnvelopeID: envelopeID, RecipientID: &recipient.ID})
	if err != nil {
		return fmt.Errorf("failed to load fields of recipient %d: %w", recipient.ID, err)
	}
	if signing.HasUnsignedRequiredField(fields) {
		return nil
	}

	signed, notSigned := entity.SigningStatusSigned, entity.SigningStatusNotSigned
	err = q.UpdateRecipient(ctx, recipient.ID, repository.RecipientPatch{
		SigningStatus:       &signed,
		SignedAt:            &now,
		ExpectSigningStatus: &notSigned,
	})
	if errors.Is(err, repository.ErrConflict) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to complete recipient %d: %w", recipient.ID, err)
	}

	data := entity.RecipientCompletedData{
		RecipientID:    recipient.ID,
		RecipientEmail: recipient.Email,
		RecipientName:  recipient.Name,
		RecipientRole:  recipient.Role,
	}
	return writeAuditLog(ctx, q, envelopeID, entity.AuditLogDocumentRecipientCompleted, data, recipient, nil)
}

// autoSignValue is what the system writes into an auto-signed field
func autoSignValue(fieldType entity.FieldType, recipient *entity.Recipient, now time.Time) string {
	switch fieldType {
	case entity.FieldTypeSignature, entity.FieldTypeFreeSignature, entity.FieldTypeName:
		return recipient.DisplayName()
	case entity.FieldTypeInitials:
		return initials(recipient.DisplayName())
	case entity.FieldTypeEmail:
		return recipient.Email
	case entity.FieldTypeDate:
		return now.Format(autoSignDateLayout)
	default:
		return ""
	}
}

func initials(name string) string {
	result := make([]rune, 0, 3)
	startOfWord := true
	for _, r := range name {
		switch {
		case r == ' ' || r == '.' || r == '-' || r == '@':
			startOfWord = true
		case startOfWord:
			result = append(result, r)
			startOfWord = false
		}
	}
	return strings.ToUpper(string(result))
}
