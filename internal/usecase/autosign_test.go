package usecase

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"signflow/internal/domain/entity"
	"signflow/internal/domain/repository"
)

func resolveInTransaction(t *testing.T, store repository.Store, envelopeID int64) ([]int64, []repository.Operation) {
	t.Helper()
	resolver := NewAutoSignResolver(zap.NewNop())

	var (
		touched []int64
		ops     []repository.Operation
	)
	err := store.RunTransaction(context.Background(), func(q repository.Queries) error {
		var err error
		touched, err = resolver.ResolveAutoSign(context.Background(), q, envelopeID)
		ops = q.Operations()
		return err
	})
	require.NoError(t, err)
	return touched, ops
}

func TestResolveAutoSign_Idempotent(t *testing.T) {
	f := newFixture(t)
	envelope, recipients := f.seed(t, envelopeSpec{
		Recipients: []recipientSpec{
			{Name: "Robo Signer", Email: "robo@example.com", Fields: []entity.Field{
				autoSignField(entity.FieldTypeSignature),
				autoSignField(entity.FieldTypeInitials),
				autoSignField(entity.FieldTypeEmail),
			}},
			{Name: "Human", Email: "human@example.com", Fields: []entity.Field{signatureField()}},
		},
	})

	touched, ops := resolveInTransaction(t, f.store, envelope.ID)
	assert.Equal(t, []int64{recipients[0].ID}, touched)

	kinds := make([]repository.OperationKind, 0, len(ops))
	for _, op := range ops {
		kinds = append(kinds, op.Kind)
	}
	assert.Equal(t, []repository.OperationKind{
		repository.OpCreateSignature, repository.OpUpdateField, repository.OpCreateAuditLog,
		repository.OpUpdateField, repository.OpCreateAuditLog,
		repository.OpUpdateField, repository.OpCreateAuditLog,
		repository.OpUpdateRecipient, repository.OpCreateAuditLog,
	}, kinds)

	assert.Equal(t, entity.SigningStatusSigned, f.recipient(t, recipients[0].ID).SigningStatus)
	assert.Equal(t, entity.SigningStatusNotSigned, f.recipient(t, recipients[1].ID).SigningStatus)
	before := f.auditTypes(t, envelope.ID)

	touched, ops = resolveInTransaction(t, f.store, envelope.ID)
	assert.Empty(t, touched)
	assert.Empty(t, ops)
	assert.Equal(t, before, f.auditTypes(t, envelope.ID))

	fields, err := f.store.FindFields(context.Background(), repository.FieldFilter{EnvelopeID: envelope.ID, RecipientID: &recipients[0].ID})
	require.NoError(t, err)
	values := map[entity.FieldType]string{}
	for _, field := range fields {
		assert.True(t, field.Inserted)
		values[field.Type] = field.CustomText
	}
	assert.Equal(t, "RS", values[entity.FieldTypeInitials])
	assert.Equal(t, "robo@example.com", values[entity.FieldTypeEmail])
	assert.Empty(t, values[entity.FieldTypeSignature], "signature values live in the signature record")
}

func TestResolveAutoSign_LeavesBlockedRecipientsPending(t *testing.T) {
	f := newFixture(t)
	envelope, recipients := f.seed(t, envelopeSpec{
		Recipients: []recipientSpec{
			{Email: "mixed@example.com", Fields: []entity.Field{
				autoSignField(entity.FieldTypeSignature),
				{Type: entity.FieldTypeDate, Page: 1},
			}},
		},
	})

	touched, _ := resolveInTransaction(t, f.store, envelope.ID)
	assert.Equal(t, []int64{recipients[0].ID}, touched)

	assert.Equal(t, entity.SigningStatusNotSigned, f.recipient(t, recipients[0].ID).SigningStatus)
	assert.Empty(t, f.auditLogs(t, envelope.ID, entity.AuditLogDocumentRecipientCompleted))
	assert.Len(t, f.auditLogs(t, envelope.ID, entity.AuditLogDocumentFieldInserted), 1)
}

func TestResolveAutoSign_SkipsRejectedRecipients(t *testing.T) {
	f := newFixture(t)
	envelope, recipients := f.seed(t, envelopeSpec{
		Recipients: []recipientSpec{
			{Email: "gone@example.com", Status: entity.SigningStatusRejected, Fields: []entity.Field{autoSignField(entity.FieldTypeSignature)}},
		},
	})

	touched, ops := resolveInTransaction(t, f.store, envelope.ID)
	assert.Empty(t, touched)
	assert.Empty(t, ops)
	assert.Equal(t, entity.SigningStatusRejected, f.recipient(t, recipients[0].ID).SigningStatus)
}

func TestResolveAutoSign_SystemEntriesCarryNoRequester(t *testing.T) {
	f := newFixture(t)
	envelope, _ := f.seed(t, envelopeSpec{
		Recipients: []recipientSpec{
			{Name: "Robo", Email: "robo@example.com", Fields: []entity.Field{autoSignField(entity.FieldTypeFreeSignature)}},
		},
	})

	resolveInTransaction(t, f.store, envelope.ID)

	logs, err := f.store.ListAuditLogs(context.Background(), envelope.ID, 10)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	for _, log := range logs {
		assert.Empty(t, log.IPAddress)
		assert.Empty(t, log.UserAgent)
		assert.Nil(t, log.UserID)
		assert.Equal(t, "robo@example.com", log.Email)
	}

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(logs[1].Data, &raw))
	assert.NotContains(t, raw, "action_auth")
}

func TestAutoSignValue(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	named := &entity.Recipient{Name: "Mary-Jane Watson", Email: "mj@example.com"}
	anonymous := &entity.Recipient{Email: "mj@example.com"}

	tests := []struct {
		fieldType entity.FieldType
		recipient *entity.Recipient
		expected  string
	}{
		{entity.FieldTypeSignature, named, "Mary-Jane Watson"},
		{entity.FieldTypeSignature, anonymous, "mj@example.com"},
		{entity.FieldTypeName, named, "Mary-Jane Watson"},
		{entity.FieldTypeInitials, named, "MJW"},
		{entity.FieldTypeEmail, named, "mj@example.com"},
		{entity.FieldTypeDate, named, "2026-03-14"},
		{entity.FieldTypeCheckbox, named, ""},
	}

	for _, tt := range tests {
		t.Run(string(tt.fieldType), func(t *testing.T) {
			assert.Equal(t, tt.expected, autoSignValue(tt.fieldType, tt.recipient, now))
		})
	}
}
