package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"signflow/internal/domain/entity"
	"signflow/internal/domain/repository"
)

// memoryState is one consistent snapshot of every table
type memoryState struct {
	envelopes  map[int64]entity.Envelope
	recipients map[int64]entity.Recipient
	fields     map[int64]entity.Field
	signatures map[int64]entity.Signature
	auditLogs  []entity.AuditLogEntry
	nextID     int64
}

func newMemoryState() *memoryState {
	return &memoryState{
		envelopes:  make(map[int64]entity.Envelope),
		recipients: make(map[int64]entity.Recipient),
		fields:     make(map[int64]entity.Field),
		signatures: make(map[int64]entity.Signature),
	}
}

func (s *memoryState) clone() *memoryState {
	c := &memoryState{
		envelopes:  make(map[int64]entity.Envelope, len(s.envelopes)),
		recipients: make(map[int64]entity.Recipient, len(s.recipients)),
		fields:     make(map[int64]entity.Field, len(s.fields)),
		signatures: make(map[int64]entity.Signature, len(s.signatures)),
		auditLogs:  make([]entity.AuditLogEntry, len(s.auditLogs)),
		nextID:     s.nextID,
	}
	for k, v := range s.envelopes {
		c.envelopes[k] = v
	}
	for k, v := range s.recipients {
		c.recipients[k] = v
	}
	for k, v := range s.fields {
		c.fields[k] = v
	}
	for k, v := range s.signatures {
		c.signatures[k] = v
	}
	copy(c.auditLogs, s.auditLogs)
	return c
}

func (s *memoryState) id() int64 {
	s.nextID++
	return s.nextID
}

type memoryStore struct {
	mu     sync.Mutex
	state  *memoryState
	now    func() time.Time
	logger *zap.Logger
}

// NewMemoryStore returns a Store kept in process memory. Transactions hold an exclusive
// lock and work on a copy of the state that replaces the original only on commit.
func NewMemoryStore(logger *zap.Logger) repository.Store {
	return &memoryStore{
		state:  newMemoryState(),
		now:    time.Now,
		logger: logger,
	}
}

func (s *memoryStore) queries() *memoryQueries {
	return &memoryQueries{state: s.state, now: s.now}
}

func (s *memoryStore) RunTransaction(ctx context.Context, fn func(q repository.Queries) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := &memoryQueries{state: s.state.clone(), now: s.now}
	if err := fn(q); err != nil {
		s.logger.Debug("Transaction rolled back",
			zap.Int("operations", len(q.ops)),
			zap.Error(err),
		)
		return err
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.state = q.state
	s.logger.Debug("Transaction committed", zap.Int("operations", len(q.ops)))
	return nil
}

func (s *memoryStore) FindEnvelope(ctx context.Context, filter repository.EnvelopeFilter) (*entity.Envelope, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries().FindEnvelope(ctx, filter)
}

func (s *memoryStore) FindRecipients(ctx context.Context, filter repository.RecipientFilter) ([]entity.Recipient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries().FindRecipients(ctx, filter)
}

func (s *memoryStore) FindFields(ctx context.Context, filter repository.FieldFilter) ([]entity.Field, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries().FindFields(ctx, filter)
}

func (s *memoryStore) UpdateEnvelope(ctx context.Context, id int64, patch repository.EnvelopePatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries().UpdateEnvelope(ctx, id, patch)
}

func (s *memoryStore) UpdateRecipient(ctx context.Context, id int64, patch repository.RecipientPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries().UpdateRecipient(ctx, id, patch)
}

func (s *memoryStore) UpdateField(ctx context.Context, id int64, patch repository.FieldPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries().UpdateField(ctx, id, patch)
}

func (s *memoryStore) CreateSignature(ctx context.Context, signature *entity.Signature) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries().CreateSignature(ctx, signature)
}

func (s *memoryStore) CreateAuditLogEntry(ctx context.Context, entry *entity.AuditLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries().CreateAuditLogEntry(ctx, entry)
}

func (s *memoryStore) CreateEnvelope(ctx context.Context, envelope *entity.Envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries().CreateEnvelope(ctx, envelope)
}

func (s *memoryStore) CreateRecipient(ctx context.Context, recipient *entity.Recipient) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries().CreateRecipient(ctx, recipient)
}

func (s *memoryStore) CreateField(ctx context.Context, field *entity.Field) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries().CreateField(ctx, field)
}

// Operations is always empty outside a transaction
func (s *memoryStore) Operations() []repository.Operation {
	return nil
}

func (s *memoryStore) ListAuditLogs(ctx context.Context, envelopeID int64, limit int) ([]entity.AuditLogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make([]entity.AuditLogEntry, 0)
	for _, entry := range s.state.auditLogs {
		if entry.EnvelopeID == envelopeID {
			entries = append(entries, entry)
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].CreatedAt.Before(entries[j].CreatedAt)
		}
		return entries[i].ID < entries[j].ID
	})

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// memoryQueries operates on one state snapshot and journals every write
type memoryQueries struct {
	state *memoryState
	ops   []repository.Operation
	now   func() time.Time
}

func (q *memoryQueries) record(kind repository.OperationKind, id int64) {
	q.ops = append(q.ops, repository.Operation{Kind: kind, TargetID: id})
}

func (q *memoryQueries) Operations() []repository.Operation {
	return q.ops
}

func (q *memoryQueries) FindEnvelope(_ context.Context, filter repository.EnvelopeFilter) (*entity.Envelope, error) {
	if filter.ID != nil {
		envelope, ok := q.state.envelopes[*filter.ID]
		if !ok {
			return nil, nil
		}
		return &envelope, nil
	}

	if filter.RecipientToken != "" {
		for _, recipient := range q.state.recipients {
			if recipient.Token == filter.RecipientToken {
				envelope, ok := q.state.envelopes[recipient.EnvelopeID]
				if !ok {
					return nil, nil
				}
				return &envelope, nil
			}
		}
	}

	return nil, nil
}

func (q *memoryQueries) FindRecipients(_ context.Context, filter repository.RecipientFilter) ([]entity.Recipient, error) {
	result := make([]entity.Recipient, 0)
	for _, recipient := range q.state.recipients {
		if filter.EnvelopeID != 0 && recipient.EnvelopeID != filter.EnvelopeID {
			continue
		}
		if filter.ID != nil && recipient.ID != *filter.ID {
			continue
		}
		if filter.Token != "" && recipient.Token != filter.Token {
			continue
		}
		result = append(result, recipient)
	}

	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (q *memoryQueries) FindFields(_ context.Context, filter repository.FieldFilter) ([]entity.Field, error) {
	result := make([]entity.Field, 0)
	for _, field := range q.state.fields {
		if filter.EnvelopeID != 0 && field.EnvelopeID != filter.EnvelopeID {
			continue
		}
		if filter.RecipientID != nil && field.RecipientID != *filter.RecipientID {
			continue
		}
		if filter.AutoSign != nil && field.AutoSign != *filter.AutoSign {
			continue
		}
		if filter.Inserted != nil && field.Inserted != *filter.Inserted {
			continue
		}
		if recipient, ok := q.state.recipients[field.RecipientID]; ok {
			field.RecipientRole = recipient.Role
		}
		result = append(result, field)
	}

	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (q *memoryQueries) UpdateEnvelope(_ context.Context, id int64, patch repository.EnvelopePatch) error {
	envelope, ok := q.state.envelopes[id]
	if !ok {
		return fmt.Errorf("envelope %d: %w", id, repository.ErrNotFound)
	}
	if patch.ExpectStatus != nil && envelope.Status != *patch.ExpectStatus {
		return fmt.Errorf("envelope %d: %w", id, repository.ErrConflict)
	}

	if patch.Status != nil {
		envelope.Status = *patch.Status
	}
	if patch.CompletedAt != nil {
		completedAt := *patch.CompletedAt
		envelope.CompletedAt = &completedAt
	}
	envelope.UpdatedAt = q.now()

	q.state.envelopes[id] = envelope
	q.record(repository.OpUpdateEnvelope, id)
	return nil
}

func (q *memoryQueries) UpdateRecipient(_ context.Context, id int64, patch repository.RecipientPatch) error {
	recipient, ok := q.state.recipients[id]
	if !ok {
		return fmt.Errorf("recipient %d: %w", id, repository.ErrNotFound)
	}
	if patch.ExpectSigningStatus != nil && recipient.SigningStatus != *patch.ExpectSigningStatus {
		return fmt.Errorf("recipient %d: %w", id, repository.ErrConflict)
	}

	if patch.Name != nil {
		recipient.Name = *patch.Name
	}
	if patch.Email != nil {
		recipient.Email = *patch.Email
	}
	if patch.SigningStatus != nil {
		recipient.SigningStatus = *patch.SigningStatus
	}
	if patch.SendStatus != nil {
		recipient.SendStatus = *patch.SendStatus
	}
	if patch.SignedAt != nil {
		signedAt := *patch.SignedAt
		recipient.SignedAt = &signedAt
	}
	if patch.RejectionReason != nil {
		recipient.RejectionReason = *patch.RejectionReason
	}

	q.state.recipients[id] = recipient
	q.record(repository.OpUpdateRecipient, id)
	return nil
}

func (q *memoryQueries) UpdateField(_ context.Context, id int64, patch repository.FieldPatch) error {
	field, ok := q.state.fields[id]
	if !ok {
		return fmt.Errorf("field %d: %w", id, repository.ErrNotFound)
	}

	if patch.Inserted != nil {
		field.Inserted = *patch.Inserted
	}
	if patch.CustomText != nil {
		field.CustomText = *patch.CustomText
	}

	q.state.fields[id] = field
	q.record(repository.OpUpdateField, id)
	return nil
}

func (q *memoryQueries) CreateSignature(_ context.Context, signature *entity.Signature) error {
	for _, existing := range q.state.signatures {
		if existing.FieldID == signature.FieldID {
			return fmt.Errorf("signature for field %d already exists", signature.FieldID)
		}
	}

	signature.ID = q.state.id()
	if signature.CreatedAt.IsZero() {
		signature.CreatedAt = q.now()
	}

	q.state.signatures[signature.ID] = *signature
	q.record(repository.OpCreateSignature, signature.ID)
	return nil
}

func (q *memoryQueries) CreateAuditLogEntry(_ context.Context, entry *entity.AuditLogEntry) error {
	if _, ok := q.state.envelopes[entry.EnvelopeID]; !ok {
		return fmt.Errorf("envelope %d: %w", entry.EnvelopeID, repository.ErrNotFound)
	}

	entry.ID = q.state.id()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = q.now()
	}

	q.state.auditLogs = append(q.state.auditLogs, *entry)
	q.record(repository.OpCreateAuditLog, entry.ID)
	return nil
}

func (q *memoryQueries) CreateEnvelope(_ context.Context, envelope *entity.Envelope) error {
	now := q.now()
	envelope.ID = q.state.id()
	envelope.CreatedAt = now
	envelope.UpdatedAt = now

	q.state.envelopes[envelope.ID] = *envelope
	q.record(repository.OpCreateEnvelope, envelope.ID)
	return nil
}

func (q *memoryQueries) CreateRecipient(_ context.Context, recipient *entity.Recipient) error {
	if _, ok := q.state.envelopes[recipient.EnvelopeID]; !ok {
		return fmt.Errorf("envelope %d: %w", recipient.EnvelopeID, repository.ErrNotFound)
	}
	for _, existing := range q.state.recipients {
		if existing.Token == recipient.Token {
			return fmt.Errorf("recipient token already in use")
		}
	}

	recipient.ID = q.state.id()
	q.state.recipients[recipient.ID] = *recipient
	q.record(repository.OpCreateRecipient, recipient.ID)
	return nil
}

func (q *memoryQueries) CreateField(_ context.Context, field *entity.Field) error {
	recipient, ok := q.state.recipients[field.RecipientID]
	if !ok {
		return fmt.Errorf("recipient %d: %w", field.RecipientID, repository.ErrNotFound)
	}

	field.ID = q.state.id()
	field.RecipientRole = recipient.Role
	q.state.fields[field.ID] = *field
	q.record(repository.OpCreateField, field.ID)
	return nil
}
