package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"signflow/internal/domain/entity"
	"signflow/internal/domain/repository"
	infrarepo "signflow/internal/infrastructure/repository"
)

type dispatchedJob struct {
	Name    string
	Payload interface{}
}

type recordingDispatcher struct {
	mu   sync.Mutex
	jobs []dispatchedJob
	err  error
}

func (d *recordingDispatcher) Enqueue(_ context.Context, name string, payload interface{}) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.jobs = append(d.jobs, dispatchedJob{Name: name, Payload: payload})
	return d.err
}

func (d *recordingDispatcher) named(name string) []dispatchedJob {
	d.mu.Lock()
	defer d.mu.Unlock()
	result := make([]dispatchedJob, 0)
	for _, job := range d.jobs {
		if job.Name == name {
			result = append(result, job)
		}
	}
	return result
}

type emittedEvent struct {
	Event entity.WebhookEvent
	Scope entity.WebhookScope
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []emittedEvent
}

func (e *recordingEmitter) Emit(_ context.Context, event entity.WebhookEvent, _ interface{}, scope entity.WebhookScope) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, emittedEvent{Event: event, Scope: scope})
	return nil
}

type stubAuth struct {
	code string
}

func (a *stubAuth) ValidateSecondFactor(_ context.Context, _ *entity.Recipient, credentials *entity.SecondFactorCredentials) bool {
	return credentials != nil && a.code != "" && credentials.Token == a.code
}

func (a *stubAuth) IssueCode(_ context.Context, _ *entity.Recipient) (string, error) {
	a.code = "424242"
	return a.code, nil
}

type stubInspector struct {
	pages int
	err   error
}

func (i *stubInspector) PageCount(_ []byte) (int, error) {
	return i.pages, i.err
}

// failingStore injects an error into one kind of write made inside a transaction
type failingStore struct {
	repository.Store
	failOn repository.OperationKind
}

type failingQueries struct {
	repository.Queries
	failOn repository.OperationKind
}

var errInjected = errors.New("injected failure")

func (s *failingStore) RunTransaction(ctx context.Context, fn func(q repository.Queries) error) error {
	return s.Store.RunTransaction(ctx, func(q repository.Queries) error {
		return fn(&failingQueries{Queries: q, failOn: s.failOn})
	})
}

func (q *failingQueries) CreateSignature(ctx context.Context, signature *entity.Signature) error {
	if q.failOn == repository.OpCreateSignature {
		return errInjected
	}
	return q.Queries.CreateSignature(ctx, signature)
}

func (q *failingQueries) UpdateField(ctx context.Context, id int64, patch repository.FieldPatch) error {
	if q.failOn == repository.OpUpdateField {
		return errInjected
	}
	return q.Queries.UpdateField(ctx, id, patch)
}

type fixture struct {
	store       repository.Store
	jobs        *recordingDispatcher
	webhooks    *recordingEmitter
	auth        *stubAuth
	progression ProgressionEngine
	signing     SigningUsecase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithStore(t, infrarepo.NewMemoryStore(zap.NewNop()))
}

func newFixtureWithStore(t *testing.T, store repository.Store) *fixture {
	t.Helper()
	logger := zap.NewNop()

	f := &fixture{
		store:    store,
		jobs:     &recordingDispatcher{},
		webhooks: &recordingEmitter{},
		auth:     &stubAuth{},
	}
	f.progression = NewProgressionEngine(store, logger)
	f.signing = NewSigningUsecase(store, NewAutoSignResolver(logger), f.progression, f.jobs, f.webhooks, f.auth, f.auth, logger)
	return f
}

type recipientSpec struct {
	Name       string
	Email      string
	Role       entity.RecipientRole
	Order      *int
	Status     entity.SigningStatus
	SendStatus entity.SendStatus
	ActionAuth []entity.ActionAuth
	Fields     []entity.Field
}

type envelopeSpec struct {
	Order        entity.SigningOrder
	Status       entity.EnvelopeStatus
	AllowDictate bool
	GlobalAuth   []entity.ActionAuth
	Recipients   []recipientSpec
}

func order(n int) *int {
	return &n
}

func signatureField() entity.Field {
	return entity.Field{Type: entity.FieldTypeSignature, Page: 1}
}

func signedSignatureField() entity.Field {
	return entity.Field{Type: entity.FieldTypeSignature, Page: 1, Inserted: true}
}

func autoSignField(fieldType entity.FieldType) entity.Field {
	return entity.Field{Type: fieldType, Page: 1, AutoSign: true}
}

// seed stores an envelope and returns it with its recipients in creation order.
// Recipient tokens are "token-<index>".
func (f *fixture) seed(t *testing.T, spec envelopeSpec) (*entity.Envelope, []entity.Recipient) {
	t.Helper()
	ctx := context.Background()

	if spec.Order == "" {
		spec.Order = entity.SigningOrderParallel
	}
	if spec.Status == "" {
		spec.Status = entity.EnvelopeStatusPending
	}

	teamID := int64(7)
	envelope := &entity.Envelope{
		Title:        "Service agreement",
		Status:       spec.Status,
		SigningOrder: spec.Order,
		UserID:       3,
		TeamID:       &teamID,
		Meta:         entity.EnvelopeMeta{AllowDictateNextSigner: spec.AllowDictate},
		AuthOptions:  entity.EnvelopeAuthOptions{GlobalActionAuth: spec.GlobalAuth},
		PageCount:    1,
	}
	require.NoError(t, f.store.CreateEnvelope(ctx, envelope))

	recipients := make([]entity.Recipient, 0, len(spec.Recipients))
	for i, rs := range spec.Recipients {
		recipient := &entity.Recipient{
			EnvelopeID:    envelope.ID,
			Name:          rs.Name,
			Email:         rs.Email,
			Token:         tokenFor(i),
			Role:          rs.Role,
			SigningOrder:  rs.Order,
			SigningStatus: rs.Status,
			SendStatus:    rs.SendStatus,
			AuthOptions:   entity.RecipientAuthOptions{ActionAuth: rs.ActionAuth},
		}
		if recipient.Role == "" {
			recipient.Role = entity.RecipientRoleSigner
		}
		if recipient.SigningStatus == "" {
			recipient.SigningStatus = entity.SigningStatusNotSigned
		}
		if recipient.SendStatus == "" {
			recipient.SendStatus = entity.SendStatusNotSent
		}
		require.NoError(t, f.store.CreateRecipient(ctx, recipient))

		for _, field := range rs.Fields {
			field.EnvelopeID = envelope.ID
			field.RecipientID = recipient.ID
			require.NoError(t, f.store.CreateField(ctx, &field))
		}
		recipients = append(recipients, *recipient)
	}

	return envelope, recipients
}

func tokenFor(i int) string {
	return "token-" + string(rune('a'+i))
}

func (f *fixture) recipient(t *testing.T, id int64) entity.Recipient {
	t.Helper()
	recipients, err := f.store.FindRecipients(context.Background(), repository.RecipientFilter{ID: &id})
	require.NoError(t, err)
	require.Len(t, recipients, 1)
	return recipients[0]
}

func (f *fixture) envelope(t *testing.T, id int64) *entity.Envelope {
	t.Helper()
	envelope, err := f.store.FindEnvelope(context.Background(), repository.EnvelopeFilter{ID: &id})
	require.NoError(t, err)
	require.NotNil(t, envelope)
	return envelope
}

func (f *fixture) auditTypes(t *testing.T, envelopeID int64) []entity.AuditLogType {
	t.Helper()
	logs, err := f.store.ListAuditLogs(context.Background(), envelopeID, 100)
	require.NoError(t, err)
	types := make([]entity.AuditLogType, 0, len(logs))
	for _, log := range logs {
		types = append(types, log.Type)
	}
	return types
}

func (f *fixture) auditLogs(t *testing.T, envelopeID int64, logType entity.AuditLogType) []entity.AuditLogEntry {
	t.Helper()
	logs, err := f.store.ListAuditLogs(context.Background(), envelopeID, 100)
	require.NoError(t, err)
	result := make([]entity.AuditLogEntry, 0)
	for _, log := range logs {
		if log.Type == logType {
			result = append(result, log)
		}
	}
	return result
}

var testMeta = entity.RequestMetadata{
	RequestID: "req-1",
	IPAddress: "203.0.113.9",
	UserAgent: "signflow-test",
}
