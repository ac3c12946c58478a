package router

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"signflow/internal/config"
	"signflow/internal/delivery/http/handler"
	"signflow/internal/domain/entity"
	"signflow/internal/domain/repository"
	infrarepo "signflow/internal/infrastructure/repository"
	"signflow/internal/usecase"
)

type nopDispatcher struct{ names []string }

func (d *nopDispatcher) Enqueue(_ context.Context, name string, _ interface{}) error {
	d.names = append(d.names, name)
	return nil
}

type nopEmitter struct{}

func (nopEmitter) Emit(context.Context, entity.WebhookEvent, interface{}, entity.WebhookScope) error {
	return nil
}

type fixedCodes struct{}

func (fixedCodes) IssueCode(context.Context, *entity.Recipient) (string, error) { return "000000", nil }

func (fixedCodes) ValidateSecondFactor(_ context.Context, _ *entity.Recipient, c *entity.SecondFactorCredentials) bool {
	return c != nil && c.Token == "000000"
}

type onePageInspector struct{}

func (onePageInspector) PageCount([]byte) (int, error) { return 1, nil }

type apiResponse struct {
	Success bool             `json:"success"`
	Message string           `json:"message"`
	Data    json.RawMessage  `json:"data"`
	Error   *entity.APIError `json:"error"`
}

type testServer struct {
	router *Router
	store  repository.Store
	jobs   *nopDispatcher
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zap.NewNop()
	cfg := &config.Config{App: config.AppConfig{Name: "signflow-test", Env: "test"}}

	store := infrarepo.NewMemoryStore(logger)
	jobs := &nopDispatcher{}
	progression := usecase.NewProgressionEngine(store, logger)
	signing := usecase.NewSigningUsecase(store, usecase.NewAutoSignResolver(logger), progression, jobs, nopEmitter{}, fixedCodes{}, fixedCodes{}, logger)
	envelopes := usecase.NewEnvelopeUsecase(store, onePageInspector{}, logger)

	r := NewRouter(cfg,
		handler.NewEnvelopeHandler(envelopes, signing, logger),
		handler.NewSigningHandler(signing, logger),
		handler.NewHealthHandler(cfg),
	)
	r.Setup()

	return &testServer{router: r, store: store, jobs: jobs}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) (int, apiResponse) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(handler.HeaderUserID, "5")

	resp, err := s.router.GetApp().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded apiResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp.StatusCode, decoded
}

func (s *testServer) createEnvelope(t *testing.T) entity.EnvelopeSnapshot {
	t.Helper()
	status, resp := s.do(t, http.MethodPost, "/api/v1/envelopes", entity.CreateEnvelopeRequest{
		Title:        "Purchase order",
		SigningOrder: entity.SigningOrderSequential,
		UserID:       5,
		Doc:          base64.StdEncoding.EncodeToString([]byte("%PDF")),
		Recipients: []entity.CreateRecipientRequest{
			{Name: "Buyer", Email: "buyer@example.com", SigningOrder: intPtr(1)},
			{Name: "Seller", Email: "seller@example.com", SigningOrder: intPtr(2)},
		},
	})
	require.Equal(t, http.StatusCreated, status, resp.Message)

	var snapshot entity.EnvelopeSnapshot
	require.NoError(t, json.Unmarshal(resp.Data, &snapshot))
	return snapshot
}

func intPtr(n int) *int {
	return &n
}

// tokens reads recipient tokens from the store, since the API never exposes them
func (s *testServer) tokens(t *testing.T, envelopeID int64) []string {
	t.Helper()
	recipients, err := s.store.FindRecipients(context.Background(), repository.RecipientFilter{EnvelopeID: envelopeID})
	require.NoError(t, err)
	tokens := make([]string, 0, len(recipients))
	for _, recipient := range recipients {
		tokens = append(tokens, recipient.Token)
	}
	return tokens
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	status, resp := s.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, resp.Success)
}

func TestSigningFlowOverHTTP(t *testing.T) {
	s := newTestServer(t)
	snapshot := s.createEnvelope(t)
	assert.Equal(t, entity.EnvelopeStatusDraft, snapshot.Status)

	status, resp := s.do(t, http.MethodPost, "/api/v1/envelopes/"+itoa(snapshot.ID)+"/send", nil)
	require.Equal(t, http.StatusOK, status, resp.Message)

	tokens := s.tokens(t, snapshot.ID)
	require.Len(t, tokens, 2)

	// The seller is second in line
	status, resp = s.do(t, http.MethodPost, "/api/v1/sign/"+tokens[1]+"/complete", entity.CompleteRecipientRequest{EnvelopeID: snapshot.ID})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, string(entity.ErrorCodeInvalidState), resp.Error.Code)

	status, resp = s.do(t, http.MethodPost, "/api/v1/sign/"+tokens[0]+"/complete", entity.CompleteRecipientRequest{EnvelopeID: snapshot.ID})
	require.Equal(t, http.StatusOK, status, resp.Message)

	status, resp = s.do(t, http.MethodPost, "/api/v1/sign/"+tokens[1]+"/complete", entity.CompleteRecipientRequest{EnvelopeID: snapshot.ID})
	require.Equal(t, http.StatusOK, status, resp.Message)

	var result entity.CompletionResult
	require.NoError(t, json.Unmarshal(resp.Data, &result))
	assert.True(t, result.SealRequested)
	assert.Equal(t, entity.EnvelopeStatusCompleted, result.Envelope.Status)

	status, resp = s.do(t, http.MethodGet, "/api/v1/envelopes/"+itoa(snapshot.ID)+"/audit-logs", nil)
	require.Equal(t, http.StatusOK, status)
	var logs []entity.AuditLogEntry
	require.NoError(t, json.Unmarshal(resp.Data, &logs))
	require.Len(t, logs, 3)
	assert.Equal(t, entity.AuditLogDocumentSent, logs[0].Type)
	require.NotNil(t, logs[0].UserID)
	assert.Equal(t, int64(5), *logs[0].UserID)

	assert.Contains(t, s.jobs.names, entity.JobSealDocument)
}

func TestErrorMapping(t *testing.T) {
	s := newTestServer(t)
	snapshot := s.createEnvelope(t)
	tokens := s.tokens(t, snapshot.ID)

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		status int
	}{
		{"unknown envelope", http.MethodGet, "/api/v1/envelopes/999", nil, http.StatusNotFound},
		{"bad envelope id", http.MethodGet, "/api/v1/envelopes/abc", nil, http.StatusBadRequest},
		{"complete while draft", http.MethodPost, "/api/v1/sign/" + tokens[0] + "/complete", entity.CompleteRecipientRequest{EnvelopeID: snapshot.ID}, http.StatusConflict},
		{"missing envelope id", http.MethodPost, "/api/v1/sign/" + tokens[0] + "/complete", map[string]string{}, http.StatusBadRequest},
		{"invalid envelope", http.MethodPost, "/api/v1/envelopes", entity.CreateEnvelopeRequest{}, http.StatusUnprocessableEntity},
		{"reject without reason", http.MethodPost, "/api/v1/sign/" + tokens[0] + "/reject", entity.RejectRecipientRequest{}, http.StatusUnprocessableEntity},
		{"2fa while draft", http.MethodPost, "/api/v1/sign/" + tokens[0] + "/2fa", nil, http.StatusConflict},
		{"unknown route", http.MethodGet, "/api/v1/nowhere", nil, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, resp := s.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, status)
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
		})
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
