package twofactor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"signflow/internal/config"
	"signflow/internal/domain/entity"
	"signflow/internal/infrastructure/redis"
)

type fakeCodeStore struct {
	values map[string]string
	ttls   map[string]time.Duration
}

func newFakeCodeStore() *fakeCodeStore {
	return &fakeCodeStore{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeCodeStore) Set(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	f.values[key] = value.(string)
	f.ttls[key] = expiration
	return nil
}

func (f *fakeCodeStore) GetDel(_ context.Context, key string) (string, error) {
	value, ok := f.values[key]
	if !ok {
		return "", redis.ErrNil
	}
	delete(f.values, key)
	return value, nil
}

func newTestService(store codeStore) Service {
	cfg := &config.Config{Auth: config.AuthConfig{CodeTTL: 5 * time.Minute, CodeLength: 8}}
	return NewService(store, cfg, zap.NewNop())
}

func TestService_IssueAndValidate(t *testing.T) {
	store := newFakeCodeStore()
	svc := newTestService(store)
	recipient := &entity.Recipient{ID: 42}

	code, err := svc.IssueCode(context.Background(), recipient)
	require.NoError(t, err)
	assert.Len(t, code, 8)
	assert.Equal(t, 5*time.Minute, store.ttls["signflow:2fa:42"])

	assert.True(t, svc.ValidateSecondFactor(context.Background(), recipient, &entity.SecondFactorCredentials{Token: code}))
	assert.False(t, svc.ValidateSecondFactor(context.Background(), recipient, &entity.SecondFactorCredentials{Token: code}), "codes are single use")
}

func TestService_RejectsWrongOrMissingCode(t *testing.T) {
	store := newFakeCodeStore()
	svc := newTestService(store)
	recipient := &entity.Recipient{ID: 1}

	assert.False(t, svc.ValidateSecondFactor(context.Background(), recipient, nil))
	assert.False(t, svc.ValidateSecondFactor(context.Background(), recipient, &entity.SecondFactorCredentials{Token: "123456"}))

	_, err := svc.IssueCode(context.Background(), recipient)
	require.NoError(t, err)
	assert.False(t, svc.ValidateSecondFactor(context.Background(), recipient, &entity.SecondFactorCredentials{Token: "not-the-code"}))
}

func TestGenerateCode(t *testing.T) {
	code, err := generateCode(6)
	require.NoError(t, err)
	assert.Regexp(t, `^[0-9]{6}$`, code)
}
