package twofactor

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"time"

	"go.uber.org/zap"

	"signflow/internal/config"
	"signflow/internal/domain/entity"
	"signflow/internal/infrastructure/redis"
)

const (
	// Redis key prefix for pending one-time codes
	codeKeyPrefix = "signflow:2fa:"
)

// Service issues and validates one-time codes for recipients whose actions require 2FA
type Service interface {
	// IssueCode stores a fresh code for the recipient, replacing any previous one
	IssueCode(ctx context.Context, recipient *entity.Recipient) (string, error)
	// ValidateSecondFactor consumes the recipient's code; every attempt burns it
	ValidateSecondFactor(ctx context.Context, recipient *entity.Recipient, credentials *entity.SecondFactorCredentials) bool
}

type codeStore interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	GetDel(ctx context.Context, key string) (string, error)
}

type service struct {
	store      codeStore
	ttl        time.Duration
	codeLength int
	logger     *zap.Logger
}

func NewService(store codeStore, cfg *config.Config, logger *zap.Logger) Service {
	codeLength := cfg.Auth.CodeLength
	if codeLength <= 0 {
		codeLength = 6
	}

	return &service{
		store:      store,
		ttl:        cfg.Auth.CodeTTL,
		codeLength: codeLength,
		logger:     logger,
	}
}

func codeKey(recipientID int64) string {
	return fmt.Sprintf("%s%d", codeKeyPrefix, recipientID)
}

func (s *service) IssueCode(ctx context.Context, recipient *entity.Recipient) (string, error) {
	code, err := generateCode(s.codeLength)
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}

	if err := s.store.Set(ctx, codeKey(recipient.ID), code, s.ttl); err != nil {
		return "", fmt.Errorf("failed to store code: %w", err)
	}

	s.logger.Info("Second factor code issued",
		zap.Int64("recipient_id", recipient.ID),
		zap.Duration("ttl", s.ttl),
	)

	return code, nil
}

func (s *service) ValidateSecondFactor(ctx context.Context, recipient *entity.Recipient, credentials *entity.SecondFactorCredentials) bool {
	if credentials == nil || credentials.Token == "" {
		return false
	}

	expected, err := s.store.GetDel(ctx, codeKey(recipient.ID))
	if err != nil {
		if !errors.Is(err, redis.ErrNil) {
			s.logger.Error("Failed to load second factor code",
				zap.Int64("recipient_id", recipient.ID),
				zap.Error(err),
			)
		}
		return false
	}

	return subtle.ConstantTimeCompare([]byte(expected), []byte(credentials.Token)) == 1
}

func generateCode(length int) (string, error) {
	digits := make([]byte, length)
	for i := range digits {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		digits[i] = byte('0' + n.Int64())
	}
	return string(digits), nil
}
