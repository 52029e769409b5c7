package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"studyhub-backend/internal/apperr"
	"studyhub-backend/internal/logger"
	"studyhub-backend/internal/models"
	"studyhub-backend/internal/repository"
)

const refreshTokenTTL = 90 * 24 * time.Hour

// TokenIssuer signs access tokens for a profile.
type TokenIssuer interface {
	GenerateAccessToken(profileID uuid.UUID) (string, error)
}

// AuthService issues anonymous device profiles. A device keeps its profile
// by rotating the refresh token it was given.
type AuthService struct {
	kv        repository.KVStore
	jwt       TokenIssuer
	accessTTL time.Duration
	log       *logger.Logger
	now       func() time.Time
}

type refreshRecord struct {
	ProfileID uuid.UUID `json:"profile_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

func NewAuthService(kv repository.KVStore, jwt TokenIssuer, accessTTL time.Duration, log *logger.Logger) *AuthService {
	return &AuthService{kv: kv, jwt: jwt, accessTTL: accessTTL, log: logger.OrNop(log), now: time.Now}
}

// RegisterDevice creates a fresh profile id and its first token pair.
func (s *AuthService) RegisterDevice(ctx context.Context) (*models.AuthTokens, error) {
	profileID := uuid.New()
	s.log.Info("device profile registered", "profile_id", profileID)
	return s.issueTokens(ctx, profileID)
}

func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*models.AuthTokens, error) {
	key := repository.RefreshKey(refreshToken)
	raw, err := s.kv.Get(ctx, key)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, fmt.Errorf("%w: invalid or expired refresh token", apperr.ErrUnauthorized)
	}
	if err != nil {
		return nil, err
	}

	// Delete old token (rotation)
	if err := s.kv.Delete(ctx, key); err != nil {
		s.log.Warn("failed to revoke rotated refresh token", "error", err)
	}

	var rec refreshRecord
	if err := json.Unmarshal(raw, &rec); err != nil || rec.ProfileID == uuid.Nil {
		return nil, fmt.Errorf("%w: invalid refresh token", apperr.ErrUnauthorized)
	}
	if s.now().After(rec.ExpiresAt) {
		return nil, fmt.Errorf("%w: refresh token expired", apperr.ErrUnauthorized)
	}

	return s.issueTokens(ctx, rec.ProfileID)
}

func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	return s.kv.Delete(ctx, repository.RefreshKey(refreshToken))
}

func (s *AuthService) issueTokens(ctx context.Context, profileID uuid.UUID) (*models.AuthTokens, error) {
	accessToken, err := s.jwt.GenerateAccessToken(profileID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := generateToken(32)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(refreshRecord{ProfileID: profileID, ExpiresAt: s.now().Add(refreshTokenTTL)})
	if err != nil {
		return nil, err
	}
	if err := s.kv.Put(ctx, repository.RefreshKey(refreshToken), data); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &models.AuthTokens{
		ProfileID:    profileID,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(s.accessTTL.Seconds()),
	}, nil
}

func generateToken(bytes int) (string, error) {
	b := make([]byte, bytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
