package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"studyhub-backend/internal/apperr"
	"studyhub-backend/internal/repository"
)

type stubIssuer struct{}

func (stubIssuer) GenerateAccessToken(id uuid.UUID) (string, error) {
	return "access-" + id.String(), nil
}

func TestAuthServiceRotatesRefreshTokens(t *testing.T) {
	ctx := context.Background()
	svc := NewAuthService(repository.NewMemoryKV(0), stubIssuer{}, time.Hour, nil)

	first, err := svc.RegisterDevice(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if first.ExpiresIn != 3600 || first.AccessToken != "access-"+first.ProfileID.String() {
		t.Fatalf("unexpected tokens %+v", first)
	}

	second, err := svc.RefreshToken(ctx, first.RefreshToken)
	if err != nil {
		t.Fatal(err)
	}
	if second.ProfileID != first.ProfileID {
		t.Fatal("refresh must keep the device profile")
	}
	if second.RefreshToken == first.RefreshToken {
		t.Fatal("refresh token was not rotated")
	}
	if _, err := svc.RefreshToken(ctx, first.RefreshToken); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Fatalf("reusing a rotated token should fail, got %v", err)
	}

	if err := svc.Logout(ctx, second.RefreshToken); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.RefreshToken(ctx, second.RefreshToken); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Fatalf("logged out token should fail, got %v", err)
	}
}

func TestAuthServiceRejectsExpiredRefreshToken(t *testing.T) {
	ctx := context.Background()
	svc := NewAuthService(repository.NewMemoryKV(0), stubIssuer{}, time.Hour, nil)
	tokens, _ := svc.RegisterDevice(ctx)

	svc.now = func() time.Time { return time.Now().Add(refreshTokenTTL + time.Hour) }
	if _, err := svc.RefreshToken(ctx, tokens.RefreshToken); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Fatalf("expected apperr.ErrUnauthorized, got %v", err)
	}
}
