package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"studyhub-backend/internal/apperr"
	"studyhub-backend/internal/models"
)

type stubAuthenticator struct {
	loggedOut string
}

func (s *stubAuthenticator) RegisterDevice(ctx context.Context) (*models.AuthTokens, error) {
	return &models.AuthTokens{ProfileID: uuid.New(), AccessToken: "a", RefreshToken: "r", ExpiresIn: 3600}, nil
}

func (s *stubAuthenticator) RefreshToken(ctx context.Context, refreshToken string) (*models.AuthTokens, error) {
	if refreshToken != "r" {
		return nil, fmt.Errorf("%w: invalid refresh token", apperr.ErrUnauthorized)
	}
	return &models.AuthTokens{ProfileID: uuid.New(), AccessToken: "a2", RefreshToken: "r2", ExpiresIn: 3600}, nil
}

func (s *stubAuthenticator) Logout(ctx context.Context, refreshToken string) error {
	s.loggedOut = refreshToken
	return nil
}

func TestAuthHandlers(t *testing.T) {
	auth := &stubAuthenticator{}
	h := NewAuthHandler(auth)

	rr := httptest.NewRecorder()
	h.Device(rr, httptest.NewRequest(http.MethodPost, "/auth/device", nil))
	if rr.Code != http.StatusCreated {
		t.Fatalf("device: expected 201, got %d", rr.Code)
	}

	tests := []struct {
		name string
		body string
		want int
	}{
		{"valid", `{"refresh_token":"r"}`, http.StatusOK},
		{"revoked", `{"refresh_token":"old"}`, http.StatusUnauthorized},
		{"missing", `{}`, http.StatusBadRequest},
		{"malformed", `{`, http.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			h.Refresh(rr, httptest.NewRequest(http.MethodPost, "/auth/refresh", bytes.NewBufferString(tc.body)))
			if rr.Code != tc.want {
				t.Fatalf("expected %d, got %d: %s", tc.want, rr.Code, rr.Body.String())
			}
		})
	}

	rr = httptest.NewRecorder()
	h.Logout(rr, httptest.NewRequest(http.MethodPost, "/auth/logout", bytes.NewBufferString(`{"refresh_token":"r2"}`)))
	if rr.Code != http.StatusOK || auth.loggedOut != "r2" {
		t.Fatalf("logout: %d, revoked %q", rr.Code, auth.loggedOut)
	}

	var resp models.ErrorResponse
	rr = httptest.NewRecorder()
	h.Refresh(rr, httptest.NewRequest(http.MethodPost, "/auth/refresh", bytes.NewBufferString(`{"refresh_token":"old"}`)))
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil || resp.Error.Code != "UNAUTHORIZED" {
		t.Fatalf("expected UNAUTHORIZED error body, got %s", rr.Body.String())
	}
}
