package models

import "github.com/google/uuid"

type AuthTokens struct {
	ProfileID    uuid.UUID `json:"profile_id"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresIn    int       `json:"expires_in"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}
