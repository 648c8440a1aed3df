// Package user provides user domain models and quota behaviors.
package user

import (
	"context"
	"errors"
	"time"

	"tutor-server/services/chat-api/internal/domain/speech"
	"tutor-server/services/chat-api/internal/utils/platformerrors"
)

// User models an application user. Identity is established by the gateway;
// this service owns the token quota and voice preferences attached to it.
type User struct {
	ID              uint
	ExternalID      string
	Username        string
	Email           string
	TotalTokensUsed int64
	TokenLimit      int64
	Voices          speech.VoiceConfig
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// CanUseTokens reports whether spending amount more tokens stays within the
// user's limit.
func (u *User) CanUseTokens(amount int64) bool {
	return u.TotalTokensUsed+amount <= u.TokenLimit
}

// AddTokensUsed charges amount tokens against the quota.
func (u *User) AddTokensUsed(amount int64) {
	u.TotalTokensUsed += amount
}

// TokensRemaining returns the unspent part of the quota, floored at zero.
func (u *User) TokensRemaining() int64 {
	if remaining := u.TokenLimit - u.TotalTokensUsed; remaining > 0 {
		return remaining
	}
	return 0
}

// ErrInvalidIdentity indicates a missing external subject on resolution.
var ErrInvalidIdentity = errors.New("invalid identity: external id is required")

// Repository defines storage operations for users.
type Repository interface {
	FindByExternalID(ctx context.Context, externalID string) (*User, error)
	FindByID(ctx context.Context, id uint) (*User, error)
	Create(ctx context.Context, user *User) error
	Update(ctx context.Context, user *User) error
}

// Service resolves users from gateway identities and manages their settings.
type Service struct {
	repo         Repository
	defaultLimit int64
}

// NewService constructs a Service with required dependencies.
func NewService(repo Repository, defaultLimit int64) *Service {
	return &Service{repo: repo, defaultLimit: defaultLimit}
}

// EnsureUser resolves the external subject to an internal user row, creating
// it with the default quota and voice config on first sight.
func (s *Service) EnsureUser(ctx context.Context, externalID, username, email string) (*User, error) {
	if externalID == "" {
		return nil, ErrInvalidIdentity
	}

	existing, err := s.repo.FindByExternalID(ctx, externalID)
	if err == nil {
		return existing, nil
	}
	if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound) {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to resolve user")
	}

	u := &User{
		ExternalID: externalID,
		Username:   username,
		Email:      email,
		TokenLimit: s.defaultLimit,
		Voices:     speech.DefaultVoiceConfig(),
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to create user")
	}
	return u, nil
}

// UpdateVoices validates and persists new voice preferences. Unset slots keep
// their current value.
func (s *Service) UpdateVoices(ctx context.Context, u *User, vietnamese, english string) (speech.VoiceConfig, error) {
	if vietnamese != "" {
		if !speech.IsValidVoiceID(vietnamese) {
			return speech.VoiceConfig{}, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "invalid voice ID", nil, "9f0a61d2-03bc-4a41-8a55-7c62f0f5a9e1")
		}
		u.Voices.Vietnamese = vietnamese
	}
	if english != "" {
		if !speech.IsValidVoiceID(english) {
			return speech.VoiceConfig{}, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "invalid voice ID", nil, "e3b1c7a8-55d4-4f9e-8c20-1b6f4f2d7a30")
		}
		u.Voices.English = english
	}

	if err := s.repo.Update(ctx, u); err != nil {
		return speech.VoiceConfig{}, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to update voice config")
	}
	return u.Voices, nil
}
