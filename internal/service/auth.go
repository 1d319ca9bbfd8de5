package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/music-server/internal/auth"
	"github.com/sakif/music-server/internal/model"
	"github.com/sakif/music-server/internal/repository"
)

// AuthService turns a provider identity into a local user and a session token.
//
//	AuthHandler (HTTP) → AuthService → UserRepository
//	                              ↘ TokenService (JWT)
type AuthService struct {
	users  repository.UserRepository
	tokens *auth.TokenService
	logger *slog.Logger
}

func NewAuthService(users repository.UserRepository, tokens *auth.TokenService, logger *slog.Logger) *AuthService {
	return &AuthService{users: users, tokens: tokens, logger: logger}
}

// AuthResult bundles the user and the issued token so the handler can set
// the cookie and respond in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// LoginOrRegister upserts the user keyed by (provider, subject), then signs a
// session token for the local user ID.
//
// First sign-in inserts; later sign-ins refresh name, email and avatar in case
// they changed at the provider.
func (s *AuthService) LoginOrRegister(ctx context.Context, id *auth.Identity) (*AuthResult, error) {
	if id == nil || id.Subject == "" {
		return nil, fmt.Errorf("service/auth: identity must have a subject")
	}

	user := &model.User{
		Provider:   id.Provider,
		ExternalID: id.Subject,
		FullName:   id.Name,
		Email:      id.Email,
		ImageURL:   id.AvatarURL,
	}

	if err := s.users.Upsert(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: upserting user (%s:%s): %w", id.Provider, id.Subject, err)
	}

	s.logger.Info("user signed in",
		slog.String("userID", user.ID),
		slog.String("provider", user.Provider),
	)

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}

	return &AuthResult{User: user, Token: token}, nil
}

// GetUserByID backs GET /api/auth/me.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, fmt.Errorf("service/auth: user ID must not be empty")
	}

	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", id, err)
	}

	return user, nil
}

// TokenTTL is the session lifetime, for the cookie MaxAge.
func (s *AuthService) TokenTTL() int {
	return int(s.tokens.TTL().Seconds())
}
