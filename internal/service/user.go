package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/music-server/internal/auth"
	"github.com/sakif/music-server/internal/model"
	"github.com/sakif/music-server/internal/repository"
)

var _ auth.AdminChecker = (*UserService)(nil)

// UserService lists the user mirror and decides admin status.
//
// Admins are configured by email (ADMIN_EMAILS). Comparison is
// case-insensitive; a user whose provider hides the email is never an admin.
type UserService struct {
	users  repository.UserRepository
	admins map[string]struct{}
	logger *slog.Logger
}

func NewUserService(users repository.UserRepository, adminEmails []string, logger *slog.Logger) *UserService {
	admins := make(map[string]struct{}, len(adminEmails))
	for _, e := range adminEmails {
		if e = normalizeEmail(e); e != "" {
			admins[e] = struct{}{}
		}
	}
	return &UserService{users: users, admins: admins, logger: logger}
}

// ListOthers returns every user except callerID.
func (s *UserService) ListOthers(ctx context.Context, callerID string) ([]model.User, error) {
	users, err := s.users.List(ctx, callerID)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	return users, nil
}

// IsAdmin returns the repository's not-found error for an unknown user.
func (s *UserService) IsAdmin(ctx context.Context, userID string) (bool, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return false, err
	}
	return s.IsAdminEmail(user.Email), nil
}

func (s *UserService) IsAdminEmail(email string) bool {
	email = normalizeEmail(email)
	if email == "" {
		return false
	}
	_, ok := s.admins[email]
	return ok
}

func normalizeEmail(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}
