package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/music-server/internal/apperror"
	"github.com/sakif/music-server/internal/model"
)

func seedUser(t *testing.T, repo *fakeUserRepo, subject, email string) *model.User {
	t.Helper()
	u := &model.User{Provider: "github", ExternalID: subject, FullName: subject, Email: email}
	require.NoError(t, repo.Upsert(context.Background(), u))
	return u
}

func TestUserService_IsAdmin(t *testing.T) {
	repo := newFakeUserRepo()
	admin := seedUser(t, repo, "1", "Boss@Example.com")
	regular := seedUser(t, repo, "2", "fan@example.com")
	hidden := seedUser(t, repo, "3", "")

	svc := NewUserService(repo, []string{" boss@example.com ", ""}, testLogger())
	ctx := context.Background()

	tests := []struct {
		name string
		id   string
		want bool
	}{
		{"configured email, different case", admin.ID, true},
		{"other email", regular.ID, false},
		{"no email", hidden.ID, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.IsAdmin(ctx, tt.id)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUserService_IsAdminUnknownUser(t *testing.T) {
	svc := NewUserService(newFakeUserRepo(), []string{"boss@example.com"}, testLogger())

	ok, err := svc.IsAdmin(context.Background(), "ghost")
	assert.False(t, ok)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestUserService_ListOthers(t *testing.T) {
	repo := newFakeUserRepo()
	me := seedUser(t, repo, "1", "")
	seedUser(t, repo, "2", "")
	seedUser(t, repo, "3", "")

	svc := NewUserService(repo, nil, testLogger())
	users, err := svc.ListOthers(context.Background(), me.ID)
	require.NoError(t, err)

	assert.Len(t, users, 2)
	for _, u := range users {
		assert.NotEqual(t, me.ID, u.ID)
	}
}
