package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/music-server/internal/apperror"
	"github.com/sakif/music-server/internal/model"
	"github.com/sakif/music-server/internal/repository"
)

// compile-time check that *UserDB implements repository.UserRepository
var _ repository.UserRepository = (*UserDB)(nil)

// UserDB is the users table.
type UserDB struct {
	conn *sql.DB
}

const userColumns = `id, provider, external_id, full_name, email, image_url, created_at, updated_at`

func scanUser(row rowScanner) (*model.User, error) {
	var u model.User
	if err := row.Scan(
		&u.ID, &u.Provider, &u.ExternalID, &u.FullName, &u.Email, &u.ImageURL,
		&u.CreatedAt, &u.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &u, nil
}

// Upsert inserts or refreshes a user keyed by (provider, external_id).
//
// We look the row up first so an existing user KEEPS their internal ID:
// session tokens carry that ID, and replacing the row would orphan them.
// First sign-in → INSERT with a fresh xid; later sign-ins → UPDATE the
// profile fields in case the name, email or avatar changed at the provider.
func (r *UserDB) Upsert(ctx context.Context, user *model.User) error {
	var (
		existingID string
		createdAt  time.Time
	)
	err := r.conn.QueryRowContext(ctx,
		`SELECT id, created_at FROM users WHERE provider = ? AND external_id = ?`,
		user.Provider, user.ExternalID,
	).Scan(&existingID, &createdAt)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("sqlite: looking up user %s/%s: %w", user.Provider, user.ExternalID, err)
	}

	now := time.Now()

	if existingID != "" {
		user.ID = existingID
		user.CreatedAt = createdAt
		user.UpdatedAt = now
		_, err = r.conn.ExecContext(ctx,
			`UPDATE users SET full_name = ?, email = ?, image_url = ?, updated_at = ?
			 WHERE id = ?`,
			user.FullName,
			user.Email,
			user.ImageURL,
			user.UpdatedAt,
			user.ID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: updating user %s: %w", user.ID, err)
		}
		return nil
	}

	user.ID = xid.New().String()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err = r.conn.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Provider,
		user.ExternalID,
		user.FullName,
		user.Email,
		user.ImageURL,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting user %s/%s: %w", user.Provider, user.ExternalID, err)
	}
	return nil
}

// GetUserByID returns apperror.ErrNotFound if no user has that internal ID.
func (r *UserDB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	row := r.conn.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}
	return u, nil
}

// List returns every user except excludeID, oldest account first.
func (r *UserDB) List(ctx context.Context, excludeID string) ([]model.User, error) {
	rows, err := r.conn.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id != ? ORDER BY created_at, id`, excludeID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing users: %w", err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning user row: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating users: %w", err)
	}
	return users, nil
}
