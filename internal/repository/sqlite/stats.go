package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sakif/music-server/internal/repository"
)

var _ repository.StatsRepository = (*StatsDB)(nil)

// StatsDB answers the dashboard counts. Each method is a single statement.
type StatsDB struct {
	conn *sql.DB
}

func (r *StatsDB) CountSongs(ctx context.Context) (int64, error) {
	return r.count(ctx, "songs", `SELECT COUNT(*) FROM songs`)
}

func (r *StatsDB) CountAlbums(ctx context.Context) (int64, error) {
	return r.count(ctx, "albums", `SELECT COUNT(*) FROM albums`)
}

func (r *StatsDB) CountUsers(ctx context.Context) (int64, error) {
	return r.count(ctx, "users", `SELECT COUNT(*) FROM users`)
}

// CountArtists counts distinct song artists. Album-only artists are not counted.
func (r *StatsDB) CountArtists(ctx context.Context) (int64, error) {
	return r.count(ctx, "artists", `SELECT COUNT(DISTINCT artist) FROM songs`)
}

func (r *StatsDB) count(ctx context.Context, what, q string) (int64, error) {
	var n int64
	if err := r.conn.QueryRowContext(ctx, q).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: counting %s: %w", what, err)
	}
	return n, nil
}
