package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/music-server/internal/apperror"
	"github.com/sakif/music-server/internal/model"
	"github.com/sakif/music-server/internal/repository"
)

// compile-time check that *SongDB implements repository.SongRepository
var _ repository.SongRepository = (*SongDB)(nil)

// SongDB is the songs table.
type SongDB struct {
	conn *sql.DB
}

const songColumns = `id, title, artist, image_url, audio_url, duration, album_id, created_at, updated_at`

// rowScanner is satisfied by both *sql.Row and *sql.Rows, so one scan
// function serves GetByID and the list queries.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSong(row rowScanner) (*model.Song, error) {
	var (
		s       model.Song
		albumID sql.NullString
	)
	err := row.Scan(
		&s.ID, &s.Title, &s.Artist, &s.ImageURL, &s.AudioURL,
		&s.Duration, &albumID, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if albumID.Valid && albumID.String != "" {
		id := albumID.String
		s.AlbumID = &id
	}
	return &s, nil
}

// Create inserts a song and fills in its ID and timestamps.
//
// xid IDs are 20 URL-safe characters and sort by creation time, which
// gives List a stable tie-breaker when two songs share a timestamp.
func (r *SongDB) Create(ctx context.Context, song *model.Song) error {
	song.ID = xid.New().String()
	now := time.Now()
	song.CreatedAt = now
	song.UpdatedAt = now

	var albumID sql.NullString
	if song.AlbumID != nil && *song.AlbumID != "" {
		albumID = sql.NullString{String: *song.AlbumID, Valid: true}
	}

	_, err := r.conn.ExecContext(ctx,
		`INSERT INTO songs (`+songColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		song.ID,
		song.Title,
		song.Artist,
		song.ImageURL,
		song.AudioURL,
		song.Duration,
		albumID,
		song.CreatedAt,
		song.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating song: %w", err)
	}
	return nil
}

// GetByID returns apperror.ErrNotFound when no row matches.
func (r *SongDB) GetByID(ctx context.Context, id string) (*model.Song, error) {
	row := r.conn.QueryRowContext(ctx,
		`SELECT `+songColumns+` FROM songs WHERE id = ?`, id)

	song, err := scanSong(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("song", id)
		}
		return nil, fmt.Errorf("sqlite: getting song %s: %w", id, err)
	}
	return song, nil
}

// List returns every song, newest first.
func (r *SongDB) List(ctx context.Context) ([]model.Song, error) {
	return r.query(ctx, "listing songs",
		`SELECT `+songColumns+` FROM songs ORDER BY created_at DESC, id DESC`)
}

// ListByIDs returns the songs named by ids, in the order of ids.
//
// SQL's IN (...) returns rows in whatever order the engine likes, so we
// index the result by ID and then walk ids to rebuild the album order.
// Only "?" placeholders are formatted into the query; the values go
// through the driver.
func (r *SongDB) ListByIDs(ctx context.Context, ids []string) ([]model.Song, error) {
	if len(ids) == 0 {
		return []model.Song{}, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	found, err := r.query(ctx, "listing songs by id",
		`SELECT `+songColumns+` FROM songs WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]model.Song, len(found))
	for _, s := range found {
		byID[s.ID] = s
	}

	ordered := make([]model.Song, 0, len(found))
	for _, id := range ids {
		if s, ok := byID[id]; ok {
			ordered = append(ordered, s)
		}
	}
	return ordered, nil
}

// Sample returns up to n random songs.
// ORDER BY RANDOM() scans the table; fine for a catalogue of this size.
func (r *SongDB) Sample(ctx context.Context, n int) ([]model.Song, error) {
	if n <= 0 {
		return []model.Song{}, nil
	}
	return r.query(ctx, "sampling songs",
		`SELECT `+songColumns+` FROM songs ORDER BY RANDOM() LIMIT ?`, n)
}

// Delete returns apperror.ErrNotFound when the song does not exist.
func (r *SongDB) Delete(ctx context.Context, id string) error {
	result, err := r.conn.ExecContext(ctx, `DELETE FROM songs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting song %s: %w", id, err)
	}
	return rowsAffected(result, apperror.NotFound("song", id))
}

// DeleteByAlbum removes every song that belongs to albumID.
func (r *SongDB) DeleteByAlbum(ctx context.Context, albumID string) (int64, error) {
	result, err := r.conn.ExecContext(ctx, `DELETE FROM songs WHERE album_id = ?`, albumID)
	if err != nil {
		return 0, fmt.Errorf("sqlite: deleting songs of album %s: %w", albumID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	return n, nil
}

// query runs a multi-row SELECT over songColumns.
// rows.Close is deferred so the connection goes back to the pool even on error.
func (r *SongDB) query(ctx context.Context, op, q string, args ...any) ([]model.Song, error) {
	rows, err := r.conn.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: %s: %w", op, err)
	}
	defer rows.Close()

	songs := []model.Song{}
	for rows.Next() {
		s, err := scanSong(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning song row: %w", err)
		}
		songs = append(songs, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating songs: %w", err)
	}
	return songs, nil
}
