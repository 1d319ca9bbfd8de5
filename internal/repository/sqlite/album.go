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

var _ repository.AlbumRepository = (*AlbumDB)(nil)

// AlbumDB is the albums table plus the album_songs ordering table.
type AlbumDB struct {
	conn *sql.DB
}

const albumColumns = `id, title, artist, release_year, image_url, created_at, updated_at`

func scanAlbum(row rowScanner) (*model.Album, error) {
	var a model.Album
	if err := row.Scan(
		&a.ID, &a.Title, &a.Artist, &a.ReleaseYear, &a.ImageURL,
		&a.CreatedAt, &a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	a.SongIDs = []string{}
	return &a, nil
}

// Create inserts the album and any song IDs it already carries, in one transaction.
func (r *AlbumDB) Create(ctx context.Context, album *model.Album) error {
	album.ID = xid.New().String()
	now := time.Now()
	album.CreatedAt = now
	album.UpdatedAt = now
	if album.SongIDs == nil {
		album.SongIDs = []string{}
	}

	tx, err := r.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning album insert: %w", err)
	}
	// Rollback after Commit is a no-op, so deferring it is always safe.
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO albums (`+albumColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		album.ID,
		album.Title,
		album.Artist,
		album.ReleaseYear,
		album.ImageURL,
		album.CreatedAt,
		album.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating album: %w", err)
	}

	for i, songID := range album.SongIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO album_songs (album_id, song_id, position) VALUES (?, ?, ?)`,
			album.ID, songID, i,
		); err != nil {
			return fmt.Errorf("sqlite: adding song %s to new album: %w", songID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing album insert: %w", err)
	}
	return nil
}

// GetByID loads the album row and then its ordered song IDs.
// The two queries run one after the other: the first row is fully scanned
// before the second query starts, which matters for the single-connection
// in-memory pool.
func (r *AlbumDB) GetByID(ctx context.Context, id string) (*model.Album, error) {
	row := r.conn.QueryRowContext(ctx,
		`SELECT `+albumColumns+` FROM albums WHERE id = ?`, id)

	album, err := scanAlbum(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("album", id)
		}
		return nil, fmt.Errorf("sqlite: getting album %s: %w", id, err)
	}

	lists, err := r.songLists(ctx, `WHERE album_id = ?`, id)
	if err != nil {
		return nil, err
	}
	if ids, ok := lists[id]; ok {
		album.SongIDs = ids
	}
	return album, nil
}

// List returns every album with its song IDs, newest first.
func (r *AlbumDB) List(ctx context.Context) ([]model.Album, error) {
	rows, err := r.conn.QueryContext(ctx,
		`SELECT `+albumColumns+` FROM albums ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing albums: %w", err)
	}

	albums := []model.Album{}
	for rows.Next() {
		a, err := scanAlbum(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("sqlite: scanning album row: %w", err)
		}
		albums = append(albums, *a)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("sqlite: iterating albums: %w", err)
	}
	// Close before the next query so the connection is free again.
	rows.Close()

	lists, err := r.songLists(ctx, "")
	if err != nil {
		return nil, err
	}
	for i := range albums {
		if ids, ok := lists[albums[i].ID]; ok {
			albums[i].SongIDs = ids
		}
	}
	return albums, nil
}

// Delete removes the album and its song list. The songs themselves are
// removed separately by the service (see SongDB.DeleteByAlbum).
func (r *AlbumDB) Delete(ctx context.Context, id string) error {
	tx, err := r.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning album delete: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM album_songs WHERE album_id = ?`, id); err != nil {
		return fmt.Errorf("sqlite: clearing song list of album %s: %w", id, err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM albums WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting album %s: %w", id, err)
	}
	if err := rowsAffected(result, apperror.NotFound("album", id)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing album delete: %w", err)
	}
	return nil
}

// AddSong appends songID at the end of the album's list.
//
// The INSERT ... SELECT FROM albums only produces a row when the album
// exists, and computes the next position in the same statement. INSERT OR
// IGNORE makes re-adding a song already in the list a no-op.
func (r *AlbumDB) AddSong(ctx context.Context, albumID, songID string) error {
	result, err := r.conn.ExecContext(ctx,
		`INSERT OR IGNORE INTO album_songs (album_id, song_id, position)
		 SELECT a.id, ?, COALESCE((SELECT MAX(position) + 1 FROM album_songs WHERE album_id = a.id), 0)
		 FROM albums a WHERE a.id = ?`,
		songID, albumID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: adding song %s to album %s: %w", songID, albumID, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		// Either the album is missing or the song was already listed.
		return r.exists(ctx, albumID)
	}

	return r.touch(ctx, albumID)
}

// RemoveSong drops songID from the album's list. Missing entries are ignored.
func (r *AlbumDB) RemoveSong(ctx context.Context, albumID, songID string) error {
	result, err := r.conn.ExecContext(ctx,
		`DELETE FROM album_songs WHERE album_id = ? AND song_id = ?`, albumID, songID)
	if err != nil {
		return fmt.Errorf("sqlite: removing song %s from album %s: %w", songID, albumID, err)
	}
	if n, _ := result.RowsAffected(); n > 0 {
		return r.touch(ctx, albumID)
	}
	return nil
}

func (r *AlbumDB) exists(ctx context.Context, id string) error {
	var one int
	err := r.conn.QueryRowContext(ctx, `SELECT 1 FROM albums WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return apperror.NotFound("album", id)
	}
	if err != nil {
		return fmt.Errorf("sqlite: checking album %s: %w", id, err)
	}
	return nil
}

func (r *AlbumDB) touch(ctx context.Context, id string) error {
	if _, err := r.conn.ExecContext(ctx,
		`UPDATE albums SET updated_at = ? WHERE id = ?`, time.Now(), id); err != nil {
		return fmt.Errorf("sqlite: touching album %s: %w", id, err)
	}
	return nil
}

// songLists reads album_songs (optionally filtered) into album ID → ordered song IDs.
func (r *AlbumDB) songLists(ctx context.Context, where string, args ...any) (map[string][]string, error) {
	rows, err := r.conn.QueryContext(ctx,
		`SELECT album_id, song_id FROM album_songs `+where+` ORDER BY album_id, position`, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: reading album song lists: %w", err)
	}
	defer rows.Close()

	lists := make(map[string][]string)
	for rows.Next() {
		var albumID, songID string
		if err := rows.Scan(&albumID, &songID); err != nil {
			return nil, fmt.Errorf("sqlite: scanning album song row: %w", err)
		}
		lists[albumID] = append(lists[albumID], songID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating album song lists: %w", err)
	}
	return lists, nil
}
