// Package sqlite implements the repository interfaces on an embedded SQLite file.
//
// WHY modernc.org/sqlite?
// It is a pure Go translation of SQLite with no CGo. It cross-compiles
// anywhere Go does. The driver registers itself under the name "sqlite".
//
// LAYOUT:
// DB owns the *sql.DB pool and hands out one small struct per record type
// (SongDB, AlbumDB, UserDB, StatsDB). They all share the same pool; splitting
// them just keeps method names like List and Delete from colliding.
package sqlite

import (
	"database/sql"
	"fmt"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"

	"github.com/sakif/music-server/internal/repository"
)

// compile-time check that *DB satisfies the Store contract
var _ repository.Store = (*DB)(nil)

// DB wraps a sql.DB connection pool and the per-record repositories built on it.
type DB struct {
	conn   *sql.DB
	songs  *SongDB
	albums *AlbumDB
	users  *UserDB
	stats  *StatsDB
}

// filePragmas are applied by the driver to every connection it opens, so the
// whole pool shares them. _txlock=immediate takes the write lock at BEGIN,
// which lets busy_timeout cover transactions too.
const filePragmas = "_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_txlock=immediate"

// dsn turns a DB_PATH value into a driver DSN.
func dsn(dbPath string) string {
	if dbPath == ":memory:" {
		return dbPath
	}
	return "file:" + dbPath + "?" + filePragmas
}

// New opens (or creates) the database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/music.db" → file-based database (persistent)
//   - ":memory:"      → in-memory database (tests)
//
// IN-MEMORY AND THE POOL:
// Every new connection to ":memory:" gets its own, empty database. A pool that
// opens a second connection would suddenly see no tables. Pinning the pool to
// one connection keeps everyone on the same in-memory database, and the
// pragmas are set on that one connection directly.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	if dbPath == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	if dbPath == ":memory:" {
		if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
			conn.Close()
			return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
		}
	}

	db := &DB{
		conn:   conn,
		songs:  &SongDB{conn: conn},
		albums: &AlbumDB{conn: conn},
		users:  &UserDB{conn: conn},
		stats:  &StatsDB{conn: conn},
	}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

func (db *DB) Songs() repository.SongRepository   { return db.songs }
func (db *DB) Albums() repository.AlbumRepository { return db.albums }
func (db *DB) Users() repository.UserRepository   { return db.users }
func (db *DB) Stats() repository.StatsRepository  { return db.stats }

// Close closes the connection pool. Defer it right after New.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates tables and indexes. Every statement is idempotent
// (IF NOT EXISTS), so it runs on every start.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS songs (
			id         TEXT PRIMARY KEY,
			title      TEXT NOT NULL,
			artist     TEXT NOT NULL,
			image_url  TEXT NOT NULL DEFAULT '',
			audio_url  TEXT NOT NULL DEFAULT '',
			duration   INTEGER NOT NULL DEFAULT 0,
			album_id   TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_songs_created_at ON songs(created_at);
		CREATE INDEX IF NOT EXISTS idx_songs_album_id ON songs(album_id);
		CREATE INDEX IF NOT EXISTS idx_songs_artist ON songs(artist);
	`)
	if err != nil {
		return fmt.Errorf("creating songs table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS albums (
			id           TEXT PRIMARY KEY,
			title        TEXT NOT NULL,
			artist       TEXT NOT NULL,
			release_year INTEGER NOT NULL DEFAULT 0,
			image_url    TEXT NOT NULL DEFAULT '',
			created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating albums table: %w", err)
	}

	// album_songs is the ordered song list of each album.
	// song_id deliberately has no foreign key: the list is kept in step with
	// songs.album_id by the service layer, not by the database.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS album_songs (
			album_id TEXT NOT NULL REFERENCES albums(id) ON DELETE CASCADE,
			song_id  TEXT NOT NULL,
			position INTEGER NOT NULL,
			PRIMARY KEY (album_id, song_id)
		);
		CREATE INDEX IF NOT EXISTS idx_album_songs_position ON album_songs(album_id, position);
	`)
	if err != nil {
		return fmt.Errorf("creating album_songs table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id          TEXT PRIMARY KEY,
			provider    TEXT NOT NULL,
			external_id TEXT NOT NULL,
			full_name   TEXT NOT NULL DEFAULT '',
			email       TEXT NOT NULL DEFAULT '',
			image_url   TEXT NOT NULL DEFAULT '',
			created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (provider, external_id)
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	return nil
}

// rowsAffected turns a zero-row UPDATE/DELETE into the given not-found error.
func rowsAffected(result sql.Result, notFound error) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
