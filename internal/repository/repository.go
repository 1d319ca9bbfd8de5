// Package repository declares the storage contracts the service layer
// programs against. Two implementations exist:
//
//   - repository/sqlite: embedded, zero-infrastructure default
//   - repository/mongo: document database deployment
//
// Services only ever see these interfaces, so the backend is chosen once in
// server.New and nothing else changes.
package repository

import (
	"context"

	"github.com/sakif/music-server/internal/model"
)

// SongRepository stores songs.
type SongRepository interface {
	Create(ctx context.Context, song *model.Song) error
	GetByID(ctx context.Context, id string) (*model.Song, error)
	// List returns every song, newest first.
	List(ctx context.Context) ([]model.Song, error)
	// ListByIDs returns the songs with the given IDs in the order of ids.
	// Unknown IDs are skipped.
	ListByIDs(ctx context.Context, ids []string) ([]model.Song, error)
	// Sample returns up to n songs chosen at random.
	Sample(ctx context.Context, n int) ([]model.Song, error)
	Delete(ctx context.Context, id string) error
	// DeleteByAlbum removes every song whose AlbumID is albumID and reports how many.
	DeleteByAlbum(ctx context.Context, albumID string) (int64, error)
}

// AlbumRepository stores albums and their ordered song lists.
type AlbumRepository interface {
	Create(ctx context.Context, album *model.Album) error
	GetByID(ctx context.Context, id string) (*model.Album, error)
	List(ctx context.Context) ([]model.Album, error)
	Delete(ctx context.Context, id string) error
	// AddSong appends songID to the album's list. NotFound if the album is missing.
	AddSong(ctx context.Context, albumID, songID string) error
	// RemoveSong drops songID from the album's list. Removing an absent ID is not an error.
	RemoveSong(ctx context.Context, albumID, songID string) error
}

// UserRepository stores the local mirror of provider accounts.
type UserRepository interface {
	// Upsert inserts or refreshes a user keyed by (Provider, ExternalID) and
	// fills in ID and timestamps on the passed struct.
	Upsert(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	// List returns every user except excludeID (may be empty).
	List(ctx context.Context, excludeID string) ([]model.User, error)
}

// StatsRepository answers the aggregate counts. Each method is independent
// so callers can run them concurrently.
type StatsRepository interface {
	CountSongs(ctx context.Context) (int64, error)
	CountAlbums(ctx context.Context) (int64, error)
	CountUsers(ctx context.Context) (int64, error)
	// CountArtists counts distinct Song.Artist values.
	CountArtists(ctx context.Context) (int64, error)
}

// Store bundles every repository behind one handle that owns the connection.
type Store interface {
	Songs() SongRepository
	Albums() AlbumRepository
	Users() UserRepository
	Stats() StatsRepository
	Close() error
}
