// Package mongo implements the repository interfaces on MongoDB.
//
// Documents use string _id values (xid), the same IDs the SQLite store hands
// out, so the HTTP layer never sees a difference between the two backends.
//
// Album membership lives in the album document's "songs" array and is kept in
// order with $push / $pull, matching how the front-end expects it.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sakif/music-server/internal/repository"
)

var _ repository.Store = (*DB)(nil)

const (
	songsCollection  = "songs"
	albumsCollection = "albums"
	usersCollection  = "users"
)

// DB owns the client and the per-collection repositories.
type DB struct {
	client *mongodriver.Client
	songs  *SongDB
	albums *AlbumDB
	users  *UserDB
	stats  *StatsDB
}

// New connects to uri, selects database and ensures indexes exist.
func New(ctx context.Context, uri, database string) (*DB, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongodriver.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo: connecting: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo: pinging: %w", err)
	}

	d := client.Database(database)
	db := &DB{
		client: client,
		songs:  &SongDB{coll: d.Collection(songsCollection)},
		albums: &AlbumDB{coll: d.Collection(albumsCollection)},
		users:  &UserDB{coll: d.Collection(usersCollection)},
		stats: &StatsDB{
			songs:  d.Collection(songsCollection),
			albums: d.Collection(albumsCollection),
			users:  d.Collection(usersCollection),
		},
	}

	if err := db.ensureIndexes(connectCtx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo: creating indexes: %w", err)
	}
	return db, nil
}

func (db *DB) Songs() repository.SongRepository   { return db.songs }
func (db *DB) Albums() repository.AlbumRepository { return db.albums }
func (db *DB) Users() repository.UserRepository   { return db.users }
func (db *DB) Stats() repository.StatsRepository  { return db.stats }

// Close disconnects the client.
func (db *DB) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return db.client.Disconnect(ctx)
}


func (db *DB) ensureIndexes(ctx context.Context) error {
	_, err := db.songs.coll.Indexes().CreateMany(ctx, []mongodriver.IndexModel{
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "albumId", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("songs: %w", err)
	}

	_, err = db.users.coll.Indexes().CreateOne(ctx, mongodriver.IndexModel{
		Keys:    bson.D{{Key: "provider", Value: 1}, {Key: "externalId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("users: %w", err)
	}
	return nil
}

// isNoDocuments reports whether err means "no match".
func isNoDocuments(err error) bool {
	return errors.Is(err, mongodriver.ErrNoDocuments)
}

// decodeAll drains cur into a non-nil slice.
func decodeAll[T any](ctx context.Context, cur *mongodriver.Cursor) ([]T, error) {
	defer cur.Close(ctx)
	out := []T{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
