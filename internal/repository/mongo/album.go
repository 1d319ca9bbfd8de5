package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/xid"
	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sakif/music-server/internal/apperror"
	"github.com/sakif/music-server/internal/model"
	"github.com/sakif/music-server/internal/repository"
)

var _ repository.AlbumRepository = (*AlbumDB)(nil)

type AlbumDB struct {
	coll *mongodriver.Collection
}

func (r *AlbumDB) Create(ctx context.Context, album *model.Album) error {
	now := time.Now().UTC()
	album.ID = xid.New().String()
	album.CreatedAt = now
	album.UpdatedAt = now
	// A nil slice would be stored as null and break $push later.
	if album.SongIDs == nil {
		album.SongIDs = []string{}
	}

	if _, err := r.coll.InsertOne(ctx, album); err != nil {
		return fmt.Errorf("mongo: inserting album: %w", err)
	}
	return nil
}

func (r *AlbumDB) GetByID(ctx context.Context, id string) (*model.Album, error) {
	var album model.Album
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&album)
	if isNoDocuments(err) {
		return nil, apperror.NotFound("album", id)
	}
	if err != nil {
		return nil, fmt.Errorf("mongo: finding album: %w", err)
	}
	if album.SongIDs == nil {
		album.SongIDs = []string{}
	}
	return &album, nil
}

func (r *AlbumDB) List(ctx context.Context) ([]model.Album, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cur, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo: listing albums: %w", err)
	}
	albums, err := decodeAll[model.Album](ctx, cur)
	if err != nil {
		return nil, fmt.Errorf("mongo: decoding albums: %w", err)
	}
	for i := range albums {
		if albums[i].SongIDs == nil {
			albums[i].SongIDs = []string{}
		}
	}
	return albums, nil
}

func (r *AlbumDB) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("mongo: deleting album: %w", err)
	}
	if res.DeletedCount == 0 {
		return apperror.NotFound("album", id)
	}
	return nil
}

// AddSong appends songID unless it is already present.
// The filter excludes albums that already hold songID, so a zero match means
// either "missing album" or "already there"; a second lookup tells them apart.
func (r *AlbumDB) AddSong(ctx context.Context, albumID, songID string) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": albumID, "songs": bson.M{"$ne": songID}},
		bson.M{
			"$push": bson.M{"songs": songID},
			"$set":  bson.M{"updatedAt": time.Now().UTC()},
		},
	)
	if err != nil {
		return fmt.Errorf("mongo: adding song to album: %w", err)
	}
	if res.MatchedCount > 0 {
		return nil
	}

	n, err := r.coll.CountDocuments(ctx, bson.M{"_id": albumID})
	if err != nil {
		return fmt.Errorf("mongo: checking album: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("album", albumID)
	}
	return nil
}

func (r *AlbumDB) RemoveSong(ctx context.Context, albumID, songID string) error {
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": albumID, "songs": songID},
		bson.M{
			"$pull": bson.M{"songs": songID},
			"$set":  bson.M{"updatedAt": time.Now().UTC()},
		},
	)
	if err != nil {
		return fmt.Errorf("mongo: removing song from album: %w", err)
	}
	return nil
}
