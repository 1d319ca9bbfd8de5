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

var _ repository.SongRepository = (*SongDB)(nil)

type SongDB struct {
	coll *mongodriver.Collection
}

func (r *SongDB) Create(ctx context.Context, song *model.Song) error {
	now := time.Now().UTC()
	song.ID = xid.New().String()
	song.CreatedAt = now
	song.UpdatedAt = now

	if _, err := r.coll.InsertOne(ctx, song); err != nil {
		return fmt.Errorf("mongo: inserting song: %w", err)
	}
	return nil
}

func (r *SongDB) GetByID(ctx context.Context, id string) (*model.Song, error) {
	var song model.Song
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&song)
	if isNoDocuments(err) {
		return nil, apperror.NotFound("song", id)
	}
	if err != nil {
		return nil, fmt.Errorf("mongo: finding song: %w", err)
	}
	return &song, nil
}

func (r *SongDB) List(ctx context.Context) ([]model.Song, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo: listing songs: %w", err)
	}
	songs, err := decodeAll[model.Song](ctx, cur)
	if err != nil {
		return nil, fmt.Errorf("mongo: decoding songs: %w", err)
	}
	return songs, nil
}

func (r *SongDB) ListByIDs(ctx context.Context, ids []string) ([]model.Song, error) {
	if len(ids) == 0 {
		return []model.Song{}, nil
	}
	cur, err := r.coll.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("mongo: listing songs by id: %w", err)
	}
	found, err := decodeAll[model.Song](ctx, cur)
	if err != nil {
		return nil, fmt.Errorf("mongo: decoding songs: %w", err)
	}

	byID := make(map[string]model.Song, len(found))
	for _, s := range found {
		byID[s.ID] = s
	}
	songs := make([]model.Song, 0, len(found))
	for _, id := range ids {
		if s, ok := byID[id]; ok {
			songs = append(songs, s)
		}
	}
	return songs, nil
}

// Sample uses the $sample aggregation stage.
func (r *SongDB) Sample(ctx context.Context, n int) ([]model.Song, error) {
	if n <= 0 {
		return []model.Song{}, nil
	}
	pipeline := mongodriver.Pipeline{
		{{Key: "$sample", Value: bson.D{{Key: "size", Value: n}}}},
	}
	cur, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("mongo: sampling songs: %w", err)
	}
	songs, err := decodeAll[model.Song](ctx, cur)
	if err != nil {
		return nil, fmt.Errorf("mongo: decoding songs: %w", err)
	}
	return songs, nil
}

func (r *SongDB) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("mongo: deleting song: %w", err)
	}
	if res.DeletedCount == 0 {
		return apperror.NotFound("song", id)
	}
	return nil
}

func (r *SongDB) DeleteByAlbum(ctx context.Context, albumID string) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.M{"albumId": albumID})
	if err != nil {
		return 0, fmt.Errorf("mongo: deleting album songs: %w", err)
	}
	return res.DeletedCount, nil
}
