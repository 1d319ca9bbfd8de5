package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"

	"github.com/sakif/music-server/internal/repository"
)

var _ repository.StatsRepository = (*StatsDB)(nil)

type StatsDB struct {
	songs  *mongodriver.Collection
	albums *mongodriver.Collection
	users  *mongodriver.Collection
}

func (r *StatsDB) CountSongs(ctx context.Context) (int64, error) {
	return count(ctx, r.songs)
}

func (r *StatsDB) CountAlbums(ctx context.Context) (int64, error) {
	return count(ctx, r.albums)
}

func (r *StatsDB) CountUsers(ctx context.Context) (int64, error) {
	return count(ctx, r.users)
}

// CountArtists groups songs by artist and counts the groups.
func (r *StatsDB) CountArtists(ctx context.Context) (int64, error) {
	pipeline := mongodriver.Pipeline{
		{{Key: "$group", Value: bson.D{{Key: "_id", Value: "$artist"}}}},
		{{Key: "$count", Value: "count"}},
	}
	cur, err := r.songs.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, fmt.Errorf("mongo: counting artists: %w", err)
	}
	defer cur.Close(ctx)

	var out []struct {
		Count int64 `bson:"count"`
	}
	if err := cur.All(ctx, &out); err != nil {
		return 0, fmt.Errorf("mongo: decoding artist count: %w", err)
	}
	// $count emits nothing at all for an empty collection.
	if len(out) == 0 {
		return 0, nil
	}
	return out[0].Count, nil
}

func count(ctx context.Context, c *mongodriver.Collection) (int64, error) {
	n, err := c.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("mongo: counting %s: %w", c.Name(), err)
	}
	return n, nil
}
