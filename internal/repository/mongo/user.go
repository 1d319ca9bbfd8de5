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

var _ repository.UserRepository = (*UserDB)(nil)

type UserDB struct {
	coll *mongodriver.Collection
}

// Upsert is a single FindOneAndUpdate: profile fields are always $set, the
// ID and createdAt only on insert.
func (r *UserDB) Upsert(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()
	filter := bson.M{"provider": user.Provider, "externalId": user.ExternalID}
	update := bson.M{
		"$set": bson.M{
			"fullName":  user.FullName,
			"email":     user.Email,
			"imageUrl":  user.ImageURL,
			"updatedAt": now,
		},
		"$setOnInsert": bson.M{
			"_id":       xid.New().String(),
			"createdAt": now,
		},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var saved model.User
	if err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&saved); err != nil {
		return fmt.Errorf("mongo: upserting user: %w", err)
	}
	*user = saved
	return nil
}

func (r *UserDB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if isNoDocuments(err) {
		return nil, apperror.NotFound("user", id)
	}
	if err != nil {
		return nil, fmt.Errorf("mongo: finding user: %w", err)
	}
	return &user, nil
}

func (r *UserDB) List(ctx context.Context, excludeID string) ([]model.User, error) {
	filter := bson.M{}
	if excludeID != "" {
		filter["_id"] = bson.M{"$ne": excludeID}
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo: listing users: %w", err)
	}
	users, err := decodeAll[model.User](ctx, cur)
	if err != nil {
		return nil, fmt.Errorf("mongo: decoding users: %w", err)
	}
	return users, nil
}
