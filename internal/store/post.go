package store

import (
	"context"
	"errors"
	"time"

	"github.com/pubfeed/apiserver/types"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PostRepository handles persistence for posts.
type PostRepository struct {
	col *mongo.Collection
}

func NewPostRepository(database *mongo.Database) *PostRepository {
	return &PostRepository{col: database.Collection("posts")}
}

func (r *PostRepository) Get(ctx context.Context, id string) (types.Post, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return types.Post{}, ErrInvalidID
	}

	var post types.Post
	if err := r.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&post); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return types.Post{}, ErrNotFound
		}
		return types.Post{}, err
	}
	return post, nil
}

func (r *PostRepository) Create(ctx context.Context, post types.Post) (types.Post, error) {
	now := time.Now()
	post.CreatedAt = now
	post.UpdatedAt = now

	result, err := r.col.InsertOne(ctx, post)
	if err != nil {
		return types.Post{}, err
	}
	post.ID = result.InsertedID.(primitive.ObjectID)
	return post, nil
}

func (r *PostRepository) Update(ctx context.Context, post types.Post) (types.Post, error) {
	post.UpdatedAt = time.Now()

	update := bson.M{"$set": bson.M{
		"title":      post.Title,
		"content":    post.Content,
		"image_url":  post.ImageURL,
		"updated_at": post.UpdatedAt,
	}}
	result, err := r.col.UpdateByID(ctx, post.ID, update)
	if err != nil {
		return types.Post{}, err
	}
	if result.MatchedCount == 0 {
		return types.Post{}, ErrNotFound
	}
	return post, nil
}

func (r *PostRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrInvalidID
	}

	result, err := r.col.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns a page of posts ordered by creation time descending,
// breaking timestamp ties on _id descending, plus the full collection count.
func (r *PostRepository) List(ctx context.Context, offset, limit int) ([]types.Post, int64, error) {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = 1
	}

	total, err := r.col.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))
	cursor, err := r.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	posts := make([]types.Post, 0, limit)
	if err := cursor.All(ctx, &posts); err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}
