package types

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User represents an account in the system as stored in the users collection.
type User struct {
	// ID is the storage-assigned unique identifier of the user.
	ID primitive.ObjectID `bson:"_id,omitempty"`

	// Email is the user's email address. Unique across the collection.
	Email string `bson:"email"`

	// Name is the user's display name.
	Name string `bson:"name"`

	// PasswordHash stores the bcrypt hash of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `bson:"password_hash"`

	// Status is a free-text status line, mutable by the owning user only.
	Status string `bson:"status"`

	// Posts is the denormalized index of posts owned by this user.
	// The authoritative ownership link is Post.Creator; this list is
	// kept in sync by the post lifecycle operations.
	Posts []primitive.ObjectID `bson:"posts"`

	// CreatedAt is the timestamp when the account was created.
	CreatedAt time.Time `bson:"created_at"`

	// UpdatedAt is the timestamp of the most recent account update.
	UpdatedAt time.Time `bson:"updated_at"`
}

// UserPublic is the response shape of a user: hex-string identifiers,
// RFC 3339 timestamps, and no password hash.
type UserPublic struct {
	ID        string   `json:"id"`
	Email     string   `json:"email"`
	Name      string   `json:"name"`
	Status    string   `json:"status"`
	Posts     []string `json:"posts"`
	CreatedAt string   `json:"created_at"`
	UpdatedAt string   `json:"updated_at"`
}

// Public shapes the stored record for API responses.
func (u User) Public() UserPublic {
	posts := make([]string, 0, len(u.Posts))
	for _, id := range u.Posts {
		posts = append(posts, id.Hex())
	}
	return UserPublic{
		ID:        u.ID.Hex(),
		Email:     u.Email,
		Name:      u.Name,
		Status:    u.Status,
		Posts:     posts,
		CreatedAt: u.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: u.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
