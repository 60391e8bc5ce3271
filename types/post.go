package types

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Post represents a publishable content item as stored in the posts collection.
type Post struct {
	// ID is the storage-assigned unique identifier of the post.
	ID primitive.ObjectID `bson:"_id,omitempty"`

	// Title is the post headline. Minimum length 5.
	Title string `bson:"title"`

	// Content is the post body. Minimum length 5.
	Content string `bson:"content"`

	// ImageURL optionally references an image asset in object storage.
	ImageURL string `bson:"image_url,omitempty"`

	// Creator is the owning user. Set at creation, never reassigned.
	Creator primitive.ObjectID `bson:"creator"`

	// CreatedAt is the timestamp when the post was created.
	CreatedAt time.Time `bson:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the post.
	UpdatedAt time.Time `bson:"updated_at"`
}

// PostCreator is the projection of the creator joined into post responses.
type PostCreator struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// PostPublic is the response shape of a post: hex-string identifiers,
// RFC 3339 timestamps, and the creator projected in.
type PostPublic struct {
	ID        string      `json:"id"`
	Title     string      `json:"title"`
	Content   string      `json:"content"`
	ImageURL  string      `json:"image_url,omitempty"`
	Creator   PostCreator `json:"creator"`
	CreatedAt string      `json:"created_at"`
	UpdatedAt string      `json:"updated_at"`
}

// Public shapes the stored record for API responses. The creator carries
// only its id; use PublicWithCreator when the user record is at hand.
func (p Post) Public() PostPublic {
	return PostPublic{
		ID:        p.ID.Hex(),
		Title:     p.Title,
		Content:   p.Content,
		ImageURL:  p.ImageURL,
		Creator:   PostCreator{ID: p.Creator.Hex()},
		CreatedAt: p.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: p.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// PublicWithCreator shapes the post with the creator's profile joined in.
func (p Post) PublicWithCreator(creator User) PostPublic {
	public := p.Public()
	public.Creator = PostCreator{
		ID:    creator.ID.Hex(),
		Name:  creator.Name,
		Email: creator.Email,
	}
	return public
}
