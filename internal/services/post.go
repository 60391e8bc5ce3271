package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pubfeed/apiserver/internal/auth"
	"github.com/pubfeed/apiserver/internal/store"
	"github.com/pubfeed/apiserver/types"
	"github.com/sirupsen/logrus"
)

// PerPage is the fixed page size for post listings.
const PerPage = 2

// ImageCleanupChannel carries image cleanup events to the worker.
const ImageCleanupChannel = "image-cleanup"

// PostRepository defines persistence operations for posts.
type PostRepository interface {
	Get(ctx context.Context, id string) (types.Post, error)
	Create(ctx context.Context, post types.Post) (types.Post, error)
	Update(ctx context.Context, post types.Post) (types.Post, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, offset, limit int) ([]types.Post, int64, error)
}

// Publisher sends fire-and-forget events to a message broker.
type Publisher interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
}

// PostService manages the post lifecycle: creation, listing, retrieval,
// update, and deletion, enforcing creator-only mutation and keeping the
// owner's posts index in sync.
type PostService struct {
	posts PostRepository
	users UserRepository
	queue Publisher
	log   *logrus.Logger
}

func NewPostService(posts PostRepository, users UserRepository, queue Publisher, log *logrus.Logger) *PostService {
	return &PostService{
		posts: posts,
		users: users,
		queue: queue,
		log:   log,
	}
}

// CreatePostInput carries the post creation fields.
type CreatePostInput struct {
	Title    string
	Content  string
	ImageURL string
}

// Create persists a new post owned by the caller and appends it to the
// caller's posts index. The two writes are not atomic; a failure between
// them surfaces to the caller rather than being swallowed.
func (s *PostService) Create(ctx context.Context, input CreatePostInput) (types.PostPublic, error) {
	identity := auth.IdentityFromContext(ctx)
	if !identity.Authenticated {
		return types.PostPublic{}, ErrUnauthenticated()
	}

	if violations := ValidatePostFields(input.Title, input.Content); len(violations) > 0 {
		return types.PostPublic{}, ErrValidation(violations)
	}

	creator, err := s.users.GetByID(ctx, identity.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrInvalidID) {
			return types.PostPublic{}, ErrInvalidCredentials("invalid user")
		}
		return types.PostPublic{}, ErrInternal(fmt.Errorf("resolve creator: %w", err))
	}

	post, err := s.posts.Create(ctx, types.Post{
		Title:    input.Title,
		Content:  input.Content,
		ImageURL: input.ImageURL,
		Creator:  creator.ID,
	})
	if err != nil {
		return types.PostPublic{}, ErrInternal(fmt.Errorf("create post: %w", err))
	}

	if err := s.users.AddPost(ctx, identity.UserID, post.ID.Hex()); err != nil {
		return types.PostPublic{}, ErrInternal(fmt.Errorf("index post on creator: %w", err))
	}

	s.log.WithFields(logrus.Fields{"post": post.ID.Hex(), "creator": identity.UserID}).Info("post created")
	return post.PublicWithCreator(creator), nil
}

// PostPage is one page of posts plus the full collection count.
type PostPage struct {
	Items      []types.PostPublic `json:"items"`
	TotalCount int64              `json:"totalCount"`
}

// List returns the requested page, newest first. Page defaults to 1;
// the page size is fixed at PerPage.
func (s *PostService) List(ctx context.Context, page int) (PostPage, error) {
	identity := auth.IdentityFromContext(ctx)
	if !identity.Authenticated {
		return PostPage{}, ErrUnauthenticated()
	}

	if page < 1 {
		page = 1
	}

	posts, total, err := s.posts.List(ctx, (page-1)*PerPage, PerPage)
	if err != nil {
		return PostPage{}, ErrInternal(fmt.Errorf("list posts: %w", err))
	}

	items := make([]types.PostPublic, 0, len(posts))
	creators := map[string]types.User{}
	for _, post := range posts {
		creatorID := post.Creator.Hex()
		creator, ok := creators[creatorID]
		if !ok {
			creator, err = s.users.GetByID(ctx, creatorID)
			if err != nil {
				return PostPage{}, ErrInternal(fmt.Errorf("resolve creator %s: %w", creatorID, err))
			}
			creators[creatorID] = creator
		}
		items = append(items, post.PublicWithCreator(creator))
	}

	return PostPage{Items: items, TotalCount: total}, nil
}

// Get returns a single post with its creator joined in.
func (s *PostService) Get(ctx context.Context, id string) (types.PostPublic, error) {
	identity := auth.IdentityFromContext(ctx)
	if !identity.Authenticated {
		return types.PostPublic{}, ErrUnauthenticated()
	}

	post, err := s.posts.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrInvalidID) {
			return types.PostPublic{}, ErrNotFound("no post found")
		}
		return types.PostPublic{}, ErrInternal(fmt.Errorf("get post: %w", err))
	}

	creator, err := s.users.GetByID(ctx, post.Creator.Hex())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Creator account gone; return the post with the bare id.
			return post.Public(), nil
		}
		return types.PostPublic{}, ErrInternal(fmt.Errorf("resolve creator: %w", err))
	}
	return post.PublicWithCreator(creator), nil
}

// UpdatePostInput carries the post update fields. A nil ImageURL leaves
// the stored image unchanged; a present value (including empty, which
// clears it) replaces it.
type UpdatePostInput struct {
	Title    string
	Content  string
	ImageURL *string
}

// Update rewrites a post's fields. Only the creator may update, and the
// same field rules as creation apply.
func (s *PostService) Update(ctx context.Context, id string, input UpdatePostInput) (types.PostPublic, error) {
	identity := auth.IdentityFromContext(ctx)
	if !identity.Authenticated {
		return types.PostPublic{}, ErrUnauthenticated()
	}

	post, err := s.posts.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrInvalidID) {
			return types.PostPublic{}, ErrNotFound("no post found")
		}
		return types.PostPublic{}, ErrInternal(fmt.Errorf("get post: %w", err))
	}

	if post.Creator.Hex() != identity.UserID {
		return types.PostPublic{}, ErrForbidden("not authorized")
	}

	if violations := ValidatePostFields(input.Title, input.Content); len(violations) > 0 {
		return types.PostPublic{}, ErrValidation(violations)
	}

	post.Title = input.Title
	post.Content = input.Content
	if input.ImageURL != nil {
		post.ImageURL = *input.ImageURL
	}

	updated, err := s.posts.Update(ctx, post)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.PostPublic{}, ErrNotFound("no post found")
		}
		return types.PostPublic{}, ErrInternal(fmt.Errorf("update post: %w", err))
	}

	creator, err := s.users.GetByID(ctx, identity.UserID)
	if err != nil {
		return updated.Public(), nil
	}
	return updated.PublicWithCreator(creator), nil
}

// Delete removes a post and prunes it from the creator's posts index.
// The associated image asset is handed to the cleanup worker best-effort;
// a publish failure never blocks the deletion.
func (s *PostService) Delete(ctx context.Context, id string) (bool, error) {
	identity := auth.IdentityFromContext(ctx)
	if !identity.Authenticated {
		return false, ErrUnauthenticated()
	}

	post, err := s.posts.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrInvalidID) {
			return false, ErrNotFound("no post found")
		}
		return false, ErrInternal(fmt.Errorf("get post: %w", err))
	}

	if post.Creator.Hex() != identity.UserID {
		return false, ErrForbidden("not authorized")
	}

	s.requestImageCleanup(ctx, post)

	if err := s.posts.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, ErrNotFound("no post found")
		}
		return false, ErrInternal(fmt.Errorf("delete post: %w", err))
	}

	if err := s.users.RemovePost(ctx, identity.UserID, id); err != nil {
		return false, ErrInternal(fmt.Errorf("prune post from creator index: %w", err))
	}

	s.log.WithFields(logrus.Fields{"post": id, "creator": identity.UserID}).Info("post deleted")
	return true, nil
}

func (s *PostService) requestImageCleanup(ctx context.Context, post types.Post) {
	if s.queue == nil || post.ImageURL == "" {
		return
	}

	event := types.ImageCleanupEvent{
		PostID:   post.ID.Hex(),
		ImageKey: post.ImageURL,
	}
	data, err := json.Marshal(event)
	if err != nil {
		s.log.WithError(err).Warn("encode image cleanup event")
		return
	}
	if _, err := s.queue.Publish(ctx, ImageCleanupChannel, data, nil); err != nil {
		s.log.WithError(err).WithField("post", event.PostID).Warn("publish image cleanup event")
	}
}
