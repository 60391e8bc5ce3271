package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pubfeed/apiserver/internal/store"
	"github.com/pubfeed/apiserver/types"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// fakeUserRepo is an in-memory UserRepository for service tests.
type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]types.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]types.User{}}
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (types.User, error) {
	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return types.User{}, store.ErrInvalidID
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.Email == email {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (f *fakeUserRepo) Create(_ context.Context, user types.User) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.users {
		if existing.Email == user.Email {
			return types.User{}, store.ErrDuplicate
		}
	}
	user.ID = primitive.NewObjectID()
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.Posts == nil {
		user.Posts = []primitive.ObjectID{}
	}
	f.users[user.ID.Hex()] = user
	return user, nil
}

func (f *fakeUserRepo) UpdateStatus(_ context.Context, id, status string) (types.User, error) {
	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return types.User{}, store.ErrInvalidID
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	user.Status = status
	user.UpdatedAt = time.Now()
	f.users[id] = user
	return user, nil
}

func (f *fakeUserRepo) AddPost(_ context.Context, userID, postID string) error {
	pid, err := primitive.ObjectIDFromHex(postID)
	if err != nil {
		return store.ErrInvalidID
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[userID]
	if !ok {
		return store.ErrNotFound
	}
	user.Posts = append(user.Posts, pid)
	f.users[userID] = user
	return nil
}

func (f *fakeUserRepo) RemovePost(_ context.Context, userID, postID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[userID]
	if !ok {
		return store.ErrNotFound
	}
	kept := user.Posts[:0]
	for _, id := range user.Posts {
		if id.Hex() != postID {
			kept = append(kept, id)
		}
	}
	user.Posts = kept
	f.users[userID] = user
	return nil
}

// fakePostRepo is an in-memory PostRepository. Creation timestamps are
// spaced one second apart so list ordering is deterministic.
type fakePostRepo struct {
	mu    sync.Mutex
	posts map[string]types.Post
	seq   int
	base  time.Time
}

func newFakePostRepo() *fakePostRepo {
	return &fakePostRepo{
		posts: map[string]types.Post{},
		base:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (f *fakePostRepo) Get(_ context.Context, id string) (types.Post, error) {
	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return types.Post{}, store.ErrInvalidID
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	post, ok := f.posts[id]
	if !ok {
		return types.Post{}, store.ErrNotFound
	}
	return post, nil
}

func (f *fakePostRepo) Create(_ context.Context, post types.Post) (types.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	post.ID = primitive.NewObjectID()
	post.CreatedAt = f.base.Add(time.Duration(f.seq) * time.Second)
	post.UpdatedAt = post.CreatedAt
	f.seq++
	f.posts[post.ID.Hex()] = post
	return post, nil
}

func (f *fakePostRepo) Update(_ context.Context, post types.Post) (types.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.posts[post.ID.Hex()]; !ok {
		return types.Post{}, store.ErrNotFound
	}
	post.UpdatedAt = time.Now()
	f.posts[post.ID.Hex()] = post
	return post, nil
}

func (f *fakePostRepo) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.posts[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.posts, id)
	return nil
}

func (f *fakePostRepo) List(_ context.Context, offset, limit int) ([]types.Post, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	all := make([]types.Post, 0, len(f.posts))
	for _, post := range f.posts {
		all = append(all, post)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID.Hex() > all[j].ID.Hex()
	})

	total := int64(len(all))
	if offset >= len(all) {
		return []types.Post{}, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

// fakePublisher records published events.
type fakePublisher struct {
	mu       sync.Mutex
	channels []string
	payloads [][]byte
}

func (f *fakePublisher) Publish(_ context.Context, channel string, data []byte, _ map[string]string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.channels = append(f.channels, channel)
	f.payloads = append(f.payloads, data)
	return "msg-1", nil
}
