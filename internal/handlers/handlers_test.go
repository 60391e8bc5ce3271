package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pubfeed/apiserver/internal/services"
	"github.com/pubfeed/apiserver/internal/store"
	"github.com/pubfeed/apiserver/types"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// memUserRepo and memPostRepo back the handler tests without MongoDB.
type memUserRepo struct {
	mu    sync.Mutex
	users map[string]types.User
}

func (m *memUserRepo) GetByID(_ context.Context, id string) (types.User, error) {
	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return types.User{}, store.ErrInvalidID
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (m *memUserRepo) GetByEmail(_ context.Context, email string) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.Email == email {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (m *memUserRepo) Create(_ context.Context, user types.User) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == user.Email {
			return types.User{}, store.ErrDuplicate
		}
	}
	user.ID = primitive.NewObjectID()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	m.users[user.ID.Hex()] = user
	return user, nil
}

func (m *memUserRepo) UpdateStatus(_ context.Context, id, status string) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	user.Status = status
	m.users[id] = user
	return user, nil
}

func (m *memUserRepo) AddPost(_ context.Context, userID, postID string) error {
	pid, err := primitive.ObjectIDFromHex(postID)
	if err != nil {
		return store.ErrInvalidID
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[userID]
	if !ok {
		return store.ErrNotFound
	}
	user.Posts = append(user.Posts, pid)
	m.users[userID] = user
	return nil
}

func (m *memUserRepo) RemovePost(_ context.Context, userID, postID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[userID]
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
	m.users[userID] = user
	return nil
}

type memPostRepo struct {
	mu    sync.Mutex
	posts map[string]types.Post
	seq   int
}

func (m *memPostRepo) Get(_ context.Context, id string) (types.Post, error) {
	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return types.Post{}, store.ErrInvalidID
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	post, ok := m.posts[id]
	if !ok {
		return types.Post{}, store.ErrNotFound
	}
	return post, nil
}

func (m *memPostRepo) Create(_ context.Context, post types.Post) (types.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	post.ID = primitive.NewObjectID()
	post.CreatedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(m.seq) * time.Second)
	post.UpdatedAt = post.CreatedAt
	m.seq++
	m.posts[post.ID.Hex()] = post
	return post, nil
}

func (m *memPostRepo) Update(_ context.Context, post types.Post) (types.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.posts[post.ID.Hex()]; !ok {
		return types.Post{}, store.ErrNotFound
	}
	m.posts[post.ID.Hex()] = post
	return post, nil
}

func (m *memPostRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.posts[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.posts, id)
	return nil
}

func (m *memPostRepo) List(_ context.Context, offset, limit int) ([]types.Post, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := make([]types.Post, 0, len(m.posts))
	for _, post := range m.posts {
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

func newTestRouter() http.Handler {
	log := logrus.New()
	log.SetOutput(io.Discard)

	users := &memUserRepo{users: map[string]types.User{}}
	posts := &memPostRepo{posts: map[string]types.Post{}}

	authService := services.NewAuthService(users, "test-secret", log)
	postService := services.NewPostService(posts, users, nil, log)

	router := chi.NewRouter()
	router.Get("/healthz", Healthz)
	router.Group(func(r chi.Router) {
		r.Use(WithIdentity(authService))
		r.Route("/auth", func(r chi.Router) {
			AuthRouter(r, authService)
		})
		r.Route("/posts", func(r chi.Router) {
			PostRouter(r, postService)
		})
	})
	return router
}

func doJSON(t *testing.T, handler http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)
	return recorder
}

func registerAndLogin(t *testing.T, handler http.Handler, email string) (token, userID string) {
	t.Helper()
	resp := doJSON(t, handler, http.MethodPost, "/auth/register", "", map[string]string{
		"email":    email,
		"name":     "Test User",
		"password": "secret",
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	resp = doJSON(t, handler, http.MethodPost, "/auth/login", "", map[string]string{
		"email":    email,
		"password": "secret",
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var parsed struct {
		Token  string `json:"token"`
		UserID string `json:"userId"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&parsed))
	require.NotEmpty(t, parsed.Token)
	return parsed.Token, parsed.UserID
}

func TestRegisterResponseOmitsPasswordHash(t *testing.T) {
	router := newTestRouter()

	resp := doJSON(t, router, http.MethodPost, "/auth/register", "", map[string]string{
		"email":    "alice@example.com",
		"name":     "Alice",
		"password": "secret",
	})
	require.Equal(t, http.StatusCreated, resp.Code)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.NotContains(t, body, "password_hash")
	assert.NotContains(t, body, "passwordHash")
	assert.Equal(t, "alice@example.com", body["email"])
}

func TestProtectedRoutesRejectMissingToken(t *testing.T) {
	router := newTestRouter()

	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/posts"},
		{http.MethodGet, "/auth/me"},
		{http.MethodDelete, "/posts/64a000000000000000000000"},
	} {
		resp := doJSON(t, router, route.method, route.path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.Code, "%s %s", route.method, route.path)
	}

	// Bad input plus no token still yields 401, not 422.
	resp := doJSON(t, router, http.MethodPost, "/posts", "", map[string]string{"title": "x", "content": "y"})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestPostLifecycleOverHTTP(t *testing.T) {
	router := newTestRouter()
	token, userID := registerAndLogin(t, router, "alice@example.com")

	resp := doJSON(t, router, http.MethodPost, "/posts", token, map[string]string{
		"title":    "Hello world",
		"content":  "A fine first post",
		"imageUrl": "hello.png",
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	var created types.PostPublic
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.Equal(t, userID, created.Creator.ID)

	resp = doJSON(t, router, http.MethodGet, "/posts/"+created.ID, token, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var fetched types.PostPublic
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&fetched))
	assert.Equal(t, created.Title, fetched.Title)

	resp = doJSON(t, router, http.MethodDelete, "/posts/"+created.ID, token, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var deleted DeleteResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&deleted))
	assert.True(t, deleted.Deleted)

	resp = doJSON(t, router, http.MethodGet, "/posts/"+created.ID, token, nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	// Its id is gone from the owner's profile too.
	resp = doJSON(t, router, http.MethodGet, "/auth/me", token, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var me types.UserPublic
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&me))
	assert.Empty(t, me.Posts)
}

func TestValidationErrorPayload(t *testing.T) {
	router := newTestRouter()
	token, _ := registerAndLogin(t, router, "alice@example.com")

	resp := doJSON(t, router, http.MethodPost, "/posts", token, map[string]string{
		"title":   "Hi",
		"content": "ok",
	})
	require.Equal(t, http.StatusUnprocessableEntity, resp.Code)

	var body ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, services.KindValidation, body.Kind)
	assert.Len(t, body.Data, 2)
}

func TestForbiddenForNonCreator(t *testing.T) {
	router := newTestRouter()
	ownerToken, _ := registerAndLogin(t, router, "alice@example.com")
	intruderToken, _ := registerAndLogin(t, router, "mallory@example.com")

	resp := doJSON(t, router, http.MethodPost, "/posts", ownerToken, map[string]string{
		"title":   "Owned post",
		"content": "Owner only content",
	})
	require.Equal(t, http.StatusCreated, resp.Code)
	var created types.PostPublic
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))

	resp = doJSON(t, router, http.MethodPut, "/posts/"+created.ID, intruderToken, map[string]string{
		"title":   "Hijack attempt",
		"content": "Well formed content",
	})
	assert.Equal(t, http.StatusForbidden, resp.Code)
}

func TestListPostsOverHTTP(t *testing.T) {
	router := newTestRouter()
	token, _ := registerAndLogin(t, router, "alice@example.com")

	for _, title := range []string{"Post one", "Post two", "Post three"} {
		resp := doJSON(t, router, http.MethodPost, "/posts", token, map[string]string{
			"title":   title,
			"content": "Content for " + title,
		})
		require.Equal(t, http.StatusCreated, resp.Code)
	}

	resp := doJSON(t, router, http.MethodGet, "/posts?page=2", token, nil)
	require.Equal(t, http.StatusOK, resp.Code)

	var page services.PostPage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&page))
	assert.Equal(t, int64(3), page.TotalCount)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Post one", page.Items[0].Title)

	resp = doJSON(t, router, http.MethodGet, "/posts?page=bogus", token, nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestUpdateStatusOverHTTP(t *testing.T) {
	router := newTestRouter()
	token, _ := registerAndLogin(t, router, "alice@example.com")

	resp := doJSON(t, router, http.MethodPut, "/auth/status", token, map[string]string{"status": "hello there"})
	require.Equal(t, http.StatusOK, resp.Code)

	var me types.UserPublic
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&me))
	assert.Equal(t, "hello there", me.Status)
}
