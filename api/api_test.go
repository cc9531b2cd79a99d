package api

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/feedwise/feedwise/cache/memory"
	"github.com/feedwise/feedwise/feed"
	"github.com/feedwise/feedwise/httpx"
)

type memUserStore struct {
	users  []feed.User
	nextID int64
}

func (m *memUserStore) CreateUser(_ context.Context, name, email string) (feed.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return feed.User{}, feed.ErrEmailInUse
		}
	}
	m.nextID++
	u := feed.User{ID: m.nextID, Name: name, Email: email, CreatedAt: time.Now().UTC().Truncate(time.Second)}
	m.users = append(m.users, u)
	return u, nil
}

func (m *memUserStore) GetUser(_ context.Context, id int64) (feed.User, error) {
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return feed.User{}, feed.ErrUserNotFound
}

func (m *memUserStore) UpdateUser(_ context.Context, id int64, patch feed.UserPatch) (feed.User, error) {
	for i, u := range m.users {
		if u.ID == id {
			if patch.Name != nil {
				u.Name = *patch.Name
			}
			if patch.Email != nil {
				u.Email = *patch.Email
			}
			m.users[i] = u
			return u, nil
		}
	}
	return feed.User{}, feed.ErrUserNotFound
}

func (m *memUserStore) DeleteUser(_ context.Context, id int64) error {
	for i, u := range m.users {
		if u.ID == id {
			m.users = append(m.users[:i], m.users[i+1:]...)
			return nil
		}
	}
	return feed.ErrUserNotFound
}

func (m *memUserStore) ListUsers(_ context.Context, offset, limit int) ([]feed.User, error) {
	if offset >= len(m.users) {
		return []feed.User{}, nil
	}
	end := offset + limit
	if end > len(m.users) {
		end = len(m.users)
	}
	return append([]feed.User{}, m.users[offset:end]...), nil
}

func (m *memUserStore) CountUsers(_ context.Context) (int, error) {
	return len(m.users), nil
}

func (m *memUserStore) SearchUsers(_ context.Context, _ feed.SearchFilter) ([]feed.User, error) {
	return append([]feed.User{}, m.users...), nil
}

func (m *memUserStore) UserStats(_ context.Context) (feed.UserStats, error) {
	return feed.UserStats{TotalUsers: len(m.users), UsersLast7Days: len(m.users)}, nil
}

type memPostStore struct {
	users  *memUserStore
	posts  []feed.Post
	nextID int64
}

func (m *memPostStore) CreatePost(ctx context.Context, userID int64, title, content string) (feed.Post, error) {
	if _, err := m.users.GetUser(ctx, userID); err != nil {
		return feed.Post{}, err
	}
	m.nextID++
	p := feed.Post{ID: m.nextID, UserID: userID, Title: title, Content: content, CreatedAt: time.Now().UTC().Truncate(time.Second)}
	m.posts = append(m.posts, p)
	return p, nil
}

func (m *memPostStore) ListPostsByUser(_ context.Context, userID int64) ([]feed.Post, error) {
	out := []feed.Post{}
	for _, p := range m.posts {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memPostStore) PostStats(_ context.Context) ([]feed.PostStats, error) {
	counts := map[int64]int{}
	for _, p := range m.posts {
		counts[p.UserID]++
	}
	out := []feed.PostStats{}
	for id, n := range counts {
		out = append(out, feed.PostStats{UserID: id, PostCount: n})
	}
	return out, nil
}

func newTestAPI(t *testing.T) (*httpx.Client, *httpx.TestServer) {
	t.Helper()

	users := &memUserStore{}
	posts := &memPostStore{users: users}
	svc := feed.NewService(users, posts, memory.NewStore())

	server := httpx.NewServer(httpx.WithMiddlewares(httpx.RecoverMiddleware()))
	server.RegisterRoutes(func(a *httpx.App) {
		RegisterRoutes(a, NewHandlers(svc))
	})

	ts := httpx.NewTestServer(server.Handler())
	t.Cleanup(ts.Close)

	return httpx.NewClient(httpx.WithBaseURL(ts.BaseURL())), ts
}

func TestUserLifecycle(t *testing.T) {
	client, _ := newTestAPI(t)
	ctx := context.Background()

	var created feed.User
	resp, err := client.Post(ctx, "/users", map[string]string{"name": "Ada", "email": "ada@example.com"}, &created)
	if err != nil {
		t.Fatalf("POST /users error = %v", err)
	}
	if resp.StatusCode() != httpx.StatusCreated {
		t.Fatalf("POST /users status = %d", resp.StatusCode())
	}
	if created.ID == 0 || created.CreatedAt.IsZero() {
		t.Fatalf("server-assigned fields missing: %+v", created)
	}

	var fetched feed.User
	if _, err := client.Get(ctx, fmt.Sprintf("/users/%d", created.ID), &fetched); err != nil {
		t.Fatalf("GET /users/:id error = %v", err)
	}
	if fetched.Email != "ada@example.com" {
		t.Fatalf("GET /users/:id = %+v", fetched)
	}

	var updated feed.User
	if _, err := client.Put(ctx, fmt.Sprintf("/users/%d", created.ID), map[string]string{"name": "Countess"}, &updated); err != nil {
		t.Fatalf("PUT /users/:id error = %v", err)
	}
	if updated.Name != "Countess" || updated.Email != "ada@example.com" {
		t.Fatalf("partial update wrong: %+v", updated)
	}

	if _, err := client.Delete(ctx, fmt.Sprintf("/users/%d", created.ID), nil); err != nil {
		t.Fatalf("DELETE /users/:id error = %v", err)
	}

	resp, err = client.Get(ctx, fmt.Sprintf("/users/%d", created.ID), nil)
	if err == nil || resp.StatusCode() != httpx.StatusNotFound {
		t.Fatalf("GET after delete: status %d, err %v", resp.StatusCode(), err)
	}
}

func TestListUsersEmptyPageShape(t *testing.T) {
	client, _ := newTestAPI(t)
	ctx := context.Background()

	resp, err := client.Get(ctx, "/users", nil, httpx.WithQuery(map[string]string{"page": "1", "limit": "10"}))
	if err != nil {
		t.Fatalf("GET /users error = %v", err)
	}

	var body map[string]json.RawMessage
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		t.Fatalf("response is not a JSON object: %v", err)
	}
	for field, want := range map[string]string{
		"total":       "0",
		"page":        "1",
		"limit":       "10",
		"total_pages": "0",
		"data":        "[]",
	} {
		got, ok := body[field]
		if !ok {
			t.Fatalf("response missing %q field: %s", field, resp.Body())
		}
		if string(got) != want {
			t.Fatalf("field %q = %s, want %s", field, got, want)
		}
	}
}

func TestListUsersPaginationEnvelope(t *testing.T) {
	client, _ := newTestAPI(t)
	ctx := context.Background()

	for i := 0; i < 15; i++ {
		if _, err := client.Post(ctx, "/users", map[string]string{
			"name":  "user",
			"email": fmt.Sprintf("user%d@example.com", i),
		}, nil); err != nil {
			t.Fatalf("POST /users error = %v", err)
		}
	}

	var page feed.Page[feed.User]
	if _, err := client.Get(ctx, "/users", &page, httpx.WithQuery(map[string]string{"page": "2", "limit": "10"})); err != nil {
		t.Fatalf("GET /users page 2 error = %v", err)
	}
	if page.Total != 15 || page.TotalPages != 2 || len(page.Data) != 5 {
		t.Fatalf("page 2 envelope wrong: total=%d total_pages=%d len=%d", page.Total, page.TotalPages, len(page.Data))
	}
}

func TestListUsersValidation(t *testing.T) {
	client, _ := newTestAPI(t)
	ctx := context.Background()

	for _, params := range []map[string]string{
		{"page": "0"},
		{"limit": "0"},
		{"limit": "101"},
		{"page": "abc"},
	} {
		resp, err := client.Get(ctx, "/users", nil, httpx.WithQuery(params))
		if err == nil || resp.StatusCode() != httpx.StatusBadRequest {
			t.Fatalf("GET /users with %v: status %d, err %v", params, resp.StatusCode(), err)
		}
	}
}

func TestCreateUserValidation(t *testing.T) {
	client, _ := newTestAPI(t)
	ctx := context.Background()

	for _, body := range []map[string]string{
		{"name": "no email"},
		{"name": "bad email", "email": "not-an-address"},
		{"email": "ok@example.com"},
	} {
		resp, err := client.Post(ctx, "/users", body, nil)
		if err == nil || resp.StatusCode() != httpx.StatusBadRequest {
			t.Fatalf("POST /users with %v: status %d, err %v", body, resp.StatusCode(), err)
		}
	}
}

func TestDuplicateEmailConflicts(t *testing.T) {
	client, _ := newTestAPI(t)
	ctx := context.Background()

	body := map[string]string{"name": "A", "email": "dup@example.com"}
	if _, err := client.Post(ctx, "/users", body, nil); err != nil {
		t.Fatalf("POST /users error = %v", err)
	}
	resp, err := client.Post(ctx, "/users", body, nil)
	if err == nil || resp.StatusCode() != httpx.StatusConflict {
		t.Fatalf("duplicate POST /users: status %d, err %v", resp.StatusCode(), err)
	}
}

func TestMutationInvalidatesCachedListing(t *testing.T) {
	client, _ := newTestAPI(t)
	ctx := context.Background()

	var before feed.Page[feed.User]
	if _, err := client.Get(ctx, "/users", &before, httpx.WithQuery(map[string]string{"page": "1", "limit": "10"})); err != nil {
		t.Fatalf("GET /users error = %v", err)
	}
	if before.Total != 0 {
		t.Fatalf("expected empty listing, got %+v", before)
	}

	if _, err := client.Post(ctx, "/users", map[string]string{"name": "Ada", "email": "ada@example.com"}, nil); err != nil {
		t.Fatalf("POST /users error = %v", err)
	}

	var after feed.Page[feed.User]
	if _, err := client.Get(ctx, "/users", &after, httpx.WithQuery(map[string]string{"page": "1", "limit": "10"})); err != nil {
		t.Fatalf("GET /users after create error = %v", err)
	}
	if after.Total != 1 || len(after.Data) != 1 {
		t.Fatalf("stale empty page served after create: %+v", after)
	}
}

func TestPostEndpoints(t *testing.T) {
	client, _ := newTestAPI(t)
	ctx := context.Background()

	var owner feed.User
	if _, err := client.Post(ctx, "/users", map[string]string{"name": "Owner", "email": "owner@example.com"}, &owner); err != nil {
		t.Fatalf("POST /users error = %v", err)
	}

	resp, err := client.Post(ctx, "/posts", map[string]any{"user_id": 4242, "title": "t", "content": "c"}, nil)
	if err == nil || resp.StatusCode() != httpx.StatusNotFound {
		t.Fatalf("POST /posts with missing owner: status %d, err %v", resp.StatusCode(), err)
	}

	var post feed.Post
	resp, err = client.Post(ctx, "/posts", map[string]any{"user_id": owner.ID, "title": "t", "content": "c"}, &post)
	if err != nil {
		t.Fatalf("POST /posts error = %v", err)
	}
	if resp.StatusCode() != httpx.StatusCreated || post.ID == 0 {
		t.Fatalf("POST /posts status %d, post %+v", resp.StatusCode(), post)
	}

	var posts []feed.Post
	if _, err := client.Get(ctx, "/posts", &posts, httpx.WithQuery(map[string]string{"user_id": fmt.Sprint(owner.ID)})); err != nil {
		t.Fatalf("GET /posts error = %v", err)
	}
	if len(posts) != 1 {
		t.Fatalf("GET /posts = %d rows", len(posts))
	}

	resp, err = client.Get(ctx, "/posts", nil)
	if err == nil || resp.StatusCode() != httpx.StatusBadRequest {
		t.Fatalf("GET /posts without user_id: status %d, err %v", resp.StatusCode(), err)
	}

	var stats []feed.PostStats
	if _, err := client.Get(ctx, "/posts/stats", &stats); err != nil {
		t.Fatalf("GET /posts/stats error = %v", err)
	}
	if len(stats) != 1 || stats[0].PostCount != 1 {
		t.Fatalf("GET /posts/stats = %+v", stats)
	}
}

func TestSearchAndStatsBypassRoutes(t *testing.T) {
	client, _ := newTestAPI(t)
	ctx := context.Background()

	if _, err := client.Post(ctx, "/users", map[string]string{"name": "Ada", "email": "ada@example.com"}, nil); err != nil {
		t.Fatalf("POST /users error = %v", err)
	}

	var found []feed.User
	if _, err := client.Get(ctx, "/users/search", &found, httpx.WithQuery(map[string]string{"name": "Ada"})); err != nil {
		t.Fatalf("GET /users/search error = %v", err)
	}
	if len(found) != 1 {
		t.Fatalf("search returned %d users", len(found))
	}

	resp, err := client.Get(ctx, "/users/search", nil, httpx.WithQuery(map[string]string{"created_after": "yesterday"}))
	if err == nil || resp.StatusCode() != httpx.StatusBadRequest {
		t.Fatalf("GET /users/search with bad timestamp: status %d, err %v", resp.StatusCode(), err)
	}

	var stats feed.UserStats
	if _, err := client.Get(ctx, "/users/stats", &stats); err != nil {
		t.Fatalf("GET /users/stats error = %v", err)
	}
	if stats.TotalUsers != 1 {
		t.Fatalf("GET /users/stats = %+v", stats)
	}
}
