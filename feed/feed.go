// Package feed holds the domain model for the users/posts service and the
// caching policy that sits between HTTP handlers and the store of record.
package feed

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// User is a registered account. Posts belonging to a user are removed with it.
type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Post is authored content owned by exactly one user.
type Post struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// UserPatch carries optional field updates; nil fields are left untouched.
type UserPatch struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
}

// SearchFilter narrows a user search. Zero values mean "no constraint".
type SearchFilter struct {
	Name         string
	CreatedAfter time.Time
}

// UserStats summarizes the user table.
type UserStats struct {
	TotalUsers     int `json:"total_users"`
	UsersLast7Days int `json:"users_last_7_days"`
}

// PostStats is the per-author post count.
type PostStats struct {
	UserID    int64 `json:"user_id"`
	PostCount int   `json:"post_count"`
}

// Page is one cached-or-fresh slice of a paginated listing.
type Page[T any] struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"total_pages"`
	Data       []T `json:"data"`
}

// Sentinel errors surfaced to callers. Handlers map these onto status codes.
var (
	ErrUserNotFound = errors.New("feed: user not found")
	ErrEmailInUse   = errors.New("feed: email already in use")

	// ErrIntegrity reports a constraint violation surfaced by the store at
	// commit time, e.g. a post owner deleted between the existence check
	// and the insert. Distinct from ErrUserNotFound: the caller's input was
	// valid when it was checked.
	ErrIntegrity = errors.New("feed: integrity violation")
)

// ValidationError reports malformed input rejected before any I/O.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("feed: invalid %s: %s", e.Field, e.Reason)
}

// UserStore is the store-of-record contract for users. Listing order must be
// deterministic (primary key) so independently cached pages tile without gaps
// or duplicates.
type UserStore interface {
	CreateUser(ctx context.Context, name, email string) (User, error)
	GetUser(ctx context.Context, id int64) (User, error)
	UpdateUser(ctx context.Context, id int64, patch UserPatch) (User, error)
	DeleteUser(ctx context.Context, id int64) error
	ListUsers(ctx context.Context, offset, limit int) ([]User, error)
	CountUsers(ctx context.Context) (int, error)
	SearchUsers(ctx context.Context, filter SearchFilter) ([]User, error)
	UserStats(ctx context.Context) (UserStats, error)
}

// PostStore is the store-of-record contract for posts. CreatePost must verify
// the owner exists and insert transactionally, returning ErrUserNotFound when
// the owner was absent up front and ErrIntegrity when the foreign key is
// violated at commit time.
type PostStore interface {
	CreatePost(ctx context.Context, userID int64, title, content string) (Post, error)
	ListPostsByUser(ctx context.Context, userID int64) ([]Post, error)
	PostStats(ctx context.Context) ([]PostStats, error)
}
