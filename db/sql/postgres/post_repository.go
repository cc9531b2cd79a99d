package postgres

import (
	"context"
	"database/sql"

	"github.com/feedwise/feedwise/feed"
)

// PostRepository persists feed.Post records inside PostgreSQL.
type PostRepository struct {
	db *sql.DB
}

var _ feed.PostStore = (*PostRepository)(nil)

// NewPostRepository wraps an existing *sql.DB connection.
func NewPostRepository(db *sql.DB) *PostRepository {
	return &PostRepository{db: db}
}

// CreatePost inserts a post inside a transaction after checking that the
// owner exists. The pre-check yields a clear feed.ErrUserNotFound for the
// common case; the foreign-key constraint remains the real guarantee for the
// window where the owner is deleted concurrently, which surfaces as
// feed.ErrIntegrity at insert/commit time.
func (r *PostRepository) CreatePost(ctx context.Context, userID int64, title, content string) (feed.Post, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return feed.Post{}, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var exists bool
	const checkQuery = `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`
	if err := tx.QueryRowContext(ctx, checkQuery, userID).Scan(&exists); err != nil {
		return feed.Post{}, translateError(err)
	}
	if !exists {
		return feed.Post{}, feed.ErrUserNotFound
	}

	post := feed.Post{UserID: userID, Title: title, Content: content}
	const insertQuery = `INSERT INTO posts (user_id, title, content) VALUES ($1, $2, $3) RETURNING id, created_at`
	if err := tx.QueryRowContext(ctx, insertQuery, userID, title, content).Scan(&post.ID, &post.CreatedAt); err != nil {
		return feed.Post{}, translateError(err)
	}

	if err := tx.Commit(); err != nil {
		return feed.Post{}, translateError(err)
	}
	return post, nil
}

func (r *PostRepository) ListPostsByUser(ctx context.Context, userID int64) ([]feed.Post, error) {
	const query = `SELECT id, user_id, title, content, created_at FROM posts WHERE user_id = $1 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, translateError(err)
	}
	defer rows.Close()

	posts := []feed.Post{}
	for rows.Next() {
		var post feed.Post
		if err := rows.Scan(&post.ID, &post.UserID, &post.Title, &post.Content, &post.CreatedAt); err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return posts, nil
}

func (r *PostRepository) PostStats(ctx context.Context) ([]feed.PostStats, error) {
	const query = `SELECT user_id, COUNT(*) FROM posts GROUP BY user_id ORDER BY user_id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, translateError(err)
	}
	defer rows.Close()

	out := []feed.PostStats{}
	for rows.Next() {
		var s feed.PostStats
		if err := rows.Scan(&s.UserID, &s.PostCount); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
