package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"github.com/lib/pq"

	"github.com/feedwise/feedwise/feed"
)

// UserRepository persists feed.User records inside PostgreSQL.
type UserRepository struct {
	db *sql.DB
}

var _ feed.UserStore = (*UserRepository)(nil)

// NewUserRepository wraps an existing *sql.DB connection.
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) CreateUser(ctx context.Context, name, email string) (feed.User, error) {
	const query = `INSERT INTO users (name, email) VALUES ($1, $2) RETURNING id, created_at`
	user := feed.User{Name: name, Email: email}
	err := r.db.QueryRowContext(ctx, query, name, email).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		return feed.User{}, translateError(err)
	}
	return user, nil
}

func (r *UserRepository) GetUser(ctx context.Context, id int64) (feed.User, error) {
	const query = `SELECT id, name, email, created_at FROM users WHERE id = $1`
	var user feed.User
	err := r.db.QueryRowContext(ctx, query, id).Scan(&user.ID, &user.Name, &user.Email, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return feed.User{}, feed.ErrUserNotFound
		}
		return feed.User{}, translateError(err)
	}
	return user, nil
}

// UpdateUser applies a patch onto an existing user.
func (r *UserRepository) UpdateUser(ctx context.Context, id int64, patch feed.UserPatch) (feed.User, error) {
	existing, err := r.GetUser(ctx, id)
	if err != nil {
		return feed.User{}, err
	}

	if patch.Name != nil {
		existing.Name = *patch.Name
	}
	if patch.Email != nil {
		existing.Email = *patch.Email
	}

	const query = `UPDATE users SET name = $2, email = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, existing.Name, existing.Email)
	if err != nil {
		return feed.User{}, translateError(err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return feed.User{}, feed.ErrUserNotFound
	}
	return existing, nil
}

func (r *UserRepository) DeleteUser(ctx context.Context, id int64) error {
	const query = `DELETE FROM users WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return translateError(err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return feed.ErrUserNotFound
	}
	return nil
}

// ListUsers pages through users ordered by primary key. The stable order is
// what lets independently cached pages tile without gaps or duplicates.
func (r *UserRepository) ListUsers(ctx context.Context, offset, limit int) ([]feed.User, error) {
	const query = `SELECT id, name, email, created_at FROM users ORDER BY id OFFSET $1 LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, offset, limit)
	if err != nil {
		return nil, translateError(err)
	}
	defer rows.Close()
	return scanUsers(rows)
}

func (r *UserRepository) CountUsers(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(*) FROM users`
	var total int
	if err := r.db.QueryRowContext(ctx, query).Scan(&total); err != nil {
		return 0, translateError(err)
	}
	return total, nil
}

func (r *UserRepository) SearchUsers(ctx context.Context, filter feed.SearchFilter) ([]feed.User, error) {
	var (
		sb   strings.Builder
		args []any
	)
	sb.WriteString(`SELECT id, name, email, created_at FROM users`)
	var conds []string
	if filter.Name != "" {
		args = append(args, "%"+filter.Name+"%")
		conds = append(conds, "name ILIKE $"+strconv.Itoa(len(args)))
	}
	if !filter.CreatedAfter.IsZero() {
		args = append(args, filter.CreatedAfter)
		conds = append(conds, "created_at >= $"+strconv.Itoa(len(args)))
	}
	if len(conds) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(conds, " AND "))
	}
	sb.WriteString(" ORDER BY id")

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, translateError(err)
	}
	defer rows.Close()
	return scanUsers(rows)
}

func (r *UserRepository) UserStats(ctx context.Context) (feed.UserStats, error) {
	const query = `SELECT COUNT(*),
	                      COUNT(*) FILTER (WHERE created_at >= now() - interval '7 days')
	               FROM users`
	var s feed.UserStats
	if err := r.db.QueryRowContext(ctx, query).Scan(&s.TotalUsers, &s.UsersLast7Days); err != nil {
		return feed.UserStats{}, translateError(err)
	}
	return s, nil
}

func scanUsers(rows *sql.Rows) ([]feed.User, error) {
	users := []feed.User{}
	for rows.Next() {
		var user feed.User
		if err := rows.Scan(&user.ID, &user.Name, &user.Email, &user.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

// translateError maps PostgreSQL error codes onto domain errors so callers
// never see driver-level detail.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505": // unique_violation
			return feed.ErrEmailInUse
		case "23503": // foreign_key_violation
			return feed.ErrIntegrity
		case "22P02": // invalid_text_representation
			return feed.ErrUserNotFound
		}
	}
	return err
}
