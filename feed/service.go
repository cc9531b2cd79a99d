package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/feedwise/feedwise/cache"
	"github.com/feedwise/feedwise/internal/stats"
)

const (
	// DefaultTTL bounds how long a racily re-populated stale page can
	// survive a lost invalidation.
	DefaultTTL = 60 * time.Second

	// MaxLimit caps the page size accepted by listing endpoints.
	MaxLimit = 100

	collectionUsers = "users"
	collectionPosts = "posts"
)

// Service implements the cache-aside read path and the invalidation-coupled
// write path over injected stores. It is safe for concurrent use.
type Service struct {
	users UserStore
	posts PostStore
	cache cache.Store
	ttl   time.Duration
	log   *zap.Logger
	stats stats.Collector
}

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

// WithTTL overrides the cache entry lifetime.
func WithTTL(d time.Duration) ServiceOption {
	return func(s *Service) {
		if d > 0 {
			s.ttl = d
		}
	}
}

// WithLogger attaches a structured logger.
func WithLogger(log *zap.Logger) ServiceOption {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithStats attaches a metrics collector.
func WithStats(c stats.Collector) ServiceOption {
	return func(s *Service) {
		if c != nil {
			s.stats = c
		}
	}
}

// NewService wires the domain service. The cache store is shared across all
// requests; its handle is owned by the caller (connect at startup, close at
// shutdown).
func NewService(users UserStore, posts PostStore, cacheStore cache.Store, opts ...ServiceOption) *Service {
	s := &Service{
		users: users,
		posts: posts,
		cache: cacheStore,
		ttl:   DefaultTTL,
		log:   zap.NewNop(),
		stats: stats.NewNoop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func pageKey(collection string, page, limit int) string {
	return fmt.Sprintf("%s:%d:%d", collection, page, limit)
}

func totalPages(total, limit int) int {
	if total <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}

func validatePageParams(page, limit int) error {
	if page < 1 {
		return &ValidationError{Field: "page", Reason: "must be at least 1"}
	}
	if limit < 1 || limit > MaxLimit {
		return &ValidationError{Field: "limit", Reason: fmt.Sprintf("must be between 1 and %d", MaxLimit)}
	}
	return nil
}

// ListUsers returns one page of the user listing, serving from cache when a
// fresh entry exists and recomputing from the store otherwise. Empty pages
// are cached too: they protect the store from repeated probing of a known
// empty state and are evicted by the same invalidation path.
func (s *Service) ListUsers(ctx context.Context, page, limit int) (Page[User], error) {
	if err := validatePageParams(page, limit); err != nil {
		return Page[User]{}, err
	}

	key := pageKey(collectionUsers, page, limit)
	if cached, ok := s.cacheGet(ctx, key); ok {
		var p Page[User]
		if err := json.Unmarshal(cached, &p); err == nil {
			s.stats.IncCounter(stats.MetricCacheHits, 1)
			return p, nil
		}
		// Undecodable entries are dropped and recomputed.
		s.log.Warn("dropping corrupt cache entry", zap.String("key", key))
		_ = s.cache.Delete(ctx, key)
	}
	s.stats.IncCounter(stats.MetricCacheMisses, 1)

	total, err := s.users.CountUsers(ctx)
	if err != nil {
		return Page[User]{}, err
	}
	rows, err := s.users.ListUsers(ctx, (page-1)*limit, limit)
	if err != nil {
		return Page[User]{}, err
	}
	if rows == nil {
		rows = []User{}
	}

	p := Page[User]{
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages(total, limit),
		Data:       rows,
	}
	s.cacheSet(ctx, key, p)
	return p, nil
}

// CreateUser inserts a user and invalidates the cached user listing.
func (s *Service) CreateUser(ctx context.Context, name, email string) (User, error) {
	if name == "" {
		return User{}, &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if email == "" {
		return User{}, &ValidationError{Field: "email", Reason: "must not be empty"}
	}
	user, err := s.users.CreateUser(ctx, name, email)
	if err != nil {
		return User{}, err
	}
	s.invalidate(ctx, collectionUsers)
	return user, nil
}

// GetUser reads a single user straight from the store.
func (s *Service) GetUser(ctx context.Context, id int64) (User, error) {
	return s.users.GetUser(ctx, id)
}

// UpdateUser applies a partial update and invalidates the user listing.
func (s *Service) UpdateUser(ctx context.Context, id int64, patch UserPatch) (User, error) {
	if patch.Name != nil && *patch.Name == "" {
		return User{}, &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if patch.Email != nil && *patch.Email == "" {
		return User{}, &ValidationError{Field: "email", Reason: "must not be empty"}
	}
	user, err := s.users.UpdateUser(ctx, id, patch)
	if err != nil {
		return User{}, err
	}
	s.invalidate(ctx, collectionUsers)
	return user, nil
}

// DeleteUser removes a user. The store cascades the delete onto the user's
// posts, so both collections' cached pages are invalidated.
func (s *Service) DeleteUser(ctx context.Context, id int64) error {
	if err := s.users.DeleteUser(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, collectionUsers)
	s.invalidate(ctx, collectionPosts)
	return nil
}

// SearchUsers bypasses the cache: filtered result sets are not bounded by a
// fixed key namespace.
func (s *Service) SearchUsers(ctx context.Context, filter SearchFilter) ([]User, error) {
	return s.users.SearchUsers(ctx, filter)
}

// UserStats bypasses the cache.
func (s *Service) UserStats(ctx context.Context) (UserStats, error) {
	return s.users.UserStats(ctx)
}

// CreatePost runs the referential-integrity write path in the store and
// invalidates the posts namespace on success.
func (s *Service) CreatePost(ctx context.Context, userID int64, title, content string) (Post, error) {
	if userID < 1 {
		return Post{}, &ValidationError{Field: "user_id", Reason: "must be a positive id"}
	}
	if title == "" {
		return Post{}, &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if content == "" {
		return Post{}, &ValidationError{Field: "content", Reason: "must not be empty"}
	}
	post, err := s.posts.CreatePost(ctx, userID, title, content)
	if err != nil {
		return Post{}, err
	}
	s.invalidate(ctx, collectionPosts)
	return post, nil
}

// ListPosts returns every post by one author, uncached.
func (s *Service) ListPosts(ctx context.Context, userID int64) ([]Post, error) {
	return s.posts.ListPostsByUser(ctx, userID)
}

// PostStats bypasses the cache.
func (s *Service) PostStats(ctx context.Context) ([]PostStats, error) {
	return s.posts.PostStats(ctx)
}

// cacheGet treats every failure as a miss. Losing the cache must never fail
// a read request.
func (s *Service) cacheGet(ctx context.Context, key string) ([]byte, bool) {
	payload, err := s.cache.Get(ctx, key)
	switch {
	case err == nil:
		return payload, true
	case errors.Is(err, cache.ErrNotFound):
		return nil, false
	default:
		s.stats.IncCounter(stats.MetricCacheErrors, 1)
		s.log.Warn("cache read failed, falling back to store",
			zap.String("key", key),
			zap.Error(err),
		)
		return nil, false
	}
}

func (s *Service) cacheSet(ctx context.Context, key string, value any) {
	payload, err := json.Marshal(value)
	if err != nil {
		s.log.Warn("cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := s.cache.Set(ctx, key, payload, s.ttl); err != nil {
		s.stats.IncCounter(stats.MetricCacheErrors, 1)
		s.log.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// invalidate evicts every cached page of a collection. It runs only after
// the triggering mutation committed, and its own failure is tolerated: the
// mutation already succeeded and TTL bounds the residual staleness.
func (s *Service) invalidate(ctx context.Context, collection string) {
	// The mutation has committed, so invalidation proceeds even if the
	// request that triggered it was cancelled in the meantime.
	ctx = context.WithoutCancel(ctx)
	pattern := collection + ":*"
	if err := s.cache.DeleteMatching(ctx, pattern); err != nil {
		s.stats.IncCounter(stats.MetricCacheErrors, 1)
		s.log.Warn("cache invalidation failed",
			zap.String("pattern", pattern),
			zap.Error(err),
		)
		return
	}
	s.stats.IncCounter(stats.MetricInvalidations, 1)
}
