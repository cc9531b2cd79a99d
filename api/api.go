// Package api binds the feed service to its HTTP surface.
package api

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/feedwise/feedwise/feed"
	"github.com/feedwise/feedwise/httpx"
)

const (
	defaultPage  = 1
	defaultLimit = 10
)

// Handlers exposes the feed service over HTTP.
type Handlers struct {
	svc *feed.Service
}

// NewHandlers builds the handler set.
func NewHandlers(svc *feed.Service) *Handlers {
	return &Handlers{svc: svc}
}

// RegisterRoutes attaches every route to the app. Static segments are
// registered alongside the :id parameter routes; Echo resolves static
// matches first, so /users/search and /users/stats never collide with
// /users/:id.
func RegisterRoutes(a *httpx.App, h *Handlers) {
	a.POST("/users", h.CreateUser)
	a.GET("/users", h.ListUsers)
	a.GET("/users/search", h.SearchUsers)
	a.GET("/users/stats", h.UserStats)
	a.GET("/users/:id", h.GetUser)
	a.PUT("/users/:id", h.UpdateUser)
	a.DELETE("/users/:id", h.DeleteUser)

	a.POST("/posts", h.CreatePost)
	a.GET("/posts", h.ListPosts)
	a.GET("/posts/stats", h.PostStats)
}

type createUserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type createPostRequest struct {
	UserID  int64  `json:"user_id"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

func (h *Handlers) CreateUser(c httpx.Context) error {
	var req createUserRequest
	if err := c.Bind(&req); err != nil {
		return httpx.HTTPError(httpx.StatusBadRequest, "malformed request body")
	}
	if err := validateEmail(req.Email); err != nil {
		return err
	}
	user, err := h.svc.CreateUser(c.Request().Context(), strings.TrimSpace(req.Name), req.Email)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(httpx.StatusCreated, user)
}

func (h *Handlers) ListUsers(c httpx.Context) error {
	page, err := queryInt(c, "page", defaultPage)
	if err != nil {
		return err
	}
	limit, err := queryInt(c, "limit", defaultLimit)
	if err != nil {
		return err
	}
	result, err := h.svc.ListUsers(c.Request().Context(), page, limit)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(httpx.StatusOK, result)
}

func (h *Handlers) GetUser(c httpx.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	user, err := h.svc.GetUser(c.Request().Context(), id)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(httpx.StatusOK, user)
}

func (h *Handlers) UpdateUser(c httpx.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var patch feed.UserPatch
	if err := c.Bind(&patch); err != nil {
		return httpx.HTTPError(httpx.StatusBadRequest, "malformed request body")
	}
	if patch.Email != nil {
		if err := validateEmail(*patch.Email); err != nil {
			return err
		}
	}
	user, err := h.svc.UpdateUser(c.Request().Context(), id, patch)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(httpx.StatusOK, user)
}

func (h *Handlers) DeleteUser(c httpx.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteUser(c.Request().Context(), id); err != nil {
		return domainError(err)
	}
	return c.JSON(httpx.StatusOK, map[string]string{"message": "deleted"})
}

func (h *Handlers) SearchUsers(c httpx.Context) error {
	filter := feed.SearchFilter{Name: c.QueryParam("name")}
	if raw := c.QueryParam("created_after"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return httpx.HTTPError(httpx.StatusBadRequest, "created_after must be an RFC3339 timestamp")
		}
		filter.CreatedAfter = ts
	}
	users, err := h.svc.SearchUsers(c.Request().Context(), filter)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(httpx.StatusOK, users)
}

func (h *Handlers) UserStats(c httpx.Context) error {
	stats, err := h.svc.UserStats(c.Request().Context())
	if err != nil {
		return domainError(err)
	}
	return c.JSON(httpx.StatusOK, stats)
}

func (h *Handlers) CreatePost(c httpx.Context) error {
	var req createPostRequest
	if err := c.Bind(&req); err != nil {
		return httpx.HTTPError(httpx.StatusBadRequest, "malformed request body")
	}
	post, err := h.svc.CreatePost(c.Request().Context(), req.UserID, strings.TrimSpace(req.Title), req.Content)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(httpx.StatusCreated, post)
}

func (h *Handlers) ListPosts(c httpx.Context) error {
	raw := c.QueryParam("user_id")
	if raw == "" {
		return httpx.HTTPError(httpx.StatusBadRequest, "user_id query parameter is required")
	}
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || userID < 1 {
		return httpx.HTTPError(httpx.StatusBadRequest, "user_id must be a positive id")
	}
	posts, err := h.svc.ListPosts(c.Request().Context(), userID)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(httpx.StatusOK, posts)
}

func (h *Handlers) PostStats(c httpx.Context) error {
	stats, err := h.svc.PostStats(c.Request().Context())
	if err != nil {
		return domainError(err)
	}
	return c.JSON(httpx.StatusOK, stats)
}

func pathID(c httpx.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, httpx.HTTPError(httpx.StatusBadRequest, "id must be a positive integer")
	}
	return id, nil
}

func queryInt(c httpx.Context, name string, fallback int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, httpx.HTTPError(httpx.StatusBadRequest, name+" must be an integer")
	}
	return n, nil
}

func validateEmail(email string) error {
	at := strings.IndexByte(email, '@')
	if at < 1 || at == len(email)-1 {
		return httpx.HTTPError(httpx.StatusBadRequest, "email must be a valid address")
	}
	return nil
}

// domainError maps service errors onto HTTP status codes. Cache failures
// never reach this point; only the store of record produces client-visible
// errors.
func domainError(err error) error {
	var verr *feed.ValidationError
	switch {
	case errors.As(err, &verr):
		return httpx.HTTPError(httpx.StatusBadRequest, verr.Error())
	case errors.Is(err, feed.ErrUserNotFound):
		return httpx.HTTPError(httpx.StatusNotFound, "user not found")
	case errors.Is(err, feed.ErrEmailInUse):
		return httpx.HTTPError(httpx.StatusConflict, "email already in use")
	case errors.Is(err, feed.ErrIntegrity):
		return httpx.HTTPError(httpx.StatusBadRequest, "invalid foreign key reference")
	default:
		return err
	}
}
