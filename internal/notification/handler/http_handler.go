// Package handler serves the in-app notification feed.
package handler

import (
	"context"
	"net/http"

	"leadflow_backend/internal/notification/inapp"
	"leadflow_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	defaultPageSize = 20
	maxPageSize     = 50
)

type Feed interface {
	List(ctx context.Context, page, pageSize int, unreadOnly bool) ([]inapp.Notification, int, error)
	CountUnread(ctx context.Context) (int, error)
	MarkRead(ctx context.Context, id uuid.UUID) error
	MarkAllRead(ctx context.Context) error
}

type HTTPHandler struct {
	feed Feed
}

func NewHTTPHandler(feed Feed) *HTTPHandler {
	return &HTTPHandler{feed: feed}
}

func (h *HTTPHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.GET("/unread", h.CountUnread)
	rg.PATCH("/:id/read", h.MarkRead)
	rg.PATCH("/read-all", h.MarkAllRead)
}

type listQuery struct {
	Page   int  `form:"page"`
	Limit  int  `form:"limit"`
	Unread bool `form:"unread"`
}

type listResponse struct {
	Items      []inapp.Notification `json:"items"`
	Total      int                  `json:"total"`
	Page       int                  `json:"page"`
	PageSize   int                  `json:"pageSize"`
	TotalPages int                  `json:"totalPages"`
}

// List handles GET /notifications?page=&limit=&unread=.
func (h *HTTPHandler) List(c *gin.Context) {
	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid query", nil)
		return
	}
	q.Page = max(q.Page, 1)
	if q.Limit < 1 {
		q.Limit = defaultPageSize
	}
	q.Limit = min(q.Limit, maxPageSize)

	items, total, err := h.feed.List(c.Request.Context(), q.Page, q.Limit, q.Unread)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, listResponse{
		Items:      items,
		Total:      total,
		Page:       q.Page,
		PageSize:   q.Limit,
		TotalPages: (total + q.Limit - 1) / q.Limit,
	})
}

func (h *HTTPHandler) CountUnread(c *gin.Context) {
	count, err := h.feed.CountUnread(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"count": count})
}

func (h *HTTPHandler) MarkRead(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid notification id", nil)
		return
	}
	if httpkit.HandleError(c, h.feed.MarkRead(c.Request.Context(), id)) {
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *HTTPHandler) MarkAllRead(c *gin.Context) {
	if httpkit.HandleError(c, h.feed.MarkAllRead(c.Request.Context())) {
		return
	}
	c.Status(http.StatusNoContent)
}
