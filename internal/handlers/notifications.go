package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/charlesng35/tripmate/internal/notifications"
	"github.com/charlesng35/tripmate/internal/realtime"
	"github.com/charlesng35/tripmate/internal/services"
	"github.com/charlesng35/tripmate/pkg/errors"
	"github.com/charlesng35/tripmate/pkg/response"
)

// NotificationHandler exposes the in-app inbox.
type NotificationHandler struct {
	service *services.NotificationService
	hub     *realtime.Hub
}

// NewNotificationHandler constructs a notification handler. A nil hub disables the live stream.
func NewNotificationHandler(db *gorm.DB, caches *services.Caches, events notifications.EventSink, hub *realtime.Hub) (*NotificationHandler, error) {
	service, err := services.NewNotificationService(db, caches, events)
	if err != nil {
		return nil, err
	}
	return &NotificationHandler{service: service, hub: hub}, nil
}

type pingRequest struct {
	UserID  uint   `json:"userId" validate:"required"`
	Message string `json:"message" validate:"max=1024"`
}

// GET /api/notifications/user/:id
func (h *NotificationHandler) List(c *gin.Context) {
	userID, ok := uintParam(c, "id")
	if !ok {
		return
	}

	items, err := h.service.ListForUser(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, items)
}

// GET /api/notifications/user/:id/unread-count
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	userID, ok := uintParam(c, "id")
	if !ok {
		return
	}

	count, err := h.service.UnreadCount(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, count)
}

// PATCH /api/notifications/:id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}

	notification, err := h.service.MarkRead(requestContext(c), id, userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, notification)
}

// Stream upgrades the connection to a WebSocket pushing new inbox entries.
// GET /api/notifications/stream?token=
func (h *NotificationHandler) Stream(c *gin.Context) {
	if h.hub == nil {
		response.Error(c, errors.ErrNotFound)
		return
	}
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	h.hub.Serve(userID, c.Writer, c.Request)
}

// Ping enqueues a test notification for a user.
// POST /api/debug/ping-notify
func (h *NotificationHandler) Ping(c *gin.Context) {
	var req pingRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.service.Ping(requestContext(c), req.UserID, req.Message); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusAccepted, gin.H{"queued": true})
}
