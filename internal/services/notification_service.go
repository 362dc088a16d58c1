package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/charlesng35/tripmate/internal/cache"
	"github.com/charlesng35/tripmate/internal/models"
	"github.com/charlesng35/tripmate/internal/notifications"
	apperrors "github.com/charlesng35/tripmate/pkg/errors"
)

// UnreadCount is the payload of the unread counter endpoint.
type UnreadCount struct {
	Count int64 `json:"count"`
}

// NotificationService serves a user's inbox. Rows are created by the notification
// consumer; this service only reads them and marks them read.
type NotificationService struct {
	db     *gorm.DB
	caches *Caches
	events notifications.EventSink
}

// NewNotificationService constructs a NotificationService.
func NewNotificationService(db *gorm.DB, caches *Caches, events notifications.EventSink) (*NotificationService, error) {
	if db == nil {
		return nil, errors.New("notification service: db is required")
	}
	if events == nil {
		events = notifications.NopSink{}
	}
	return &NotificationService{db: db, caches: caches, events: events}, nil
}

// ListForUser returns the user's notifications newest first.
func (s *NotificationService) ListForUser(ctx context.Context, userID uint) ([]models.Notification, error) {
	return readCached(ctx, s.caches, cache.NotificationsKey(userID), func(ctx context.Context) ([]models.Notification, error) {
		items := []models.Notification{}
		if err := s.db.WithContext(ctx).
			Where("user_id = ?", userID).
			Order("created_at DESC, id DESC").
			Find(&items).Error; err != nil {
			return nil, fmt.Errorf("notification service: list: %w", err)
		}
		return items, nil
	})
}

// UnreadCount counts the user's unread notifications.
func (s *NotificationService) UnreadCount(ctx context.Context, userID uint) (UnreadCount, error) {
	return readCached(ctx, s.caches, cache.UnreadCountKey(userID), func(ctx context.Context) (UnreadCount, error) {
		var out UnreadCount
		if err := s.db.WithContext(ctx).
			Model(&models.Notification{}).
			Where("user_id = ? AND is_read = ?", userID, false).
			Count(&out.Count).Error; err != nil {
			return out, fmt.Errorf("notification service: count unread: %w", err)
		}
		return out, nil
	})
}

// MarkRead flags a notification read. Only its owner may do so.
func (s *NotificationService) MarkRead(ctx context.Context, id, userID uint) (*models.Notification, error) {
	ctx = ensureContext(ctx)
	var n models.Notification
	if err := s.db.WithContext(ctx).First(&n, id).Error; err != nil {
		return nil, notFoundOr(err, ErrNotificationNotFound)
	}
	if n.UserID != userID {
		return nil, apperrors.ErrForbidden.WithMessage("Notification belongs to another user")
	}

	if !n.IsRead {
		if err := s.db.WithContext(ctx).Model(&n).Update("is_read", true).Error; err != nil {
			return nil, fmt.Errorf("notification service: mark read: %w", err)
		}
		n.IsRead = true
	}

	s.caches.invalidate(ctx, cache.InboxKeys(n.UserID)...)
	return &n, nil
}

// Ping sends a test notification through the full pipeline.
func (s *NotificationService) Ping(ctx context.Context, userID uint, message string) error {
	ctx = ensureContext(ctx)
	if userID == 0 {
		return apperrors.NewBadRequest("userId is required")
	}
	if message == "" {
		message = "test"
	}
	s.events.Emit(ctx, notifications.Event{
		Type:       notifications.TypeTest,
		Message:    message,
		Recipients: []uint{userID},
	})
	return nil
}
