package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/charlesng35/tripmate/internal/cache"
	"github.com/charlesng35/tripmate/internal/models"
	"github.com/charlesng35/tripmate/internal/notifications"
	apperrors "github.com/charlesng35/tripmate/pkg/errors"
)

// AddItemInput describes a packing item.
type AddItemInput struct {
	Name       string
	Packed     bool
	AssignedTo *uint
}

// UpdateItemInput toggles packing state and reassigns the item. A zero
// AssignedTo clears the assignment.
type UpdateItemInput struct {
	Packed     *bool
	AssignedTo *uint
}

// ItemService manages trip packing lists.
type ItemService struct {
	db     *gorm.DB
	caches *Caches
	events notifications.EventSink
}

// NewItemService constructs an ItemService.
func NewItemService(db *gorm.DB, caches *Caches, events notifications.EventSink) (*ItemService, error) {
	if db == nil {
		return nil, errors.New("item service: db is required")
	}
	if events == nil {
		events = notifications.NopSink{}
	}
	return &ItemService{db: db, caches: caches, events: events}, nil
}

// List returns the trip's packing items.
func (s *ItemService) List(ctx context.Context, tripID uint) ([]models.Item, error) {
	return readCached(ctx, s.caches, cache.ItemsKey(tripID), func(ctx context.Context) ([]models.Item, error) {
		items := []models.Item{}
		if err := s.db.WithContext(ctx).Where("trip_id = ?", tripID).Order("id ASC").Find(&items).Error; err != nil {
			return nil, fmt.Errorf("item service: list items: %w", err)
		}
		return items, nil
	})
}

// Add appends an item to the trip and notifies the assignee, if any.
func (s *ItemService) Add(ctx context.Context, tripID uint, input AddItemInput) (*models.Item, error) {
	ctx = ensureContext(ctx)
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewBadRequest("name is required")
	}
	if err := s.requireTrip(ctx, tripID); err != nil {
		return nil, err
	}

	item := models.Item{TripID: tripID, Name: name, Packed: input.Packed}
	if input.AssignedTo != nil && *input.AssignedTo != 0 {
		assignee := *input.AssignedTo
		if err := s.requireMember(ctx, tripID, assignee); err != nil {
			return nil, err
		}
		item.AssignedTo = &assignee
	}
	if err := s.db.WithContext(ctx).Create(&item).Error; err != nil {
		return nil, fmt.Errorf("item service: create item: %w", err)
	}

	s.invalidate(ctx, tripID)
	if item.AssignedTo != nil {
		s.notifyAssignee(ctx, item)
	}
	return &item, nil
}

// Update changes packed state or assignee. Reassigning to a different member
// notifies the new assignee.
func (s *ItemService) Update(ctx context.Context, itemID uint, input UpdateItemInput) (*models.Item, error) {
	ctx = ensureContext(ctx)
	var item models.Item
	if err := s.db.WithContext(ctx).First(&item, itemID).Error; err != nil {
		return nil, notFoundOr(err, ErrItemNotFound)
	}

	// Updates writes through item, so keep the old assignee by value.
	var previous *uint
	if item.AssignedTo != nil {
		v := *item.AssignedTo
		previous = &v
	}

	updates := map[string]any{}
	if input.Packed != nil {
		updates["packed"] = *input.Packed
	}
	if input.AssignedTo != nil {
		if *input.AssignedTo == 0 {
			updates["assigned_to"] = nil
		} else {
			if err := s.requireMember(ctx, item.TripID, *input.AssignedTo); err != nil {
				return nil, err
			}
			updates["assigned_to"] = *input.AssignedTo
		}
	}
	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(&item).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("item service: update item: %w", err)
		}
	}

	var updated models.Item
	if err := s.db.WithContext(ctx).First(&updated, itemID).Error; err != nil {
		return nil, fmt.Errorf("item service: reload item: %w", err)
	}

	s.invalidate(ctx, updated.TripID)
	if updated.AssignedTo != nil && (previous == nil || *previous != *updated.AssignedTo) {
		s.notifyAssignee(ctx, updated)
	}
	return &updated, nil
}

// Clear removes every item from the trip.
func (s *ItemService) Clear(ctx context.Context, tripID uint) error {
	ctx = ensureContext(ctx)
	if err := s.requireTrip(ctx, tripID); err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Where("trip_id = ?", tripID).Delete(&models.Item{}).Error; err != nil {
		return fmt.Errorf("item service: clear items: %w", err)
	}
	s.invalidate(ctx, tripID)
	return nil
}

func (s *ItemService) requireTrip(ctx context.Context, tripID uint) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Trip{}).Where("id = ?", tripID).Count(&count).Error; err != nil {
		return fmt.Errorf("item service: load trip: %w", err)
	}
	if count == 0 {
		return ErrTripNotFound
	}
	return nil
}

// requireMember rejects assignees who are not on the trip.
func (s *ItemService) requireMember(ctx context.Context, tripID, userID uint) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Member{}).
		Where("trip_id = ? AND user_id = ?", tripID, userID).
		Count(&count).Error; err != nil {
		return fmt.Errorf("item service: load member: %w", err)
	}
	if count == 0 {
		return apperrors.NewBadRequest("assignedTo must be a member of the trip")
	}
	return nil
}

// invalidate drops the item list and every member's trip list, which embeds items.
func (s *ItemService) invalidate(ctx context.Context, tripID uint) {
	keys := []string{cache.ItemsKey(tripID)}
	if members, err := TripMembers(ctx, s.db, tripID); err == nil {
		keys = append(keys, cache.UserTripsKeys(members)...)
	}
	s.caches.invalidate(ctx, keys...)
}

func (s *ItemService) notifyAssignee(ctx context.Context, item models.Item) {
	tripID := item.TripID
	s.events.Emit(ctx, notifications.Event{
		Type:       notifications.TypeItemAssigned,
		TripID:     &tripID,
		Message:    fmt.Sprintf("You were assigned to pack %q", item.Name),
		Recipients: []uint{*item.AssignedTo},
	})
}
