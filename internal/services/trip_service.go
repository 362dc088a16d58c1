package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/charlesng35/tripmate/internal/cache"
	"github.com/charlesng35/tripmate/internal/models"
	"github.com/charlesng35/tripmate/internal/notifications"
	apperrors "github.com/charlesng35/tripmate/pkg/errors"
	"github.com/charlesng35/tripmate/pkg/logger"
	"github.com/charlesng35/tripmate/pkg/validator"
)

// CreateTripInput describes a new trip. The owner becomes its captain.
type CreateTripInput struct {
	UserID      uint
	FromCity    string
	Destination string
	StartDate   time.Time
	EndDate     time.Time
	Schedule    datatypes.JSON
}

// UpdateTripInput enumerates mutable trip attributes. Packing items are managed
// through ItemService and are never touched here.
type UpdateTripInput struct {
	UserID      *uint
	FromCity    *string
	Destination *string
	StartDate   *time.Time
	EndDate     *time.Time
	Schedule    datatypes.JSON
}

// TripService manages trips and keeps the per-member trip lists fresh.
type TripService struct {
	db     *gorm.DB
	caches *Caches
	events notifications.EventSink
}

// NewTripService constructs a TripService.
func NewTripService(db *gorm.DB, caches *Caches, events notifications.EventSink) (*TripService, error) {
	if db == nil {
		return nil, errors.New("trip service: db is required")
	}
	if events == nil {
		events = notifications.NopSink{}
	}
	return &TripService{db: db, caches: caches, events: events}, nil
}

// Create stores the trip and its captain membership in one transaction.
func (s *TripService) Create(ctx context.Context, input CreateTripInput) (*models.Trip, error) {
	ctx = ensureContext(ctx)
	if input.UserID == 0 {
		return nil, apperrors.NewBadRequest("userId is required")
	}
	destination := strings.TrimSpace(input.Destination)
	if destination == "" {
		return nil, apperrors.NewBadRequest("destination is required")
	}
	if !input.EndDate.IsZero() && input.EndDate.Before(input.StartDate) {
		return nil, apperrors.NewBadRequest("endDate must not be before startDate")
	}

	trip := models.Trip{
		UserID:      input.UserID,
		FromCity:    strings.TrimSpace(input.FromCity),
		Destination: destination,
		StartDate:   input.StartDate,
		EndDate:     input.EndDate,
		Schedule:    input.Schedule,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&trip).Error; err != nil {
			return err
		}
		return tx.Create(&models.Member{TripID: trip.ID, UserID: input.UserID, Role: validator.RoleCaptain}).Error
	})
	if err != nil {
		return nil, fmt.Errorf("trip service: create trip: %w", err)
	}

	s.caches.invalidate(ctx, cache.UserTripsKey(input.UserID))
	s.notifyMembers(ctx, trip.ID, notifications.TypeTripCreated, fmt.Sprintf("Trip to %q created", trip.Destination))

	return &trip, nil
}

// Get reads a trip directly from the primary store.
func (s *TripService) Get(ctx context.Context, id uint) (*models.Trip, error) {
	var trip models.Trip
	if err := s.db.WithContext(ensureContext(ctx)).First(&trip, id).Error; err != nil {
		return nil, notFoundOr(err, ErrTripNotFound)
	}
	return &trip, nil
}

// ListForUser returns every trip userID is a member of, with items and members.
func (s *TripService) ListForUser(ctx context.Context, userID uint) ([]models.Trip, error) {
	return readCached(ctx, s.caches, cache.UserTripsKey(userID), func(ctx context.Context) ([]models.Trip, error) {
		var trips []models.Trip
		err := s.db.WithContext(ctx).
			Where("id IN (?)", s.db.Model(&models.Member{}).Select("trip_id").Where("user_id = ?", userID)).
			Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
			Preload("Members", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
			Preload("Members.User").
			Order("start_date ASC, id ASC").
			Find(&trips).Error
		if err != nil {
			return nil, fmt.Errorf("trip service: list trips: %w", err)
		}
		if trips == nil {
			trips = []models.Trip{}
		}
		return trips, nil
	})
}

// Update applies the supplied fields and notifies every member.
func (s *TripService) Update(ctx context.Context, id uint, input UpdateTripInput) (*models.Trip, error) {
	ctx = ensureContext(ctx)
	trip, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.UserID != nil && *input.UserID != 0 {
		updates["user_id"] = *input.UserID
	}
	if input.FromCity != nil {
		updates["from_city"] = strings.TrimSpace(*input.FromCity)
	}
	if input.Destination != nil {
		destination := strings.TrimSpace(*input.Destination)
		if destination == "" {
			return nil, apperrors.NewBadRequest("destination must not be empty")
		}
		updates["destination"] = destination
	}
	if input.StartDate != nil {
		updates["start_date"] = *input.StartDate
	}
	if input.EndDate != nil {
		updates["end_date"] = *input.EndDate
	}
	if input.Schedule != nil {
		updates["schedule"] = input.Schedule
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(trip).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("trip service: update trip: %w", err)
		}
	}

	updated, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	members, err := TripMembers(ctx, s.db, id)
	if err != nil {
		return nil, fmt.Errorf("trip service: load members: %w", err)
	}
	s.caches.invalidate(ctx, cache.UserTripsKeys(members)...)
	s.events.Emit(ctx, notifications.Event{
		Type:       notifications.TypeTripUpdated,
		TripID:     &updated.ID,
		Message:    fmt.Sprintf("Trip to %q was updated", updated.Destination),
		Recipients: members,
	})

	return updated, nil
}

// Delete removes the trip and everything attached to it.
func (s *TripService) Delete(ctx context.Context, id uint) error {
	ctx = ensureContext(ctx)
	trip, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	members, err := TripMembers(ctx, s.db, id)
	if err != nil {
		return fmt.Errorf("trip service: load members: %w", err)
	}

	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Delete(trip).Error
	}); err != nil {
		return fmt.Errorf("trip service: delete trip: %w", err)
	}

	keys := append(cache.UserTripsKeys(members), cache.TripKeys(id)...)
	s.caches.invalidate(ctx, keys...)
	return nil
}

func (s *TripService) notifyMembers(ctx context.Context, tripID uint, typ notifications.Type, message string) {
	members, err := TripMembers(ctx, s.db, tripID)
	if err != nil {
		logger.WithModule("trips").Warn("load notification recipients failed",
			zap.Uint("trip_id", tripID), zap.Error(err))
		return
	}
	s.events.Emit(ctx, notifications.Event{
		Type:       typ,
		TripID:     &tripID,
		Message:    message,
		Recipients: members,
	})
}
