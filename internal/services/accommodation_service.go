package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/tripmate/internal/cache"
	"github.com/charlesng35/tripmate/internal/models"
	"github.com/charlesng35/tripmate/internal/notifications"
	apperrors "github.com/charlesng35/tripmate/pkg/errors"
	"github.com/charlesng35/tripmate/pkg/logger"
)

// AccommodationInput carries the fields of a stay.
type AccommodationInput struct {
	TripID     uint
	Name       string
	Address    string
	CheckIn    time.Time
	CheckOut   time.Time
	BookingURL string
	ImageURL   string
}

// UpdateAccommodationInput enumerates mutable accommodation fields.
type UpdateAccommodationInput struct {
	Name       *string
	Address    *string
	CheckIn    *time.Time
	CheckOut   *time.Time
	BookingURL *string
	ImageURL   *string
}

// AccommodationService manages stays booked for a trip.
type AccommodationService struct {
	db     *gorm.DB
	caches *Caches
	events notifications.EventSink
}

// NewAccommodationService constructs an AccommodationService.
func NewAccommodationService(db *gorm.DB, caches *Caches, events notifications.EventSink) (*AccommodationService, error) {
	if db == nil {
		return nil, errors.New("accommodation service: db is required")
	}
	if events == nil {
		events = notifications.NopSink{}
	}
	return &AccommodationService{db: db, caches: caches, events: events}, nil
}

// List returns the trip's stays ordered by check-in.
func (s *AccommodationService) List(ctx context.Context, tripID uint) ([]models.Accommodation, error) {
	return readCached(ctx, s.caches, cache.AccommodationsKey(tripID), func(ctx context.Context) ([]models.Accommodation, error) {
		stays := []models.Accommodation{}
		if err := s.db.WithContext(ctx).
			Where("trip_id = ?", tripID).
			Order("check_in ASC, id ASC").
			Find(&stays).Error; err != nil {
			return nil, fmt.Errorf("accommodation service: list: %w", err)
		}
		return stays, nil
	})
}

// Create stores the stay, drops the trip's cached list, then tells every member.
// The cache is cleared before any notification is published so a member reacting
// to the notification reads the new row.
func (s *AccommodationService) Create(ctx context.Context, input AccommodationInput) (*models.Accommodation, error) {
	ctx = ensureContext(ctx)
	name := strings.TrimSpace(input.Name)
	address := strings.TrimSpace(input.Address)
	if input.TripID == 0 || name == "" || address == "" || input.CheckIn.IsZero() || input.CheckOut.IsZero() {
		return nil, apperrors.NewBadRequest("tripId, name, address, checkIn and checkOut are required")
	}
	if input.CheckOut.Before(input.CheckIn) {
		return nil, apperrors.NewBadRequest("checkOut must not be before checkIn")
	}

	var trips int64
	if err := s.db.WithContext(ctx).Model(&models.Trip{}).Where("id = ?", input.TripID).Count(&trips).Error; err != nil {
		return nil, fmt.Errorf("accommodation service: load trip: %w", err)
	}
	if trips == 0 {
		return nil, ErrTripNotFound
	}

	stay := models.Accommodation{
		TripID:     input.TripID,
		Name:       name,
		Address:    address,
		CheckIn:    input.CheckIn,
		CheckOut:   input.CheckOut,
		BookingURL: strings.TrimSpace(input.BookingURL),
		ImageURL:   strings.TrimSpace(input.ImageURL),
	}
	if err := s.db.WithContext(ctx).Create(&stay).Error; err != nil {
		return nil, fmt.Errorf("accommodation service: create: %w", err)
	}

	s.caches.invalidate(ctx, cache.AccommodationsKey(stay.TripID))

	members, err := TripMembers(ctx, s.db, stay.TripID)
	if err != nil {
		// The stay is committed; a failed fan-out must not report the write as failed.
		logger.WithModule("accommodations").Warn("load notification recipients failed",
			zap.Uint("trip_id", stay.TripID), zap.Uint("accommodation_id", stay.ID), zap.Error(err))
		return &stay, nil
	}
	tripID := stay.TripID
	s.events.Emit(ctx, notifications.Event{
		Type:       notifications.TypeAccommodationCreated,
		TripID:     &tripID,
		Message:    fmt.Sprintf("New accommodation %q added to your trip.", stay.Name),
		Recipients: members,
	})

	return &stay, nil
}

// Update applies the supplied fields.
func (s *AccommodationService) Update(ctx context.Context, id uint, input UpdateAccommodationInput) (*models.Accommodation, error) {
	ctx = ensureContext(ctx)
	var stay models.Accommodation
	if err := s.db.WithContext(ctx).First(&stay, id).Error; err != nil {
		return nil, notFoundOr(err, ErrAccommodationNotFound)
	}

	updates := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperrors.NewBadRequest("name must not be empty")
		}
		updates["name"] = name
	}
	if input.Address != nil {
		address := strings.TrimSpace(*input.Address)
		if address == "" {
			return nil, apperrors.NewBadRequest("address must not be empty")
		}
		updates["address"] = address
	}
	if input.CheckIn != nil {
		updates["check_in"] = *input.CheckIn
	}
	if input.CheckOut != nil {
		updates["check_out"] = *input.CheckOut
	}
	if input.BookingURL != nil {
		updates["booking_url"] = strings.TrimSpace(*input.BookingURL)
	}
	if input.ImageURL != nil {
		updates["image_url"] = strings.TrimSpace(*input.ImageURL)
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(&stay).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("accommodation service: update: %w", err)
		}
	}
	if err := s.db.WithContext(ctx).First(&stay, id).Error; err != nil {
		return nil, fmt.Errorf("accommodation service: reload: %w", err)
	}

	s.caches.invalidate(ctx, cache.AccommodationsKey(stay.TripID))
	return &stay, nil
}

// Delete removes the stay.
func (s *AccommodationService) Delete(ctx context.Context, id uint) error {
	ctx = ensureContext(ctx)
	var stay models.Accommodation
	if err := s.db.WithContext(ctx).First(&stay, id).Error; err != nil {
		return notFoundOr(err, ErrAccommodationNotFound)
	}
	if err := s.db.WithContext(ctx).Delete(&stay).Error; err != nil {
		return fmt.Errorf("accommodation service: delete: %w", err)
	}
	s.caches.invalidate(ctx, cache.AccommodationsKey(stay.TripID))
	return nil
}
