package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/charlesng35/tripmate/internal/cache"
	"github.com/charlesng35/tripmate/internal/models"
	apperrors "github.com/charlesng35/tripmate/pkg/errors"
	"github.com/charlesng35/tripmate/pkg/validator"
)

// AddMemberInput links a user to a trip.
type AddMemberInput struct {
	TripID uint
	UserID uint
	Role   string
}

// MemberService manages trip membership.
type MemberService struct {
	db     *gorm.DB
	caches *Caches
}

// NewMemberService constructs a MemberService.
func NewMemberService(db *gorm.DB, caches *Caches) (*MemberService, error) {
	if db == nil {
		return nil, errors.New("member service: db is required")
	}
	return &MemberService{db: db, caches: caches}, nil
}

// List returns the trip's members with their user records.
func (s *MemberService) List(ctx context.Context, tripID uint) ([]models.Member, error) {
	return readCached(ctx, s.caches, cache.MembersKey(tripID), func(ctx context.Context) ([]models.Member, error) {
		members := []models.Member{}
		if err := s.db.WithContext(ctx).Preload("User").Where("trip_id = ?", tripID).Order("id ASC").Find(&members).Error; err != nil {
			return nil, fmt.Errorf("member service: list members: %w", err)
		}
		return members, nil
	})
}

// Add creates the membership and gives the new member a copy of the captain's
// assigned packing items.
func (s *MemberService) Add(ctx context.Context, input AddMemberInput) (*models.Member, error) {
	ctx = ensureContext(ctx)
	if input.TripID == 0 || input.UserID == 0 {
		return nil, apperrors.NewBadRequest("userId and tripId are required")
	}
	role := strings.TrimSpace(input.Role)
	if role == "" {
		role = validator.RoleMember
	}
	if !validRole(role) {
		return nil, apperrors.NewBadRequest("role must be Captain or Member")
	}

	member := models.Member{TripID: input.TripID, UserID: input.UserID, Role: role}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var trips int64
		if err := tx.Model(&models.Trip{}).Where("id = ?", input.TripID).Count(&trips).Error; err != nil {
			return err
		}
		if trips == 0 {
			return ErrTripNotFound
		}

		var existing int64
		if err := tx.Model(&models.Member{}).
			Where("trip_id = ? AND user_id = ?", input.TripID, input.UserID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrAlreadyMember
		}

		if err := tx.Create(&member).Error; err != nil {
			if isUniqueConstraintError(err) {
				return ErrAlreadyMember
			}
			return err
		}

		return copyCaptainItems(tx, input.TripID, input.UserID)
	})
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, fmt.Errorf("member service: add member: %w", err)
	}

	if err := s.db.WithContext(ctx).Preload("User").First(&member, member.ID).Error; err != nil {
		return nil, fmt.Errorf("member service: reload member: %w", err)
	}

	s.invalidateTrip(ctx, input.TripID, nil, cache.MembersKey(input.TripID), cache.ItemsKey(input.TripID))
	return &member, nil
}

// UpdateRole changes a member's role.
func (s *MemberService) UpdateRole(ctx context.Context, memberID uint, role string) (*models.Member, error) {
	ctx = ensureContext(ctx)
	role = strings.TrimSpace(role)
	if !validRole(role) {
		return nil, apperrors.NewBadRequest("role must be Captain or Member")
	}

	var member models.Member
	if err := s.db.WithContext(ctx).First(&member, memberID).Error; err != nil {
		return nil, notFoundOr(err, ErrMemberNotFound)
	}
	if err := s.db.WithContext(ctx).Model(&member).Update("role", role).Error; err != nil {
		return nil, fmt.Errorf("member service: update role: %w", err)
	}

	member.Role = role
	s.invalidateTrip(ctx, member.TripID, nil, cache.MembersKey(member.TripID))
	return &member, nil
}

// Remove deletes the membership. The removed user's trip list is invalidated too.
func (s *MemberService) Remove(ctx context.Context, memberID uint) error {
	ctx = ensureContext(ctx)
	var member models.Member
	if err := s.db.WithContext(ctx).First(&member, memberID).Error; err != nil {
		return notFoundOr(err, ErrMemberNotFound)
	}

	// Capture recipients before the row disappears.
	former, err := TripMembers(ctx, s.db, member.TripID)
	if err != nil {
		return fmt.Errorf("member service: load members: %w", err)
	}

	if err := s.db.WithContext(ctx).Delete(&member).Error; err != nil {
		return fmt.Errorf("member service: delete member: %w", err)
	}

	s.invalidateTrip(ctx, member.TripID, former, cache.MembersKey(member.TripID))
	return nil
}

// invalidateTrip drops extra plus the trip list of every member. When members is
// nil the current membership is read from the store.
func (s *MemberService) invalidateTrip(ctx context.Context, tripID uint, members []uint, extra ...string) {
	if members == nil {
		members, _ = TripMembers(ctx, s.db, tripID)
	}
	keys := append(extra, cache.UserTripsKeys(uniqueIDs(members))...)
	s.caches.invalidate(ctx, keys...)
}

func validRole(role string) bool {
	return role == validator.RoleCaptain || role == validator.RoleMember
}

func copyCaptainItems(tx *gorm.DB, tripID, userID uint) error {
	var captain models.Member
	err := tx.Where("trip_id = ? AND role = ?", tripID, validator.RoleCaptain).Order("id ASC").First(&captain).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if captain.UserID == userID {
		return nil
	}

	var items []models.Item
	if err := tx.Where("trip_id = ? AND assigned_to = ?", tripID, captain.UserID).Order("id ASC").Find(&items).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}

	copies := make([]models.Item, 0, len(items))
	for _, item := range items {
		assignee := userID
		copies = append(copies, models.Item{TripID: tripID, Name: item.Name, Packed: false, AssignedTo: &assignee})
	}
	return tx.Create(&copies).Error
}
