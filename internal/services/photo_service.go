package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/charlesng35/tripmate/internal/models"
	apperrors "github.com/charlesng35/tripmate/pkg/errors"
)

// PhotoInput records an uploaded image against a trip day. The image itself lives
// in a blob store; only its URL is kept here.
type PhotoInput struct {
	TripID      uint
	UploadedBy  uint
	DayIndex    int
	PlaceName   string
	Description string
	ImageURL    string
	Visibility  string
}

// LikeSummary reports a photo's like count and whether the viewer liked it.
type LikeSummary struct {
	Total int64 `json:"total"`
	Liked bool  `json:"liked"`
}

// PhotoService manages trip photos, likes and comments. Listings depend on the
// viewer and are never cached.
type PhotoService struct {
	db *gorm.DB
}

// NewPhotoService constructs a PhotoService.
func NewPhotoService(db *gorm.DB) (*PhotoService, error) {
	if db == nil {
		return nil, errors.New("photo service: db is required")
	}
	return &PhotoService{db: db}, nil
}

// Create records photo metadata.
func (s *PhotoService) Create(ctx context.Context, input PhotoInput) (*models.Photo, error) {
	ctx = ensureContext(ctx)
	imageURL := strings.TrimSpace(input.ImageURL)
	if input.TripID == 0 || input.UploadedBy == 0 || imageURL == "" {
		return nil, apperrors.NewBadRequest("tripId, uploadedBy and imageUrl are required")
	}
	visibility := strings.ToLower(strings.TrimSpace(input.Visibility))
	switch visibility {
	case "":
		visibility = models.VisibilityPublic
	case models.VisibilityPublic, models.VisibilityPrivate:
	default:
		return nil, apperrors.NewBadRequest("visibility must be public or private")
	}

	photo := models.Photo{
		TripID:      input.TripID,
		UploadedBy:  input.UploadedBy,
		DayIndex:    input.DayIndex,
		PlaceName:   strings.TrimSpace(input.PlaceName),
		Description: strings.TrimSpace(input.Description),
		ImageURL:    imageURL,
		Visibility:  visibility,
	}
	if err := s.db.WithContext(ctx).Create(&photo).Error; err != nil {
		return nil, fmt.Errorf("photo service: create: %w", err)
	}
	return &photo, nil
}

// ListForTrip returns public photos plus the viewer's own private ones.
func (s *PhotoService) ListForTrip(ctx context.Context, tripID, viewerID uint) ([]models.Photo, error) {
	return s.list(ctx, viewerID, "trip_id = ?", tripID)
}

// ListForDay narrows ListForTrip to one day of the itinerary.
func (s *PhotoService) ListForDay(ctx context.Context, tripID uint, dayIndex int, viewerID uint) ([]models.Photo, error) {
	return s.list(ctx, viewerID, "trip_id = ? AND day_index = ?", tripID, dayIndex)
}

func (s *PhotoService) list(ctx context.Context, viewerID uint, query string, args ...any) ([]models.Photo, error) {
	photos := []models.Photo{}
	err := s.db.WithContext(ensureContext(ctx)).
		Where(query, args...).
		Where("visibility = ? OR uploaded_by = ?", models.VisibilityPublic, viewerID).
		Order("created_at ASC, id ASC").
		Find(&photos).Error
	if err != nil {
		return nil, fmt.Errorf("photo service: list: %w", err)
	}
	return photos, nil
}

// Delete removes a photo with its likes and comments. Only the uploader may delete.
func (s *PhotoService) Delete(ctx context.Context, photoID, userID uint) error {
	ctx = ensureContext(ctx)
	photo, err := s.get(ctx, photoID)
	if err != nil {
		return err
	}
	if photo.UploadedBy != userID {
		return apperrors.ErrForbidden.WithMessage("Only the uploader can delete this photo")
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("photo_id = ?", photoID).Delete(&models.Like{}).Error; err != nil {
			return err
		}
		if err := tx.Where("photo_id = ?", photoID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		return tx.Delete(photo).Error
	})
	if err != nil {
		return fmt.Errorf("photo service: delete: %w", err)
	}
	return nil
}

// Like records userID's like on the photo.
func (s *PhotoService) Like(ctx context.Context, photoID, userID uint) error {
	ctx = ensureContext(ctx)
	if _, err := s.get(ctx, photoID); err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Create(&models.Like{PhotoID: photoID, UserID: userID}).Error; err != nil {
		if isUniqueConstraintError(err) {
			return ErrAlreadyLiked
		}
		return fmt.Errorf("photo service: like: %w", err)
	}
	return nil
}

// Unlike removes userID's like. Removing an absent like is a no-op.
func (s *PhotoService) Unlike(ctx context.Context, photoID, userID uint) error {
	if err := s.db.WithContext(ensureContext(ctx)).
		Where("photo_id = ? AND user_id = ?", photoID, userID).
		Delete(&models.Like{}).Error; err != nil {
		return fmt.Errorf("photo service: unlike: %w", err)
	}
	return nil
}

// Likes summarises the photo's likes for viewerID.
func (s *PhotoService) Likes(ctx context.Context, photoID, viewerID uint) (LikeSummary, error) {
	ctx = ensureContext(ctx)
	var summary LikeSummary
	if err := s.db.WithContext(ctx).Model(&models.Like{}).Where("photo_id = ?", photoID).Count(&summary.Total).Error; err != nil {
		return summary, fmt.Errorf("photo service: count likes: %w", err)
	}
	var mine int64
	if err := s.db.WithContext(ctx).Model(&models.Like{}).
		Where("photo_id = ? AND user_id = ?", photoID, viewerID).
		Count(&mine).Error; err != nil {
		return summary, fmt.Errorf("photo service: load like: %w", err)
	}
	summary.Liked = mine > 0
	return summary, nil
}

// AddComment stores a comment by userID.
func (s *PhotoService) AddComment(ctx context.Context, photoID, userID uint, content string) (*models.Comment, error) {
	ctx = ensureContext(ctx)
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.NewBadRequest("content is required")
	}
	if _, err := s.get(ctx, photoID); err != nil {
		return nil, err
	}
	comment := models.Comment{PhotoID: photoID, UserID: userID, Content: content}
	if err := s.db.WithContext(ctx).Create(&comment).Error; err != nil {
		return nil, fmt.Errorf("photo service: add comment: %w", err)
	}
	if err := s.db.WithContext(ctx).Preload("User").First(&comment, comment.ID).Error; err != nil {
		return nil, fmt.Errorf("photo service: reload comment: %w", err)
	}
	return &comment, nil
}

// Comments lists the photo's comments oldest first.
func (s *PhotoService) Comments(ctx context.Context, photoID uint) ([]models.Comment, error) {
	comments := []models.Comment{}
	if err := s.db.WithContext(ensureContext(ctx)).
		Preload("User").
		Where("photo_id = ?", photoID).
		Order("created_at ASC, id ASC").
		Find(&comments).Error; err != nil {
		return nil, fmt.Errorf("photo service: list comments: %w", err)
	}
	return comments, nil
}

// DeleteComment removes a comment. Only its author may delete it.
func (s *PhotoService) DeleteComment(ctx context.Context, commentID, userID uint) error {
	ctx = ensureContext(ctx)
	var comment models.Comment
	if err := s.db.WithContext(ctx).First(&comment, commentID).Error; err != nil {
		return notFoundOr(err, ErrCommentNotFound)
	}
	if comment.UserID != userID {
		return apperrors.ErrForbidden.WithMessage("Only the author can delete this comment")
	}
	if err := s.db.WithContext(ctx).Delete(&comment).Error; err != nil {
		return fmt.Errorf("photo service: delete comment: %w", err)
	}
	return nil
}

func (s *PhotoService) get(ctx context.Context, photoID uint) (*models.Photo, error) {
	var photo models.Photo
	if err := s.db.WithContext(ctx).First(&photo, photoID).Error; err != nil {
		return nil, notFoundOr(err, ErrPhotoNotFound)
	}
	return &photo, nil
}
