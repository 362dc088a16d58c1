package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/charlesng35/tripmate/internal/services"
	"github.com/charlesng35/tripmate/pkg/errors"
	"github.com/charlesng35/tripmate/pkg/response"
)

// PhotoHandler exposes trip photo metadata, likes and comments.
type PhotoHandler struct {
	service *services.PhotoService
}

// NewPhotoHandler constructs a photo handler.
func NewPhotoHandler(db *gorm.DB) (*PhotoHandler, error) {
	service, err := services.NewPhotoService(db)
	if err != nil {
		return nil, err
	}
	return &PhotoHandler{service: service}, nil
}

type createPhotoRequest struct {
	TripID      uint   `json:"tripId" validate:"required"`
	DayIndex    int    `json:"dayIndex" validate:"gte=0"`
	PlaceName   string `json:"placeName" validate:"max=255"`
	Description string `json:"description"`
	ImageURL    string `json:"imageUrl" validate:"required"`
	Visibility  string `json:"visibility" validate:"omitempty,visibility"`
}

type commentRequest struct {
	Content string `json:"content" validate:"required"`
}

// POST /api/photos
func (h *PhotoHandler) Create(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req createPhotoRequest
	if !bindAndValidate(c, &req) {
		return
	}

	photo, err := h.service.Create(requestContext(c), services.PhotoInput{
		TripID:      req.TripID,
		UploadedBy:  userID,
		DayIndex:    req.DayIndex,
		PlaceName:   req.PlaceName,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		Visibility:  req.Visibility,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, photo)
}

// GET /api/photos/trip/:tripId
func (h *PhotoHandler) ListForTrip(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	tripID, ok := uintParam(c, "tripId")
	if !ok {
		return
	}

	photos, err := h.service.ListForTrip(requestContext(c), tripID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, photos)
}

// GET /api/photos/trip/:tripId/day/:dayIndex
func (h *PhotoHandler) ListForDay(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	tripID, ok := uintParam(c, "tripId")
	if !ok {
		return
	}
	day, err := strconv.Atoi(c.Param("dayIndex"))
	if err != nil || day < 0 {
		response.Error(c, errors.NewBadRequest("invalid dayIndex"))
		return
	}

	photos, err := h.service.ListForDay(requestContext(c), tripID, day, userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, photos)
}

// DELETE /api/photos/:id
func (h *PhotoHandler) Delete(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	photoID, ok := uintParam(c, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(requestContext(c), photoID, userID); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"deleted": true})
}

// POST /api/photos/:id/like
func (h *PhotoHandler) Like(c *gin.Context) {
	h.toggleLike(c, true)
}

// DELETE /api/photos/:id/like
func (h *PhotoHandler) Unlike(c *gin.Context) {
	h.toggleLike(c, false)
}

func (h *PhotoHandler) toggleLike(c *gin.Context, like bool) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	photoID, ok := uintParam(c, "id")
	if !ok {
		return
	}

	var err error
	if like {
		err = h.service.Like(requestContext(c), photoID, userID)
	} else {
		err = h.service.Unlike(requestContext(c), photoID, userID)
	}
	if err != nil {
		response.Error(c, err)
		return
	}

	summary, err := h.service.Likes(requestContext(c), photoID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, summary)
}

// GET /api/photos/:id/likes
func (h *PhotoHandler) Likes(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	photoID, ok := uintParam(c, "id")
	if !ok {
		return
	}

	summary, err := h.service.Likes(requestContext(c), photoID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, summary)
}

// POST /api/photos/:id/comments
func (h *PhotoHandler) AddComment(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	photoID, ok := uintParam(c, "id")
	if !ok {
		return
	}

	var req commentRequest
	if !bindAndValidate(c, &req) {
		return
	}

	comment, err := h.service.AddComment(requestContext(c), photoID, userID, req.Content)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, comment)
}

// GET /api/photos/:id/comments
func (h *PhotoHandler) Comments(c *gin.Context) {
	photoID, ok := uintParam(c, "id")
	if !ok {
		return
	}

	comments, err := h.service.Comments(requestContext(c), photoID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, comments)
}

// DELETE /api/photos/comment/:commentId
func (h *PhotoHandler) DeleteComment(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	commentID, ok := uintParam(c, "commentId")
	if !ok {
		return
	}

	if err := h.service.DeleteComment(requestContext(c), commentID, userID); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"deleted": true})
}
