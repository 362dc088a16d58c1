package handlers

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/charlesng35/tripmate/internal/notifications"
	"github.com/charlesng35/tripmate/internal/services"
	"github.com/charlesng35/tripmate/pkg/response"
)

// AccommodationHandler manages booked stays.
type AccommodationHandler struct {
	service *services.AccommodationService
}

// NewAccommodationHandler constructs an accommodation handler.
func NewAccommodationHandler(db *gorm.DB, caches *services.Caches, events notifications.EventSink) (*AccommodationHandler, error) {
	service, err := services.NewAccommodationService(db, caches, events)
	if err != nil {
		return nil, err
	}
	return &AccommodationHandler{service: service}, nil
}

type accommodationRequest struct {
	TripID     uint   `json:"tripId" validate:"required"`
	Name       string `json:"name" validate:"required,max=255"`
	Address    string `json:"address" validate:"required,max=512"`
	CheckIn    string `json:"checkIn" validate:"required"`
	CheckOut   string `json:"checkOut" validate:"required"`
	BookingURL string `json:"bookingUrl" validate:"omitempty,url"`
	ImageURL   string `json:"imageUrl"`
}

type updateAccommodationRequest struct {
	Name       *string `json:"name" validate:"omitempty,max=255"`
	Address    *string `json:"address" validate:"omitempty,max=512"`
	CheckIn    *string `json:"checkIn"`
	CheckOut   *string `json:"checkOut"`
	BookingURL *string `json:"bookingUrl"`
	ImageURL   *string `json:"imageUrl"`
}

// GET /api/accommodations?tripId=
func (h *AccommodationHandler) List(c *gin.Context) {
	tripID, ok := uintQuery(c, "tripId")
	if !ok {
		return
	}

	stays, err := h.service.List(requestContext(c), tripID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, stays)
}

// POST /api/accommodations
func (h *AccommodationHandler) Create(c *gin.Context) {
	var req accommodationRequest
	if !bindAndValidate(c, &req) {
		return
	}

	checkIn, err := requiredDate("checkIn", req.CheckIn)
	if err != nil {
		response.Error(c, err)
		return
	}
	checkOut, err := requiredDate("checkOut", req.CheckOut)
	if err != nil {
		response.Error(c, err)
		return
	}

	stay, err := h.service.Create(requestContext(c), services.AccommodationInput{
		TripID:     req.TripID,
		Name:       req.Name,
		Address:    req.Address,
		CheckIn:    checkIn,
		CheckOut:   checkOut,
		BookingURL: req.BookingURL,
		ImageURL:   req.ImageURL,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, stay)
}

// PUT|PATCH /api/accommodations/:id
func (h *AccommodationHandler) Update(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}

	var req updateAccommodationRequest
	if !bindAndValidate(c, &req) {
		return
	}

	input := services.UpdateAccommodationInput{
		Name:       req.Name,
		Address:    req.Address,
		BookingURL: req.BookingURL,
		ImageURL:   req.ImageURL,
	}
	var err error
	if input.CheckIn, err = optionalDate("checkIn", req.CheckIn); err != nil {
		response.Error(c, err)
		return
	}
	if input.CheckOut, err = optionalDate("checkOut", req.CheckOut); err != nil {
		response.Error(c, err)
		return
	}

	stay, err := h.service.Update(requestContext(c), id, input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, stay)
}

// DELETE /api/accommodations/:id
func (h *AccommodationHandler) Delete(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(requestContext(c), id); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"deleted": true})
}
