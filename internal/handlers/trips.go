package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/charlesng35/tripmate/internal/notifications"
	"github.com/charlesng35/tripmate/internal/services"
	"github.com/charlesng35/tripmate/pkg/response"
)

// TripHandler exposes trips and their packing lists.
type TripHandler struct {
	trips *services.TripService
	items *services.ItemService
}

// NewTripHandler constructs a trip handler.
func NewTripHandler(db *gorm.DB, caches *services.Caches, events notifications.EventSink) (*TripHandler, error) {
	trips, err := services.NewTripService(db, caches, events)
	if err != nil {
		return nil, err
	}
	items, err := services.NewItemService(db, caches, events)
	if err != nil {
		return nil, err
	}
	return &TripHandler{trips: trips, items: items}, nil
}

type createTripRequest struct {
	FromCity    string         `json:"fromCity"`
	Destination string         `json:"destination" validate:"required"`
	StartDate   string         `json:"startDate" validate:"required"`
	EndDate     string         `json:"endDate"`
	Schedule    datatypes.JSON `json:"schedule"`
}

type updateTripRequest struct {
	FromCity    *string        `json:"fromCity"`
	Destination *string        `json:"destination"`
	StartDate   *string        `json:"startDate"`
	EndDate     *string        `json:"endDate"`
	Schedule    datatypes.JSON `json:"schedule"`
}

type addItemRequest struct {
	Name       string `json:"name" validate:"required,max=255"`
	Packed     bool   `json:"packed"`
	AssignedTo *uint  `json:"assignedTo"`
}

type updateItemRequest struct {
	Packed     *bool `json:"packed"`
	AssignedTo *uint `json:"assignedTo"`
}

// POST /api/trips
func (h *TripHandler) Create(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req createTripRequest
	if !bindAndValidate(c, &req) {
		return
	}

	start, err := requiredDate("startDate", req.StartDate)
	if err != nil {
		response.Error(c, err)
		return
	}
	input := services.CreateTripInput{
		UserID:      userID,
		FromCity:    req.FromCity,
		Destination: req.Destination,
		StartDate:   start,
		Schedule:    req.Schedule,
	}
	if end, err := optionalDate("endDate", &req.EndDate); err != nil {
		response.Error(c, err)
		return
	} else if end != nil {
		input.EndDate = *end
	}

	trip, err := h.trips.Create(requestContext(c), input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, trip)
}

// GET /api/trips/:id
func (h *TripHandler) Get(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}

	trip, err := h.trips.Get(requestContext(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, trip)
}

// GET /api/trips/user/:userId
func (h *TripHandler) ListForUser(c *gin.Context) {
	userID, ok := uintParam(c, "userId")
	if !ok {
		return
	}

	trips, err := h.trips.ListForUser(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, trips)
}

// PUT /api/trips/:id
func (h *TripHandler) Update(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}

	var req updateTripRequest
	if !bindAndValidate(c, &req) {
		return
	}

	input := services.UpdateTripInput{
		FromCity:    req.FromCity,
		Destination: req.Destination,
		Schedule:    req.Schedule,
	}
	var err error
	if input.StartDate, err = optionalDate("startDate", req.StartDate); err != nil {
		response.Error(c, err)
		return
	}
	if input.EndDate, err = optionalDate("endDate", req.EndDate); err != nil {
		response.Error(c, err)
		return
	}

	trip, err := h.trips.Update(requestContext(c), id, input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, trip)
}

// DELETE /api/trips/:id
func (h *TripHandler) Delete(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}

	if err := h.trips.Delete(requestContext(c), id); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"deleted": true})
}

// GET /api/trips/:id/items
func (h *TripHandler) ListItems(c *gin.Context) {
	tripID, ok := uintParam(c, "id")
	if !ok {
		return
	}

	items, err := h.items.List(requestContext(c), tripID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, items)
}

// POST /api/trips/:id/items
func (h *TripHandler) AddItem(c *gin.Context) {
	tripID, ok := uintParam(c, "id")
	if !ok {
		return
	}

	var req addItemRequest
	if !bindAndValidate(c, &req) {
		return
	}

	item, err := h.items.Add(requestContext(c), tripID, services.AddItemInput{
		Name:       req.Name,
		Packed:     req.Packed,
		AssignedTo: req.AssignedTo,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, item)
}

// PUT /api/trips/items/:itemId
func (h *TripHandler) UpdateItem(c *gin.Context) {
	itemID, ok := uintParam(c, "itemId")
	if !ok {
		return
	}

	var req updateItemRequest
	if !bindAndValidate(c, &req) {
		return
	}

	item, err := h.items.Update(requestContext(c), itemID, services.UpdateItemInput{
		Packed:     req.Packed,
		AssignedTo: req.AssignedTo,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, item)
}

// DELETE /api/trips/:id/items
func (h *TripHandler) ClearItems(c *gin.Context) {
	tripID, ok := uintParam(c, "id")
	if !ok {
		return
	}

	if err := h.items.Clear(requestContext(c), tripID); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"cleared": true})
}
