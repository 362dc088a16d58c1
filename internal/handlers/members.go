package handlers

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/charlesng35/tripmate/internal/services"
	"github.com/charlesng35/tripmate/pkg/response"
)

// MemberHandler manages trip membership.
type MemberHandler struct {
	service *services.MemberService
}

// NewMemberHandler constructs a member handler.
func NewMemberHandler(db *gorm.DB, caches *services.Caches) (*MemberHandler, error) {
	service, err := services.NewMemberService(db, caches)
	if err != nil {
		return nil, err
	}
	return &MemberHandler{service: service}, nil
}

type addMemberRequest struct {
	TripID uint   `json:"tripId" validate:"required"`
	UserID uint   `json:"userId" validate:"required"`
	Role   string `json:"role" validate:"omitempty,member_role"`
}

type updateMemberRequest struct {
	Role string `json:"role" validate:"required,member_role"`
}

// GET /api/members?tripId=
func (h *MemberHandler) List(c *gin.Context) {
	tripID, ok := uintQuery(c, "tripId")
	if !ok {
		return
	}

	members, err := h.service.List(requestContext(c), tripID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, members)
}

// POST /api/members
func (h *MemberHandler) Add(c *gin.Context) {
	var req addMemberRequest
	if !bindAndValidate(c, &req) {
		return
	}

	member, err := h.service.Add(requestContext(c), services.AddMemberInput{
		TripID: req.TripID,
		UserID: req.UserID,
		Role:   req.Role,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, member)
}

// PUT /api/members/:id
func (h *MemberHandler) UpdateRole(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}

	var req updateMemberRequest
	if !bindAndValidate(c, &req) {
		return
	}

	member, err := h.service.UpdateRole(requestContext(c), id, req.Role)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, member)
}

// DELETE /api/members/:id
func (h *MemberHandler) Remove(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}

	if err := h.service.Remove(requestContext(c), id); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"deleted": true})
}
