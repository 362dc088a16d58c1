package handlers

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/charlesng35/tripmate/internal/services"
	"github.com/charlesng35/tripmate/pkg/response"
)

// ExpenseHandler manages the shared trip ledger.
type ExpenseHandler struct {
	service *services.ExpenseService
}

// NewExpenseHandler constructs an expense handler.
func NewExpenseHandler(db *gorm.DB, caches *services.Caches) (*ExpenseHandler, error) {
	service, err := services.NewExpenseService(db, caches)
	if err != nil {
		return nil, err
	}
	return &ExpenseHandler{service: service}, nil
}

type splitPayload struct {
	UserID uint    `json:"userId"`
	Amount float64 `json:"amount"`
}

type expensePayload struct {
	Note    string         `json:"note"`
	Amount  float64        `json:"amount"`
	PayerID uint           `json:"payerId"`
	Splits  []splitPayload `json:"splits"`
}

type saveExpensesRequest struct {
	TripID   uint             `json:"tripId" validate:"required"`
	Expenses []expensePayload `json:"expenses"`
}

// GET /api/expenses?tripId=
func (h *ExpenseHandler) List(c *gin.Context) {
	tripID, ok := uintQuery(c, "tripId")
	if !ok {
		return
	}

	expenses, err := h.service.List(requestContext(c), tripID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, expenses)
}

// POST /api/expenses/save replaces the whole ledger of a trip. Incomplete rows are dropped.
func (h *ExpenseHandler) Save(c *gin.Context) {
	var req saveExpensesRequest
	if !bindAndValidate(c, &req) {
		return
	}

	inputs := make([]services.ExpenseInput, 0, len(req.Expenses))
	for _, e := range req.Expenses {
		splits := make([]services.SplitInput, 0, len(e.Splits))
		for _, s := range e.Splits {
			splits = append(splits, services.SplitInput{UserID: s.UserID, Amount: s.Amount})
		}
		inputs = append(inputs, services.ExpenseInput{
			Note:    e.Note,
			Amount:  e.Amount,
			PayerID: e.PayerID,
			Splits:  splits,
		})
	}

	saved, err := h.service.Save(requestContext(c), req.TripID, inputs)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, saved)
}

// DELETE /api/expenses/:id
func (h *ExpenseHandler) Delete(c *gin.Context) {
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

// DELETE /api/expenses/trip/:tripId
func (h *ExpenseHandler) DeleteByTrip(c *gin.Context) {
	tripID, ok := uintParam(c, "tripId")
	if !ok {
		return
	}

	if err := h.service.DeleteByTrip(requestContext(c), tripID); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"deleted": true})
}
