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
)

// SplitInput is one member's share of an expense.
type SplitInput struct {
	UserID uint
	Amount float64
}

// ExpenseInput is a single expense in a bulk save.
type ExpenseInput struct {
	Note    string
	Amount  float64
	PayerID uint
	Splits  []SplitInput
}

// ExpenseService manages the shared expense ledger of a trip.
type ExpenseService struct {
	db     *gorm.DB
	caches *Caches
}

// NewExpenseService constructs an ExpenseService.
func NewExpenseService(db *gorm.DB, caches *Caches) (*ExpenseService, error) {
	if db == nil {
		return nil, errors.New("expense service: db is required")
	}
	return &ExpenseService{db: db, caches: caches}, nil
}

// List returns the trip's expenses with payer and splits.
func (s *ExpenseService) List(ctx context.Context, tripID uint) ([]models.Expense, error) {
	return readCached(ctx, s.caches, cache.ExpensesKey(tripID), func(ctx context.Context) ([]models.Expense, error) {
		expenses := []models.Expense{}
		if err := s.db.WithContext(ctx).
			Preload("Payer").
			Preload("Splits", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
			Where("trip_id = ?", tripID).
			Order("id ASC").
			Find(&expenses).Error; err != nil {
			return nil, fmt.Errorf("expense service: list: %w", err)
		}
		return expenses, nil
	})
}

// Save replaces the trip's ledger with expenses. Entries without a note, a positive
// amount or a payer are skipped. The replacement is atomic.
func (s *ExpenseService) Save(ctx context.Context, tripID uint, expenses []ExpenseInput) ([]models.Expense, error) {
	ctx = ensureContext(ctx)
	if tripID == 0 {
		return nil, apperrors.NewBadRequest("tripId is required")
	}

	rows := make([]models.Expense, 0, len(expenses))
	for _, input := range expenses {
		note := strings.TrimSpace(input.Note)
		if note == "" || input.Amount <= 0 || input.PayerID == 0 {
			continue
		}
		expense := models.Expense{TripID: tripID, PayerID: input.PayerID, Amount: input.Amount, Note: note}
		for _, split := range input.Splits {
			if split.UserID == 0 {
				continue
			}
			expense.Splits = append(expense.Splits, models.Split{TripID: tripID, UserID: split.UserID, Amount: split.Amount})
		}
		rows = append(rows, expense)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var trips int64
		if err := tx.Model(&models.Trip{}).Where("id = ?", tripID).Count(&trips).Error; err != nil {
			return err
		}
		if trips == 0 {
			return ErrTripNotFound
		}
		if err := tx.Where("trip_id = ?", tripID).Delete(&models.Split{}).Error; err != nil {
			return err
		}
		if err := tx.Where("trip_id = ?", tripID).Delete(&models.Expense{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		if errors.Is(err, ErrTripNotFound) {
			return nil, ErrTripNotFound
		}
		return nil, fmt.Errorf("expense service: save: %w", err)
	}

	s.caches.invalidate(ctx, cache.ExpensesKey(tripID))
	return rows, nil
}

// Delete removes one expense and its splits.
func (s *ExpenseService) Delete(ctx context.Context, id uint) error {
	ctx = ensureContext(ctx)
	var expense models.Expense
	if err := s.db.WithContext(ctx).First(&expense, id).Error; err != nil {
		return notFoundOr(err, ErrExpenseNotFound)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("expense_id = ?", expense.ID).Delete(&models.Split{}).Error; err != nil {
			return err
		}
		return tx.Delete(&expense).Error
	})
	if err != nil {
		return fmt.Errorf("expense service: delete: %w", err)
	}

	s.caches.invalidate(ctx, cache.ExpensesKey(expense.TripID))
	return nil
}

// DeleteByTrip clears the trip's ledger.
func (s *ExpenseService) DeleteByTrip(ctx context.Context, tripID uint) error {
	ctx = ensureContext(ctx)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("trip_id = ?", tripID).Delete(&models.Split{}).Error; err != nil {
			return err
		}
		return tx.Where("trip_id = ?", tripID).Delete(&models.Expense{}).Error
	})
	if err != nil {
		return fmt.Errorf("expense service: delete by trip: %w", err)
	}
	s.caches.invalidate(ctx, cache.ExpensesKey(tripID))
	return nil
}
