package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/tripmate/internal/cache"
	"github.com/charlesng35/tripmate/internal/models"
)

func TestExpenseServiceSaveReplacesLedger(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice@example.com")
	bob := f.user(t, "bob@example.com")
	trip := f.trip(t, alice.ID, bob.ID)

	svc, err := NewExpenseService(f.db, f.caches)
	require.NoError(t, err)

	_, err = svc.Save(context.Background(), trip.ID, []ExpenseInput{
		{Note: "Dinner", Amount: 80, PayerID: alice.ID, Splits: []SplitInput{{UserID: alice.ID, Amount: 40}, {UserID: bob.ID, Amount: 40}}},
	})
	require.NoError(t, err)

	listed, err := svc.List(context.Background(), trip.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.True(t, f.store.Has(cache.ExpensesKey(trip.ID)))

	saved, err := svc.Save(context.Background(), trip.ID, []ExpenseInput{
		{Note: "Taxi", Amount: 30, PayerID: bob.ID, Splits: []SplitInput{{UserID: alice.ID, Amount: 15}, {UserID: bob.ID, Amount: 15}}},
		{Note: "", Amount: 10, PayerID: bob.ID},
		{Note: "Refund", Amount: -5, PayerID: bob.ID},
		{Note: "Orphan", Amount: 5},
	})
	require.NoError(t, err)
	require.Len(t, saved, 1)
	f.requireGone(t, cache.ExpensesKey(trip.ID))

	listed, err = svc.List(context.Background(), trip.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.Equal(t, "Taxi", listed[0].Note)
	require.NotNil(t, listed[0].Payer)
	require.Equal(t, bob.ID, listed[0].Payer.ID)
	require.Len(t, listed[0].Splits, 2)

	var splits int64
	require.NoError(t, f.db.Model(&models.Split{}).Where("trip_id = ?", trip.ID).Count(&splits).Error)
	require.EqualValues(t, 2, splits)
}

func TestExpenseServiceSaveUnknownTrip(t *testing.T) {
	f := newFixture(t)
	svc, err := NewExpenseService(f.db, f.caches)
	require.NoError(t, err)

	_, err = svc.Save(context.Background(), 404, nil)
	require.ErrorIs(t, err, ErrTripNotFound)
}

func TestExpenseServiceDelete(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice@example.com")
	trip := f.trip(t, alice.ID)

	svc, err := NewExpenseService(f.db, f.caches)
	require.NoError(t, err)
	saved, err := svc.Save(context.Background(), trip.ID, []ExpenseInput{
		{Note: "Museum", Amount: 20, PayerID: alice.ID, Splits: []SplitInput{{UserID: alice.ID, Amount: 20}}},
		{Note: "Lunch", Amount: 12, PayerID: alice.ID},
	})
	require.NoError(t, err)
	require.Len(t, saved, 2)

	f.prime(t, cache.ExpensesKey(trip.ID))
	require.NoError(t, svc.Delete(context.Background(), saved[0].ID))
	f.requireGone(t, cache.ExpensesKey(trip.ID))

	var splits int64
	require.NoError(t, f.db.Model(&models.Split{}).Where("expense_id = ?", saved[0].ID).Count(&splits).Error)
	require.Zero(t, splits)
	require.ErrorIs(t, svc.Delete(context.Background(), saved[0].ID), ErrExpenseNotFound)

	f.prime(t, cache.ExpensesKey(trip.ID))
	require.NoError(t, svc.DeleteByTrip(context.Background(), trip.ID))
	f.requireGone(t, cache.ExpensesKey(trip.ID))

	listed, err := svc.List(context.Background(), trip.ID)
	require.NoError(t, err)
	require.Empty(t, listed)
}
