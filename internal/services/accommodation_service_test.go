package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/tripmate/internal/cache"
	"github.com/charlesng35/tripmate/internal/models"
	"github.com/charlesng35/tripmate/internal/notifications"
	apperrors "github.com/charlesng35/tripmate/pkg/errors"
)

func stayInput(tripID uint, name string, checkIn time.Time) AccommodationInput {
	return AccommodationInput{
		TripID:   tripID,
		Name:     name,
		Address:  "1 Main St",
		CheckIn:  checkIn,
		CheckOut: checkIn.Add(48 * time.Hour),
	}
}

// A member whose cached list predates the write sees the new stay once the
// notification arrives.
func TestAccommodationCreateInvalidatesBeforeNotifying(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice@example.com")
	bob := f.user(t, "bob@example.com")
	trip := f.trip(t, alice.ID, bob.ID)

	snapshot := &snapshotSink{store: f.store, key: cache.AccommodationsKey(trip.ID)}
	svc, err := NewAccommodationService(f.db, f.caches, snapshot)
	require.NoError(t, err)

	stays, err := svc.List(context.Background(), trip.ID)
	require.NoError(t, err)
	require.Empty(t, stays)
	require.True(t, f.store.Has(cache.AccommodationsKey(trip.ID)))

	checkIn := time.Date(2024, 5, 1, 15, 0, 0, 0, time.UTC)
	stay, err := svc.Create(context.Background(), stayInput(trip.ID, "Hotel X", checkIn))
	require.NoError(t, err)
	require.NotZero(t, stay.ID)

	require.Equal(t, []bool{false}, snapshot.cached)
	require.Len(t, snapshot.events, 1)
	event := snapshot.events[0]
	require.Equal(t, notifications.TypeAccommodationCreated, event.Type)
	require.Equal(t, `New accommodation "Hotel X" added to your trip.`, event.Message)
	require.ElementsMatch(t, []uint{alice.ID, bob.ID}, event.Recipients)
	require.Equal(t, trip.ID, *event.TripID)

	stays, err = svc.List(context.Background(), trip.ID)
	require.NoError(t, err)
	require.Len(t, stays, 1)
	require.Equal(t, "Hotel X", stays[0].Name)
}

func TestAccommodationCreateRequiresFields(t *testing.T) {
	f := newFixture(t)
	svc, err := NewAccommodationService(f.db, f.caches, f.sink)
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), AccommodationInput{TripID: 1, Name: "Hotel"})
	require.ErrorIs(t, err, apperrors.ErrBadRequest)

	_, err = svc.Create(context.Background(), stayInput(404, "Hotel", time.Now()))
	require.ErrorIs(t, err, ErrTripNotFound)
	require.Empty(t, f.sink.Events())
}

func TestAccommodationListOrderedByCheckIn(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice@example.com")
	trip := f.trip(t, alice.ID)

	svc, err := NewAccommodationService(f.db, f.caches, f.sink)
	require.NoError(t, err)

	base := time.Date(2024, 5, 1, 15, 0, 0, 0, time.UTC)
	_, err = svc.Create(context.Background(), stayInput(trip.ID, "Second", base.Add(72*time.Hour)))
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), stayInput(trip.ID, "First", base))
	require.NoError(t, err)

	stays, err := svc.List(context.Background(), trip.ID)
	require.NoError(t, err)
	require.Len(t, stays, 2)
	require.Equal(t, "First", stays[0].Name)
	require.Equal(t, "Second", stays[1].Name)
}

func TestAccommodationUpdateAndDeleteInvalidate(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice@example.com")
	trip := f.trip(t, alice.ID)

	svc, err := NewAccommodationService(f.db, f.caches, f.sink)
	require.NoError(t, err)
	stay, err := svc.Create(context.Background(), stayInput(trip.ID, "Hostel", time.Now().UTC()))
	require.NoError(t, err)

	f.prime(t, cache.AccommodationsKey(trip.ID))
	name := "Boutique hotel"
	updated, err := svc.Update(context.Background(), stay.ID, UpdateAccommodationInput{Name: &name})
	require.NoError(t, err)
	require.Equal(t, name, updated.Name)
	f.requireGone(t, cache.AccommodationsKey(trip.ID))

	blank := " "
	_, err = svc.Update(context.Background(), stay.ID, UpdateAccommodationInput{Address: &blank})
	require.ErrorIs(t, err, apperrors.ErrBadRequest)

	f.prime(t, cache.AccommodationsKey(trip.ID))
	require.NoError(t, svc.Delete(context.Background(), stay.ID))
	f.requireGone(t, cache.AccommodationsKey(trip.ID))
	require.ErrorIs(t, svc.Delete(context.Background(), stay.ID), ErrAccommodationNotFound)
}

func TestAccommodationCreateSurvivesRecipientLookupFailure(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice@example.com")
	trip := f.trip(t, alice.ID)

	svc, err := NewAccommodationService(f.db, f.caches, f.sink)
	require.NoError(t, err)

	require.NoError(t, f.db.Callback().Query().Before("gorm:query").Register("fail_member_lookup", func(tx *gorm.DB) {
		if tx.Statement.Table == "members" {
			_ = tx.AddError(errors.New("members table unavailable"))
		}
	}))

	checkIn := time.Date(2024, 6, 1, 15, 0, 0, 0, time.UTC)
	stay, err := svc.Create(context.Background(), stayInput(trip.ID, "Hotel Y", checkIn))
	require.NoError(t, err)
	require.NotZero(t, stay.ID)
	require.Empty(t, f.sink.OfType(notifications.TypeAccommodationCreated))

	var stored models.Accommodation
	require.NoError(t, f.db.First(&stored, stay.ID).Error)
	require.Equal(t, "Hotel Y", stored.Name)
}
