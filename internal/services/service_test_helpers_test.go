package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/tripmate/internal/cache"
	"github.com/charlesng35/tripmate/internal/database/testutil"
	"github.com/charlesng35/tripmate/internal/models"
	"github.com/charlesng35/tripmate/internal/notifications"
	"github.com/charlesng35/tripmate/internal/notifications/notificationstest"
)

type fixture struct {
	db     *gorm.DB
	store  *cache.MemoryStore
	caches *Caches
	sink   *notificationstest.RecordingSink
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := cache.NewMemoryStore(nil)
	return &fixture{
		db:     testutil.MustOpenTestDB(t, testutil.WithAutoMigrate()),
		store:  store,
		caches: NewCaches(store, time.Minute),
		sink:   &notificationstest.RecordingSink{},
	}
}

func (f *fixture) user(t *testing.T, email string) models.User {
	t.Helper()
	user := models.User{Email: email, Name: email}
	require.NoError(t, f.db.Create(&user).Error)
	return user
}

// trip creates a trip owned by captain with the extra users as plain members.
func (f *fixture) trip(t *testing.T, captain uint, members ...uint) models.Trip {
	t.Helper()
	trip := models.Trip{
		UserID:      captain,
		FromCity:    "Sydney",
		Destination: "Kyoto",
		StartDate:   time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2024, 5, 7, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, f.db.Create(&trip).Error)
	require.NoError(t, f.db.Create(&models.Member{TripID: trip.ID, UserID: captain, Role: "Captain"}).Error)
	for _, id := range members {
		require.NoError(t, f.db.Create(&models.Member{TripID: trip.ID, UserID: id, Role: "Member"}).Error)
	}
	return trip
}

// prime seeds keys so tests can observe their invalidation.
func (f *fixture) prime(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		require.NoError(t, f.store.Set(context.Background(), key, []byte(`[]`), time.Minute))
	}
}

func (f *fixture) requireGone(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		require.False(t, f.store.Has(key), "expected %s to be invalidated", key)
	}
}

// snapshotSink records, at the moment of each emit, whether key was still cached.
type snapshotSink struct {
	store  *cache.MemoryStore
	key    string
	cached []bool
	events []notifications.Event
}

func (p *snapshotSink) Emit(_ context.Context, event notifications.Event) {
	p.cached = append(p.cached, p.store.Has(p.key))
	p.events = append(p.events, event)
}
