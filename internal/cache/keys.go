package cache

import (
	"fmt"
	"strings"
)

// Key scopes. Every cached list is keyed as <scope>_<id>.
const (
	ScopeAccommodations = "accommodations"
	ScopeUserTrips      = "user_trips"
	ScopeMembers        = "members"
	ScopeItems          = "items"
	ScopeExpenses       = "expenses"
	ScopeNotifications  = "notifications"
	ScopeUnreadCount    = "unread_count"
)

// AccommodationsKey caches a trip's accommodations ordered by check-in.
func AccommodationsKey(tripID uint) string { return key(ScopeAccommodations, tripID) }

// UserTripsKey caches every trip a user is a member of.
func UserTripsKey(userID uint) string { return key(ScopeUserTrips, userID) }

// MembersKey caches a trip's member list.
func MembersKey(tripID uint) string { return key(ScopeMembers, tripID) }

// ItemsKey caches a trip's packing items.
func ItemsKey(tripID uint) string { return key(ScopeItems, tripID) }

// ExpensesKey caches a trip's expenses.
func ExpensesKey(tripID uint) string { return key(ScopeExpenses, tripID) }

// NotificationsKey caches a user's inbox, newest first.
func NotificationsKey(userID uint) string { return key(ScopeNotifications, userID) }

// UnreadCountKey caches a user's unread notification count.
func UnreadCountKey(userID uint) string { return key(ScopeUnreadCount, userID) }

// UserTripsKeys expands a member list into the per-user trip list keys.
func UserTripsKeys(userIDs []uint) []string {
	keys := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		keys = append(keys, UserTripsKey(id))
	}
	return keys
}

// InboxKeys returns every cached view of a user's notifications.
func InboxKeys(userID uint) []string {
	return []string{NotificationsKey(userID), UnreadCountKey(userID)}
}

// TripKeys returns every trip scoped key.
func TripKeys(tripID uint) []string {
	return []string{
		MembersKey(tripID),
		ItemsKey(tripID),
		AccommodationsKey(tripID),
		ExpensesKey(tripID),
	}
}

// Scope extracts the scope portion of a key for metric labels.
func Scope(key string) string {
	idx := strings.LastIndex(key, "_")
	if idx <= 0 {
		return "other"
	}
	return key[:idx]
}

func key(scope string, id uint) string {
	return fmt.Sprintf("%s_%d", scope, id)
}
