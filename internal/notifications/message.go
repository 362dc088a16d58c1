package notifications

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/charlesng35/tripmate/internal/models"
)

// DefaultQueue is the durable queue notification messages travel through.
const DefaultQueue = "notifications"

// DeadLetterName returns the queue that receives undeliverable messages from queue.
func DeadLetterName(queue string) string {
	return queue + ".dead"
}

// Type tags a notification. The set is closed.
type Type string

const (
	TypeTripCreated          Type = "trip_created"
	TypeTripUpdated          Type = "trip_updated"
	TypeAccommodationCreated Type = "accommodation_created"
	TypeItemAssigned         Type = "item_assigned"
	TypeTest                 Type = "test"
)

// Valid reports whether t belongs to the known set.
func (t Type) Valid() bool {
	switch t {
	case TypeTripCreated, TypeTripUpdated, TypeAccommodationCreated, TypeItemAssigned, TypeTest:
		return true
	}
	return false
}

// ErrMalformed marks a payload that can never be persisted.
var ErrMalformed = errors.New("notifications: malformed message")

// Message is the queue payload for a single recipient.
type Message struct {
	Type      Type      `json:"type"`
	UserID    uint      `json:"userId"`
	TripID    *uint     `json:"tripId"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Decode parses a queue body. Bodies that are not JSON objects or that lack a
// recipient are reported as ErrMalformed.
func Decode(body []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if msg.UserID == 0 {
		return Message{}, fmt.Errorf("%w: missing userId", ErrMalformed)
	}
	return msg, nil
}

// Notification converts the payload into an unread inbox row.
func (m Message) Notification() models.Notification {
	n := models.Notification{
		UserID:  m.UserID,
		TripID:  m.TripID,
		Message: m.Message,
		IsRead:  false,
	}
	if m.Type != "" {
		t := string(m.Type)
		n.Type = &t
	}
	return n
}
