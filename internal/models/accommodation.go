package models

import "time"

// Accommodation is a booked stay attached to a trip.
type Accommodation struct {
	BaseModel

	TripID     uint      `gorm:"index;not null" json:"tripId"`
	Name       string    `gorm:"size:255;not null" json:"name"`
	Address    string    `gorm:"size:512;not null" json:"address"`
	CheckIn    time.Time `gorm:"index" json:"checkIn"`
	CheckOut   time.Time `json:"checkOut"`
	BookingURL string    `gorm:"type:text" json:"bookingUrl"`
	ImageURL   string    `gorm:"type:text" json:"imageUrl"`
}
