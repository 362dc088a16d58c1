package models

import "time"

// Notification represents an in-app notification for a user. Rows are written by the
// notification consumer and only ever mutated to mark them read.
type Notification struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint      `gorm:"index;not null" json:"userId"`
	TripID    *uint     `gorm:"index" json:"tripId"`
	Type      *string   `gorm:"size:64" json:"type"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	IsRead    bool      `gorm:"default:false;index" json:"isRead"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`

	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}
