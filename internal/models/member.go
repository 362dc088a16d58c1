package models

// Member links a user to a trip with a role.
type Member struct {
	BaseModel

	TripID uint   `gorm:"uniqueIndex:idx_member_trip_user;not null" json:"tripId"`
	UserID uint   `gorm:"uniqueIndex:idx_member_trip_user;not null" json:"userId"`
	Role   string `gorm:"size:32;default:'Member'" json:"role"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
