package models

// Item is a packing list entry, optionally assigned to a member.
type Item struct {
	BaseModel

	TripID     uint   `gorm:"index;not null" json:"tripId"`
	Name       string `gorm:"size:255;not null" json:"name"`
	Packed     bool   `gorm:"default:false" json:"packed"`
	AssignedTo *uint  `gorm:"index" json:"assignedTo"`
}
