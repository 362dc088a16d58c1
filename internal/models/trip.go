package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Trip is a planned journey shared between its members.
type Trip struct {
	BaseModel

	UserID      uint           `gorm:"index;not null" json:"userId"`
	FromCity    string         `gorm:"size:255" json:"fromCity"`
	Destination string         `gorm:"size:255;not null" json:"destination"`
	StartDate   time.Time      `json:"startDate"`
	EndDate     time.Time      `json:"endDate"`
	Schedule    datatypes.JSON `json:"schedule"`

	Items   []Item   `gorm:"foreignKey:TripID" json:"items,omitempty"`
	Members []Member `gorm:"foreignKey:TripID" json:"members,omitempty"`
}

// BeforeDelete removes the trip's dependent rows. Notifications keep their
// text but lose the trip reference.
func (t *Trip) BeforeDelete(tx *gorm.DB) error {
	if t.ID == 0 {
		return nil
	}

	var photoIDs []uint
	if err := tx.Model(&Photo{}).Where("trip_id = ?", t.ID).Pluck("id", &photoIDs).Error; err != nil {
		return err
	}
	if len(photoIDs) > 0 {
		if err := tx.Where("photo_id IN ?", photoIDs).Delete(&Like{}).Error; err != nil {
			return err
		}
		if err := tx.Where("photo_id IN ?", photoIDs).Delete(&Comment{}).Error; err != nil {
			return err
		}
	}

	for _, model := range []interface{}{&Photo{}, &Split{}, &Expense{}, &Accommodation{}, &Item{}, &Member{}} {
		if err := tx.Where("trip_id = ?", t.ID).Delete(model).Error; err != nil {
			return err
		}
	}

	return tx.Model(&Notification{}).Where("trip_id = ?", t.ID).Update("trip_id", nil).Error
}
