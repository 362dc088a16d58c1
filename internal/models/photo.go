package models

// Photo visibility values.
const (
	VisibilityPublic  = "public"
	VisibilityPrivate = "private"
)

// Photo is image metadata recorded against a trip day. ImageURL points at the blob store.
type Photo struct {
	BaseModel

	TripID      uint   `gorm:"index;not null" json:"tripId"`
	UploadedBy  uint   `gorm:"index;not null" json:"uploadedBy"`
	DayIndex    int    `gorm:"index" json:"dayIndex"`
	PlaceName   string `gorm:"size:255" json:"placeName"`
	Description string `gorm:"type:text" json:"description"`
	ImageURL    string `gorm:"type:text;not null" json:"imageUrl"`
	Visibility  string `gorm:"size:16;default:'public'" json:"visibility"`
}

// Like records a user's like on a photo.
type Like struct {
	BaseModel

	PhotoID uint `gorm:"uniqueIndex:idx_like_photo_user;not null" json:"photoId"`
	UserID  uint `gorm:"uniqueIndex:idx_like_photo_user;not null" json:"userId"`
}

// Comment is a user's remark on a photo.
type Comment struct {
	BaseModel

	PhotoID uint   `gorm:"index;not null" json:"photoId"`
	UserID  uint   `gorm:"index;not null" json:"userId"`
	Content string `gorm:"type:text;not null" json:"content"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
