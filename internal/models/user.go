package models

import "strings"

// User is an account that can own and join trips.
type User struct {
	BaseModel

	Email    string `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Password string `gorm:"size:255" json:"-"`
	Name     string `gorm:"size:255" json:"name"`
}

// NormalizeEmail lowercases and trims an address before lookups and inserts.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
