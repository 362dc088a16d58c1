package models

// Expense is a payment made by one member on behalf of the trip.
type Expense struct {
	BaseModel

	TripID  uint    `gorm:"index;not null" json:"tripId"`
	PayerID uint    `gorm:"index;not null" json:"payerId"`
	Amount  float64 `gorm:"not null" json:"amount"`
	Note    string  `gorm:"size:512" json:"note"`

	Payer  *User   `gorm:"foreignKey:PayerID" json:"payer,omitempty"`
	Splits []Split `gorm:"foreignKey:ExpenseID" json:"splits"`
}

// Split is one member's share of an expense.
type Split struct {
	BaseModel

	ExpenseID uint    `gorm:"index;not null" json:"expenseId"`
	TripID    uint    `gorm:"index;not null" json:"tripId"`
	UserID    uint    `gorm:"index;not null" json:"userId"`
	Amount    float64 `json:"amount"`
}
