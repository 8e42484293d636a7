package model

import "time"

// User is a messaging recipient. Identity is the (phone, email) pair;
// at least one of the two must be present.
type User struct {
	ID         string    `json:"id"`
	Phone      string    `json:"phone"`
	Email      string    `json:"email"`
	OptIn      bool      `json:"opt_in"`       // chat/text consent
	OptInEmail bool      `json:"opt_in_email"` // email consent
	Language   string    `json:"language"`
	Segment    string    `json:"segment"`
	Plan       Plan      `json:"plan"`
	CustomerID string    `json:"customer_id"` // billing provider reference
	CreatedAt  time.Time `json:"created_at"`
}

func (User) TableName() string { return "users" }
