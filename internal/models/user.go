package models

// User represents a registered account holder.
// Emails are stored lowercase-trimmed and are unique within the user list.
// Users are never mutated or deleted once created.
type User struct {
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	SignedUpAt int64  `json:"signed_up_at"` // unix milliseconds
}
