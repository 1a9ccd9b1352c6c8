package models

// Session is the identity of the currently logged-in user.
// The zero value means nobody is logged in; at most one session is active
// at a time.
type Session struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// Active reports whether the session belongs to a logged-in user.
func (s Session) Active() bool {
	return s.Email != ""
}
