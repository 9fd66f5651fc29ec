package domain

import "time"

// Session binds an opaque bearer token to a user. It has no expiry; it lives
// until logout or the user's next login.
type Session struct {
	Token     string
	UserID    string
	CreatedAt time.Time
}
