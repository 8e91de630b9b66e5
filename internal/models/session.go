package models

import "time"

// SessionRecord is the server-side row behind a session cookie. Deleting it
// revokes the cookie.
type SessionRecord struct {
	ID         string
	UserID     int64
	CreatedAt  time.Time
	LastSeenAt time.Time
	ExpiresAt  time.Time
}

// SessionState is a live session joined with the current state of its account.
type SessionState struct {
	SessionRecord
	Email  string
	Role   string
	Active bool
}
