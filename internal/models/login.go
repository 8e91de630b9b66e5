package models

import (
	"fmt"
	"time"
	"unicode/utf8"
)

// MaxIdentifierLength is the longest identifier a login may submit. It
// matches the width of the lockout table's key.
const MaxIdentifierLength = 255

// Login failure kinds, in evaluation order.
const (
	LoginFailMissingIdentifier = "missing_identifier"
	LoginFailIdentifierLength  = "identifier_too_long"
	LoginFailLocked            = "locked"
	LoginFailMissingPassword   = "missing_password"
	LoginFailChallenge         = "challenge"
	LoginFailCredentials       = "credentials"
	LoginFailInactive          = "inactive"
)

// IdentifierTooLong reports whether a normalized identifier exceeds MaxIdentifierLength.
func IdentifierTooLong(identifier string) bool {
	return utf8.RuneCountInString(identifier) > MaxIdentifierLength
}

// LoginAttempt is one submitted login form.
type LoginAttempt struct {
	Identifier      string
	Password        string
	ChallengeToken  string
	ChallengeAnswer string
	IPAddress       string
	UserAgent       string
}

// LoginResult carries what the session stores after a successful login.
type LoginResult struct {
	UserID     int64
	Identifier string
	Role       string
	LoggedInAt time.Time
}

// LoginError describes a rejected login. It never reveals whether the
// identifier belongs to an existing account.
type LoginError struct {
	Kind              string
	Attempts          int
	MaxAttempts       int
	RetryAfterMinutes int
	LockedNow         bool
}

func (e *LoginError) Error() string {
	return "login failed: " + e.Kind
}

func (e *LoginError) Unwrap() error {
	switch e.Kind {
	case LoginFailLocked:
		return ErrAccountLocked
	case LoginFailChallenge:
		return ErrInvalidChallenge
	case LoginFailCredentials:
		return ErrInvalidCredentials
	case LoginFailInactive:
		return ErrAccountInactive
	default:
		return ErrBadRequest
	}
}

// IsInputError reports whether the attempt was rejected for a malformed form
// rather than for its credentials.
func (e *LoginError) IsInputError() bool {
	switch e.Kind {
	case LoginFailMissingIdentifier, LoginFailIdentifierLength, LoginFailMissingPassword:
		return true
	}
	return false
}

// Message is the user-facing text for the failure.
func (e *LoginError) Message() string {
	if e.LockedNow {
		return fmt.Sprintf("Account locked for %d minutes", e.RetryAfterMinutes)
	}

	switch e.Kind {
	case LoginFailMissingIdentifier:
		return "Username is required."
	case LoginFailIdentifierLength:
		return fmt.Sprintf("Username must be at most %d characters.", MaxIdentifierLength)
	case LoginFailLocked:
		return fmt.Sprintf("Account temporarily locked. Try again in %d minute(s)", e.RetryAfterMinutes)
	case LoginFailMissingPassword:
		return "Password is required."
	case LoginFailChallenge:
		return fmt.Sprintf("Incorrect captcha. Attempt %d/%d.", e.Attempts, e.MaxAttempts)
	case LoginFailCredentials:
		return fmt.Sprintf("Invalid username or password. Attempt %d/%d.", e.Attempts, e.MaxAttempts)
	case LoginFailInactive:
		return "Account is inactive. Contact an administrator."
	default:
		return "Login failed."
	}
}
