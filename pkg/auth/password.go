package auth

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

const (
	BcryptCost     = 14
	MinPasswordLen = 8
	MaxPasswordLen = 72 // bcrypt ignores input past 72 bytes
)

var (
	ErrPasswordMismatch = errors.New("passwords do not match")
	ErrPasswordSimilar  = errors.New("password resembles account details")
)

// minAttributeLen keeps short name parts such as "Li" from rejecting
// unrelated passwords.
const minAttributeLen = 3

// PasswordValidationError lists every failed rule. Error() stays generic;
// Errors is for logs only.
type PasswordValidationError struct {
	Errors []string
}

func (e *PasswordValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "password validation failed"
	}
	return "invalid password"
}

// commonPasswords is compared case-insensitively, including common
// Spanish choices for a Mexican user base.
var commonPasswords = map[string]bool{
	"password":     true,
	"password1!":   true,
	"password123":  true,
	"password123!": true,
	"passw0rd":     true,
	"12345678":     true,
	"123456789":    true,
	"qwerty123!":   true,
	"contraseña":   true,
	"contrasena1!": true,
	"contraseña1!": true,
	"admin123!":    true,
	"admin1234!":   true,
	"bienvenido1!": true,
	"mexico2024!":  true,
	"mexico2025!":  true,
	"solar123!":    true,
	"welcome1!":    true,
	"letmein1!":    true,
}

func HashPassword(password string) (string, error) {
	return HashPasswordWithCost(password, BcryptCost)
}

// HashPasswordWithCost hashes with an explicit bcrypt work factor.
func HashPasswordWithCost(password string, cost int) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashedBytes), nil
}

func ComparePassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

// ValidatePassword enforces length, character classes and the common list.
func ValidatePassword(password string) error {
	errors := make([]string, 0)

	if len(password) < MinPasswordLen {
		errors = append(errors, fmt.Sprintf("must be at least %d characters", MinPasswordLen))
	}
	if len(password) > MaxPasswordLen {
		errors = append(errors, fmt.Sprintf("must be at most %d characters", MaxPasswordLen))
	}

	hasUpper := false
	hasLower := false
	hasDigit := false
	hasSpecial := false

	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSpecial = true
		}
	}

	if !hasUpper {
		errors = append(errors, "must contain at least one uppercase letter")
	}
	if !hasLower {
		errors = append(errors, "must contain at least one lowercase letter")
	}
	if !hasDigit {
		errors = append(errors, "must contain at least one digit")
	}
	if !hasSpecial {
		errors = append(errors, "must contain at least one special character")
	}

	if commonPasswords[strings.ToLower(password)] {
		errors = append(errors, "is too common, please choose a more unique password")
	}

	if len(errors) > 0 {
		return &PasswordValidationError{Errors: errors}
	}

	return nil
}

// ValidateNewPassword checks the confirmation field, the strength policy and
// that the password does not resemble any of userAttributes (email, names,
// phone).
func ValidateNewPassword(password, confirmation string, userAttributes ...string) error {
	if password != confirmation {
		return ErrPasswordMismatch
	}
	if err := ValidatePassword(password); err != nil {
		return err
	}
	if resemblesAny(password, userAttributes) {
		return ErrPasswordSimilar
	}
	return nil
}

// resemblesAny reports whether password contains an attribute, or an email's
// local part, or is itself contained in one.
func resemblesAny(password string, attributes []string) bool {
	pw := strings.ToLower(password)
	for _, attr := range attributes {
		attr = strings.ToLower(strings.TrimSpace(attr))
		if local, _, ok := strings.Cut(attr, "@"); ok {
			attr = local
		}
		if len(attr) < minAttributeLen {
			continue
		}
		if strings.Contains(pw, attr) || strings.Contains(attr, pw) {
			return true
		}
	}
	return false
}
