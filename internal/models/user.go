package models

import (
	"strings"
	"time"
)

const (
	RoleAdmin   = "admin"
	RoleGeneral = "general"
)

type User struct {
	ID                int64
	Email             string
	PasswordHash      string
	FirstName         string
	PaternalSurname   string
	MaternalSurname   string
	Phone             string
	Role              string
	Active            bool
	PasswordChangedAt *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

func (u *User) FullName() string {
	parts := []string{u.FirstName, u.PaternalSurname, u.MaternalSurname}
	nonEmpty := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, " ")
}

// UserSearch filters the user list. Empty fields match everything; text
// fields match case-insensitively on any substring.
type UserSearch struct {
	ID     *int64
	Name   string
	Email  string
	Limit  int
	Offset int
}

// NormalizeIdentifier is the canonical form of a login identifier or email.
func NormalizeIdentifier(identifier string) string {
	return strings.ToLower(strings.TrimSpace(identifier))
}
