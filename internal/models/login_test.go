package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoginError_Message(t *testing.T) {
	tests := []struct {
		name string
		err  *LoginError
		want string
	}{
		{"locked", &LoginError{Kind: LoginFailLocked, RetryAfterMinutes: 12}, "Account temporarily locked. Try again in 12 minute(s)"},
		{"challenge", &LoginError{Kind: LoginFailChallenge, Attempts: 1, MaxAttempts: 3}, "Incorrect captcha. Attempt 1/3."},
		{"credentials", &LoginError{Kind: LoginFailCredentials, Attempts: 2, MaxAttempts: 3}, "Invalid username or password. Attempt 2/3."},
		{"lock engaged", &LoginError{Kind: LoginFailCredentials, Attempts: 3, MaxAttempts: 3, LockedNow: true, RetryAfterMinutes: 30}, "Account locked for 30 minutes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Message())
		})
	}
}

func TestLoginError_Unwrap(t *testing.T) {
	assert.True(t, errors.Is(&LoginError{Kind: LoginFailLocked}, ErrAccountLocked))
	assert.True(t, errors.Is(&LoginError{Kind: LoginFailCredentials}, ErrInvalidCredentials))
	assert.True(t, errors.Is(&LoginError{Kind: LoginFailChallenge}, ErrInvalidChallenge))
	assert.True(t, errors.Is(&LoginError{Kind: LoginFailInactive}, ErrAccountInactive))
	assert.True(t, errors.Is(&LoginError{Kind: LoginFailMissingPassword}, ErrBadRequest))
}
