package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token purposes. Each purpose signs with its own derived key and is bound as
// the token audience, so a token issued for one purpose never verifies for another.
const (
	PurposeCaptcha       = "swgfv-captcha-v1"
	PurposePasswordReset = "swgfv-reset-v1"
)

var (
	ErrTokenExpired = errors.New("token has expired")
	ErrTokenInvalid = errors.New("token is invalid")
)

// Signer issues and verifies short-lived, purpose-bound signed tokens.
type Signer struct {
	secret []byte
	now    func() time.Time
}

// NewSigner creates a Signer for the given HMAC secret
func NewSigner(secret string) *Signer {
	return &Signer{
		secret: []byte(secret),
		now:    time.Now,
	}
}

// SetClock replaces the time source. Used by tests.
func (s *Signer) SetClock(now func() time.Time) {
	s.now = now
}

// DeriveKey returns HMAC-SHA256(secret, label).
func (s *Signer) DeriveKey(label string) []byte {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(label))
	return mac.Sum(nil)
}

// Registered builds the standard claims for a token of purpose valid for maxAge.
func (s *Signer) Registered(purpose string, maxAge time.Duration) jwt.RegisteredClaims {
	now := s.now()
	return jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Audience:  jwt.ClaimStrings{purpose},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(maxAge)),
	}
}

// Sign issues an HS256 token under the key derived for purpose
func (s *Signer) Sign(purpose string, claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.DeriveKey(purpose))
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", purpose, err)
	}
	return signed, nil
}

// Verify parses tokenString into claims and checks signature, purpose and expiry.
func (s *Signer) Verify(purpose, tokenString string, claims jwt.Claims) error {
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (interface{}, error) {
			return s.DeriveKey(purpose), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(purpose),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrTokenExpired
		}
		return ErrTokenInvalid
	}
	return nil
}
