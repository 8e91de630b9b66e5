package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type resetClaims struct {
	UserID      int64  `json:"uid"`
	Fingerprint string `json:"ph"`
	jwt.RegisteredClaims
}

// ResetToken is a verified password reset token.
type ResetToken struct {
	UserID      int64
	Fingerprint string
}

// StillValidFor reports whether the account password is unchanged since the
// token was issued. A token stops working once the password it was issued
// against is replaced.
func (t *ResetToken) StillValidFor(passwordHash string) bool {
	return subtle.ConstantTimeCompare([]byte(t.Fingerprint), []byte(PasswordFingerprint(passwordHash))) == 1
}

type ResetTokenIssuer struct {
	signer *Signer
	maxAge time.Duration
}

func NewResetTokenIssuer(signer *Signer, maxAge time.Duration) *ResetTokenIssuer {
	return &ResetTokenIssuer{signer: signer, maxAge: maxAge}
}

func (r *ResetTokenIssuer) Issue(userID int64, passwordHash string) (string, error) {
	claims := resetClaims{
		UserID:           userID,
		Fingerprint:      PasswordFingerprint(passwordHash),
		RegisteredClaims: r.signer.Registered(PurposePasswordReset, r.maxAge),
	}
	return r.signer.Sign(PurposePasswordReset, claims)
}

func (r *ResetTokenIssuer) Parse(token string) (*ResetToken, error) {
	var claims resetClaims
	if err := r.signer.Verify(PurposePasswordReset, token, &claims); err != nil {
		return nil, err
	}
	if claims.UserID <= 0 || claims.Fingerprint == "" {
		return nil, ErrTokenInvalid
	}
	return &ResetToken{UserID: claims.UserID, Fingerprint: claims.Fingerprint}, nil
}

// PasswordFingerprint is the SHA-256 hex digest of a stored password hash.
func PasswordFingerprint(passwordHash string) string {
	sum := sha256.Sum256([]byte(passwordHash))
	return hex.EncodeToString(sum[:])
}
