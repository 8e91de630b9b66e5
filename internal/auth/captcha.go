package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrChallengeMismatch = errors.New("challenge answer does not match")

// Challenge is an arithmetic question and the signed token that proves it was issued here.
type Challenge struct {
	Question string `json:"question"`
	Token    string `json:"token"`
}

// captchaClaims carries a keyed digest of the expected answer rather than the
// answer itself, since the token is readable by the client.
type captchaClaims struct {
	AnswerDigest string `json:"ad"`
	jwt.RegisteredClaims
}

// CaptchaIssuer issues arithmetic challenges as signed tokens
type CaptchaIssuer struct {
	signer *Signer
	maxAge time.Duration
}

// NewCaptchaIssuer creates a CaptchaIssuer whose challenges expire after maxAge
func NewCaptchaIssuer(signer *Signer, maxAge time.Duration) *CaptchaIssuer {
	return &CaptchaIssuer{signer: signer, maxAge: maxAge}
}

// Issue creates a new "a + b = ?" challenge with operands in 1..9.
func (c *CaptchaIssuer) Issue() (*Challenge, error) {
	a, err := cryptoRandIntn(9)
	if err != nil {
		return nil, fmt.Errorf("failed to generate challenge: %w", err)
	}
	b, err := cryptoRandIntn(9)
	if err != nil {
		return nil, fmt.Errorf("failed to generate challenge: %w", err)
	}
	a, b = a+1, b+1

	claims := captchaClaims{RegisteredClaims: c.signer.Registered(PurposeCaptcha, c.maxAge)}
	claims.AnswerDigest = c.digest(claims.ID, strconv.Itoa(a+b))

	token, err := c.signer.Sign(PurposeCaptcha, claims)
	if err != nil {
		return nil, err
	}

	return &Challenge{
		Question: fmt.Sprintf("%d + %d = ?", a, b),
		Token:    token,
	}, nil
}

// Verify checks the token and compares the trimmed answer as a string with the
// expected sum.
func (c *CaptchaIssuer) Verify(token, answer string) error {
	var claims captchaClaims
	if err := c.signer.Verify(PurposeCaptcha, token, &claims); err != nil {
		return err
	}

	expected, err := hex.DecodeString(claims.AnswerDigest)
	if err != nil {
		return ErrTokenInvalid
	}
	got, _ := hex.DecodeString(c.digest(claims.ID, strings.TrimSpace(answer)))
	if !hmac.Equal(expected, got) {
		return ErrChallengeMismatch
	}
	return nil
}

func (c *CaptchaIssuer) digest(nonce, answer string) string {
	mac := hmac.New(sha256.New, c.signer.DeriveKey(PurposeCaptcha+":answer"))
	mac.Write([]byte(nonce))
	mac.Write([]byte{0})
	mac.Write([]byte(answer))
	return hex.EncodeToString(mac.Sum(nil))
}
