package jwtx

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// minSecretLength is the shortest accepted HMAC secret, in bytes.
const minSecretLength = 32

var ErrWeakSecret = errors.New("jwtx: secret must be at least 32 bytes")

// Signer issues HS256 session tokens. The authority is the only party that
// reads its own cookies, so a shared secret is enough.
type Signer struct {
	secret []byte
}

// NewSigner returns a Signer for secret.
func NewSigner(secret []byte) (*Signer, error) {
	if len(secret) < minSecretLength {
		return nil, ErrWeakSecret
	}
	return &Signer{secret: append([]byte(nil), secret...)}, nil
}

// Sign turns the claims into a signed compact JWT.
func (s *Signer) Sign(claims Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}
