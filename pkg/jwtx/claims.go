package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// DefaultSessionTTL is the lifetime of a full session cookie.
	DefaultSessionTTL = 8 * time.Hour

	// DefaultPendingTTL is the lifetime of a pending session, issued after the
	// password was verified but before setup is complete.
	DefaultPendingTTL = 15 * time.Minute
)

// Stage says what a session token authorizes.
type Stage string

const (
	// StageFull is a completed login.
	StageFull Stage = "full"

	// StagePending only authorizes finishing the first-run setup.
	StagePending Stage = "pending"
)

// Claims are the session-cookie claims.
type Claims struct {
	jwt.RegisteredClaims

	Stage Stage `json:"stg"`

	// Authentication Methods Reference ["pwd","otp","backup","device"]
	AMR []string `json:"amr,omitempty"`
}

// NewSessionClaims builds claims for subject valid for ttl from now.
func NewSessionClaims(subject string, stage Stage, amr []string, issuer string, ttl time.Duration, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		Stage: stage,
		AMR:   amr,
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// IsFull reports whether the claims belong to a completed login.
func (c Claims) IsFull() bool {
	return c.Stage == StageFull
}
