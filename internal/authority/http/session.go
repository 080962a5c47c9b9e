package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/labauth/pkg/jwtx"
)

// sessionIssuer signs session tokens and writes them as cookies.
type sessionIssuer struct {
	signer     *jwtx.Signer
	issuer     string
	cookieName string
	secure     bool
	fullTTL    time.Duration
	pendingTTL time.Duration
}

func (s *sessionIssuer) issue(w http.ResponseWriter, userID string, stage jwtx.Stage, amr []string) error {
	ttl := s.fullTTL
	if stage == jwtx.StagePending {
		ttl = s.pendingTTL
	}

	now := time.Now()
	token, err := s.signer.Sign(jwtx.NewSessionClaims(userID, stage, amr, s.issuer, ttl, now))
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    token,
		Path:     "/",
		Expires:  now.Add(ttl),
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (s *sessionIssuer) clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
