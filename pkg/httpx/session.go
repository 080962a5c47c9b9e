package httpx

import (
	"net/http"

	"github.com/aussiebroadwan/labauth/pkg/jwtx"
	"github.com/aussiebroadwan/labauth/pkg/slogx"
)

// msgUnauthenticated is returned when no usable session cookie is present.
const msgUnauthenticated = "No autenticado"

// SessionPolicy configures SessionMiddleware.
type SessionPolicy struct {
	CookieName string
	Verifier   *jwtx.Verifier

	// AllowPending admits pending sessions in addition to full ones.
	AllowPending bool

	// Optional makes a missing cookie pass through without a session in the
	// context. An invalid cookie is still rejected.
	Optional bool
}

// SessionMiddleware verifies the session cookie and stores its claims in the
// request context.
func SessionMiddleware(p SessionPolicy) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log := slogx.FromContext(r.Context())

			cookie, err := r.Cookie(p.CookieName)
			if err != nil || cookie.Value == "" {
				if p.Optional {
					next.ServeHTTP(w, r)
					return
				}
				WriteError(w, http.StatusUnauthorized, msgUnauthenticated)
				return
			}

			claims, err := p.Verifier.Verify(cookie.Value)
			if err != nil {
				log.Warn("session verify failed", "err", err)
				WriteError(w, http.StatusUnauthorized, msgUnauthenticated)
				return
			}

			if !claims.IsFull() && !p.AllowPending {
				WriteError(w, http.StatusUnauthorized, msgUnauthenticated)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), claims)))
		})
	}
}
