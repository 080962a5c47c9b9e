package httpx_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aussiebroadwan/labauth/pkg/httpx"
	"github.com/aussiebroadwan/labauth/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

const testCookie = "labauth_session"

func sessionToken(t *testing.T, stage jwtx.Stage) string {
	t.Helper()
	signer, err := jwtx.NewSigner(testSecret)
	require.NoError(t, err)
	tok, err := signer.Sign(jwtx.NewSessionClaims("user-1", stage, []string{"pwd"}, "labauth", time.Hour, time.Now()))
	require.NoError(t, err)
	return tok
}

func TestSessionMiddleware(t *testing.T) {
	t.Parallel()

	verifier := jwtx.NewVerifier(testSecret, "labauth", 0)

	echo := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(httpx.UserIDFromContext(r.Context())))
	})

	serve := func(p httpx.SessionPolicy, cookie string) *httptest.ResponseRecorder {
		p.CookieName = testCookie
		p.Verifier = verifier
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if cookie != "" {
			req.AddCookie(&http.Cookie{Name: testCookie, Value: cookie})
		}
		rec := httptest.NewRecorder()
		httpx.SessionMiddleware(p)(echo).ServeHTTP(rec, req)
		return rec
	}

	full := sessionToken(t, jwtx.StageFull)
	pending := sessionToken(t, jwtx.StagePending)

	tests := []struct {
		name     string
		policy   httpx.SessionPolicy
		cookie   string
		wantCode int
		wantBody string
	}{
		{"full session", httpx.SessionPolicy{}, full, http.StatusOK, "user-1"},
		{"missing cookie", httpx.SessionPolicy{}, "", http.StatusUnauthorized, ""},
		{"garbage cookie", httpx.SessionPolicy{}, "not-a-jwt", http.StatusUnauthorized, ""},
		{"pending refused", httpx.SessionPolicy{}, pending, http.StatusUnauthorized, ""},
		{"pending allowed", httpx.SessionPolicy{AllowPending: true}, pending, http.StatusOK, "user-1"},
		{"optional without cookie", httpx.SessionPolicy{Optional: true}, "", http.StatusOK, ""},
		{"optional with garbage", httpx.SessionPolicy{Optional: true}, "x", http.StatusUnauthorized, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := serve(tc.policy, tc.cookie)
			require.Equal(t, tc.wantCode, rec.Code)
			if tc.wantCode == http.StatusOK {
				require.Equal(t, tc.wantBody, rec.Body.String())
			} else {
				require.JSONEq(t, `{"error":"No autenticado"}`, rec.Body.String())
			}
		})
	}
}

func TestChainOrder(t *testing.T) {
	t.Parallel()

	var order []string
	mark := func(name string) httpx.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := httpx.Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, "handler")
	}), mark("a"), mark("b"))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, []string{"a", "b", "handler"}, order)
}
