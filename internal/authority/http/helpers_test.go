package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/labauth/internal/authority/domain"
	authorityhttp "github.com/aussiebroadwan/labauth/internal/authority/http"
	"github.com/aussiebroadwan/labauth/internal/authority/service"
	"github.com/aussiebroadwan/labauth/internal/authority/store/drivers/sqlite"
	"github.com/aussiebroadwan/labauth/pkg/cryptox"
	"github.com/aussiebroadwan/labauth/pkg/httpx"
	"github.com/aussiebroadwan/labauth/pkg/idx"
	"github.com/aussiebroadwan/labauth/pkg/jwtx"
	"github.com/aussiebroadwan/labauth/pkg/slogx"
)

const (
	testPassword = "Muestra#2024"
	testIssuer   = "https://auth.lab.test"
)

var testSecret = []byte(strings.Repeat("k", 32))

type server struct {
	*httptest.Server

	store  *sqlite.Store
	hasher cryptox.Hasher
	keys   *service.TOTPKeys
	mailer *captureMailer
}

type serverConfig struct {
	router     authorityhttp.Config
	requireMFA bool
}

type option func(*serverConfig)

// withLegacyOnly simulates a deployment that predates the primary endpoint
// and does not enforce a second factor.
func withLegacyOnly() option {
	return func(c *serverConfig) {
		c.router.PrimaryEnabled = false
		c.requireMFA = false
	}
}

// withOptionalMFA keeps the primary endpoint but lets users without a second
// factor sign in.
func withOptionalMFA() option {
	return func(c *serverConfig) { c.requireMFA = false }
}

func withStrictLimit(n int) option {
	return func(c *serverConfig) {
		c.router.StrictLimit = httpx.RateLimitConfig{RequestsPerWindow: n, Window: time.Minute, Burst: n}
	}
}

func newServer(t *testing.T, opts ...option) *server {
	t.Helper()

	st, err := sqlite.NewStore("file:" + filepath.Join(t.TempDir(), "authority.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	box, err := cryptox.NewSecretBox([]byte("test master key"))
	require.NoError(t, err)
	signer, err := jwtx.NewSigner(testSecret)
	require.NoError(t, err)

	s := &server{
		store:  st,
		hasher: cryptox.Hasher{Pepper: "pepper"},
		keys:   &service.TOTPKeys{Box: box, Issuer: "LabAuth"},
		mailer: &captureMailer{},
	}

	generous := httpx.RateLimitConfig{RequestsPerWindow: 1000, Window: time.Minute, Burst: 1000}
	cfg := serverConfig{
		router: authorityhttp.Config{
			Issuer:         testIssuer,
			BuildVersion:   "test",
			PrimaryEnabled: true,
			StrictLimit:    generous,
			ModerateLimit:  generous,
			LenientLimit:   generous,
		},
		requireMFA: true,
	}
	for _, o := range opts {
		o(&cfg)
	}

	r := authorityhttp.NewRouter(cfg.router, st, signer, jwtx.NewVerifier(testSecret, testIssuer, 0), slogx.Discard())
	r.LoginService = &service.LoginService{Store: st, Hasher: s.hasher, Keys: s.keys, RequireMFA: cfg.requireMFA}
	r.MFAService = &service.MFAService{Store: st, Hasher: s.hasher, Keys: s.keys}
	r.RecoveryService = &service.RecoveryService{Store: st, Hasher: s.hasher, Keys: s.keys, Mailer: s.mailer}
	r.ApplyRoutes()

	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

// addUser creates a user; with mfa set it also enrolls a key and returns it.
func (s *server) addUser(t *testing.T, email string, mfa bool) (domain.User, *otp.Key) {
	t.Helper()
	ctx := context.Background()

	hash, err := s.hasher.Hash(testPassword)
	require.NoError(t, err)
	u := domain.User{
		ID:           idx.New().String(),
		Username:     strings.Split(email, "@")[0],
		Email:        email,
		FirstName:    "Ana",
		LastName:     "Pérez",
		PasswordHash: hash,
		Roles:        []string{"analyst"},
	}
	require.NoError(t, s.store.Users().CreateUser(ctx, u))
	if !mfa {
		return u, nil
	}

	key, sealed, err := s.keys.Generate(email)
	require.NoError(t, err)
	require.NoError(t, s.store.Users().SetPendingTOTP(ctx, u.ID, sealed, time.Now().Add(time.Hour)))
	require.NoError(t, s.store.Users().ActivatePendingTOTP(ctx, u.ID, time.Now()))
	return u, key
}

// client returns an HTTP client with its own cookie jar.
func (s *server) client(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}
}

// do sends body as JSON and decodes the response into out when non-nil.
func (s *server) do(t *testing.T, c *http.Client, method, path string, body, out any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, s.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func sessionCookie(t *testing.T, resp *http.Response) *http.Cookie {
	t.Helper()
	for _, c := range resp.Cookies() {
		if c.Name == authorityhttp.DefaultCookieName {
			return c
		}
	}
	return nil
}

func code(t *testing.T, key *otp.Key) string {
	t.Helper()
	c, err := totp.GenerateCode(key.Secret(), time.Now())
	require.NoError(t, err)
	return c
}

type captureMailer struct {
	mu   sync.Mutex
	sent []service.RecoveryMail
}

func (m *captureMailer) SendRecoveryCode(_ context.Context, rm service.RecoveryMail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, rm)
	return nil
}

func (m *captureMailer) last(t *testing.T) service.RecoveryMail {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.sent)
	return m.sent[len(m.sent)-1]
}
