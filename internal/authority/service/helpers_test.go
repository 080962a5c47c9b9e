package service

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/labauth/internal/authority/domain"
	"github.com/aussiebroadwan/labauth/internal/authority/store/drivers/sqlite"
	"github.com/aussiebroadwan/labauth/pkg/cryptox"
	"github.com/aussiebroadwan/labauth/pkg/idx"
)

const testPassword = "Muestra#2024"

type harness struct {
	store    *sqlite.Store
	hasher   cryptox.Hasher
	keys     *TOTPKeys
	mailer   *captureMailer
	login    *LoginService
	mfa      *MFAService
	recovery *RecoveryService
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	st, err := sqlite.NewStore("file:" + filepath.Join(t.TempDir(), "authority.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	box, err := cryptox.NewSecretBox([]byte("test master key"))
	require.NoError(t, err)

	h := &harness{
		store:  st,
		hasher: cryptox.Hasher{Pepper: "pepper"},
		keys:   &TOTPKeys{Box: box, Issuer: "LabAuth"},
		mailer: &captureMailer{},
	}
	h.login = &LoginService{Store: st, Hasher: h.hasher, Keys: h.keys, RequireMFA: true}
	h.mfa = &MFAService{Store: st, Hasher: h.hasher, Keys: h.keys}
	h.recovery = &RecoveryService{Store: st, Hasher: h.hasher, Keys: h.keys, Mailer: h.mailer}
	return h
}

// addUser creates a user; with mfa set it also enrolls a key and returns it.
func (h *harness) addUser(t *testing.T, email string, mfa bool) (domain.User, *otp.Key) {
	t.Helper()
	ctx := context.Background()

	hash, err := h.hasher.Hash(testPassword)
	require.NoError(t, err)

	u := domain.User{
		ID:           idx.New().String(),
		Username:     email[:len(email)-len("@lab.test")],
		Email:        email,
		Name:         "Usuario " + email,
		PasswordHash: hash,
		Roles:        []string{"analyst"},
	}
	require.NoError(t, h.store.Users().CreateUser(ctx, u))
	if !mfa {
		return u, nil
	}

	key, sealed, err := h.keys.Generate(email)
	require.NoError(t, err)
	require.NoError(t, h.store.Users().SetPendingTOTP(ctx, u.ID, sealed, time.Now().Add(time.Hour)))
	require.NoError(t, h.store.Users().ActivatePendingTOTP(ctx, u.ID, time.Now()))

	u, err = h.store.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	return u, key
}

func code(t *testing.T, key *otp.Key) string {
	t.Helper()
	c, err := totp.GenerateCode(key.Secret(), time.Now())
	require.NoError(t, err)
	return c
}

// wrongCode returns a six-digit code that matches none of the periods the
// validator accepts right now.
func wrongCode(t *testing.T, key *otp.Key) string {
	t.Helper()
	now := time.Now()
	valid := map[string]bool{}
	for _, d := range []time.Duration{-30 * time.Second, 0, 30 * time.Second} {
		c, err := totp.GenerateCode(key.Secret(), now.Add(d))
		require.NoError(t, err)
		valid[c] = true
	}
	for i := 0; ; i++ {
		c := fmt.Sprintf("%06d", i)
		if !valid[c] {
			return c
		}
	}
}

type captureMailer struct {
	mu   sync.Mutex
	sent []RecoveryMail
}

func (m *captureMailer) SendRecoveryCode(_ context.Context, rm RecoveryMail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, rm)
	return nil
}

func (m *captureMailer) last(t *testing.T) RecoveryMail {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.sent)
	return m.sent[len(m.sent)-1]
}
