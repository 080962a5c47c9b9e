package jwtx_test

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/labauth/pkg/jwtx"
)

var testSecret = []byte(strings.Repeat("s", 32))

func TestSignVerify(t *testing.T) {
	t.Parallel()

	signer, err := jwtx.NewSigner(testSecret)
	require.NoError(t, err)
	verifier := jwtx.NewVerifier(testSecret, "labauth", 0)

	now := time.Now()
	token, err := signer.Sign(jwtx.NewSessionClaims("user-1", jwtx.StageFull, []string{"pwd", "otp"}, "labauth", time.Hour, now))
	require.NoError(t, err)

	claims, err := verifier.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.Subject)
	require.True(t, claims.IsFull())
	require.Equal(t, []string{"pwd", "otp"}, claims.AMR)
	require.NotEmpty(t, claims.ID)
}

func TestVerify_Rejections(t *testing.T) {
	t.Parallel()

	signer, err := jwtx.NewSigner(testSecret)
	require.NoError(t, err)
	now := time.Now()

	t.Run("expired", func(t *testing.T) {
		token, err := signer.Sign(jwtx.NewSessionClaims("u", jwtx.StageFull, nil, "labauth", time.Minute, now.Add(-time.Hour)))
		require.NoError(t, err)

		_, err = jwtx.NewVerifier(testSecret, "labauth", 0).Verify(token)
		require.ErrorIs(t, err, jwtx.ErrExpired)
	})

	t.Run("leeway absorbs skew", func(t *testing.T) {
		token, err := signer.Sign(jwtx.NewSessionClaims("u", jwtx.StageFull, nil, "labauth", time.Minute, now.Add(-90*time.Second)))
		require.NoError(t, err)

		_, err = jwtx.NewVerifier(testSecret, "labauth", time.Minute).Verify(token)
		require.NoError(t, err)
	})

	t.Run("issuer mismatch", func(t *testing.T) {
		token, err := signer.Sign(jwtx.NewSessionClaims("u", jwtx.StageFull, nil, "other", time.Hour, now))
		require.NoError(t, err)

		_, err = jwtx.NewVerifier(testSecret, "labauth", 0).Verify(token)
		require.ErrorIs(t, err, jwtx.ErrIssuer)
	})

	t.Run("wrong secret", func(t *testing.T) {
		token, err := signer.Sign(jwtx.NewSessionClaims("u", jwtx.StageFull, nil, "labauth", time.Hour, now))
		require.NoError(t, err)

		_, err = jwtx.NewVerifier([]byte(strings.Repeat("x", 32)), "labauth", 0).Verify(token)
		require.ErrorIs(t, err, jwtx.ErrInvalidSig)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := jwtx.NewVerifier(testSecret, "", 0).Verify("not-a-token")
		require.ErrorIs(t, err, jwtx.ErrMalformed)
	})

	t.Run("unknown stage", func(t *testing.T) {
		claims := jwtx.NewSessionClaims("u", jwtx.Stage("admin"), nil, "labauth", time.Hour, now)
		token, err := signer.Sign(claims)
		require.NoError(t, err)

		_, err = jwtx.NewVerifier(testSecret, "labauth", 0).Verify(token)
		require.ErrorIs(t, err, jwtx.ErrInvalidClaim)
	})

	t.Run("other algorithm", func(t *testing.T) {
		claims := jwtx.NewSessionClaims("u", jwtx.StageFull, nil, "labauth", time.Hour, now)
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(testSecret)
		require.NoError(t, err)

		_, err = jwtx.NewVerifier(testSecret, "labauth", 0).Verify(token)
		require.Error(t, err)
	})
}

func TestNewSigner_WeakSecret(t *testing.T) {
	t.Parallel()

	_, err := jwtx.NewSigner([]byte("short"))
	require.ErrorIs(t, err, jwtx.ErrWeakSecret)
}
