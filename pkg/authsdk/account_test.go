package authsdk

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSessionCookieIsCarried(t *testing.T) {
	t.Parallel()

	f := newFakeAuthority(t)
	f.handle(pathLogin, func(w http.ResponseWriter, _ *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "labauth_session", Value: "s1", Path: "/"})
		_, _ = w.Write([]byte(`{"user":{"id":"u1"}}`))
	})
	f.handle(pathMe, func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("labauth_session"); err != nil || c.Value != "s1" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"No autenticado"}`))
			return
		}
		_, _ = w.Write([]byte(`{"user":{"id":"u1","name":"Ana"}}`))
	})
	f.handle(pathLogout, func(w http.ResponseWriter, _ *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "labauth_session", Value: "", Path: "/", MaxAge: -1})
		w.WriteHeader(http.StatusNoContent)
	})

	client := f.client()
	ctx := context.Background()

	_, err := client.Me(ctx)
	authErr := requireAuthError(t, err, KindRejected)
	require.Equal(t, "No autenticado", authErr.Message)

	_, err = client.Login(ctx, Credentials{Identifier: "ana", Password: "secret123"})
	require.NoError(t, err)

	me, err := client.Me(ctx)
	require.NoError(t, err)
	require.Equal(t, "Ana", me.Name)

	require.NoError(t, client.Logout(ctx))

	_, err = client.Me(ctx)
	requireAuthError(t, err, KindRejected)
}
