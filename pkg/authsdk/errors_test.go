package authsdk

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAuthError(t *testing.T) {
	t.Parallel()

	cause := errors.New("dial tcp: timeout")
	err := fmt.Errorf("login: %w", &AuthError{Kind: KindNetworkUnreachable, Message: msgUnreachable, Err: cause})

	require.ErrorIs(t, err, ErrNetworkUnreachable)
	require.NotErrorIs(t, err, ErrRejected)
	require.ErrorIs(t, err, cause)
	require.Equal(t, "login: "+msgUnreachable, err.Error())
}

func TestFailureMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		want string
	}{
		{"error field", `{"error":"uno"}`, "uno"},
		{"message field", `{"message":"dos"}`, "dos"},
		{"error wins over message", `{"error":"uno","message":"dos"}`, "uno"},
		{"json without text", `{"ok":false}`, "fallback"},
		{"raw text", "  Bad Gateway \n", "Bad Gateway"},
		{"blank", " \n", "fallback"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, failureMessage([]byte(tt.body), "fallback"))
		})
	}
}

func TestLoginRejection(t *testing.T) {
	t.Parallel()

	err := loginRejection(&rawResponse{status: http.StatusUnauthorized, body: []byte(`{"error":"Credenciales inválidas"}`)})
	require.ErrorIs(t, err, ErrInvalidCredentials)

	err = loginRejection(&rawResponse{status: http.StatusBadGateway, body: []byte(" ")})
	require.ErrorIs(t, err, ErrEmptyResponse)
	require.Equal(t, http.StatusBadGateway, err.StatusCode)
}
