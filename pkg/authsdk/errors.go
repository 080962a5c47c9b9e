package authsdk

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// ============================================================================
// Error Kinds
// ============================================================================

// ErrorKind classifies an AuthError so callers never need to look at HTTP
// status codes.
type ErrorKind string

const (
	// KindInvalidCredentials means the primary endpoint rejected the identifier/password pair.
	KindInvalidCredentials ErrorKind = "invalid_credentials"

	// KindMalformedResponse means a body was expected but was empty or could not be understood.
	KindMalformedResponse ErrorKind = "malformed_response"

	// KindEmptyResponse means a rejection arrived without any explanation.
	KindEmptyResponse ErrorKind = "empty_response"

	// KindNetworkUnreachable means the request never produced an HTTP response.
	KindNetworkUnreachable ErrorKind = "network_unreachable"

	// KindRejected is the generic passthrough for server-side refusals.
	KindRejected ErrorKind = "rejected"

	// KindInvalidInput means client-side pre-validation failed and nothing was sent.
	KindInvalidInput ErrorKind = "invalid_input"
)

// ============================================================================
// AuthError
// ============================================================================

// AuthError is the only error type returned by SDKClient operations. Message is
// always a sentence that can be shown to the end user as-is.
type AuthError struct {
	Kind    ErrorKind
	Message string

	// StatusCode is the HTTP status that produced the error, 0 when no response arrived.
	StatusCode int

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	return e.Message
}

// Unwrap exposes the underlying cause to errors.Is and errors.As.
func (e *AuthError) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *AuthError of the same kind, which lets the
// Err* sentinels below be used with errors.Is.
func (e *AuthError) Is(target error) bool {
	t, ok := target.(*AuthError)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is comparisons. Only Kind is compared.
var (
	ErrInvalidCredentials = &AuthError{Kind: KindInvalidCredentials, Message: "Credenciales inválidas"}
	ErrMalformedResponse  = &AuthError{Kind: KindMalformedResponse, Message: msgInvalidResponse}
	ErrEmptyResponse      = &AuthError{Kind: KindEmptyResponse, Message: msgEmptyResponse}
	ErrNetworkUnreachable = &AuthError{Kind: KindNetworkUnreachable, Message: msgUnreachable}
	ErrRejected           = &AuthError{Kind: KindRejected, Message: msgAuthFailed}
	ErrInvalidInput       = &AuthError{Kind: KindInvalidInput, Message: "Datos no válidos"}
)

// ErrEndpointNotFound is wrapped by the AuthError produced when the primary
// login endpoint does not exist on the deployment.
var ErrEndpointNotFound = errors.New("authsdk: endpoint not found")

// User-facing messages. The application is Spanish-speaking, and so are the
// messages produced by the authority.
const (
	msgEmptyForbidden  = "Respuesta del servidor vacía"
	msgInvalidResponse = "Respuesta del servidor inválida"
	msgEmptyResponse   = "El servidor no devolvió ninguna respuesta"
	msgUnreachable     = "No se pudo conectar con el servidor de autenticación"
	msgAuthFailed      = "Error de autenticación"
	msgSecondFactor    = "Introduce el código de tu aplicación de autenticación"
	msgSetupRequired   = "Debes configurar la autenticación en dos pasos para continuar"
	msgChangeRequired  = "Debes cambiar tus credenciales para continuar"

	msgSetupInitialFailed = "Error al iniciar la configuración de 2FA"
	msgVerifyFailed       = "Error al verificar el código de autenticación"
	msgAdminSetupFailed   = "Error al completar configuración"
	msgSetupTokenInvalid  = "Token de configuración inválido o expirado"
	msgRegenerateFailed   = "Error al regenerar los códigos de respaldo"
	msgCountFailed        = "Error al consultar los códigos de respaldo"
	msgForgotFailed       = "Error al solicitar la recuperación de contraseña"
	msgResetFailed        = "Error al restablecer la contraseña"
	msgLogoutFailed       = "Error al cerrar sesión"
	msgMeFailed           = "No hay ninguna sesión activa"

	msgInvalidTOTP         = "El código de autenticación debe tener 6 dígitos"
	msgInvalidSecondFactor = "Introduce un código de 6 dígitos o un código de respaldo válido"
	msgInvalidRecoveryCode = "El código de recuperación debe tener 8 caracteres"
	msgMissingField        = "Completa todos los campos obligatorios"
)

// ============================================================================
// Error Construction Helpers
// ============================================================================

func invalidInput(msg string) *AuthError {
	return &AuthError{Kind: KindInvalidInput, Message: msg}
}

func malformed(msg string, status int, cause error) *AuthError {
	return &AuthError{Kind: KindMalformedResponse, Message: msg, StatusCode: status, Err: cause}
}

// rejection builds the error for a non-2xx response: the structured error
// field, then the raw body text, then fallback.
func rejection(resp *rawResponse, fallback string) *AuthError {
	return &AuthError{
		Kind:       KindRejected,
		Message:    failureMessage(resp.body, fallback),
		StatusCode: resp.status,
	}
}

// loginRejection interprets a plain (non-403, non-404) rejection from the
// primary login endpoint.
func loginRejection(resp *rawResponse) *AuthError {
	if isBlank(resp.body) {
		return &AuthError{Kind: KindEmptyResponse, Message: msgEmptyResponse, StatusCode: resp.status}
	}

	kind := KindRejected
	if resp.status == http.StatusUnauthorized {
		kind = KindInvalidCredentials
	}

	return &AuthError{
		Kind:       kind,
		Message:    failureMessage(resp.body, msgAuthFailed),
		StatusCode: resp.status,
	}
}

// failureMessage picks the text shown for a failed exchange. A JSON object
// with an error or message field wins; a JSON document without one yields
// fallback; anything else that is not blank is returned verbatim.
func failureMessage(body []byte, fallback string) string {
	text := strings.TrimSpace(string(body))
	if text == "" {
		return fallback
	}

	var payload ErrorResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return text
	}
	if msg := payload.Text(); msg != "" {
		return msg
	}
	return fallback
}

func isBlank(body []byte) bool {
	return len(bytes.TrimSpace(body)) == 0
}
