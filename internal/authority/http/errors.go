package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/labauth/internal/authority/service"
	"github.com/aussiebroadwan/labauth/pkg/codefmt"
	"github.com/aussiebroadwan/labauth/pkg/httpx"
	"github.com/aussiebroadwan/labauth/pkg/slogx"
)

// User-facing messages.
const (
	msgInvalidBody          = "Solicitud inválida"
	msgMissingFields        = "Faltan campos obligatorios"
	msgInvalidCredentials   = "Credenciales inválidas"
	msgInvalidSecondFactor  = "Código de autenticación inválido"
	msgSecondFactorRequired = "Se requiere el código de autenticación"
	msgSetupRequired        = "Debes configurar la autenticación de dos factores"
	msgChangeRequired       = "Debes cambiar tus credenciales antes de continuar"
	msgMFAAlreadyEnabled    = "La autenticación de dos factores ya está activada"
	msgMFANotEnabled        = "La autenticación de dos factores no está activada"
	msgNoPendingEnrollment  = "No hay una configuración de dos factores pendiente"
	msgInvalidSetupToken    = "El enlace de configuración no es válido o ha expirado"
	msgSetupNotRequired     = "La cuenta no requiere configuración"
	msgEmailTaken           = "El correo electrónico ya está en uso"
	msgInvalidRecoveryCode  = "Código de recuperación inválido"
	msgExpiredRecoveryCode  = "El código de recuperación ha expirado"
	msgUserNotFound         = "Usuario no encontrado"
	msgServerError          = "Error interno del servidor"
	msgForgotAccepted       = "Si la cuenta existe, recibirás un código de recuperación por correo"
	msgPasswordReset        = "Contraseña restablecida correctamente"
	msgLoggedOut            = "Sesión cerrada"
)

// writeServiceError maps a service error to a status code and message.
// Unknown errors are logged and reported as 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, password string) {
	log := slogx.FromContext(r.Context())

	status, msg := http.StatusInternalServerError, msgServerError
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		status, msg = http.StatusUnauthorized, msgInvalidCredentials
	case errors.Is(err, service.ErrInvalidSecondFactor):
		status, msg = http.StatusUnauthorized, msgInvalidSecondFactor
	case errors.Is(err, service.ErrCredentialChangeRequired):
		status, msg = http.StatusForbidden, msgChangeRequired
	case errors.Is(err, service.ErrSecondFactorRequired):
		status, msg = http.StatusForbidden, msgSecondFactorRequired
	case errors.Is(err, service.ErrMFASetupRequired):
		status, msg = http.StatusForbidden, msgSetupRequired
	case errors.Is(err, service.ErrMFAAlreadyEnabled):
		status, msg = http.StatusConflict, msgMFAAlreadyEnabled
	case errors.Is(err, service.ErrMFANotEnabled):
		status, msg = http.StatusBadRequest, msgMFANotEnabled
	case errors.Is(err, service.ErrNoPendingEnrollment):
		status, msg = http.StatusBadRequest, msgNoPendingEnrollment
	case errors.Is(err, service.ErrInvalidSetupToken):
		status, msg = http.StatusUnauthorized, msgInvalidSetupToken
	case errors.Is(err, service.ErrSetupNotRequired):
		status, msg = http.StatusBadRequest, msgSetupNotRequired
	case errors.Is(err, service.ErrEmailTaken):
		status, msg = http.StatusConflict, msgEmailTaken
	case errors.Is(err, service.ErrWeakPassword):
		status, msg = http.StatusBadRequest, codefmt.ValidatePasswordStrength(password).Message
	case errors.Is(err, service.ErrInvalidRecoveryCode):
		status, msg = http.StatusBadRequest, msgInvalidRecoveryCode
	case errors.Is(err, service.ErrExpiredRecoveryCode):
		status, msg = http.StatusBadRequest, msgExpiredRecoveryCode
	case errors.Is(err, service.ErrUserNotFound):
		status, msg = http.StatusNotFound, msgUserNotFound
	}

	if status == http.StatusInternalServerError {
		log.Error("request failed", "err", err)
	} else {
		log.Warn("request rejected", "status", status, "err", err)
	}
	httpx.WriteError(w, status, msg)
}
