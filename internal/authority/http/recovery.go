package http

import (
	"net/http"
	"strings"

	"github.com/aussiebroadwan/labauth/internal/authority/service"
	"github.com/aussiebroadwan/labauth/pkg/authsdk"
	"github.com/aussiebroadwan/labauth/pkg/httpx"
	"github.com/aussiebroadwan/labauth/pkg/slogx"
)

// RecoveryHandler handles the forgotten-password flow.
type RecoveryHandler struct {
	RecoveryService *service.RecoveryService
}

// HandleForgotPassword handles POST /api/auth/forgot-password. The answer is
// the same whether or not the account exists.
func (h *RecoveryHandler) HandleForgotPassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req authsdk.ForgotPasswordRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		log.Warn("failed to parse request", "err", err)
		httpx.WriteError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		httpx.WriteError(w, http.StatusBadRequest, msgMissingFields)
		return
	}

	if err := h.RecoveryService.ForgotPassword(ctx, strings.TrimSpace(req.Email)); err != nil {
		writeServiceError(w, r, err, "")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.MessageResponse{Message: msgForgotAccepted})
}

// HandleResetPassword handles POST /api/auth/reset-password.
func (h *RecoveryHandler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req authsdk.ResetPasswordBody
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		log.Warn("failed to parse request", "err", err)
		httpx.WriteError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.RecoveryCode == "" || req.TOTPCode == "" || req.NewPassword == "" {
		httpx.WriteError(w, http.StatusBadRequest, msgMissingFields)
		return
	}

	err := h.RecoveryService.ResetPassword(ctx, service.ResetInput{
		Email:        strings.TrimSpace(req.Email),
		RecoveryCode: strings.TrimSpace(req.RecoveryCode),
		TOTPCode:     strings.TrimSpace(req.TOTPCode),
		NewPassword:  req.NewPassword,
	})
	if err != nil {
		writeServiceError(w, r, err, req.NewPassword)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.MessageResponse{Message: msgPasswordReset})
}
