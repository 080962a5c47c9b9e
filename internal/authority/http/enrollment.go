package http

import (
	"net/http"
	"strings"

	"github.com/aussiebroadwan/labauth/internal/authority/service"
	"github.com/aussiebroadwan/labauth/pkg/authsdk"
	"github.com/aussiebroadwan/labauth/pkg/httpx"
	"github.com/aussiebroadwan/labauth/pkg/jwtx"
	"github.com/aussiebroadwan/labauth/pkg/slogx"
)

// EnrollmentHandler handles second-factor enrollment and backup codes.
type EnrollmentHandler struct {
	MFAService *service.MFAService
	Sessions   *sessionIssuer
}

// HandleSetupInitial handles POST /api/auth/2fa/setup-initial.
func (h *EnrollmentHandler) HandleSetupInitial(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req authsdk.SetupInitialRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		log.Warn("failed to parse request", "err", err)
		httpx.WriteError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		httpx.WriteError(w, http.StatusBadRequest, msgMissingFields)
		return
	}

	enr, err := h.MFAService.SetupInitial(ctx, req.Email, req.Password)
	if err != nil {
		writeServiceError(w, r, err, "")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.SetupInitialResponse{
		Secret:  enr.Key.Secret(),
		QRCode:  enr.Key.URL(),
		Issuer:  enr.Key.Issuer(),
		Account: enr.Key.AccountName(),
		UserID:  enr.User.ID,
		Email:   enr.User.Email,
	})
}

// HandleVerifyInitial handles POST /api/auth/2fa/verify-initial. The first
// accepted code signs the user in.
func (h *EnrollmentHandler) HandleVerifyInitial(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req authsdk.VerifyInitialRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		log.Warn("failed to parse request", "err", err)
		httpx.WriteError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.TOTPCode == "" {
		httpx.WriteError(w, http.StatusBadRequest, msgMissingFields)
		return
	}

	u, codes, err := h.MFAService.VerifyInitial(ctx, req.Email, strings.TrimSpace(req.TOTPCode))
	if err != nil {
		writeServiceError(w, r, err, "")
		return
	}

	amr := []string{service.AMRPassword, service.AMROTP}
	if err := h.Sessions.issue(w, u.ID, jwtx.StageFull, amr); err != nil {
		writeServiceError(w, r, err, "")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.VerifyInitialResponse{
		Enabled:     true,
		BackupCodes: codes,
		TotalCodes:  len(codes),
		User:        userPayload(u),
	})
}

// HandleAdminSetupData handles GET /api/auth/2fa/admin-setup?token=...
func (h *EnrollmentHandler) HandleAdminSetupData(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if token == "" {
		httpx.WriteError(w, http.StatusBadRequest, msgMissingFields)
		return
	}

	enr, err := h.MFAService.AdminSetupData(ctx, token)
	if err != nil {
		writeServiceError(w, r, err, "")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.AdminSetupDataResponse{
		UserID: enr.User.ID,
		Name:   enr.User.DisplayName(),
		QRCode: enr.Key.URL(),
		Secret: enr.Key.Secret(),
	})
}

// HandleCompleteAdminSetup handles POST /api/auth/2fa/complete-admin-setup.
// The account comes from the pending session when present, otherwise from
// the setup token in the body.
func (h *EnrollmentHandler) HandleCompleteAdminSetup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req authsdk.CompleteAdminSetupRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		log.Warn("failed to parse request", "err", err)
		httpx.WriteError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}
	if req.CurrentPassword == "" || strings.TrimSpace(req.NewEmail) == "" || req.NewPassword == "" || req.TOTPCode == "" {
		httpx.WriteError(w, http.StatusBadRequest, msgMissingFields)
		return
	}

	userID := httpx.UserIDFromContext(ctx)
	if userID == "" && req.SetupToken == "" {
		httpx.WriteError(w, http.StatusUnauthorized, msgInvalidSetupToken)
		return
	}

	u, codes, err := h.MFAService.CompleteAdminSetup(ctx, service.AdminSetupInput{
		UserID:          userID,
		SetupToken:      req.SetupToken,
		CurrentPassword: req.CurrentPassword,
		NewEmail:        strings.TrimSpace(req.NewEmail),
		NewPassword:     req.NewPassword,
		TOTPCode:        strings.TrimSpace(req.TOTPCode),
	})
	if err != nil {
		writeServiceError(w, r, err, req.NewPassword)
		return
	}

	amr := []string{service.AMRPassword, service.AMROTP}
	if err := h.Sessions.issue(w, u.ID, jwtx.StageFull, amr); err != nil {
		writeServiceError(w, r, err, "")
		return
	}
	log.Info("administrator setup completed", "user_id", u.ID)

	httpx.WriteJSON(w, http.StatusOK, authsdk.CompleteAdminSetupResponse{
		BackupCodes: codes,
		TotalCodes:  len(codes),
		User:        userPayload(u),
	})
}

// HandleRegenerateBackupCodes handles POST /api/auth/2fa/backup-codes/regenerate.
func (h *EnrollmentHandler) HandleRegenerateBackupCodes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req authsdk.RegenerateBackupCodesRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		log.Warn("failed to parse request", "err", err)
		httpx.WriteError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	codes, err := h.MFAService.RegenerateBackupCodes(ctx, httpx.UserIDFromContext(ctx), strings.TrimSpace(req.TOTPCode))
	if err != nil {
		writeServiceError(w, r, err, "")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.BackupCodesResponse{
		BackupCodes: codes,
		TotalCodes:  len(codes),
	})
}

// HandleBackupCodesCount handles GET /api/auth/2fa/backup-codes/count.
func (h *EnrollmentHandler) HandleBackupCodesCount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	n, warning, err := h.MFAService.BackupCodesCount(ctx, httpx.UserIDFromContext(ctx))
	if err != nil {
		writeServiceError(w, r, err, "")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.BackupCodesCountResponse{
		AvailableCodes: n,
		Warning:        warning,
	})
}
