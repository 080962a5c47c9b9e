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

// LoginHandler serves the primary and legacy login endpoints.
type LoginHandler struct {
	LoginService *service.LoginService
	Sessions     *sessionIssuer
	Metrics      *Metrics
}

// HandlePrimary handles POST /api/auth/login.
//
// A complete login sets a full session cookie and returns the user. Logins
// that still need something answer 403 with a marker saying what; the ones
// that need setup also set a pending session cookie.
func (h *LoginHandler) HandlePrimary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req authsdk.LoginRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		log.Warn("failed to parse request", "err", err)
		httpx.WriteError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}
	if strings.TrimSpace(req.Identifier) == "" || req.Password == "" {
		httpx.WriteError(w, http.StatusBadRequest, msgMissingFields)
		return
	}

	res, err := h.LoginService.Login(ctx, service.LoginRequest{
		Identifier:        req.Identifier,
		Password:          req.Password,
		TOTPCode:          strings.TrimSpace(req.TOTPCode),
		DeviceFingerprint: req.DeviceFingerprint,
		TrustDevice:       req.TrustDevice,
	})
	if err != nil {
		h.Metrics.loginOutcome("primary", outcomeForError(err))
		writeServiceError(w, r, err, "")
		return
	}
	h.Metrics.loginOutcome("primary", res.Status.String())

	switch res.Status {
	case service.LoginComplete:
		if err := h.Sessions.issue(w, res.User.ID, jwtx.StageFull, res.AMR); err != nil {
			writeServiceError(w, r, err, "")
			return
		}
		log.Info("login succeeded", "user_id", res.User.ID, "amr", res.AMR)
		httpx.WriteJSON(w, http.StatusOK, authsdk.LoginResponse{User: userPayload(res.User)})

	case service.LoginNeedsSecondFactor:
		httpx.WriteJSON(w, http.StatusForbidden, authsdk.ForbiddenResponse{
			Requires2FA: true,
			UserID:      res.User.ID,
			Message:     msgSecondFactorRequired,
		})

	case service.LoginNeedsSetup, service.LoginNeedsCredentialChange:
		if err := h.Sessions.issue(w, res.User.ID, jwtx.StagePending, res.AMR); err != nil {
			writeServiceError(w, r, err, "")
			return
		}
		body := authsdk.ForbiddenResponse{UserID: res.User.ID, SetupToken: res.SetupToken}
		if res.Status == service.LoginNeedsSetup {
			body.Requires2FASetup, body.Message = true, msgSetupRequired
		} else {
			body.RequiresCredentialChange, body.Message = true, msgChangeRequired
		}
		log.Info("login pending setup", "user_id", res.User.ID, "status", res.Status.String())
		httpx.WriteJSON(w, http.StatusForbidden, body)
	}
}

// HandleLegacy handles POST /api/login. It checks the password only and
// issues a full session to accounts without a second factor.
func (h *LoginHandler) HandleLegacy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req authsdk.LegacyLoginRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		log.Warn("failed to parse request", "err", err)
		httpx.WriteError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}
	if strings.TrimSpace(req.Identifier) == "" || req.Password == "" {
		httpx.WriteError(w, http.StatusBadRequest, msgMissingFields)
		return
	}

	u, err := h.LoginService.LegacyLogin(ctx, req.Identifier, req.Password)
	if err != nil {
		h.Metrics.loginOutcome("legacy", outcomeForError(err))
		writeServiceError(w, r, err, "")
		return
	}
	h.Metrics.loginOutcome("legacy", service.LoginComplete.String())

	if err := h.Sessions.issue(w, u.ID, jwtx.StageFull, []string{service.AMRPassword}); err != nil {
		writeServiceError(w, r, err, "")
		return
	}
	log.Info("legacy login succeeded", "user_id", u.ID)
	httpx.WriteJSON(w, http.StatusOK, authsdk.LoginResponse{User: userPayload(u)})
}
