package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/labauth/internal/authority/store"
	"github.com/aussiebroadwan/labauth/pkg/authsdk"
	"github.com/aussiebroadwan/labauth/pkg/httpx"
	"github.com/aussiebroadwan/labauth/pkg/slogx"
)

// AccountHandler serves the current session.
type AccountHandler struct {
	Store    store.Store
	Sessions *sessionIssuer
}

// HandleMe handles GET /api/auth/me.
func (h *AccountHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID := httpx.UserIDFromContext(ctx)
	u, err := h.Store.Users().GetUserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		// Session outlived the account
		log.Warn("session for unknown user", "user_id", userID)
		h.Sessions.clear(w)
		httpx.WriteError(w, http.StatusUnauthorized, msgInvalidCredentials)
		return
	}
	if err != nil {
		log.Error("failed to load user", "user_id", userID, "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, msgServerError)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.LoginResponse{User: userPayload(u)})
}

// HandleLogout handles POST /api/auth/logout. Tokens are stateless, so
// logging out only clears the cookie.
func (h *AccountHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.Sessions.clear(w)
	httpx.WriteJSON(w, http.StatusOK, authsdk.MessageResponse{Message: msgLoggedOut})
}
