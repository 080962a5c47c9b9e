package authsdk

import (
	"context"
	"net/http"
)

const (
	pathLogout = "/api/auth/logout"
	pathMe     = "/api/auth/me"
)

// Logout ends the current session. The authority clears the session cookie,
// which the client's cookie jar honours.
func (c *SDKClient) Logout(ctx context.Context) error {
	return c.exchange(ctx, http.MethodPost, pathLogout, nil, nil, msgLogoutFailed)
}

// Me returns the user of the current session.
func (c *SDKClient) Me(ctx context.Context) (*UserSummary, error) {
	var body LoginResponse
	if err := c.exchange(ctx, http.MethodGet, pathMe, nil, &body, msgMeFailed); err != nil {
		return nil, err
	}
	if body.User == nil {
		return nil, malformed(msgInvalidResponse, http.StatusOK, nil)
	}
	user := body.User.Summary()
	return &user, nil
}
