package http

import (
	"github.com/aussiebroadwan/labauth/internal/authority/domain"
	"github.com/aussiebroadwan/labauth/pkg/authsdk"
)

func userPayload(u domain.User) *authsdk.UserPayload {
	has2FA := u.HasMFA()
	return &authsdk.UserPayload{
		ID:        u.ID,
		Name:      u.DisplayName(),
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Roles:     u.Roles,
		Has2FA:    &has2FA,
	}
}
