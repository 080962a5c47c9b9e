package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/labauth/internal/authority/domain"
	"github.com/aussiebroadwan/labauth/internal/authority/store"
	"github.com/aussiebroadwan/labauth/pkg/cryptox"
	"github.com/aussiebroadwan/labauth/pkg/idx"
)

var ErrBootstrapAlready = errors.New("system already bootstrapped")

type BootstrapService struct {
	Store  store.Store
	Hasher cryptox.Hasher
	Logger *slog.Logger
}

// EnsureAdmin creates the bootstrap administrator when the user table is
// empty. The account must change its credentials and enroll a second factor
// on first login. A random password is generated and logged once when none
// is configured.
func (s *BootstrapService) EnsureAdmin(ctx context.Context, admin domain.BootstrapAdmin) (domain.User, error) {
	empty, err := s.Store.Users().IsEmpty(ctx)
	if err != nil {
		return domain.User{}, fmt.Errorf("failed to check users: %w", err)
	}
	if !empty {
		return domain.User{}, ErrBootstrapAlready
	}

	password := admin.Password
	generated := password == ""
	if generated {
		if password, err = cryptox.GeneratePassword(); err != nil {
			return domain.User{}, fmt.Errorf("failed to generate admin password: %w", err)
		}
	}

	hash, err := s.Hasher.Hash(password)
	if err != nil {
		return domain.User{}, fmt.Errorf("failed to hash admin password: %w", err)
	}

	u := domain.User{
		ID:                    idx.New().String(),
		Username:              admin.Username,
		Email:                 admin.Email,
		Name:                  admin.Name,
		PasswordHash:          hash,
		Roles:                 []string{domain.RoleAdmin},
		MustChangeCredentials: true,
	}
	if err := s.Store.Users().CreateUser(ctx, u); err != nil {
		return domain.User{}, fmt.Errorf("failed to create admin user: %w", err)
	}

	attrs := []any{slog.String("user_id", u.ID), slog.String("email", admin.Email)}
	if generated {
		attrs = append(attrs, slog.String("password", password))
	}
	s.Logger.Warn("bootstrap administrator created, credentials must be changed on first login", attrs...)

	return u, nil
}
