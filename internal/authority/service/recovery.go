package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/labauth/internal/authority/domain"
	"github.com/aussiebroadwan/labauth/internal/authority/store"
	"github.com/aussiebroadwan/labauth/pkg/codefmt"
	"github.com/aussiebroadwan/labauth/pkg/cryptox"
	"github.com/aussiebroadwan/labauth/pkg/idx"
	"github.com/aussiebroadwan/labauth/pkg/slogx"
)

const (
	DefaultRecoveryCodeTTL = 30 * time.Minute

	// MaxRecoveryAttempts wrong codes invalidate every outstanding code.
	MaxRecoveryAttempts = 5
)

// ResetInput is a password reset request.
type ResetInput struct {
	Email        string
	RecoveryCode string
	TOTPCode     string
	NewPassword  string
}

type RecoveryService struct {
	Store  store.Store
	Hasher cryptox.Hasher
	Keys   *TOTPKeys
	Mailer Mailer

	CodeTTL time.Duration
	Now     func() time.Time
}

func (s *RecoveryService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// ForgotPassword mails a recovery code to a user with MFA enabled. Unknown
// addresses and accounts without a second factor succeed silently so the
// response never reveals which accounts exist.
func (s *RecoveryService) ForgotPassword(ctx context.Context, email string) error {
	log := slogx.FromContext(ctx)

	u, err := s.Store.Users().GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		log.Info("recovery requested for unknown email")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}
	if !u.HasMFA() {
		log.Info("recovery requested for account without MFA", "user_id", u.ID)
		return nil
	}

	code, err := cryptox.NewRecoveryCode()
	if err != nil {
		return err
	}

	now := s.now()
	ttl := s.CodeTTL
	if ttl <= 0 {
		ttl = DefaultRecoveryCodeTTL
	}
	expires := now.Add(ttl)

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		// Only the newest code is valid.
		if err := tx.RecoveryCodes().DeleteUserRecoveryCodes(ctx, u.ID); err != nil {
			return err
		}
		return tx.RecoveryCodes().CreateRecoveryCode(ctx, domain.RecoveryCode{
			ID:        idx.New().String(),
			UserID:    u.ID,
			CodeHash:  codeHash(code),
			ExpiresAt: expires,
			CreatedAt: now,
		})
	})
	if err != nil {
		return fmt.Errorf("failed to store recovery code: %w", err)
	}

	if err := s.Mailer.SendRecoveryCode(ctx, RecoveryMail{
		To:        u.Email,
		Name:      u.DisplayName(),
		Code:      code,
		ExpiresAt: expires,
	}); err != nil {
		return fmt.Errorf("failed to send recovery code: %w", err)
	}

	log.Info("recovery code issued", "user_id", u.ID, "expires_at", expires)
	return nil
}

// ResetPassword sets a new password once the recovery code and the second
// factor are verified. All recovery codes and trusted devices of the user are
// discarded afterwards.
func (s *RecoveryService) ResetPassword(ctx context.Context, in ResetInput) error {
	log := slogx.FromContext(ctx)
	now := s.now()

	if !codefmt.ValidatePasswordStrength(in.NewPassword).Valid {
		return ErrWeakPassword
	}

	u, err := s.Store.Users().GetUserByEmail(ctx, in.Email)
	if errors.Is(err, store.ErrNotFound) {
		return ErrInvalidRecoveryCode
	}
	if err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}

	rc, err := s.Store.RecoveryCodes().GetRecoveryCode(ctx, u.ID, codeHash(in.RecoveryCode))
	if errors.Is(err, store.ErrNotFound) {
		s.countFailure(ctx, u.ID)
		return ErrInvalidRecoveryCode
	}
	if err != nil {
		return fmt.Errorf("failed to load recovery code: %w", err)
	}
	if rc.Expired(now) {
		return ErrExpiredRecoveryCode
	}
	if !u.HasMFA() {
		return ErrMFANotEnabled
	}

	hash, err := s.Hasher.Hash(in.NewPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if _, err := checkSecondFactor(ctx, tx, s.Keys, u, in.TOTPCode, now); err != nil {
			return err
		}
		if err := tx.Users().UpdatePasswordHash(ctx, u.ID, hash); err != nil {
			return fmt.Errorf("failed to update password: %w", err)
		}
		if err := tx.RecoveryCodes().DeleteUserRecoveryCodes(ctx, u.ID); err != nil {
			return err
		}
		return tx.TrustedDevices().DeleteUserDevices(ctx, u.ID)
	})
	if err != nil {
		if errors.Is(err, ErrInvalidSecondFactor) {
			log.Warn("password reset rejected: second factor", "user_id", u.ID)
			s.countFailure(ctx, u.ID)
		}
		return err
	}

	log.Info("password reset", "user_id", u.ID)
	return nil
}

// countFailure records a wrong recovery code and discards every outstanding
// code once MaxRecoveryAttempts is reached.
func (s *RecoveryService) countFailure(ctx context.Context, userID string) {
	log := slogx.FromContext(ctx)

	n, err := s.Store.RecoveryCodes().IncrementRecoveryAttempts(ctx, userID)
	if err != nil {
		log.Error("failed to count recovery attempt", "user_id", userID, "err", err)
		return
	}
	if n < MaxRecoveryAttempts {
		return
	}
	if err := s.Store.RecoveryCodes().DeleteUserRecoveryCodes(ctx, userID); err != nil {
		log.Error("failed to discard recovery codes", "user_id", userID, "err", err)
		return
	}
	log.Warn("recovery codes discarded after repeated failures", "user_id", userID)
}
