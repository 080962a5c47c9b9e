package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/labauth/internal/authority/domain"
)

type recoveryCodesRepo struct {
	db dbtx
}

func (r *recoveryCodesRepo) CreateRecoveryCode(ctx context.Context, c domain.RecoveryCode) error {
	created := c.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO recovery_codes (id, user_id, code_hash, attempts, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.UserID, c.CodeHash, c.Attempts, toMillis(c.ExpiresAt), toMillis(created))
	return mapConstraint(err)
}

func (r *recoveryCodesRepo) GetRecoveryCode(ctx context.Context, userID, hash string) (domain.RecoveryCode, error) {
	var (
		c                domain.RecoveryCode
		expires, created int64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, code_hash, attempts, expires_at, created_at
		FROM recovery_codes
		WHERE user_id = ? AND code_hash = ?
		ORDER BY created_at DESC
		LIMIT 1`, userID, hash).
		Scan(&c.ID, &c.UserID, &c.CodeHash, &c.Attempts, &expires, &created)
	if err != nil {
		return domain.RecoveryCode{}, mapNotFound(err)
	}
	c.ExpiresAt = fromMillis(expires)
	c.CreatedAt = fromMillis(created)
	return c, nil
}

func (r *recoveryCodesRepo) IncrementRecoveryAttempts(ctx context.Context, userID string) (int, error) {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE recovery_codes SET attempts = attempts + 1 WHERE user_id = ?`, userID); err != nil {
		return 0, err
	}

	var n sql.NullInt64
	err := r.db.QueryRowContext(ctx,
		`SELECT MAX(attempts) FROM recovery_codes WHERE user_id = ?`, userID).Scan(&n)
	return int(n.Int64), err
}

func (r *recoveryCodesRepo) DeleteUserRecoveryCodes(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM recovery_codes WHERE user_id = ?`, userID)
	return err
}

func (r *recoveryCodesRepo) DeleteExpiredRecoveryCodes(ctx context.Context, now time.Time) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM recovery_codes WHERE expires_at <= ?`, toMillis(now))
	return err
}
