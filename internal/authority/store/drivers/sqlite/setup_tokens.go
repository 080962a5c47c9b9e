package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/labauth/internal/authority/domain"
)

type setupTokensRepo struct {
	db dbtx
}

func (r *setupTokensRepo) CreateSetupToken(ctx context.Context, t domain.SetupToken) error {
	created := t.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO setup_tokens (id, user_id, token_hash, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.TokenHash, toMillis(t.ExpiresAt), toMillis(created))
	return mapConstraint(err)
}

func (r *setupTokensRepo) GetActiveSetupToken(ctx context.Context, hash string, now time.Time) (domain.SetupToken, error) {
	var (
		t                domain.SetupToken
		expires, created int64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, token_hash, expires_at, created_at
		FROM setup_tokens
		WHERE token_hash = ? AND expires_at > ?`, hash, toMillis(now)).
		Scan(&t.ID, &t.UserID, &t.TokenHash, &expires, &created)
	if err != nil {
		return domain.SetupToken{}, mapNotFound(err)
	}
	t.ExpiresAt = fromMillis(expires)
	t.CreatedAt = fromMillis(created)
	return t, nil
}

func (r *setupTokensRepo) DeleteUserSetupTokens(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM setup_tokens WHERE user_id = ?`, userID)
	return err
}

func (r *setupTokensRepo) DeleteExpiredSetupTokens(ctx context.Context, now time.Time) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM setup_tokens WHERE expires_at <= ?`, toMillis(now))
	return err
}
