package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/labauth/internal/authority/domain"
)

type usersRepo struct {
	db dbtx
}

const userColumns = `id, username, email, name, first_name, last_name, password_hash, roles,
	totp_key, mfa_enabled_at, pending_totp_key, pending_totp_expires_at,
	must_change_credentials, created_at, updated_at`

func scanUser(row *sql.Row) (domain.User, error) {
	var (
		u                   domain.User
		roles               string
		mfaEnabled, pending sql.NullInt64
		created, updated    int64
	)
	err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.Name, &u.FirstName, &u.LastName, &u.PasswordHash, &roles,
		&u.TOTPKey, &mfaEnabled, &u.PendingTOTPKey, &pending,
		&u.MustChangeCredentials, &created, &updated,
	)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}

	u.Roles = splitRoles(roles)
	u.MFAEnabledAt = fromNullMillis(mfaEnabled)
	u.PendingTOTPExpiresAt = fromNullMillis(pending)
	u.CreatedAt = fromMillis(created)
	u.UpdatedAt = fromMillis(updated)
	return u, nil
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, domain.NormalizeEmail(email)))
}

func (r *usersRepo) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ? COLLATE NOCASE`, username))
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	now := time.Now()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, username, email, name, first_name, last_name, password_hash, roles,
			must_change_credentials, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Username, domain.NormalizeEmail(u.Email), u.Name, u.FirstName, u.LastName,
		u.PasswordHash, joinRoles(u.Roles), u.MustChangeCredentials, toMillis(now), toMillis(now),
	)
	return mapConstraint(err)
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, userID, hash string) error {
	return requireRow(r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		hash, toMillis(time.Now()), userID))
}

func (r *usersRepo) UpdateCredentials(ctx context.Context, userID, email, hash string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET email = ?, password_hash = ?, must_change_credentials = 0, updated_at = ?
		WHERE id = ?`,
		domain.NormalizeEmail(email), hash, toMillis(time.Now()), userID)
	return requireRow(res, mapConstraint(err))
}

func (r *usersRepo) SetPendingTOTP(ctx context.Context, userID, sealed string, expiresAt time.Time) error {
	return requireRow(r.db.ExecContext(ctx, `
		UPDATE users SET pending_totp_key = ?, pending_totp_expires_at = ?, updated_at = ?
		WHERE id = ?`,
		sealed, toMillis(expiresAt), toMillis(time.Now()), userID))
}

func (r *usersRepo) ActivatePendingTOTP(ctx context.Context, userID string, enabledAt time.Time) error {
	return requireRow(r.db.ExecContext(ctx, `
		UPDATE users
		SET totp_key = pending_totp_key,
		    mfa_enabled_at = ?,
		    pending_totp_key = '',
		    pending_totp_expires_at = NULL,
		    updated_at = ?
		WHERE id = ? AND pending_totp_key <> ''`,
		toMillis(enabledAt), toMillis(time.Now()), userID))
}

func (r *usersRepo) IsEmpty(ctx context.Context) (bool, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return false, err
	}
	return n == 0, nil
}
