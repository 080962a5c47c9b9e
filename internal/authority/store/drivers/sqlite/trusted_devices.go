package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/labauth/internal/authority/domain"
)

type trustedDevicesRepo struct {
	db dbtx
}

// TrustDevice inserts the device or extends the expiry of a known one.
func (r *trustedDevicesRepo) TrustDevice(ctx context.Context, d domain.TrustedDevice) error {
	created := d.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO trusted_devices (id, user_id, fingerprint_hash, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id, fingerprint_hash) DO UPDATE SET expires_at = excluded.expires_at`,
		d.ID, d.UserID, d.FingerprintHash, toMillis(d.ExpiresAt), toMillis(created))
	return err
}

func (r *trustedDevicesRepo) IsTrusted(ctx context.Context, userID, hash string, now time.Time) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM trusted_devices
		WHERE user_id = ? AND fingerprint_hash = ? AND expires_at > ?`,
		userID, hash, toMillis(now)).Scan(&n)
	return n > 0, err
}

func (r *trustedDevicesRepo) DeleteUserDevices(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM trusted_devices WHERE user_id = ?`, userID)
	return err
}

func (r *trustedDevicesRepo) DeleteExpiredDevices(ctx context.Context, now time.Time) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM trusted_devices WHERE expires_at <= ?`, toMillis(now))
	return err
}
