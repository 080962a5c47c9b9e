package sqlite

import (
	"context"
	"time"
)

type backupCodesRepo struct {
	db dbtx
}

// ReplaceBackupCodes is expected to run inside a transaction so the old set
// never coexists with the new one.
func (r *backupCodesRepo) ReplaceBackupCodes(ctx context.Context, userID string, hashes []string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM backup_codes WHERE user_id = ?`, userID); err != nil {
		return err
	}

	now := toMillis(time.Now())
	for _, h := range hashes {
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO backup_codes (user_id, code_hash, created_at) VALUES (?, ?, ?)`,
			userID, h, now)
		if err != nil {
			return mapConstraint(err)
		}
	}
	return nil
}

func (r *backupCodesRepo) ConsumeBackupCode(ctx context.Context, userID, hash string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM backup_codes WHERE user_id = ? AND code_hash = ?`, userID, hash)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *backupCodesRepo) CountUserBackupCodes(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM backup_codes WHERE user_id = ?`, userID).Scan(&n)
	return n, err
}
