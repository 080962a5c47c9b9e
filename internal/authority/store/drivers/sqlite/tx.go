package sqlite

import (
	"context"
	"database/sql"

	"github.com/aussiebroadwan/labauth/internal/authority/store"
)

type txStore struct {
	tx *sql.Tx
}

func (t *txStore) Commit() error   { return t.tx.Commit() }
func (t *txStore) Rollback() error { return t.tx.Rollback() }

// Close is a no-op; the outer Store owns the connection.
func (t *txStore) Close() error { return nil }

func (t *txStore) Ping(ctx context.Context) error { return nil }

// Nested transactions are not supported.
func (t *txStore) Tx(ctx context.Context) (store.Tx, error) {
	return nil, sql.ErrTxDone
}

func (t *txStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return sql.ErrTxDone
}

func (t *txStore) Users() store.Users                   { return &usersRepo{db: t.tx} }
func (t *txStore) BackupCodes() store.BackupCodes       { return &backupCodesRepo{db: t.tx} }
func (t *txStore) RecoveryCodes() store.RecoveryCodes   { return &recoveryCodesRepo{db: t.tx} }
func (t *txStore) SetupTokens() store.SetupTokens       { return &setupTokensRepo{db: t.tx} }
func (t *txStore) TrustedDevices() store.TrustedDevices { return &trustedDevicesRepo{db: t.tx} }

// ApplyMigrations is a no-op; migrations run before any transaction.
func (t *txStore) ApplyMigrations() error { return nil }
