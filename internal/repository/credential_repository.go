package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/foyerhq/home-api/internal/model"
)

// CredentialRepository handles brokerage credential persistence. One row
// per owner, provisioned out-of-band and rotated in place.
type CredentialRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewCredentialRepository creates a new credential repository
func NewCredentialRepository(db *sqlx.DB, logger *zap.Logger) *CredentialRepository {
	return &CredentialRepository{
		db:     db,
		logger: logger,
	}
}

// ListActive returns all active credentials ordered by owner.
func (r *CredentialRepository) ListActive(ctx context.Context) ([]model.Credential, error) {
	query := `SELECT owner, access_token, refresh_token, api_server, expires_at, active, updated_at
		FROM credentials
		WHERE active = true
		ORDER BY owner`

	var creds []model.Credential
	if err := r.db.SelectContext(ctx, &creds, query); err != nil {
		r.logger.Error("failed to list active credentials", zap.Error(err))
		return nil, model.NewCacheReadError(err)
	}

	return creds, nil
}

// List returns every credential row, active or not.
func (r *CredentialRepository) List(ctx context.Context) ([]model.Credential, error) {
	query := `SELECT owner, access_token, refresh_token, api_server, expires_at, active, updated_at
		FROM credentials
		ORDER BY owner`

	var creds []model.Credential
	if err := r.db.SelectContext(ctx, &creds, query); err != nil {
		r.logger.Error("failed to list credentials", zap.Error(err))
		return nil, model.NewCacheReadError(err)
	}

	return creds, nil
}

// GetByOwner returns one owner's credential, or nil when none exists.
func (r *CredentialRepository) GetByOwner(ctx context.Context, owner string) (*model.Credential, error) {
	query := `SELECT owner, access_token, refresh_token, api_server, expires_at, active, updated_at
		FROM credentials
		WHERE owner = $1`

	var cred model.Credential
	if err := r.db.GetContext(ctx, &cred, query, owner); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("failed to get credential", zap.Error(err), zap.String("owner", owner))
		return nil, model.NewCacheReadError(err)
	}

	return &cred, nil
}

// Upsert stores the credential keyed by owner.
func (r *CredentialRepository) Upsert(ctx context.Context, cred *model.Credential) error {
	query := `INSERT INTO credentials (owner, access_token, refresh_token, api_server, expires_at, active, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (owner)
		DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			api_server = EXCLUDED.api_server,
			expires_at = EXCLUDED.expires_at,
			active = EXCLUDED.active,
			updated_at = EXCLUDED.updated_at`

	cred.UpdatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx, query,
		cred.Owner,
		cred.AccessToken,
		cred.RefreshToken,
		cred.APIServer,
		cred.ExpiresAt,
		cred.Active,
		cred.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("failed to upsert credential", zap.Error(err), zap.String("owner", cred.Owner))
		return model.NewCacheWriteError(err)
	}

	return nil
}

// Deactivate marks an owner's credential inactive without deleting it.
func (r *CredentialRepository) Deactivate(ctx context.Context, owner string) (bool, error) {
	query := `UPDATE credentials SET active = false, updated_at = $2 WHERE owner = $1`

	res, err := r.db.ExecContext(ctx, query, owner, time.Now().UTC())
	if err != nil {
		r.logger.Error("failed to deactivate credential", zap.Error(err), zap.String("owner", owner))
		return false, model.NewCacheWriteError(err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, model.NewCacheWriteError(err)
	}

	return affected > 0, nil
}
