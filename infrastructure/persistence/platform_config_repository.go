package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"socialdesk/domain/model"
	"socialdesk/domain/repository"
	"socialdesk/infrastructure/logger"
)

// ErrConfigNotFound is returned when no config row matches the (id, user)
// pair. Ownership misses and true misses are indistinguishable on purpose.
var ErrConfigNotFound = errors.New("platform config not found")

type PlatformConfigRepository struct{ db *sql.DB }

func NewPlatformConfigRepository(db *sql.DB) repository.IPlatformConfig {
	return &PlatformConfigRepository{db}
}

const platformConfigColumns = `id, user_id, platform, app_id, app_secret_enc, stored_token_enc, refresh_token_enc, account_name, subject_type, can_publish, active, created_at, updated_at, disabled_at`

func (r *PlatformConfigRepository) Create(ctx context.Context, cfg *model.PlatformConfig) (int64, error) {
	now := time.Now().UTC()
	var id int64
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO platform_configs (user_id, platform, app_id, app_secret_enc, account_name, subject_type, can_publish, active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE, $8, $8)
		 RETURNING id`,
		cfg.UserID, cfg.Platform.String(), cfg.AppID, cfg.AppSecretEnc, cfg.AccountName, cfg.SubjectType, cfg.CanPublish, now,
	).Scan(&id)
	if err != nil {
		logger.GetLogger().WithFields(map[string]interface{}{
			"error":    err,
			"platform": cfg.Platform,
			"user_id":  cfg.UserID,
		}).Error("inserting platform config failed")
		return 0, err
	}
	return id, nil
}

func (r *PlatformConfigRepository) GetByID(ctx context.Context, id int64, userID string) (*model.PlatformConfig, error) {
	row := r.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT %s FROM platform_configs WHERE id = $1 AND user_id = $2`, platformConfigColumns),
		id, userID)
	cfg, err := scanPlatformConfig(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrConfigNotFound
		}
		logger.GetLogger().WithField("error", err).Error("querying platform config failed")
		return nil, err
	}
	return cfg, nil
}

func (r *PlatformConfigRepository) ListByUser(ctx context.Context, userID string) ([]*model.PlatformConfig, error) {
	rows, err := r.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT %s FROM platform_configs WHERE user_id = $1 ORDER BY created_at DESC`, platformConfigColumns),
		userID)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("listing platform configs failed")
		return nil, err
	}
	defer rows.Close()

	var configs []*model.PlatformConfig
	for rows.Next() {
		cfg, err := scanPlatformConfig(rows)
		if err != nil {
			return nil, err
		}
		configs = append(configs, cfg)
	}
	return configs, rows.Err()
}

func (r *PlatformConfigRepository) RotateSecret(ctx context.Context, id int64, userID string, appSecretEnc string) error {
	return r.updateOwned(ctx, id, userID,
		`UPDATE platform_configs SET app_secret_enc = $3, updated_at = $4 WHERE id = $1 AND user_id = $2`,
		appSecretEnc, time.Now().UTC())
}

func (r *PlatformConfigRepository) UpdateStoredCredential(ctx context.Context, id int64, userID string, storedTokenEnc string, refreshTokenEnc *string) error {
	return r.updateOwned(ctx, id, userID,
		`UPDATE platform_configs SET stored_token_enc = $3, refresh_token_enc = $4, updated_at = $5 WHERE id = $1 AND user_id = $2`,
		storedTokenEnc, refreshTokenEnc, time.Now().UTC())
}

func (r *PlatformConfigRepository) Disable(ctx context.Context, id int64, userID string) error {
	now := time.Now().UTC()
	return r.updateOwned(ctx, id, userID,
		`UPDATE platform_configs SET active = FALSE, disabled_at = $3, updated_at = $3 WHERE id = $1 AND user_id = $2`,
		now)
}

func (r *PlatformConfigRepository) updateOwned(ctx context.Context, id int64, userID, query string, args ...interface{}) error {
	res, err := r.db.ExecContext(ctx, query, append([]interface{}{id, userID}, args...)...)
	if err != nil {
		logger.GetLogger().WithFields(map[string]interface{}{
			"error":     err,
			"config_id": id,
		}).Error("updating platform config failed")
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrConfigNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPlatformConfig(row rowScanner) (*model.PlatformConfig, error) {
	var (
		cfg          model.PlatformConfig
		platform     string
		storedToken  sql.NullString
		refreshToken sql.NullString
		disabledAt   sql.NullTime
	)
	if err := row.Scan(&cfg.ID, &cfg.UserID, &platform, &cfg.AppID, &cfg.AppSecretEnc,
		&storedToken, &refreshToken, &cfg.AccountName, &cfg.SubjectType,
		&cfg.CanPublish, &cfg.Active, &cfg.CreatedAt, &cfg.UpdatedAt, &disabledAt); err != nil {
		return nil, err
	}
	p, err := model.ParsePlatform(platform)
	if err != nil {
		return nil, err
	}
	cfg.Platform = p
	if storedToken.Valid {
		v := storedToken.String
		cfg.StoredTokenEnc = &v
	}
	if refreshToken.Valid {
		v := refreshToken.String
		cfg.RefreshTokenEnc = &v
	}
	if disabledAt.Valid {
		v := disabledAt.Time
		cfg.DisabledAt = &v
	}
	return &cfg, nil
}
