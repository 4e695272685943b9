package usecase

import (
	"context"
	"fmt"

	"socialdesk/domain/dto"
	"socialdesk/domain/model"
	"socialdesk/domain/repository"
	"socialdesk/infrastructure/logger"
	"socialdesk/infrastructure/secret"
)

type IPlatformConfigUsecase interface {
	Create(ctx context.Context, userID string, req dto.CreatePlatformConfigRequest) (*model.PlatformConfig, error)
	Get(ctx context.Context, userID string, id int64) (*model.PlatformConfig, error)
	List(ctx context.Context, userID string) ([]*model.PlatformConfig, error)
	RotateSecret(ctx context.Context, userID string, id int64, req dto.RotateSecretRequest) error
	Disable(ctx context.Context, userID string, id int64) error
}

type platformConfigUsecase struct {
	configRepo  repository.IPlatformConfig
	credentials repository.ICredentialCache
	codec       *secret.Codec
}

func NewPlatformConfigUsecase(configRepo repository.IPlatformConfig, credentials repository.ICredentialCache, codec *secret.Codec) IPlatformConfigUsecase {
	return &platformConfigUsecase{configRepo: configRepo, credentials: credentials, codec: codec}
}

// Create validates the platform tag, derives the publish capability from the
// subject classification and stores the app secret encrypted. The plaintext
// secret never leaves this call.
func (u *platformConfigUsecase) Create(ctx context.Context, userID string, req dto.CreatePlatformConfigRequest) (*model.PlatformConfig, error) {
	platform, err := model.ParsePlatform(req.Platform)
	if err != nil {
		return nil, err
	}
	subjectType := req.SubjectType
	if subjectType == "" {
		subjectType = model.SubjectTypeEnterprise
	}
	switch subjectType {
	case model.SubjectTypePersonal, model.SubjectTypeEnterprise, model.SubjectTypeMedia:
	default:
		return nil, fmt.Errorf("unsupported subject type: %q", subjectType)
	}

	secretEnc, err := u.codec.Encrypt(req.AppSecret)
	if err != nil {
		return nil, fmt.Errorf("encrypting app secret: %w", err)
	}

	cfg := &model.PlatformConfig{
		UserID:       userID,
		Platform:     platform,
		AppID:        req.AppID,
		AppSecretEnc: secretEnc,
		AccountName:  req.AccountName,
		SubjectType:  subjectType,
		CanPublish:   model.DeriveCanPublish(platform, subjectType),
		Active:       true,
	}
	id, err := u.configRepo.Create(ctx, cfg)
	if err != nil {
		return nil, err
	}
	cfg.ID = id
	logger.GetLogger().WithFields(map[string]interface{}{
		"config_id": id,
		"platform":  platform.String(),
	}).Info("platform config created")
	return cfg, nil
}

func (u *platformConfigUsecase) Get(ctx context.Context, userID string, id int64) (*model.PlatformConfig, error) {
	return u.configRepo.GetByID(ctx, id, userID)
}

func (u *platformConfigUsecase) List(ctx context.Context, userID string) ([]*model.PlatformConfig, error) {
	return u.configRepo.ListByUser(ctx, userID)
}

// RotateSecret re-encrypts the new secret and drops any cached token minted
// with the old one.
func (u *platformConfigUsecase) RotateSecret(ctx context.Context, userID string, id int64, req dto.RotateSecretRequest) error {
	cfg, err := u.configRepo.GetByID(ctx, id, userID)
	if err != nil {
		return err
	}
	secretEnc, err := u.codec.Encrypt(req.AppSecret)
	if err != nil {
		return fmt.Errorf("encrypting app secret: %w", err)
	}
	if err := u.configRepo.RotateSecret(ctx, id, userID, secretEnc); err != nil {
		return err
	}
	if err := u.credentials.Invalidate(ctx, cfg); err != nil {
		logger.GetLogger().WithField("error", err).Warn("invalidating credential cache after rotation failed")
	}
	return nil
}

func (u *platformConfigUsecase) Disable(ctx context.Context, userID string, id int64) error {
	cfg, err := u.configRepo.GetByID(ctx, id, userID)
	if err != nil {
		return err
	}
	if err := u.configRepo.Disable(ctx, id, userID); err != nil {
		return err
	}
	if err := u.credentials.Invalidate(ctx, cfg); err != nil {
		logger.GetLogger().WithField("error", err).Warn("invalidating credential cache after disable failed")
	}
	return nil
}
