package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"socialdesk/domain/dto"
	"socialdesk/domain/model"
	"socialdesk/domain/repository"
	"socialdesk/infrastructure/logger"
	"socialdesk/infrastructure/realtime"
)

type IPublishUsecase interface {
	// Publish fans the content out to every requested config and returns one
	// terminal result per config id, in request order.
	Publish(ctx context.Context, userID string, req dto.PublishRequest) ([]*model.PublishResult, error)
	History(ctx context.Context, userID string, req dto.PublishHistoryRequest) ([]*model.PublishRecord, int64, error)
	Capabilities() []dto.PlatformCapability
}

// PublishOptions tunes the retry loop.
type PublishOptions struct {
	MaxAttempts int
	BackoffBase time.Duration
}

func DefaultPublishOptions() PublishOptions {
	return PublishOptions{MaxAttempts: 3, BackoffBase: 2 * time.Second}
}

type publishUsecase struct {
	configRepo  repository.IPlatformConfig
	contentRepo repository.IContent
	historyRepo repository.IPublishHistory
	credentials repository.ICredentialCache
	adapters    map[model.Platform]repository.ISocialPlatform
	hub         *realtime.Hub
	opts        PublishOptions

	sleep func(ctx context.Context, d time.Duration) error
}

func NewPublishUsecase(
	configRepo repository.IPlatformConfig,
	contentRepo repository.IContent,
	historyRepo repository.IPublishHistory,
	credentials repository.ICredentialCache,
	adapters map[model.Platform]repository.ISocialPlatform,
	hub *realtime.Hub,
	opts PublishOptions,
) IPublishUsecase {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultPublishOptions().MaxAttempts
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = DefaultPublishOptions().BackoffBase
	}
	return &publishUsecase{
		configRepo:  configRepo,
		contentRepo: contentRepo,
		historyRepo: historyRepo,
		credentials: credentials,
		adapters:    adapters,
		hub:         hub,
		opts:        opts,
		sleep:       sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (u *publishUsecase) Publish(ctx context.Context, userID string, req dto.PublishRequest) ([]*model.PublishResult, error) {
	if len(req.ConfigIDs) == 0 {
		return nil, errors.New("config_ids required")
	}
	content, err := u.contentRepo.GetByID(ctx, req.ContentID, userID)
	if err != nil {
		return nil, fmt.Errorf("loading content %s: %w", req.ContentID, err)
	}

	results := make([]*model.PublishResult, len(req.ConfigIDs))
	g, gctx := errgroup.WithContext(ctx)
	for i, configID := range req.ConfigIDs {
		i, configID := i, configID
		g.Go(func() error {
			results[i] = u.publishOne(gctx, userID, configID, content)
			return nil
		})
	}
	_ = g.Wait()

	for _, res := range results {
		u.record(ctx, userID, content.ID, res)
	}
	return results, nil
}

// publishOne drives one config to a terminal result. Every failure path
// returns a result rather than an error; the caller only sees errors for
// request-level problems.
func (u *publishUsecase) publishOne(ctx context.Context, userID string, configID int64, content *model.PublishContent) *model.PublishResult {
	cfg, err := u.configRepo.GetByID(ctx, configID, userID)
	if err != nil {
		return failedResult(configID, "", &model.PublishError{
			Kind: model.ErrKindPermanent, Code: model.CodeConfigNotFound,
			Message: fmt.Sprintf("config %d not found", configID), Err: err,
		}, 0)
	}
	if !cfg.Active {
		return failedResult(configID, cfg.Platform, &model.PublishError{
			Kind: model.ErrKindPermanent, Code: model.CodeConfigNotFound,
			Message: fmt.Sprintf("config %d is disabled", configID),
		}, 0)
	}
	adapter, ok := u.adapters[cfg.Platform]
	if !ok {
		return failedResult(configID, cfg.Platform, &model.PublishError{
			Kind: model.ErrKindPermanent, Code: model.CodePlatformRejected,
			Message: fmt.Sprintf("no adapter registered for platform %s", cfg.Platform),
		}, 0)
	}
	if !cfg.CanPublish {
		return failedResult(configID, cfg.Platform, model.NewCapabilityError(
			fmt.Sprintf("account %q cannot publish on %s", cfg.AccountName, cfg.Platform)), 0)
	}
	if v := adapter.ValidateContent(content); !v.Valid {
		return failedResult(configID, cfg.Platform, model.NewValidationError(
			fmt.Sprintf("content rejected for %s: %v", cfg.Platform, v.Errors)), 0)
	}

	lg := logger.GetLogger().WithFields(map[string]interface{}{
		"config_id":  configID,
		"platform":   cfg.Platform.String(),
		"content_id": content.ID,
	})

	var lastErr *model.PublishError
	for attempt := 1; attempt <= u.opts.MaxAttempts; attempt++ {
		res, err := u.attempt(ctx, cfg, adapter, content)
		if err == nil {
			res.Attempts = attempt
			lg.WithField("attempt", attempt).Info("publish succeeded")
			return res
		}

		pubErr := classifyError(err)
		if pubErr.Kind == model.ErrKindCredential {
			// The cached token may be the stale half of the failure.
			if invErr := u.credentials.Invalidate(ctx, cfg); invErr != nil {
				lg.WithField("error", invErr).Warn("invalidating credential cache failed")
			}
		}
		if !pubErr.Retryable() {
			lg.WithFields(map[string]interface{}{
				"attempt": attempt,
				"code":    pubErr.Code,
				"error":   pubErr.Message,
			}).Warn("publish failed")
			return failedResult(configID, cfg.Platform, pubErr, attempt)
		}

		lastErr = pubErr
		lg.WithFields(map[string]interface{}{
			"attempt": attempt,
			"error":   pubErr.Message,
		}).Warn("publish attempt failed, will retry")
		if attempt < u.opts.MaxAttempts {
			if err := u.sleep(ctx, u.opts.BackoffBase<<(attempt-1)); err != nil {
				return failedResult(configID, cfg.Platform, lastErr, attempt)
			}
		}
	}

	exhausted := &model.PublishError{
		Kind:    model.ErrKindTransient,
		Code:    model.CodeRetryExhausted,
		Message: fmt.Sprintf("gave up after %d attempts: %s", u.opts.MaxAttempts, lastErr.Message),
		Err:     lastErr,
	}
	lg.WithField("attempts", u.opts.MaxAttempts).Warn("publish retries exhausted")
	return failedResult(configID, cfg.Platform, exhausted, u.opts.MaxAttempts)
}

func (u *publishUsecase) attempt(ctx context.Context, cfg *model.PlatformConfig, adapter repository.ISocialPlatform, content *model.PublishContent) (*model.PublishResult, error) {
	token, err := u.credentials.GetOrRefresh(ctx, cfg, adapter)
	if err != nil {
		return nil, err
	}
	return adapter.Publish(ctx, cfg, token, content)
}

func failedResult(configID int64, platform model.Platform, pubErr *model.PublishError, attempts int) *model.PublishResult {
	return &model.PublishResult{
		ConfigID:  configID,
		Platform:  platform,
		Success:   false,
		ErrorCode: pubErr.Code,
		Error:     pubErr.Message,
		Attempts:  attempts,
	}
}

// record persists the terminal result and notifies SSE subscribers. A
// canceled request must not lose history, so inserts get a detached context.
func (u *publishUsecase) record(ctx context.Context, userID, contentID string, res *model.PublishResult) {
	rec := &model.PublishRecord{
		ContentID:    contentID,
		ConfigID:     res.ConfigID,
		UserID:       userID,
		Platform:     res.Platform.String(),
		AttemptCount: res.Attempts,
		CreatedAt:    time.Now().UTC(),
	}
	if res.Success {
		rec.Status = model.PublishStatusSucceeded
		if res.PostID != "" {
			v := res.PostID
			rec.PostID = &v
		}
		if res.PostURL != "" {
			v := res.PostURL
			rec.PostURL = &v
		}
	} else {
		rec.Status = model.PublishStatusFailed
		if res.ErrorCode != "" {
			v := res.ErrorCode
			rec.ErrorCode = &v
		}
		if res.Error != "" {
			v := res.Error
			rec.ErrorMessage = &v
		}
	}

	id, err := u.historyRepo.Insert(context.WithoutCancel(ctx), rec)
	if err != nil {
		logger.GetLogger().WithFields(map[string]interface{}{
			"error":     err,
			"config_id": res.ConfigID,
		}).Error("recording publish outcome failed")
		return
	}
	rec.ID = id
	if u.hub != nil {
		u.hub.BroadcastPublishStatus(rec)
	}
}

func (u *publishUsecase) History(ctx context.Context, userID string, req dto.PublishHistoryRequest) ([]*model.PublishRecord, int64, error) {
	if req.ContentID != "" {
		recs, err := u.historyRepo.ListByContent(ctx, req.ContentID, userID)
		if err != nil {
			return nil, 0, err
		}
		return recs, int64(len(recs)), nil
	}
	limit := req.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset := req.Offset
	if offset < 0 {
		offset = 0
	}
	return u.historyRepo.ListByUser(ctx, userID, limit, offset)
}

func (u *publishUsecase) Capabilities() []dto.PlatformCapability {
	caps := make([]dto.PlatformCapability, 0, len(u.adapters))
	for _, p := range []model.Platform{model.PlatformWeibo, model.PlatformWechat} {
		if _, ok := u.adapters[p]; !ok {
			continue
		}
		switch p {
		case model.PlatformWeibo:
			caps = append(caps, dto.PlatformCapability{
				Platform:        p.String(),
				SupportsRefresh: true,
				MaxTextLength:   2000,
				MaxImages:       9,
			})
		case model.PlatformWechat:
			caps = append(caps, dto.PlatformCapability{
				Platform:         p.String(),
				MultiStepPublish: true,
			})
		}
	}
	return caps
}
