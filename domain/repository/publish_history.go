package repository

import (
	"context"

	"socialdesk/domain/model"
)

// IPublishHistory is the append-mostly store of terminal publish outcomes.
type IPublishHistory interface {
	Insert(ctx context.Context, rec *model.PublishRecord) (int64, error)
	ListByContent(ctx context.Context, contentID, userID string) ([]*model.PublishRecord, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*model.PublishRecord, int64, error)
}
