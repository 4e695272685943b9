package repository

import (
	"context"

	"socialdesk/domain/model"
)

// IContent reads content drafts. The draft CRUD flow lives in the dashboard
// layer; this core only consumes finished drafts by id.
type IContent interface {
	GetByID(ctx context.Context, id, userID string) (*model.PublishContent, error)
}
