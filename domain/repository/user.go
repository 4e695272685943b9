package repository

import (
	"context"

	"socialdesk/domain/model"
)

// IUser defines the user persistence operations used by auth.
type IUser interface {
	GetById(ctx context.Context, id int) (model.User, error)
	GetByUserName(ctx context.Context, userName string) (model.User, error)
	CreateUser(ctx context.Context, user model.User) error
}
