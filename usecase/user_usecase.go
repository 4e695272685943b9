package usecase

import (
	"context"
	"crypto/md5"
	"fmt"

	"socialdesk/domain/dto"
	"socialdesk/domain/model"
	"socialdesk/domain/repository"
	"socialdesk/infrastructure/logger"
	"socialdesk/infrastructure/utils"
)

type IUserUsecase interface {
	Login(ctx context.Context, req model.ReqLogin) dto.Res
	Register(ctx context.Context, req model.ReqRegister) dto.Res
}

type userUsecase struct {
	userRepo repository.IUser
}

func NewUserUsecase(userRepo repository.IUser) IUserUsecase {
	return &userUsecase{userRepo: userRepo}
}

func (u *userUsecase) Login(ctx context.Context, req model.ReqLogin) dto.Res {
	res := dto.Res{
		ResponseCode:    "00",
		ResponseMessage: "Success",
	}

	user, err := u.userRepo.GetByUserName(ctx, req.UserName)
	if err != nil {
		logger.GetLogger().WithField("user_name", req.UserName).Error("user not found")
		res.ResponseCode = "01"
		res.ResponseMessage = "Invalid username or password"
		return res
	}
	if user.Password != fmt.Sprintf("%x", md5.Sum([]byte(req.Password))) {
		res.ResponseCode = "01"
		res.ResponseMessage = "Invalid username or password"
		return res
	}

	token, err := utils.GenerateToken(user)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("generating token failed")
		res.ResponseCode = "99"
		res.ResponseMessage = "General error"
		return res
	}
	res.Data = map[string]string{"token": token}
	return res
}

func (u *userUsecase) Register(ctx context.Context, req model.ReqRegister) dto.Res {
	res := dto.Res{
		ResponseCode:    "00",
		ResponseMessage: "Success",
	}

	if _, err := u.userRepo.GetByUserName(ctx, req.UserName); err == nil {
		res.ResponseCode = "02"
		res.ResponseMessage = "Username already taken"
		return res
	}

	user := model.User{
		Name:     req.Name,
		UserName: req.UserName,
		Password: req.Password,
	}
	if err := u.userRepo.CreateUser(ctx, user); err != nil {
		logger.GetLogger().WithField("error", err).Error("creating user failed")
		res.ResponseCode = "99"
		res.ResponseMessage = "General error"
		return res
	}
	return res
}
