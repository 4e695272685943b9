package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"socialdesk/domain/dto"
	"socialdesk/infrastructure/logger"
	"socialdesk/infrastructure/persistence"
	"socialdesk/usecase"
)

type IPlatformConfigHandler interface {
	Create(c *gin.Context)
	List(c *gin.Context)
	RotateSecret(c *gin.Context)
	Disable(c *gin.Context)
}

type PlatformConfigHandler struct {
	configUsecase usecase.IPlatformConfigUsecase
}

func NewPlatformConfigHandler(configUsecase usecase.IPlatformConfigUsecase) IPlatformConfigHandler {
	return &PlatformConfigHandler{configUsecase: configUsecase}
}

func (h *PlatformConfigHandler) Create(c *gin.Context) {
	var req dto.CreatePlatformConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.Res{ResponseCode: "400", ResponseMessage: err.Error()})
		return
	}
	userID := c.GetString("user_id")

	cfg, err := h.configUsecase.Create(c.Request.Context(), userID, req)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("creating platform config failed")
		c.JSON(http.StatusBadRequest, dto.Res{ResponseCode: "400", ResponseMessage: err.Error()})
		return
	}
	c.JSON(http.StatusCreated, dto.Res{ResponseCode: "00", ResponseMessage: "Success", Data: cfg})
}

func (h *PlatformConfigHandler) List(c *gin.Context) {
	userID := c.GetString("user_id")

	configs, err := h.configUsecase.List(c.Request.Context(), userID)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("listing platform configs failed")
		c.JSON(http.StatusInternalServerError, dto.Res{ResponseCode: "500", ResponseMessage: "General error"})
		return
	}
	c.JSON(http.StatusOK, dto.Res{ResponseCode: "00", ResponseMessage: "Success", Data: configs})
}

func (h *PlatformConfigHandler) RotateSecret(c *gin.Context) {
	id, ok := configID(c)
	if !ok {
		return
	}
	var req dto.RotateSecretRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.Res{ResponseCode: "400", ResponseMessage: err.Error()})
		return
	}
	userID := c.GetString("user_id")

	if err := h.configUsecase.RotateSecret(c.Request.Context(), userID, id, req); err != nil {
		respondConfigError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.Res{ResponseCode: "00", ResponseMessage: "Success"})
}

func (h *PlatformConfigHandler) Disable(c *gin.Context) {
	id, ok := configID(c)
	if !ok {
		return
	}
	userID := c.GetString("user_id")

	if err := h.configUsecase.Disable(c.Request.Context(), userID, id); err != nil {
		respondConfigError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.Res{ResponseCode: "00", ResponseMessage: "Success"})
}

func configID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.Res{ResponseCode: "400", ResponseMessage: "invalid config id"})
		return 0, false
	}
	return id, true
}

func respondConfigError(c *gin.Context, err error) {
	if errors.Is(err, persistence.ErrConfigNotFound) {
		c.JSON(http.StatusNotFound, dto.Res{ResponseCode: "404", ResponseMessage: "Config not found"})
		return
	}
	logger.GetLogger().WithField("error", err).Error("platform config operation failed")
	c.JSON(http.StatusInternalServerError, dto.Res{ResponseCode: "500", ResponseMessage: "General error"})
}
