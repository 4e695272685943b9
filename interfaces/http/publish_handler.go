package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"socialdesk/domain/dto"
	"socialdesk/infrastructure/logger"
	"socialdesk/usecase"
)

type IPublishHandler interface {
	Publish(c *gin.Context)
	History(c *gin.Context)
	Capabilities(c *gin.Context)
}

type PublishHandler struct {
	publishUsecase usecase.IPublishUsecase
}

func NewPublishHandler(publishUsecase usecase.IPublishUsecase) IPublishHandler {
	return &PublishHandler{publishUsecase: publishUsecase}
}

// Publish fans one content item out to the requested platform configs and
// returns the per-config terminal results. The HTTP status is 200 even when
// individual configs fail; callers read the per-result error codes.
func (h *PublishHandler) Publish(c *gin.Context) {
	var req dto.PublishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.GetLogger().WithField("error", err).Error(ErrorUnmarshal)
		c.JSON(http.StatusBadRequest, dto.Res{ResponseCode: "400", ResponseMessage: err.Error()})
		return
	}
	userID := c.GetString("user_id")

	results, err := h.publishUsecase.Publish(c.Request.Context(), userID, req)
	if err != nil {
		logger.GetLogger().WithFields(map[string]interface{}{
			"error":      err,
			"content_id": req.ContentID,
		}).Error("publish request failed")
		c.JSON(http.StatusNotFound, dto.Res{ResponseCode: "404", ResponseMessage: err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.Res{ResponseCode: "00", ResponseMessage: "Success", Data: results})
}

func (h *PublishHandler) History(c *gin.Context) {
	var req dto.PublishHistoryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.Res{ResponseCode: "400", ResponseMessage: err.Error()})
		return
	}
	userID := c.GetString("user_id")

	recs, total, err := h.publishUsecase.History(c.Request.Context(), userID, req)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("listing publish history failed")
		c.JSON(http.StatusInternalServerError, dto.Res{ResponseCode: "500", ResponseMessage: "General error"})
		return
	}
	c.JSON(http.StatusOK, dto.Res{
		ResponseCode:    "00",
		ResponseMessage: "Success",
		Data:            gin.H{"records": recs, "total": total},
	})
}

func (h *PublishHandler) Capabilities(c *gin.Context) {
	c.JSON(http.StatusOK, dto.Res{
		ResponseCode:    "00",
		ResponseMessage: "Success",
		Data:            h.publishUsecase.Capabilities(),
	})
}
