package http

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"socialdesk/domain/dto"
	"socialdesk/domain/model"
	"socialdesk/domain/repository"
	"socialdesk/infrastructure/logger"
	"socialdesk/infrastructure/secret"
)

type IPlatformAuthHandler interface {
	GetAuthURL(c *gin.Context)
	Callback(c *gin.Context)
	Profile(c *gin.Context)
}

type pendingAuth struct {
	configID int64
	userID   string
	expires  time.Time
}

// platformAuthHandler drives the browser linking flow for platforms that
// support it. Pending states live in memory with a short expiry; a restart
// simply forces the user to start the flow again.
type platformAuthHandler struct {
	configRepo  repository.IPlatformConfig
	credentials repository.ICredentialCache
	adapters    map[model.Platform]repository.ISocialPlatform
	codec       *secret.Codec

	stateMu sync.Mutex
	states  map[string]pendingAuth
}

func NewPlatformAuthHandler(
	configRepo repository.IPlatformConfig,
	credentials repository.ICredentialCache,
	adapters map[model.Platform]repository.ISocialPlatform,
	codec *secret.Codec,
) IPlatformAuthHandler {
	return &platformAuthHandler{
		configRepo:  configRepo,
		credentials: credentials,
		adapters:    adapters,
		codec:       codec,
		states:      map[string]pendingAuth{},
	}
}

func randomState() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// GetAuthURL builds the platform authorization URL for one config. The user
// must approve in the browser; the state ties the callback back to the
// config being linked.
func (h *platformAuthHandler) GetAuthURL(c *gin.Context) {
	id, ok := configID(c)
	if !ok {
		return
	}
	userID := c.GetString("user_id")

	cfg, err := h.configRepo.GetByID(c.Request.Context(), id, userID)
	if err != nil {
		respondConfigError(c, err)
		return
	}
	adapter, ok := h.adapters[cfg.Platform]
	if !ok {
		c.JSON(http.StatusBadRequest, dto.Res{ResponseCode: "400", ResponseMessage: "no adapter for platform"})
		return
	}

	state := randomState()
	authURL, err := adapter.GetAuthURL(cfg, state)
	if err != nil {
		if errors.Is(err, repository.ErrAuthFlowUnsupported) {
			c.JSON(http.StatusBadRequest, dto.Res{
				ResponseCode:    "400",
				ResponseMessage: "platform links through app credentials, no browser flow",
			})
			return
		}
		logger.GetLogger().WithField("error", err).Error("building auth url failed")
		c.JSON(http.StatusInternalServerError, dto.Res{ResponseCode: "500", ResponseMessage: "General error"})
		return
	}

	h.stateMu.Lock()
	h.states[state] = pendingAuth{configID: id, userID: userID, expires: time.Now().Add(10 * time.Minute)}
	h.stateMu.Unlock()

	c.JSON(http.StatusOK, dto.Res{
		ResponseCode:    "00",
		ResponseMessage: "Success",
		Data:            gin.H{"auth_url": authURL, "state": state},
	})
}

// Callback exchanges the authorization code and stores the returned token
// material encrypted on the config row.
func (h *platformAuthHandler) Callback(c *gin.Context) {
	code := c.Query("code")
	state := c.Query("state")
	if code == "" {
		c.JSON(http.StatusBadRequest, dto.Res{ResponseCode: "400", ResponseMessage: "missing code"})
		return
	}

	h.stateMu.Lock()
	pending, ok := h.states[state]
	if ok && time.Now().After(pending.expires) {
		ok = false
	}
	if ok {
		delete(h.states, state)
	}
	h.stateMu.Unlock()
	if !ok {
		c.JSON(http.StatusBadRequest, dto.Res{ResponseCode: "400", ResponseMessage: "invalid state"})
		return
	}

	lg := logger.GetLogger().WithField("config_id", pending.configID)
	cfg, err := h.configRepo.GetByID(c.Request.Context(), pending.configID, pending.userID)
	if err != nil {
		respondConfigError(c, err)
		return
	}
	adapter := h.adapters[cfg.Platform]
	if adapter == nil {
		c.JSON(http.StatusBadRequest, dto.Res{ResponseCode: "400", ResponseMessage: "no adapter for platform"})
		return
	}

	appSecret, err := h.codec.Decrypt(cfg.AppSecretEnc)
	if err != nil {
		lg.WithField("error", err).Error("decrypting app secret failed")
		c.JSON(http.StatusInternalServerError, dto.Res{ResponseCode: "500", ResponseMessage: "General error"})
		return
	}
	token, err := adapter.ExchangeToken(c.Request.Context(), code, cfg, appSecret)
	if err != nil {
		lg.WithField("error", err).Error("token exchange failed")
		c.JSON(http.StatusBadGateway, dto.Res{ResponseCode: "502", ResponseMessage: "Token exchange failed"})
		return
	}

	storedTokenEnc, err := h.codec.Encrypt(token.AccessToken)
	if err != nil {
		lg.WithField("error", err).Error("encrypting access token failed")
		c.JSON(http.StatusInternalServerError, dto.Res{ResponseCode: "500", ResponseMessage: "General error"})
		return
	}
	var refreshTokenEnc *string
	if token.RefreshToken != "" {
		enc, err := h.codec.Encrypt(token.RefreshToken)
		if err != nil {
			lg.WithField("error", err).Error("encrypting refresh token failed")
			c.JSON(http.StatusInternalServerError, dto.Res{ResponseCode: "500", ResponseMessage: "General error"})
			return
		}
		refreshTokenEnc = &enc
	}
	if err := h.configRepo.UpdateStoredCredential(c.Request.Context(), pending.configID, pending.userID, storedTokenEnc, refreshTokenEnc); err != nil {
		respondConfigError(c, err)
		return
	}
	// A previously cached token for this config is stale now.
	if err := h.credentials.Invalidate(c.Request.Context(), cfg); err != nil {
		lg.WithField("error", err).Warn("invalidating credential cache after linking failed")
	}

	lg.WithField("platform", cfg.Platform.String()).Info("platform account linked")
	c.JSON(http.StatusOK, dto.Res{
		ResponseCode:    "00",
		ResponseMessage: "Success",
		Data:            gin.H{"config_id": pending.configID, "uid": token.UID},
	})
}

// Profile fetches the remote account profile behind a linked config.
func (h *platformAuthHandler) Profile(c *gin.Context) {
	id, ok := configID(c)
	if !ok {
		return
	}
	userID := c.GetString("user_id")

	cfg, err := h.configRepo.GetByID(c.Request.Context(), id, userID)
	if err != nil {
		respondConfigError(c, err)
		return
	}
	adapter := h.adapters[cfg.Platform]
	if adapter == nil {
		c.JSON(http.StatusBadRequest, dto.Res{ResponseCode: "400", ResponseMessage: "no adapter for platform"})
		return
	}

	token, err := h.credentials.GetOrRefresh(c.Request.Context(), cfg, adapter)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("resolving credential failed")
		c.JSON(http.StatusBadGateway, dto.Res{ResponseCode: "502", ResponseMessage: "Credential unavailable"})
		return
	}
	profile, err := adapter.GetUserInfo(c.Request.Context(), token, "")
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("fetching profile failed")
		c.JSON(http.StatusBadGateway, dto.Res{ResponseCode: "502", ResponseMessage: "Profile unavailable"})
		return
	}
	c.JSON(http.StatusOK, dto.Res{ResponseCode: "00", ResponseMessage: "Success", Data: profile})
}
