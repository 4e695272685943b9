package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"socialdesk/domain/model"
	"socialdesk/domain/repository"
	"socialdesk/infrastructure/cache"
	"socialdesk/infrastructure/clients/wechat"
	"socialdesk/infrastructure/clients/weibo"
	"socialdesk/infrastructure/configuration"
	"socialdesk/infrastructure/logger"
	"socialdesk/infrastructure/persistence"
	"socialdesk/infrastructure/realtime"
	"socialdesk/infrastructure/secret"
	httpHandler "socialdesk/interfaces/http"
	"socialdesk/server"
	"socialdesk/usecase"
)

var httpServer *http.Server

func recoverPanic() {
	if err := recover(); err != nil {
		logger.GetLogger().WithField("error", err).Error("Application panic recovered")
	}
}

func main() {
	defer recoverPanic()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupt)

	g, ctx := errgroup.WithContext(ctx)

	// Load env from files (non-destructive; OS env still has precedence)
	configuration.LoadEnvFromFile("config.env", ".env")

	// A bad master key must stop the process before any secret is written.
	codec, err := secret.NewCodec(configuration.C.Security.MasterKey)
	if err != nil {
		logger.GetLogger().WithField("error", err).Fatal("Master key rejected")
	}

	psqlDb, err := persistence.NewPostgreSQLDB()
	if err != nil {
		logger.GetLogger().WithField("error", err).Fatal("Cannot connect to PostgreSQL")
	}
	if err := persistence.EnsurePublishSchema(psqlDb); err != nil {
		logger.GetLogger().WithField("error", err).Error("Ensuring publish schema failed")
	}

	redisClient, err := cache.NewCache(
		ctx,
		fmt.Sprintf("%s:%s", configuration.C.RedisClient.Host, configuration.C.RedisClient.Port),
		configuration.C.RedisClient.Username,
		configuration.C.RedisClient.Password,
	)
	if err != nil {
		logger.GetLogger().WithField("error", err).Fatal("Cannot connect to Redis")
	}
	logger.GetLogger().Info("Redis client initialized successfully.")

	distLock := cache.NewRedisLock(redisClient)
	credentialCache := cache.NewCredentialCache(redisClient, distLock, codec, cache.CredentialCacheOptions{
		RefreshThreshold: configuration.C.Credential.RefreshThreshold(),
		TTLMargin:        configuration.C.Credential.TTLMargin(),
		LockTTL:          configuration.C.Credential.LockTTL(),
		LockRetryCount:   configuration.C.Credential.LockRetryCount,
		LockRetryDelay:   configuration.C.Credential.LockRetryDelay(),
		ContendWait:      configuration.C.Credential.ContendWait(),
	})

	httpTimeout := configuration.C.Publish.HTTPTimeout()
	adapters := map[model.Platform]repository.ISocialPlatform{
		model.PlatformWeibo: weibo.NewWeiboClient(weibo.Options{
			RedirectURI: configuration.C.Platforms.Weibo.RedirectURI,
			Timeout:     httpTimeout,
		}),
		model.PlatformWechat: wechat.NewWechatClient(wechat.Options{
			Timeout: httpTimeout,
		}),
	}

	userRepository := persistence.NewUserRepository(psqlDb)
	configRepository := persistence.NewPlatformConfigRepository(psqlDb)
	contentRepository := persistence.NewContentRepository(psqlDb)
	historyRepository := persistence.NewPublishHistoryRepository(psqlDb)

	publishHub := realtime.NewPublishHub()

	userUsecase := usecase.NewUserUsecase(userRepository)
	configUsecase := usecase.NewPlatformConfigUsecase(configRepository, credentialCache, codec)
	publishUsecase := usecase.NewPublishUsecase(
		configRepository, contentRepository, historyRepository, credentialCache,
		adapters, publishHub,
		usecase.PublishOptions{
			MaxAttempts: configuration.C.Publish.MaxAttempts,
			BackoffBase: configuration.C.Publish.BackoffBase(),
		},
	)

	userHandler := httpHandler.NewUserHandler(userUsecase)
	publishHandler := httpHandler.NewPublishHandler(publishUsecase)
	configHandler := httpHandler.NewPlatformConfigHandler(configUsecase)
	authHandler := httpHandler.NewPlatformAuthHandler(configRepository, credentialCache, adapters, codec)

	router := server.InitiateRouter(userHandler, publishHandler, configHandler, authHandler, publishHub, userRepository)

	port := configuration.C.App.Port
	logger.GetLogger().WithField("port", port).Info("Starting application")
	g.Go(func() error {
		httpServer = &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: router,
		}
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	select {
	case <-interrupt:
		logger.GetLogger().Info("Application shutdown requested")
	case <-ctx.Done():
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if httpServer != nil {
		_ = httpServer.Shutdown(shutdownCtx)
	}
	_ = redisClient.Close()
	_ = psqlDb.Close()

	if err := g.Wait(); err != nil {
		logger.GetLogger().WithField("error", err).Error("Server returned an error")
		os.Exit(2)
	}
}
