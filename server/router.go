package server

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"socialdesk/domain/repository"
	"socialdesk/infrastructure/realtime"
	httpHandler "socialdesk/interfaces/http"
	"socialdesk/interfaces/middleware"
)

func InitiateRouter(
	userHandler httpHandler.IUserHandler,
	publishHandler httpHandler.IPublishHandler,
	configHandler httpHandler.IPlatformConfigHandler,
	authHandler httpHandler.IPlatformAuthHandler,
	publishHub *realtime.Hub,
	userRepository repository.IUser,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:4200", "https://localhost:4200"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.POST("/login", userHandler.Login)
	router.POST("/register", userHandler.Register)
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("api")
	api.Use(middleware.Auth(userRepository))

	configs := api.Group("/platform-configs")
	{
		configs.POST("", configHandler.Create)
		configs.GET("", configHandler.List)
		configs.POST("/:id/rotate-secret", configHandler.RotateSecret)
		configs.POST("/:id/disable", configHandler.Disable)
		configs.GET("/:id/auth-url", authHandler.GetAuthURL)
		configs.GET("/:id/profile", authHandler.Profile)
	}
	// The platform redirects the browser here after approval; the state
	// parameter carries the link back to the pending config.
	api.GET("/platform-auth/callback", authHandler.Callback)

	publish := api.Group("/publish")
	{
		publish.POST("", publishHandler.Publish)
		publish.GET("/history", publishHandler.History)
		publish.GET("/platforms", publishHandler.Capabilities)
		publish.GET("/stream", func(c *gin.Context) { publishHub.Serve(c) })
	}

	return router
}
