package api

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/Doni354/HORA-APIs-sub000/internal/api/handlers"
	"github.com/Doni354/HORA-APIs-sub000/internal/api/middleware"
	"github.com/Doni354/HORA-APIs-sub000/internal/config"
	"github.com/Doni354/HORA-APIs-sub000/internal/mail"
	"github.com/Doni354/HORA-APIs-sub000/internal/services"
)

// SetupRouter initializes and returns the Gin router with all routes configured
func SetupRouter(db *gorm.DB, cfg *config.Config) (*gin.Engine, *middleware.AuthManager, error) {
	router := gin.Default()

	origins := splitOrigins(cfg.CORSOrigins)
	corsConfig := cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-API-Key"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	// Credentials cannot be combined with a wildcard origin
	if len(origins) == 1 && origins[0] == "*" {
		corsConfig.AllowCredentials = false
	}
	router.Use(cors.New(corsConfig))

	authManager, err := middleware.NewAuthManager(cfg.DataDir, cfg.JWTSecret, middleware.DefaultTokenExpiry)
	if err != nil {
		return nil, nil, err
	}

	providers := mail.NewProviderDirectory()

	userService := services.NewUserService(db)
	logService := services.NewLogServiceWithLevel(db, cfg.LogLevel)
	accountService := services.NewAccountService(db, cfg.GetEncryptionKey(), providers)

	authHandler := handlers.NewAuthHandler(userService, authManager.JWTManager, logService)
	userHandler := handlers.NewUserHandler(userService, logService)
	accountHandler := handlers.NewAccountHandler(accountService, logService)
	inboxHandler := handlers.NewInboxHandler(accountService, logService, cfg.PublicBaseURL)

	// Health check endpoint (no auth required)
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Attachment links are embedded in webviews and external mail clients
	// that cannot attach headers, so this route is deliberately outside the
	// API-key and JWT middleware. The full URL is the only gate.
	router.GET("/api/inbox/attachment", inboxHandler.Attachment)

	// API routes
	api := router.Group("/api")
	{
		api.Use(middleware.APIKeyMiddleware(authManager.APIKeyManager))

		// Auth routes (API key required, but no JWT required)
		auth := api.Group("/auth")
		{
			auth.POST("/login", authHandler.Login)
		}

		// Protected routes (API key + JWT required)
		protected := api.Group("")
		protected.Use(middleware.JWTMiddleware(authManager.JWTManager))
		{
			protected.POST("/auth/refresh", authHandler.RefreshToken)
			protected.GET("/auth/me", authHandler.GetCurrentUser)

			userGroup := protected.Group("/user")
			{
				userGroup.GET("/profile", userHandler.GetProfile)
				userGroup.PUT("/password", userHandler.ChangePassword)
				userGroup.GET("/activity", userHandler.ActivityLog)
			}

			inbox := protected.Group("/inbox")
			{
				inbox.POST("/add-account", accountHandler.AddAccount)
				inbox.GET("/accounts", accountHandler.ListAccounts)
				inbox.DELETE("/accounts", accountHandler.RemoveAccount)

				inbox.GET("/folders", inboxHandler.ListFolders)
				inbox.GET("/messages", inboxHandler.ListMessages)
				inbox.GET("/message-detail", inboxHandler.MessageDetail)
				inbox.GET("/message-body", inboxHandler.MessageBody)

				inbox.POST("/send", inboxHandler.Send)
				inbox.POST("/forward", inboxHandler.Forward)
				inbox.POST("/star", inboxHandler.Star)
				inbox.POST("/mark-read", inboxHandler.MarkRead)
			}
		}
	}

	return router, authManager, nil
}

// splitOrigins parses the comma separated CORS origin list
func splitOrigins(origins string) []string {
	if origins == "" || origins == "*" {
		return []string{"*"}
	}
	parts := strings.Split(origins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
