package main

import (
	"net/http"
	"os"

	"hivegames/backend/internal/auth"
	"hivegames/backend/internal/classifier"
	"hivegames/backend/internal/config"
	"hivegames/backend/internal/database"
	"hivegames/backend/internal/handler"
	"hivegames/backend/internal/ingest"
	"hivegames/backend/internal/jobs"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	// Swagger imports
	_ "hivegames/backend/docs" // This is important for swag to find the generated docs

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func init() {
	config.LoadConfig()
}

// @title           HiveGames API
// @version         1.0
// @description     This is the API for the HiveGames torrent catalog service.
// @host            localhost:8080
// @BasePath        /api/v1
// @securityDefinitions.apiKey BearerAuth
// @in header
// @name Authorization
func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})

	// Connect to the database
	database.Connect(config.AppConfig.DatabaseURL)

	// The classifier carries the upstream rate limiter, so it is built once
	// and shared across all ingestion requests.
	cls := classifier.New(config.AppConfig.GeminiAPIKey)
	handler.SetupIngestion(ingest.NewService(database.DB, cls), jobs.NewManager())

	router := gin.Default()

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check endpoint
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})

	// API v1 routes
	apiV1 := router.Group("/api/v1")
	{
		// Auth routes
		authRoutes := apiV1.Group("/auth")
		{
			authRoutes.POST("/register", handler.RegisterUser)
			authRoutes.POST("/login", handler.LoginUser)
		}

		// User routes (protected)
		userRoutes := apiV1.Group("/users")
		userRoutes.Use(auth.AuthMiddleware())
		{
			userRoutes.GET("/me", handler.GetMe)
		}

		// Catalog browse routes (public, likes shown for logged-in viewers)
		torrentRoutes := apiV1.Group("/torrents")
		torrentRoutes.Use(auth.OptionalAuthMiddleware())
		{
			torrentRoutes.GET("", handler.GetTorrents)
			torrentRoutes.GET("/search", handler.SearchTorrents) // Must be before /:id
			torrentRoutes.GET("/:id", handler.GetTorrentByID)
			torrentRoutes.GET("/:id/comments", handler.GetTorrentComments)
		}

		// Title-group routes
		groupRoutes := apiV1.Group("/groups")
		groupRoutes.Use(auth.OptionalAuthMiddleware())
		{
			groupRoutes.GET("/:title", handler.GetTorrentGroup)
			groupRoutes.GET("/:title/comments", handler.GetGroupComments)
		}

		// Facet routes
		apiV1.GET("/genres", handler.GetGenres)
		apiV1.GET("/sources", handler.GetSources)

		// Interaction routes (protected)
		interactionRoutes := apiV1.Group("/")
		interactionRoutes.Use(auth.AuthMiddleware())
		{
			interactionRoutes.POST("/torrents/:id/like", handler.ToggleLike)
			interactionRoutes.POST("/torrents/:id/comments", handler.PostTorrentComment)
			interactionRoutes.POST("/groups/:title/comments", handler.PostGroupComment)
		}

		// Admin ingestion routes (static admin token or admin user)
		adminRoutes := apiV1.Group("/admin")
		adminRoutes.Use(auth.AdminMiddleware())
		{
			adminRoutes.POST("/upload", handler.UploadJSON)
			adminRoutes.POST("/upload-file", handler.UploadFile)
			adminRoutes.POST("/upload-url", handler.UploadURL)
			adminRoutes.GET("/fetch-json", handler.FetchJSON)
			adminRoutes.POST("/auto-fetch", handler.AutoFetch)
			adminRoutes.GET("/jobs/:id", handler.GetJob)
		}
	}

	addr := ":" + config.AppConfig.Port
	log.Info().Str("addr", addr).Msg("server starting")
	log.Info().Msgf("Swagger UI is available at http://localhost%s/swagger/index.html", addr)
	if err := router.Run(addr); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}
