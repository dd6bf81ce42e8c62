package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/lshigami/Pathoscore/config"
	"github.com/lshigami/Pathoscore/database"
	_ "github.com/lshigami/Pathoscore/docs" // Swagger docs - auto-generated
	"github.com/lshigami/Pathoscore/internal/controller"
	"github.com/lshigami/Pathoscore/internal/inference"
	"github.com/lshigami/Pathoscore/internal/logger"
	"github.com/lshigami/Pathoscore/internal/model"
	"github.com/lshigami/Pathoscore/internal/repository"
	"github.com/lshigami/Pathoscore/internal/service"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// @title Pancreas Slide Scoring API
// @version 1.0
// @description Upload whole-slide TIFF images, receive AI-drafted severity scores, review and correct them. Uploads upsert by filename so corrections are never overwritten.
// @host localhost:8000
// @BasePath /api/v1
// @schemes http https
func main() {
	logger.Init()

	app := fx.New(
		// Core Application Components
		fx.Provide(
			config.NewConfig,
			database.NewDatabase, // Provides *gorm.DB
			NewGinEngine,         // Provides *gin.Engine
			inference.NewRemoteScorer,
		),

		// Repositories Layer
		fx.Provide(
			repository.NewScoreRepository,
		),

		// Services Layer
		fx.Provide(
			service.NewScoreService,
			service.NewExportService,
		),

		// API Controllers Layer
		fx.Provide(
			controller.NewScoreController,
		),

		fx.Invoke(RegisterRoutesAndStartServer),
		fx.Invoke(AutoMigrateDB),
	)

	if err := app.Start(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to start application")
	}

	<-app.Done()
	log.Info().Msg("Application shutting down gracefully...")
}

func NewGinEngine() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		log.Info().
			Str("client_ip", param.ClientIP).
			Str("method", param.Method).
			Str("path", param.Path).
			Int("status_code", param.StatusCode).
			Dur("latency", param.Latency).
			Str("error_message", param.ErrorMessage).
			Msg("gin_request")
		return ""
	}))
	r.Use(gin.Recovery())

	// The review UI runs on a separate origin during development.
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

// RegisterRoutesAndStartServer configures API routes and manages server lifecycle.
func RegisterRoutesAndStartServer(
	lc fx.Lifecycle,
	router *gin.Engine,
	cfg *config.Config,
	scoreCtrl *controller.ScoreController,
) {
	apiGroup := router.Group("/api/v1")
	{
		apiGroup.POST("/images", scoreCtrl.UploadImage)
		apiGroup.GET("/scores", scoreCtrl.ListScores)
		apiGroup.PUT("/scores/:id", scoreCtrl.UpdateScores)
		apiGroup.GET("/scores/export", scoreCtrl.ExportCSV)
	}
	router.GET("/health", scoreCtrl.Health)

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info().Msgf("Slide scoring API server starting on port %s", cfg.Server.Port)
			log.Info().Msgf("Swagger UI available at http://localhost:%s/swagger/index.html", cfg.Server.Port)
			go func() {
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal().Err(err).Msg("Server ListenAndServe failed")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("Server shutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	})
}

func AutoMigrateDB(db *gorm.DB) error {
	log.Info().Msg("Running database migrations...")
	if err := db.AutoMigrate(&model.ImageScore{}); err != nil {
		log.Error().Err(err).Msg("Database migration failed")
		return err
	}
	log.Info().Msg("Database migration completed successfully.")
	return nil
}
