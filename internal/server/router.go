package server

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yungbote/lexbridge-backend/internal/http/handlers"
	"github.com/yungbote/lexbridge-backend/internal/http/middleware"
	"github.com/yungbote/lexbridge-backend/internal/platform/envutil"
	"github.com/yungbote/lexbridge-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log       *logger.Logger
	JWTSecret string

	Health    *handlers.HealthHandler
	Bates     *handlers.BatesHandler
	Exhibits  *handlers.ExhibitHandler
	Documents *handlers.DocumentHandler
	Cases     *handlers.CaseHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	if envutil.GetEnv("GIN_MODE", "debug", cfg.Log) == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())

	origins := strings.Split(envutil.GetEnv("ALLOWED_ORIGINS", "http://localhost:3000", cfg.Log), ",")
	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/healthcheck", cfg.Health.Check)

	api := r.Group("/api")
	api.Use(middleware.Auth(cfg.JWTSecret, cfg.Log))

	bates := api.Group("/bates")
	{
		bates.POST("/configs", cfg.Bates.CreateConfig)
		bates.GET("/configs", cfg.Bates.ListConfigs)
		bates.GET("/configs/:id", cfg.Bates.GetConfig)
		bates.PUT("/configs/:id", cfg.Bates.UpdateConfig)
		bates.DELETE("/configs/:id", cfg.Bates.DeleteConfig)
		bates.GET("/configs/:id/next", cfg.Bates.NextNumber)

		bates.POST("/label", cfg.Bates.ApplyLabel)
		bates.POST("/batch-label", cfg.Bates.BatchApplyLabels)

		bates.GET("/registry", cfg.Bates.SearchRegistry)
		bates.GET("/registry/search", cfg.Bates.SearchRegistry)
		bates.GET("/report", cfg.Bates.Report)
	}

	exhibits := api.Group("/exhibits")
	{
		exhibits.POST("", cfg.Exhibits.Create)
		exhibits.GET("", cfg.Exhibits.List)
		exhibits.GET("/list", cfg.Exhibits.ExhibitList)
		exhibits.GET("/status-counts", cfg.Exhibits.StatusCounts)
		exhibits.POST("/assign-number", cfg.Exhibits.AssignNumber)
		exhibits.POST("/batch-assign-numbers", cfg.Exhibits.BatchAssignNumbers)

		exhibits.POST("/packages", cfg.Exhibits.CreatePackage)
		exhibits.GET("/packages", cfg.Exhibits.ListPackages)
		exhibits.GET("/packages/:id", cfg.Exhibits.GetPackage)

		exhibits.GET("/:id", cfg.Exhibits.Get)
		exhibits.PUT("/:id", cfg.Exhibits.Update)
		exhibits.DELETE("/:id", cfg.Exhibits.Delete)
		exhibits.PUT("/:id/status", cfg.Exhibits.UpdateStatus)
	}

	documents := api.Group("/documents")
	{
		documents.POST("", cfg.Documents.Upload)
		documents.GET("", cfg.Documents.List)
		documents.GET("/:id", cfg.Documents.Get)
		documents.GET("/:id/download", cfg.Documents.Download)
	}

	caseGroup := api.Group("/cases")
	{
		caseGroup.POST("", cfg.Cases.Create)
		caseGroup.GET("", cfg.Cases.List)
		caseGroup.GET("/:id", cfg.Cases.Get)
	}

	return r
}
