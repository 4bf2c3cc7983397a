// internal/api/api.go
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/andresuchdata/pantrywise/backend-go/internal/api/handlers"
	"github.com/andresuchdata/pantrywise/backend-go/internal/api/middleware"
	"github.com/andresuchdata/pantrywise/backend-go/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Services struct {
	InsightsService *service.InsightsService
	IngestService   *service.IngestService
	ExportService   *service.ExportService
	// UploadDir keeps copies of uploaded files when set.
	UploadDir string
}

func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	// Add middleware
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiGroup := router.Group("/api/v1")

	if services != nil {
		if services.InsightsService != nil {
			insightsHandler := handlers.NewInsightsHandler(services.InsightsService, services.ExportService)
			apiGroup.GET("/tenants", insightsHandler.ListTenants)

			insightsGroup := apiGroup.Group("/insights")
			{
				insightsGroup.POST("/analyze", insightsHandler.Analyze)
				insightsGroup.GET("/:tenant/report", insightsHandler.GetReport)
				insightsGroup.GET("/:tenant/report.csv", insightsHandler.GetReportCSV)
				for name, pick := range handlers.Sections {
					insightsGroup.GET("/:tenant/"+name, insightsHandler.GetSection(pick))
				}
				insightsGroup.POST("/:tenant/export", insightsHandler.Export)
				insightsGroup.DELETE("/:tenant/cache", insightsHandler.InvalidateCache)
			}
		}

		if services.IngestService != nil {
			ingestHandler := handlers.NewIngestHandler(services.IngestService, services.UploadDir)
			apiGroup.POST("/insights/:tenant/upload", ingestHandler.Upload)
		}
	}

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		parts := strings.Split(origin, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
