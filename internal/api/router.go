package api

import (
	"github.com/gin-gonic/gin"

	"github.com/ZAX3000/mailtrace/internal/api/handler"
	"github.com/ZAX3000/mailtrace/internal/api/middleware"
	"github.com/ZAX3000/mailtrace/internal/service"
)

// SetupRouter configures the Gin router with all routes
func SetupRouter(
	matchService *service.MatchService,
	geoService *service.GeocodeService,
	mode string,
	cors middleware.CORSConfig,
) *gin.Engine {
	// Set Gin mode
	switch mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	// Add middleware
	r.Use(gin.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS(cors))

	// Create handlers
	healthHandler := handler.NewHealthHandler()
	matchHandler := handler.NewMatchHandler(matchService)
	runsHandler := handler.NewRunsHandler(matchService, geoService)

	// Health check
	r.GET("/health", healthHandler.Health)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		// Matching jobs
		v1.POST("/match/start", matchHandler.Start)
		v1.GET("/match/progress", matchHandler.Progress)
		v1.GET("/match/result", matchHandler.Result)
		v1.POST("/match/cancel", matchHandler.Cancel)

		// Run history
		v1.GET("/runs", runsHandler.List)
		v1.GET("/runs/:id/result", runsHandler.Result)
		v1.GET("/runs/:id/geo", runsHandler.GeoPoints)

		// Cross-run aggregate
		v1.GET("/aggregate", runsHandler.Aggregate)
	}

	return r
}
