package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"formscan/internal/handler"
	"formscan/internal/middleware"
)

// Setup configures the Gin engine with all routes and middleware.
func Setup(
	scanH *handler.ScanHandler,
	healthH *handler.HealthHandler,
	allowedOrigins []string,
) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS(allowedOrigins))

	// Health checks and metrics
	r.GET("/healthz", healthH.Liveness)
	r.GET("/readyz", healthH.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")

	scans := v1.Group("/scans")
	scans.POST("", scanH.Scan)
	scans.POST("/classify", scanH.Classify)
	scans.POST("/delete", scanH.Delete)
	scans.GET("", scanH.List)
	scans.GET("/export", scanH.Export)
	scans.GET("/:id", scanH.Get)
	scans.GET("/:id/image", scanH.Image)

	return r
}
