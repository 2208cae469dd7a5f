package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/xavierjflanagan/Guardian-sub003/internal/handler"
	"github.com/xavierjflanagan/Guardian-sub003/internal/middleware"
)

// Setup configures the Gin engine with all routes and middleware.
func Setup(
	encounterH *handler.EncounterHandler,
	healthH *handler.HealthHandler,
	gatherer prometheus.Gatherer,
	corsOrigins []string,
) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(corsOrigins))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())

	// Health checks
	r.GET("/healthz", healthH.Liveness)
	r.GET("/readyz", healthH.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	v1 := r.Group("/api/v1")

	// Encounter manifests, scoped to one patient document
	docs := v1.Group("/patients/:patient_id/shell-files/:shell_file_id")
	docs.POST("/encounters", encounterH.Build)
	docs.GET("/encounters", encounterH.List)

	v1.GET("/encounters/:id", encounterH.GetByID)

	return r
}
