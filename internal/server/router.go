package server

import (
	"net/http"

	"github.com/abduss/mediavault/internal/access"
	"github.com/abduss/mediavault/internal/auth"
	"github.com/abduss/mediavault/internal/bucket"
	"github.com/abduss/mediavault/internal/config"
	"github.com/abduss/mediavault/internal/export"
	"github.com/abduss/mediavault/internal/grant"
	"github.com/abduss/mediavault/internal/logger"
	"github.com/abduss/mediavault/internal/metrics"
	"github.com/abduss/mediavault/internal/resource"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minio/minio-go/v7"
)

// Dependencies groups the services required by the HTTP router.
type Dependencies struct {
	Config          config.Config
	DB              *pgxpool.Pool
	ObjectStore     *minio.Client
	Gate            *access.Gate
	AuthService     *auth.Service
	GrantRepo       *grant.Repository
	BucketManager   *bucket.Manager
	ResourceService *resource.Service
	ExportPipeline  *export.Pipeline
}

// NewRouter builds a Gin engine with foundational middleware and routes.
func NewRouter(deps Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(Recovery())
	router.Use(logger.Middleware())
	router.Use(maxBodySize(deps.Config.Upload.MaxBodyBytes))

	registerHealthRoutes(router, deps)
	metrics.Register(router, deps.Config.Metrics.PrometheusPath)

	api := router.Group("/v1")
	auth.RegisterRoutes(api, deps.AuthService)

	protected := api.Group("/")
	protected.Use(access.Middleware(deps.Gate))

	admin := protected.Group("/admin")
	admin.Use(access.RequireAdmin())
	auth.RegisterAdminRoutes(admin, deps.AuthService)
	grant.RegisterAdminRoutes(admin, deps.GrantRepo)

	bucket.RegisterRoutes(protected, admin, deps.BucketManager, deps.GrantRepo)
	resource.RegisterRoutes(protected, deps.ResourceService)
	export.RegisterRoutes(protected, deps.ExportPipeline)

	return router
}

// maxBodySize caps inbound request bodies at the configured ceiling. The
// upload batcher on the client side exists to stay under this limit.
func maxBodySize(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limit > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}
