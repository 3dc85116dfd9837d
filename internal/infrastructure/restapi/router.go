package restapi

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// RouterOptions configures the optional endpoints mounted next to the API.
type RouterOptions struct {
	Logger *zap.Logger

	// MetricsHandler is served on MetricsPath when set.
	MetricsPath    string
	MetricsHandler http.Handler

	// SwaggerSpecFile is served on /docs/swagger.yaml and rendered under /swagger when set.
	SwaggerSpecFile string
}

// SetupRouter builds the gin engine with its middleware and routes.
func SetupRouter(networkHandler *NetworkHandler, opts RouterOptions) *gin.Engine {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	router.Use(cors.New(corsConfig))
	router.Use(ZapLoggerMiddleware(logger))
	router.Use(gin.Recovery())

	v1 := router.Group("/api/v1")
	{
		v1.GET("/network", networkHandler.GetStateHandler)
		v1.POST("/network/provider-type", networkHandler.SetProviderTypeHandler)
		v1.POST("/network/active", networkHandler.SetActiveNetworkHandler)
		v1.POST("/network/reset", networkHandler.ResetConnectionHandler)
		v1.POST("/network/rollback", networkHandler.RollbackHandler)
		v1.POST("/network/lookup", networkHandler.LookupNetworkHandler)
		v1.GET("/network/eip1559", networkHandler.GetEIP1559Handler)
		v1.GET("/network/block", networkHandler.GetLatestBlockHandler)

		v1.GET("/networks", networkHandler.ListNetworksHandler)

		v1.GET("/network-configurations", networkHandler.ListNetworkConfigurationsHandler)
		v1.POST("/network-configurations", networkHandler.UpsertNetworkConfigurationHandler)
		v1.DELETE("/network-configurations/:id", networkHandler.RemoveNetworkConfigurationHandler)
	}

	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	if opts.MetricsHandler != nil {
		path := opts.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		router.GET(path, gin.WrapH(opts.MetricsHandler))
		logger.Info("Prometheus metrics endpoint enabled", zap.String("path", path))
	}

	if opts.SwaggerSpecFile != "" {
		router.StaticFile("/docs/swagger.yaml", opts.SwaggerSpecFile)
		router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/docs/swagger.yaml")))
		logger.Info("Swagger UI enabled", zap.String("path", "/swagger/index.html"))
	}

	return router
}
