package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/intent/dashboard/internal/dashboard"
	"github.com/intent/dashboard/internal/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// RouterOptions configures the HTTP surface
type RouterOptions struct {
	Health      *HealthHandler
	RateLimiter *middleware.RateLimiter
	CORSOrigins []string
	Release     bool
}

// NewRouter wires every dashboard route
func NewRouter(svc *dashboard.Service, opts RouterOptions, logger *zap.Logger) *gin.Engine {
	if opts.Release {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.CORS(opts.CORSOrigins))

	router.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if opts.Health != nil {
		router.GET("/health", opts.Health.Health)
		router.GET("/health/deep", opts.Health.DeepHealth)
	}

	events := NewEventsHandler(svc.Notifier(), opts.CORSOrigins, logger.Named("events"))
	router.GET("/events", events.Stream)

	testCases := NewTestCaseHandler(svc, logger)
	solutions := NewSolutionHandler(svc, logger)
	synthesis := NewSynthesisHandler(svc, logger)

	v1 := router.Group("/api/v1")
	if opts.RateLimiter != nil {
		v1.Use(middleware.RateLimitMiddleware(opts.RateLimiter))
	}
	{
		tc := v1.Group("/testcases")
		{
			tc.GET("", testCases.List)
			tc.POST("", testCases.AddPair)
			tc.PUT("/selected", testCases.Select)
			tc.DELETE("/:pair", testCases.RemovePair)
			tc.POST("/:pair/inputs", testCases.AddInput)
			tc.PUT("/:pair/inputs/:tensor", testCases.SetInput)
			tc.DELETE("/:pair/inputs/:tensor", testCases.RemoveInput)
			tc.PATCH("/:pair/inputs/:tensor/cell", testCases.UpdateInputCell)
			tc.PUT("/:pair/output", testCases.SetOutput)
			tc.PATCH("/:pair/output/cell", testCases.UpdateOutputCell)
		}

		sol := v1.Group("/solutions")
		{
			sol.GET("", solutions.List)
			sol.POST("", solutions.Add)
			sol.DELETE("", solutions.Clear)
			sol.PUT("/selected", solutions.Select)
			sol.PUT("/:index", solutions.Edit)
			sol.DELETE("/:index", solutions.Remove)
		}

		prefs := v1.Group("/preferences")
		{
			prefs.GET("", solutions.Preferences)
			prefs.PUT("/:op", solutions.SetPreference)
			prefs.DELETE("/:op", solutions.RemovePreference)
		}

		syn := v1.Group("/synthesis")
		{
			syn.GET("", synthesis.Status)
			syn.POST("", synthesis.Submit)
			syn.POST("/abort", synthesis.Abort)
		}

		val := v1.Group("/validations")
		{
			val.GET("", synthesis.Validations)
			val.GET("/draft", synthesis.Draft)
			val.POST("/draft", synthesis.ValidateDraft)
		}

		prov := v1.Group("/provenance")
		{
			prov.POST("/trace", synthesis.Trace)
			prov.GET("/explain", synthesis.Explain)
		}
	}

	return router
}
