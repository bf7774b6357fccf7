package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/analytics-middletier/internal/config"
	"github.com/stemsi/analytics-middletier/internal/handler"
	"github.com/stemsi/analytics-middletier/internal/middleware"
	"github.com/stemsi/analytics-middletier/internal/model"
	"github.com/stemsi/analytics-middletier/internal/response"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Health                *handler.HealthHandler
	Auth                  *handler.AuthHandler
	EducationOrganization *handler.EducationOrganizationHandler
	UserAuthorization     *handler.UserAuthorizationHandler
	Fixture               *handler.FixtureHandler
	Verification          *handler.VerificationHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	tokens middleware.TokenValidator,
	handlers *Handlers,
	cfg *config.Config,
	log zerolog.Logger,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "Location"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Request ID first so the access log and every envelope carry it.
	router.Use(response.RequestIDMiddleware())
	router.Use(response.AccessLog(log))
	router.Use(middleware.Brotli())

	router.NoRoute(func(c *gin.Context) {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	})

	router.GET("/health", handlers.Health.Health)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	authLimiter := middleware.NewRateLimiter(30, time.Minute)
	auth := router.Group("/api/v1/auth")
	auth.Use(authLimiter.Middleware())
	{
		auth.POST("/token", handlers.Auth.Token)
	}

	api := router.Group("/api/v1")
	api.Use(middleware.RequireClientJWT(tokens))

	// ─── 2. View Reads (analytics:read) ────────────────────────────────
	views := api.Group("")
	views.Use(
		middleware.RequirePermission(model.PermissionAnalyticsRead),
		middleware.CacheControl(cfg.CacheTTL),
	)
	{
		views.GET("/education-organizations", handlers.EducationOrganization.List)
		views.GET("/education-organizations/:key", handlers.EducationOrganization.Get)
		views.GET("/user-authorizations", handlers.UserAuthorization.List)
	}

	// ─── 3. Fixture Staging (fixtures:stage) ───────────────────────────
	fixtures := api.Group("/fixtures")
	fixtures.Use(middleware.RequirePermission(model.PermissionFixturesStage))
	{
		fixtures.POST("/stage", handlers.Fixture.Stage)
	}

	// ─── 4. Verifications (verifications:run) ──────────────────────────
	verifications := api.Group("/verifications")
	verifications.Use(middleware.RequirePermission(model.PermissionVerificationsRun))
	{
		verifications.POST("", handlers.Verification.Verify)
		verifications.POST("/async", handlers.Verification.Enqueue)
		verifications.GET("/:id", handlers.Verification.Result)
	}

	return router
}
