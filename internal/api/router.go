package api

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	iauth "github.com/aldidev/snipurl/internal/auth"
	"github.com/aldidev/snipurl/internal/handlers"
	"github.com/aldidev/snipurl/internal/middleware"
	"github.com/aldidev/snipurl/internal/services"
)

// Deps bundles everything the router needs wired in.
type Deps struct {
	DB           *gorm.DB
	Tokens       *iauth.TokenService
	Auth         *services.AuthService
	Users        *services.UserService
	Verification *services.VerificationService
	URLs         *services.URLService
	RateStore    middleware.RateStore
}

// Options tunes router-level behaviour.
type Options struct {
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// NewRouter builds the Gin engine, wires middleware and registers all routes.
func NewRouter(deps Deps, opts Options) (*gin.Engine, error) {
	if deps.DB == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if deps.Tokens == nil {
		return nil, fmt.Errorf("token service must be provided")
	}
	if deps.Auth == nil || deps.Users == nil || deps.Verification == nil || deps.URLs == nil {
		return nil, fmt.Errorf("all services must be provided")
	}

	if opts.RateLimitRequests == 0 {
		opts.RateLimitRequests = 100
	}
	if opts.RateLimitWindow == 0 {
		opts.RateLimitWindow = time.Minute
	}

	r := gin.New()

	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS())
	r.Use(middleware.RateLimit(deps.RateStore, opts.RateLimitRequests, opts.RateLimitWindow))

	healthHandler := handlers.NewHealthHandler(deps.DB)
	authHandler := handlers.NewAuthHandler(deps.Auth)
	userHandler := handlers.NewUserHandler(deps.Users)
	mailHandler := handlers.NewMailHandler(deps.Verification)
	urlHandler := handlers.NewURLHandler(deps.URLs)

	r.GET("/health", healthHandler.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	requireAuth := middleware.Auth(deps.Tokens)

	auth := r.Group("/api/auth")
	{
		auth.POST("/signup", authHandler.Signup)
		auth.POST("/login", authHandler.Login)
		auth.GET("/refresh", middleware.RefreshAuth(deps.Tokens), authHandler.Refresh)
		auth.POST("/change-password", requireAuth, authHandler.ChangePassword)
	}

	mail := r.Group("/api/mail")
	{
		mail.POST("/send", mailHandler.Send)
		mail.GET("/verify", mailHandler.Verify)
	}

	users := r.Group("/api/users")
	{
		users.POST("/unverified", userHandler.Unverified)
		users.GET("/me", requireAuth, userHandler.Me)
		users.PATCH("/me", requireAuth, userHandler.UpdateMe)
		users.DELETE("/me", requireAuth, userHandler.DeleteMe)
	}

	urls := r.Group("/api/urls", requireAuth)
	{
		urls.POST("", urlHandler.Create)
		urls.GET("", urlHandler.List)
		urls.DELETE("", urlHandler.RemoveMany)
		urls.DELETE("/:shorten", urlHandler.Remove)
	}

	// Public redirect, kept last so static routes shadow the wildcard.
	r.GET("/:shorten", urlHandler.Redirect)

	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
