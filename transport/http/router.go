package http

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/layer-3/walletauth/service"
)

// RouterConfig holds the transport level settings
type RouterConfig struct {
	AllowedOrigins []string
	TrustedProxies []string
	RateLimitRPS   float64
	RateLimitBurst int
	HealthChecks   []HealthCheck
}

// SetupRouter sets up the Gin router.
// Forwarding headers are honoured only from TrustedProxies; with none the socket peer is the client IP.
func SetupRouter(authService *service.AuthService, logger *slog.Logger, cfg RouterConfig) (*gin.Engine, error) {
	router := gin.New()
	if err := router.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}
	router.Use(gin.Recovery(), RequestLogger(logger))

	if len(cfg.AllowedOrigins) > 0 {
		router.Use(cors.New(corsConfig(cfg.AllowedOrigins)))
	}

	handlers := NewAuthHandlers(authService)
	requireSession := AuthMiddleware(authService, logger)

	router.GET("/healthz", Health(cfg.HealthChecks...))

	auth := router.Group("/auth")
	{
		public := auth.Group("")
		if cfg.RateLimitRPS > 0 {
			public.Use(RateLimit(NewIPRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)))
		}
		public.POST("/nonce", handlers.Nonce)
		public.POST("/login", handlers.Login)

		secured := auth.Group("", requireSession)
		secured.GET("/me", handlers.Me)
		secured.GET("/me/history", handlers.History)
		secured.POST("/logout", handlers.Logout)
		secured.GET("/authorize", handlers.Authorize)
	}

	return router, nil
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Length", HeaderUserID, HeaderWalletAddress},
		MaxAge:        12 * time.Hour,
	}
	for _, origin := range origins {
		if origin == "*" {
			// credentials cannot be combined with a wildcard origin
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}
