package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"linkhub/internal/service"
)

// NewRouter configura el router de Gin con middlewares y rutas.
func NewRouter(
	logger *zap.Logger,
	frontendURL string,
	sessions *service.SessionService,
	authH *AuthHandler,
	linkH *LinkHandler,
	accountsH *AccountsHandler,
) *gin.Engine {
	r := gin.New()

	// Middlewares basicos: logging, recovery y CORS para el frontend.
	r.Use(zapLoggerMiddleware(logger), gin.Recovery(), cors.New(corsConfig(frontendURL)))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")

	auth := api.Group("/auth")
	auth.POST("/register", authH.Register)
	auth.POST("/login", authH.Login)
	auth.POST("/logout", authH.Logout)

	protected := api.Group("")
	protected.Use(SessionAuthMiddleware(sessions))

	linkedin := protected.Group("/linkedin")
	linkedin.POST("/connect/cookie", linkH.ConnectWithCookie)
	linkedin.POST("/connect/credentials", linkH.ConnectWithCredentials)

	protected.GET("/accounts", accountsH.List)
	protected.DELETE("/accounts/:id", accountsH.Delete)

	return r
}

func corsConfig(frontendURL string) cors.Config {
	return cors.Config{
		AllowOriginFunc: func(origin string) bool {
			if frontendURL != "" && origin == frontendURL {
				return true
			}
			return strings.HasPrefix(origin, "http://localhost:")
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}
