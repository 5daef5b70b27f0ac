package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"linkhub/internal/service"
)

// AuthHandler mantiene dependencias para endpoints de autenticación.
type AuthHandler struct {
	logger      *zap.Logger
	authServ    *service.AuthService
	sessionServ *service.SessionService
}

// NewAuthHandler crea una instancia de AuthHandler con sus dependencias.
func NewAuthHandler(logger *zap.Logger, authServ *service.AuthService, sessionServ *service.SessionService) *AuthHandler {
	return &AuthHandler{
		logger:      logger,
		authServ:    authServ,
		sessionServ: sessionServ,
	}
}

// Register maneja POST /api/auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid register request", zap.Error(err))
		c.JSON(http.StatusBadRequest, errorJSON("validation", "invalid request"))
		return
	}

	token, user, err := h.authServ.Register(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidEmail):
			c.JSON(http.StatusBadRequest, errorJSON("validation", "invalid email"))
		case errors.Is(err, service.ErrWeakPassword):
			c.JSON(http.StatusBadRequest, errorJSON("weak_credential", "password does not meet policy"))
		case errors.Is(err, service.ErrEmailTaken):
			c.JSON(http.StatusConflict, errorJSON("conflict", "email already registered"))
		default:
			h.logger.Error("register failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, errorJSON("internal", "could not register"))
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

// Login maneja POST /api/auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid login request", zap.Error(err))
		c.JSON(http.StatusBadRequest, errorJSON("validation", "invalid request"))
		return
	}

	token, user, err := h.authServ.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			c.JSON(http.StatusUnauthorized, errorJSON("authentication", "invalid email or password"))
		case errors.Is(err, service.ErrRateLimited):
			var limited *service.RateLimitedError
			if errors.As(err, &limited) && limited.RetryAfter > 0 {
				seconds := int(limited.RetryAfter / time.Second)
				if seconds < 1 {
					seconds = 1
				}
				c.Header("Retry-After", strconv.Itoa(seconds))
			}
			c.JSON(http.StatusTooManyRequests, errorJSON("rate_limited", "too many attempts"))
		default:
			h.logger.Error("login failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, errorJSON("internal", "could not login"))
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

// Logout maneja POST /api/auth/logout. Invalidar un token ya inválido es un
// no-op, por eso la ruta no pasa por el middleware de sesión.
func (h *AuthHandler) Logout(c *gin.Context) {
	token, ok := bearerToken(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorJSON("authentication", "missing token"))
		return
	}
	if err := h.sessionServ.Invalidate(token); err != nil {
		h.logger.Error("logout failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorJSON("internal", "could not logout"))
		return
	}
	c.Status(http.StatusNoContent)
}
