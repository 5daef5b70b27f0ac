package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"linkhub/internal/domain"
	"linkhub/internal/provider"
	"linkhub/internal/service"
)

// LinkHandler mantiene dependencias para endpoints de vinculación.
type LinkHandler struct {
	logger   *zap.Logger
	linkServ *service.LinkService
}

// NewLinkHandler crea una instancia de LinkHandler con sus dependencias.
func NewLinkHandler(logger *zap.Logger, linkServ *service.LinkService) *LinkHandler {
	return &LinkHandler{
		logger:   logger,
		linkServ: linkServ,
	}
}

// ConnectWithCookie maneja POST /api/linkedin/connect/cookie.
func (h *LinkHandler) ConnectWithCookie(c *gin.Context) {
	var req struct {
		Cookie string `json:"cookie" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorJSON("validation", "invalid request"))
		return
	}
	h.connect(c, domain.CookieLink(req.Cookie))
}

// ConnectWithCredentials maneja POST /api/linkedin/connect/credentials.
func (h *LinkHandler) ConnectWithCredentials(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorJSON("validation", "invalid request"))
		return
	}
	h.connect(c, domain.CredentialsLink(req.Username, req.Password))
}

func (h *LinkHandler) connect(c *gin.Context, req domain.LinkRequest) {
	claims, ok := GetSessionClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorJSON("authentication", "invalid token"))
		return
	}

	account, err := h.linkServ.Link(c.Request.Context(), claims.UserID, req)
	if err != nil {
		h.writeLinkError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "account connected successfully",
		"account": account,
	})
}

// writeLinkError traduce la taxonomía de errores del core a respuestas HTTP.
// El caller nunca ve detalles crudos del proveedor.
func (h *LinkHandler) writeLinkError(c *gin.Context, err error) {
	var challenge *provider.ChallengeRequiredError
	var unavailable *provider.UnavailableError

	switch {
	case errors.Is(err, domain.ErrLinkMethodInvalid), errors.Is(err, domain.ErrLinkSecretMissing):
		c.JSON(http.StatusBadRequest, errorJSON("validation", err.Error()))
	case errors.Is(err, provider.ErrInvalidCookie):
		c.JSON(http.StatusBadRequest, errorJSON("invalid_cookie", "session cookie rejected by provider"))
	case errors.Is(err, provider.ErrInvalidCredentials):
		c.JSON(http.StatusBadRequest, errorJSON("invalid_credentials", "credentials rejected by provider"))
	case errors.As(err, &challenge):
		body := errorJSON("challenge_required", "provider requires verification")
		body["retryable"] = true
		body["challenge_token"] = challenge.ChallengeToken
		c.JSON(http.StatusConflict, body)
	case errors.As(err, &unavailable):
		body := errorJSON("provider_unavailable", "provider unavailable, retry later")
		body["retryable"] = true
		c.JSON(http.StatusBadGateway, body)
	default:
		h.logger.Error("link failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorJSON("internal", "could not link account"))
	}
}
