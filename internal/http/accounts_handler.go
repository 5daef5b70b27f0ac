package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"linkhub/internal/service"
)

// AccountsHandler mantiene dependencias para endpoints de cuentas vinculadas.
type AccountsHandler struct {
	logger   *zap.Logger
	linkServ *service.LinkService
}

// NewAccountsHandler crea una instancia de AccountsHandler.
func NewAccountsHandler(logger *zap.Logger, linkServ *service.LinkService) *AccountsHandler {
	return &AccountsHandler{
		logger:   logger,
		linkServ: linkServ,
	}
}

// List maneja GET /api/accounts. Lee fresco del store en cada llamada.
func (h *AccountsHandler) List(c *gin.Context) {
	claims, ok := GetSessionClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorJSON("authentication", "invalid token"))
		return
	}

	accounts, err := h.linkServ.List(c.Request.Context(), claims.UserID)
	if err != nil {
		h.logger.Error("list accounts failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorJSON("internal", "could not fetch accounts"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"accounts": accounts, "count": len(accounts)})
}

// Delete maneja DELETE /api/accounts/:id.
func (h *AccountsHandler) Delete(c *gin.Context) {
	claims, ok := GetSessionClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorJSON("authentication", "invalid token"))
		return
	}

	err := h.linkServ.Remove(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrAccountNotFound) {
			c.JSON(http.StatusNotFound, errorJSON("not_found", "account not found"))
			return
		}
		h.logger.Error("delete account failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorJSON("internal", "could not delete account"))
		return
	}

	c.Status(http.StatusNoContent)
}
