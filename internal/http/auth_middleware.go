package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"linkhub/internal/service"
)

const sessionClaimsKey = "session_claims"

// SessionAuthMiddleware valida el bearer token contra el SessionService y
// guarda los claims en el contexto. Toda ruta protegida pasa por acá; ningún
// otro componente verifica tokens.
func SessionAuthMiddleware(sessions *service.SessionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if sessions == nil {
			c.JSON(http.StatusInternalServerError, errorJSON("internal", "sessions not configured"))
			c.Abort()
			return
		}

		token, ok := bearerToken(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, errorJSON("authentication", "missing token"))
			c.Abort()
			return
		}

		claims, err := sessions.Validate(token)
		if err != nil {
			// Uniforme a propósito: no distingue expirado, revocado o malformado.
			c.JSON(http.StatusUnauthorized, errorJSON("authentication", "invalid token"))
			c.Abort()
			return
		}

		c.Set(sessionClaimsKey, claims)
		c.Next()
	}
}

// GetSessionClaims obtiene los claims de sesión desde el contexto.
func GetSessionClaims(c *gin.Context) (service.Claims, bool) {
	val, ok := c.Get(sessionClaimsKey)
	if !ok {
		return service.Claims{}, false
	}
	claims, ok := val.(service.Claims)
	return claims, ok
}

func bearerToken(c *gin.Context) (string, bool) {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return "", false
	}
	return strings.TrimSpace(header[len("Bearer "):]), true
}

// errorJSON arma el cuerpo estándar de error: kind estable para máquinas,
// mensaje para humanos. Nunca incluye secretos.
func errorJSON(kind, message string) gin.H {
	return gin.H{"error": message, "kind": kind}
}
