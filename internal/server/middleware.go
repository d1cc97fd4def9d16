package server

import (
	"net/http"
	"strings"

	"ctchen222/tictactoe-minimax/internal/api/controller"
	"ctchen222/tictactoe-minimax/internal/api/response"
	"ctchen222/tictactoe-minimax/internal/auth"

	"github.com/gin-gonic/gin"
)

// Authenticate requires a valid token, read from the Authorization header or,
// for websocket upgrades, the token query parameter.
func Authenticate(issuer *auth.Issuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			token = c.Query("token")
		}
		if token == "" {
			response.ErrorResponse(c, http.StatusUnauthorized, "missing token")
			return
		}

		claims, err := issuer.Parse(token)
		if err != nil {
			response.ErrorResponse(c, http.StatusUnauthorized, auth.ErrInvalidToken.Error())
			return
		}
		c.Set(controller.PlayerIDKey, claims.Subject)
		c.Next()
	}
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
