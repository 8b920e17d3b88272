package server

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const ctxUserID = "user_id"

// AuthRequired validates the bearer token issued by the external auth
// provider and puts its subject into the request context. The provider signs
// with HMAC using the shared secret from config.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		const prefix = "Bearer "
		if !strings.HasPrefix(header, prefix) {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		raw := strings.TrimSpace(strings.TrimPrefix(header, prefix))
		if raw == "" || s.cfg.AuthJWTSecret == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		claims := jwt.RegisteredClaims{}
		token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return []byte(s.cfg.AuthJWTSecret), nil
		})
		if err != nil || !token.Valid || strings.TrimSpace(claims.Subject) == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		c.Set(ctxUserID, claims.Subject)
		c.Next()
	}
}

func (s *Server) userID(c *gin.Context) string {
	return c.GetString(ctxUserID)
}
