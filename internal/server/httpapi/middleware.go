package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/mailauth/internal/common"
	"github.com/gin-gonic/gin"
)

const (
	userIDKey = "userID"
	emailKey  = "email"
)

// requireAccessToken accepts "Authorization: Bearer <access token>" and puts
// the token's user ID and email on the gin context.
func (s *Server) requireAccessToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader(common.AuthorizationHeaderName)
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: "missing authorization header"})
			return
		}

		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, common.BearerScheme) || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: "invalid authorization header"})
			return
		}

		claims, err := s.tokens.Verify(token, s.accessPolicy)
		if err != nil {
			s.logger.Debug(c.Request.Context(), "access token rejected", "reason", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: "invalid token"})
			return
		}

		c.Set(userIDKey, claims.UserID)
		c.Set(emailKey, claims.Email)
		c.Next()
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug(c.Request.Context(), "request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
