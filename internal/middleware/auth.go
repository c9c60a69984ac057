package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"live_event_platform/internal/domain"
	"live_event_platform/internal/service"
	"live_event_platform/pkg/logger"
)

const authContextKey = "auth_context"

type AuthMiddleware struct {
	tokenService service.TokenService
	log          logger.Logger
}

func NewAuthMiddleware(tokenService service.TokenService, log logger.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		tokenService: tokenService,
		log:          log,
	}
}

// BearerToken достает токен из запроса: заголовок Authorization (с "Bearer "
// или без) либо query-параметр - единственная точка разбора, чтобы регистр
// имен заголовков нигде больше не разбирался вручную
func BearerToken(c *gin.Context) string {
	// net/http канонизирует имена заголовков, lookup регистронезависимый
	header := c.GetHeader("Authorization")
	if header != "" {
		if parts := strings.SplitN(header, " ", 2); len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return parts[1]
		}
		return header
	}
	return c.Query("Authorization")
}

// ClaimedAttendeeID - заявленный клиентом attendeeId; обязан совпасть
// с зашитым в токене
func ClaimedAttendeeID(c *gin.Context) string {
	if id := c.GetHeader("X-Attendee-Id"); id != "" {
		return id
	}
	return c.Query("AttendeeId")
}

// Require проверяет токен и роль; любой сбой - одинаковый generic 401
func (m *AuthMiddleware) Require(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		encrypted := BearerToken(c)
		if encrypted == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		authCtx, err := m.tokenService.ValidateToken(c.Request.Context(), encrypted, ClaimedAttendeeID(c), roles)
		if err != nil {
			m.log.Warn("Token validation failed", "error", err, "path", c.Request.URL.Path)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		c.Set(authContextKey, authCtx)
		c.Next()
	}
}

// AuthContext возвращает контекст авторизации, сохраненный Require
func AuthContext(c *gin.Context) (*domain.AuthContext, bool) {
	value, exists := c.Get(authContextKey)
	if !exists {
		return nil, false
	}
	authCtx, ok := value.(*domain.AuthContext)
	return authCtx, ok
}
