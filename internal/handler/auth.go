package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"live_event_platform/internal/service"
	"live_event_platform/pkg/logger"
)

type AuthHandler struct {
	tokenService service.TokenService
	log          logger.Logger
}

func NewAuthHandler(tokenService service.TokenService, log logger.Logger) *AuthHandler {
	return &AuthHandler{
		tokenService: tokenService,
		log:          log,
	}
}

type AuthenticateRequest struct {
	AccessKey  string `json:"AccessKey" binding:"required"`
	AttendeeID string `json:"AttendeeId"`
}

// Authenticate обменивает ключ доступа на зашифрованный bearer-токен.
// Любой отказ - одинаковый 401 без деталей: нельзя дать перебором понять,
// не существует ключ, исчерпан или выписан на другое событие.
func (h *AuthHandler) Authenticate(c *gin.Context) {
	liveEventID := c.Param("eventId")

	var req AuthenticateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("Invalid authenticate request", "error", err, "live_event_id", liveEventID)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid Access Key"})
		return
	}

	encrypted, err := h.tokenService.Authenticate(c.Request.Context(), liveEventID, req.AccessKey, req.AttendeeID)
	if err != nil {
		h.log.Warn("Authentication denied", "error", err, "live_event_id", liveEventID)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid Access Key"})
		return
	}

	// Токен отдается как plain text: это непрозрачный шифротекст, а не JSON
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(encrypted))
}
