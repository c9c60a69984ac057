package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"live_event_platform/internal/service"
	"live_event_platform/pkg/logger"
)

type BroadcastHandler struct {
	broadcastService  service.BroadcastService
	credentialService service.CredentialService
	log               logger.Logger
}

func NewBroadcastHandler(broadcastService service.BroadcastService, credentialService service.CredentialService, log logger.Logger) *BroadcastHandler {
	return &BroadcastHandler{
		broadcastService:  broadcastService,
		credentialService: credentialService,
		log:               log,
	}
}

// Authorize выдает подписанные CDN-cookie действующему участнику события.
// Не-участник (или событие без настроенной подписи) получает 200 с пустым
// телом - клиент просто не показывает плеер, endpoint ничего не раскрывает.
func (h *BroadcastHandler) Authorize(c *gin.Context) {
	liveEventID := c.Param("eventId")
	attendeeID := c.Query("AttendeeId")

	if !h.isValidAttendee(c, liveEventID, attendeeID) || !h.broadcastService.CanGrantCookies() {
		c.JSON(http.StatusOK, gin.H{})
		return
	}

	authorization, err := h.broadcastService.GrantCookies(c.Request.Context())
	if err != nil {
		h.log.Error("Failed to grant broadcast cookies", "error", err, "live_event_id", liveEventID)
		c.JSON(http.StatusOK, gin.H{})
		return
	}

	for name, value := range authorization.Cookies {
		c.SetCookie(name, value, authorization.MaxAge, authorization.Path, "", true, true)
	}
	c.JSON(http.StatusOK, gin.H{"authorization": authorization})
}

func (h *BroadcastHandler) isValidAttendee(c *gin.Context, liveEventID, attendeeID string) bool {
	if attendeeID == "" {
		return false
	}
	attendee, err := h.credentialService.GetAttendee(c.Request.Context(), attendeeID)
	if err != nil {
		return false
	}
	return attendee.LiveEventID == liveEventID
}
