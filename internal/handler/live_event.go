package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"live_event_platform/internal/domain"
	"live_event_platform/internal/middleware"
	"live_event_platform/internal/service"
	apperrors "live_event_platform/pkg/errors"
	"live_event_platform/pkg/logger"
)

// LiveEventHandler - административный REST-срез для модераторов плюс выдача
// meeting-токенов допущенным участникам
type LiveEventHandler struct {
	liveEventService  service.LiveEventService
	credentialService service.CredentialService
	meetingService    service.MeetingService
	log               logger.Logger
}

func NewLiveEventHandler(
	liveEventService service.LiveEventService,
	credentialService service.CredentialService,
	meetingService service.MeetingService,
	log logger.Logger,
) *LiveEventHandler {
	return &LiveEventHandler{
		liveEventService:  liveEventService,
		credentialService: credentialService,
		meetingService:    meetingService,
		log:               log,
	}
}

// ListHandRaises отдает очередь поднятых рук в порядке поднятия
func (h *LiveEventHandler) ListHandRaises(c *gin.Context) {
	raises, err := h.liveEventService.ListHandRaises(c.Request.Context(), c.Param("eventId"))
	if err != nil {
		h.log.Error("Failed to list hand raises", "error", err, "live_event_id", c.Param("eventId"))
		c.JSON(apperrors.HTTPStatusFromError(err), gin.H{"error": "failed to list hand raises"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"handRaises": raises})
}

func (h *LiveEventHandler) PromoteLiveAttendee(c *gin.Context) {
	event, err := h.liveEventService.PromoteLiveAttendee(c.Request.Context(), c.Param("eventId"), c.Param("attendeeId"))
	if err != nil {
		h.log.Error("Failed to promote live attendee", "error", err, "attendee_id", c.Param("attendeeId"))
		c.JSON(apperrors.HTTPStatusFromError(err), gin.H{"error": "failed to promote attendee"})
		return
	}
	c.JSON(http.StatusOK, event)
}

func (h *LiveEventHandler) DemoteLiveAttendee(c *gin.Context) {
	event, err := h.liveEventService.DemoteLiveAttendee(c.Request.Context(), c.Param("eventId"), c.Param("attendeeId"))
	if err != nil {
		h.log.Error("Failed to demote live attendee", "error", err, "attendee_id", c.Param("attendeeId"))
		c.JSON(apperrors.HTTPStatusFromError(err), gin.H{"error": "failed to demote attendee"})
		return
	}
	c.JSON(http.StatusOK, event)
}

type KickRequest struct {
	MeetingID           string `json:"meetingId" binding:"required"`
	AttendeeID          string `json:"attendeeId" binding:"required"`
	LiveEventAttendeeID string `json:"liveEventAttendeeId"`
}

// Kick выгоняет участника из митинга на движке и снимает флаг vetted
func (h *LiveEventHandler) Kick(c *gin.Context) {
	var req KickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if err := h.liveEventService.KickAttendee(c.Request.Context(), req.MeetingID, req.AttendeeID, req.LiveEventAttendeeID); err != nil {
		h.log.Error("Failed to kick attendee", "error", err, "meeting_id", req.MeetingID, "attendee_id", req.AttendeeID)
		c.JSON(apperrors.HTTPStatusFromError(err), gin.H{"error": "failed to kick attendee"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type MintAccessKeyRequest struct {
	Limit   int         `json:"limit"`
	KeyType domain.Role `json:"keyType"`
}

// MintAccessKey выписывает новый ключ доступа для события
func (h *LiveEventHandler) MintAccessKey(c *gin.Context) {
	var req MintAccessKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if req.Limit <= 0 {
		req.Limit = 1
	}
	if req.KeyType == "" {
		req.KeyType = domain.RoleAttendee
	}
	if !req.KeyType.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid key type"})
		return
	}

	key, err := h.credentialService.IssueAccessKey(c.Request.Context(), req.Limit, req.KeyType, c.Param("eventId"))
	if err != nil {
		h.log.Error("Failed to mint access key", "error", err, "live_event_id", c.Param("eventId"))
		c.JSON(apperrors.HTTPStatusFromError(err), gin.H{"error": "failed to mint access key"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"AccessKey": key, "Limit": req.Limit, "KeyType": req.KeyType})
}

type MeetingTokenRequest struct {
	MeetingID string `json:"meetingId" binding:"required"`
	Name      string `json:"name"`
}

// MeetingToken выдает join-токен видеодвижка. Обычному участнику токен
// положен только после допуска (vetted) модератором.
func (h *LiveEventHandler) MeetingToken(c *gin.Context) {
	authCtx, ok := middleware.AuthContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req MeetingTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if authCtx.Role == domain.RoleAttendee && !authCtx.IsVetted {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}

	token, err := h.meetingService.JoinToken(c.Request.Context(), req.MeetingID, authCtx.AttendeeID, req.Name)
	if err != nil {
		h.log.Error("Failed to issue meeting token", "error", err, "meeting_id", req.MeetingID, "attendee_id", authCtx.AttendeeID)
		c.JSON(apperrors.HTTPStatusFromError(err), gin.H{"error": "failed to issue meeting token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}
