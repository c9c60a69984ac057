package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"live_event_platform/internal/domain"
	"live_event_platform/internal/middleware"
	"live_event_platform/internal/service"
	"live_event_platform/pkg/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true // В продакшене нужно проверять origin
	},
}

type WebSocketHandler struct {
	hub          *Hub
	tokenService service.TokenService
	registry     service.RegistryService
	router       service.RouterService
	log          logger.Logger
}

func NewWebSocketHandler(
	hub *Hub,
	tokenService service.TokenService,
	registry service.RegistryService,
	router service.RouterService,
	log logger.Logger,
) *WebSocketHandler {
	return &WebSocketHandler{
		hub:          hub,
		tokenService: tokenService,
		registry:     registry,
		router:       router,
		log:          log,
	}
}

// HandleLiveEvent - сокет комнаты live-события (hand-raise сигналинг)
func (h *WebSocketHandler) HandleLiveEvent(c *gin.Context) {
	liveEventID := c.Param("eventId")

	authCtx, ok := h.authorize(c)
	if !ok {
		return
	}
	// Токен выписан на другое событие - отказ до upgrade
	if authCtx.LiveEventID != liveEventID {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	h.serve(c, authCtx, domain.EventRoom(liveEventID), func(ctx *gin.Context, msg *domain.Message) error {
		return h.router.RouteLiveEvent(ctx.Request.Context(), authCtx, msg)
	})
}

// HandleMeeting - сокет комнаты митинга (управляющие команды модератора)
func (h *WebSocketHandler) HandleMeeting(c *gin.Context) {
	meetingID := c.Param("meetingId")

	authCtx, ok := h.authorize(c)
	if !ok {
		return
	}

	h.serve(c, authCtx, domain.MeetingRoom(meetingID), func(ctx *gin.Context, msg *domain.Message) error {
		return h.router.RouteMeeting(ctx.Request.Context(), authCtx, meetingID, msg)
	})
}

// authorize проверяет токен из query/заголовка ДО upgrade: неавторизованный
// клиент не получает соединения вовсе
func (h *WebSocketHandler) authorize(c *gin.Context) (*domain.AuthContext, bool) {
	encrypted := middleware.BearerToken(c)
	if encrypted == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return nil, false
	}

	authCtx, err := h.tokenService.ValidateToken(
		c.Request.Context(),
		encrypted,
		middleware.ClaimedAttendeeID(c),
		[]domain.Role{domain.RoleModerator, domain.RoleTalent, domain.RoleAttendee},
	)
	if err != nil {
		h.log.Warn("WebSocket auth failed", "error", err, "path", c.Request.URL.Path)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return nil, false
	}
	return authCtx, true
}

func (h *WebSocketHandler) serve(c *gin.Context, authCtx *domain.AuthContext, room domain.RoomKey, route func(*gin.Context, *domain.Message) error) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error("Failed to upgrade connection", "error", err)
		return
	}

	connectionID := uuid.New().String()
	h.hub.Add(connectionID, conn)

	if err := h.registry.OnConnect(c.Request.Context(), room, authCtx.AttendeeID, connectionID); err != nil {
		h.log.Error("Failed to register connection", "error", err, "room", room.String())
		h.hub.Remove(connectionID)
		conn.Close()
		return
	}

	// Cleanup ставится только после успешной регистрации: несостоявшееся
	// подключение не должно снимать чужое присутствие
	defer func() {
		h.hub.Remove(connectionID)
		conn.Close()
		// Снятие присутствия (и руки) идет по фоновому контексту: запрос
		// к этому моменту уже завершен
		if err := h.registry.OnDisconnect(context.Background(), room, authCtx.AttendeeID); err != nil {
			h.log.Error("Failed to clean up connection", "error", err, "room", room.String(), "attendee_id", authCtx.AttendeeID)
		}
	}()

	h.log.Info("WebSocket connected", "room", room.String(), "attendee_id", authCtx.AttendeeID, "connection_id", connectionID)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Warn("WebSocket closed unexpectedly", "error", err, "attendee_id", authCtx.AttendeeID)
			}
			return
		}

		var msg domain.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			h.log.Warn("Malformed message dropped", "error", err, "attendee_id", authCtx.AttendeeID)
			continue
		}

		// Keepalive обслуживается на месте, минуя роутер
		if msg.Type == domain.MessagePing {
			pong, _ := json.Marshal(domain.PongMessage{Type: domain.MessagePing, Message: "pong"})
			if err := h.hub.Push(c.Request.Context(), connectionID, pong); err != nil {
				return
			}
			continue
		}

		// Ошибка обработки одного сообщения не рвет соединение
		if err := route(c, &msg); err != nil {
			h.log.Warn("Message handling failed", "error", err, "type", msg.Type, "attendee_id", authCtx.AttendeeID)
		}
	}
}
