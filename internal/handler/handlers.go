package handler

import (
	"live_event_platform/internal/config"
	"live_event_platform/internal/service"
	"live_event_platform/pkg/logger"
)

type Handlers struct {
	Health    *HealthHandler
	Auth      *AuthHandler
	Broadcast *BroadcastHandler
	LiveEvent *LiveEventHandler
	WebSocket *WebSocketHandler
}

func NewHandlers(services *service.Services, hub *Hub, cfg *config.Config, log logger.Logger) *Handlers {
	return &Handlers{
		Health:    NewHealthHandler(cfg),
		Auth:      NewAuthHandler(services.Token, log),
		Broadcast: NewBroadcastHandler(services.Broadcast, services.Credentials, log),
		LiveEvent: NewLiveEventHandler(services.LiveEvent, services.Credentials, services.Meeting, log),
		WebSocket: NewWebSocketHandler(hub, services.Token, services.Registry, services.Router, log),
	}
}
