package handler

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	apperrors "live_event_platform/pkg/errors"
	"live_event_platform/pkg/logger"
)

// Дедлайн на запись в сокет: зависший клиент не должен блокировать fan-out
const writeDeadline = 10 * time.Second

// Hub держит живые WebSocket-соединения процесса и умеет доставлять байты
// по connectionId. Реестр присутствия (Redis) знает, КАКОЕ соединение нужно,
// hub знает, ГДЕ оно физически.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]*hubConn
	log   logger.Logger
}

// hubConn сериализует записи: gorilla/websocket допускает только одного
// писателя на соединение
type hubConn struct {
	mu sync.Mutex
	ws *websocket.Conn
}

func NewHub(log logger.Logger) *Hub {
	return &Hub{
		conns: make(map[string]*hubConn),
		log:   log,
	}
}

func (h *Hub) Add(connectionID string, ws *websocket.Conn) {
	h.mu.Lock()
	h.conns[connectionID] = &hubConn{ws: ws}
	h.mu.Unlock()
}

func (h *Hub) Remove(connectionID string) {
	h.mu.Lock()
	delete(h.conns, connectionID)
	h.mu.Unlock()
}

// Push реализует service.ConnectionSender. Неизвестное hub'у или умершее
// на записи соединение дает ErrStaleConnection: фатально это или нет,
// решает вызывающий.
func (h *Hub) Push(ctx context.Context, connectionID string, data []byte) error {
	h.mu.RLock()
	conn, ok := h.conns[connectionID]
	h.mu.RUnlock()
	if !ok {
		return apperrors.ErrStaleConnection
	}

	conn.mu.Lock()
	defer conn.mu.Unlock()

	deadline := time.Now().Add(writeDeadline)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	if err := conn.ws.SetWriteDeadline(deadline); err != nil {
		return apperrors.ErrStaleConnection
	}
	if err := conn.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		h.log.Debug("Write to connection failed", "connection_id", connectionID, "error", err)
		return apperrors.ErrStaleConnection
	}
	return nil
}
