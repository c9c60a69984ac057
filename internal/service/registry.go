package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"live_event_platform/internal/domain"
	"live_event_platform/internal/repository"
	apperrors "live_event_platform/pkg/errors"
	"live_event_platform/pkg/logger"
)

// Таймаут на одну отправку: медленное или мертвое соединение не должно
// задерживать доставку остальным
const pushTimeout = 5 * time.Second

// ConnectionSender доставляет байты в конкретное соединение. Реализация -
// in-process hub над WebSocket; для ушедшего соединения возвращает
// ErrStaleConnection.
type ConnectionSender interface {
	Push(ctx context.Context, connectionID string, data []byte) error
}

type RegistryService interface {
	OnConnect(ctx context.Context, room domain.RoomKey, attendeeID, connectionID string) error
	// OnDisconnect удаляет запись присутствия; для комнаты live-события также
	// снимает поднятую руку и уведомляет модераторов
	OnDisconnect(ctx context.Context, room domain.RoomKey, attendeeID string) error
	Lookup(ctx context.Context, room domain.RoomKey, attendeeID string) (string, error)
	ListByRoom(ctx context.Context, room domain.RoomKey) ([]*domain.Connection, error)
	// SendToAttendee доставляет сообщение одному участнику комнаты
	SendToAttendee(ctx context.Context, room domain.RoomKey, attendeeID string, data []byte) error
	// NotifyModerators рассылает сообщение всем подключенным модераторам
	// события; отказ одной доставки не прерывает остальные
	NotifyModerators(ctx context.Context, liveEventID string, data []byte) error
	// BroadcastToRoom шлет сообщение каждому соединению комнаты
	BroadcastToRoom(ctx context.Context, room domain.RoomKey, data []byte) error
}

type registryService struct {
	connectionRepo repository.ConnectionRepository
	handRaiseRepo  repository.HandRaiseRepository
	liveEventRepo  repository.LiveEventRepository
	sender         ConnectionSender
	log            logger.Logger
}

func NewRegistryService(
	connectionRepo repository.ConnectionRepository,
	handRaiseRepo repository.HandRaiseRepository,
	liveEventRepo repository.LiveEventRepository,
	sender ConnectionSender,
	log logger.Logger,
) RegistryService {
	return &registryService{
		connectionRepo: connectionRepo,
		handRaiseRepo:  handRaiseRepo,
		liveEventRepo:  liveEventRepo,
		sender:         sender,
		log:            log,
	}
}

func (s *registryService) OnConnect(ctx context.Context, room domain.RoomKey, attendeeID, connectionID string) error {
	err := s.connectionRepo.Put(ctx, &domain.Connection{
		Room:         room,
		AttendeeID:   attendeeID,
		ConnectionID: connectionID,
	})
	if err != nil {
		return err
	}

	s.log.Info("Connection registered", "room", room.String(), "attendee_id", attendeeID, "connection_id", connectionID)
	return nil
}

func (s *registryService) OnDisconnect(ctx context.Context, room domain.RoomKey, attendeeID string) error {
	if err := s.connectionRepo.Delete(ctx, room, attendeeID); err != nil {
		return err
	}

	if room.Kind != domain.RoomKindEvent {
		return nil
	}

	liveEventID := room.ID
	if err := s.handRaiseRepo.Delete(ctx, liveEventID, attendeeID); err != nil {
		s.log.Warn("Failed to remove hand raise on disconnect", "error", err, "attendee_id", attendeeID)
	}

	message, err := json.Marshal(domain.Message{
		Type: domain.MessageAttendeeDisconnected,
		Payload: mustMarshal(domain.DisconnectPayload{
			AttendeeID:  attendeeID,
			LiveEventID: liveEventID,
			HandRaised:  false,
		}),
	})
	if err != nil {
		return err
	}

	return s.NotifyModerators(ctx, liveEventID, message)
}

func (s *registryService) Lookup(ctx context.Context, room domain.RoomKey, attendeeID string) (string, error) {
	conn, err := s.connectionRepo.Get(ctx, room, attendeeID)
	if err != nil {
		return "", err
	}
	return conn.ConnectionID, nil
}

func (s *registryService) ListByRoom(ctx context.Context, room domain.RoomKey) ([]*domain.Connection, error) {
	return s.connectionRepo.ListByRoom(ctx, room)
}

func (s *registryService) SendToAttendee(ctx context.Context, room domain.RoomKey, attendeeID string, data []byte) error {
	connectionID, err := s.Lookup(ctx, room, attendeeID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.ErrNoTargetConnection
		}
		return err
	}

	return s.push(ctx, connectionID, data)
}

func (s *registryService) NotifyModerators(ctx context.Context, liveEventID string, data []byte) error {
	connections, err := s.connectionRepo.ListByRoom(ctx, domain.EventRoom(liveEventID))
	if err != nil {
		return err
	}

	event, err := s.liveEventRepo.GetByID(ctx, liveEventID)
	if err != nil {
		return err
	}

	moderators := make(map[string]bool, len(event.ModeratorIDs))
	for _, id := range event.ModeratorIDs {
		moderators[id] = true
	}

	targets := make([]*domain.Connection, 0, len(connections))
	for _, conn := range connections {
		if moderators[conn.AttendeeID] {
			targets = append(targets, conn)
		}
	}

	s.log.Debug("Notifying moderators", "live_event_id", liveEventID, "count", len(targets))
	s.fanOut(ctx, targets, data)
	return nil
}

func (s *registryService) BroadcastToRoom(ctx context.Context, room domain.RoomKey, data []byte) error {
	connections, err := s.connectionRepo.ListByRoom(ctx, room)
	if err != nil {
		return err
	}

	s.fanOut(ctx, connections, data)
	return nil
}

// fanOut шлет конкурентно и дожидается всех отправок; отказы изолированы
// по получателям
func (s *registryService) fanOut(ctx context.Context, targets []*domain.Connection, data []byte) {
	var wg sync.WaitGroup
	for _, conn := range targets {
		wg.Add(1)
		go func(conn *domain.Connection) {
			defer wg.Done()
			if err := s.push(ctx, conn.ConnectionID, data); err != nil {
				s.log.Warn("Fan-out delivery failed", "error", err, "attendee_id", conn.AttendeeID, "connection_id", conn.ConnectionID)
			}
		}(conn)
	}
	wg.Wait()
}

func (s *registryService) push(ctx context.Context, connectionID string, data []byte) error {
	pushCtx, cancel := context.WithTimeout(ctx, pushTimeout)
	defer cancel()

	err := s.sender.Push(pushCtx, connectionID, data)
	if err != nil {
		// Протухшее соединение не ошибка: оно вылечится на следующем reconnect
		if errors.Is(err, apperrors.ErrStaleConnection) {
			s.log.Info("Found stale connection, skipping", "connection_id", connectionID)
			return nil
		}
		s.log.Error("Failed to push to connection", "error", err, "connection_id", connectionID)
		return err
	}

	return nil
}

func mustMarshal(v any) json.RawMessage {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return raw
}
