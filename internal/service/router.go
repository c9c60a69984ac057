package service

import (
	"context"
	"encoding/json"

	"live_event_platform/internal/domain"
	"live_event_platform/internal/repository"
	apperrors "live_event_platform/pkg/errors"
	"live_event_platform/pkg/logger"
)

// Лимит использований для ключа, который модератор выдает приглашением
// в 1:1 митинг
const inviteKeyUsageLimit = 5

// RouterService - диспетчер входящих WebSocket-сообщений. Каждое сообщение
// авторизуется по AuthContext до любого изменения состояния.
type RouterService interface {
	// RouteLiveEvent обрабатывает сообщения комнаты live-события
	RouteLiveEvent(ctx context.Context, authCtx *domain.AuthContext, msg *domain.Message) error
	// RouteMeeting обрабатывает управляющие команды комнаты митинга
	RouteMeeting(ctx context.Context, authCtx *domain.AuthContext, meetingID string, msg *domain.Message) error
}

type routerService struct {
	registry      RegistryService
	handRaiseRepo repository.HandRaiseRepository
	liveEventRepo repository.LiveEventRepository
	credentials   CredentialService
	log           logger.Logger
}

func NewRouterService(
	registry RegistryService,
	handRaiseRepo repository.HandRaiseRepository,
	liveEventRepo repository.LiveEventRepository,
	credentials CredentialService,
	log logger.Logger,
) RouterService {
	return &routerService{
		registry:      registry,
		handRaiseRepo: handRaiseRepo,
		liveEventRepo: liveEventRepo,
		credentials:   credentials,
		log:           log,
	}
}

func (s *routerService) RouteLiveEvent(ctx context.Context, authCtx *domain.AuthContext, msg *domain.Message) error {
	switch msg.Type {
	case domain.MessageRaiseHand:
		return s.handleRaiseHand(ctx, authCtx, msg)
	case domain.MessageUpdateHandRaise:
		return s.handleUpdateHandRaise(ctx, authCtx, msg)
	case domain.MessageJoinMeeting, domain.MessageAttendeeProgress:
		return s.handleForwardToTarget(ctx, authCtx, msg)
	default:
		// Произвольные сообщения рассылаются модераторам, и только от модератора
		if !authCtx.IsModerator {
			s.log.Warn("Unauthorized attempt to send message",
				"type", msg.Type, "attendee_id", authCtx.AttendeeID, "role", authCtx.Role)
			return apperrors.ErrUnauthorized
		}

		raw, err := json.Marshal(msg)
		if err != nil {
			return apperrors.ErrValidation
		}
		return s.registry.NotifyModerators(ctx, authCtx.LiveEventID, raw)
	}
}

// handleRaiseHand доступен любому аутентифицированному участнику: это
// действие над собственной записью
func (s *routerService) handleRaiseHand(ctx context.Context, authCtx *domain.AuthContext, msg *domain.Message) error {
	var payload domain.RoutedPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return apperrors.ErrValidation
	}

	raise := &domain.HandRaise{
		LiveEventID: authCtx.LiveEventID,
		AttendeeID:  authCtx.AttendeeID,
		Question:    payload.Message,
		Name:        payload.Name,
	}

	if _, err := s.handRaiseRepo.Upsert(ctx, raise); err != nil {
		s.log.Error("Failed to store hand raise", "error", err, "attendee_id", authCtx.AttendeeID)
		return err
	}

	raw, err := json.Marshal(msg)
	if err != nil {
		return apperrors.ErrValidation
	}
	return s.registry.NotifyModerators(ctx, authCtx.LiveEventID, raw)
}

func (s *routerService) handleUpdateHandRaise(ctx context.Context, authCtx *domain.AuthContext, msg *domain.Message) error {
	if !authCtx.IsModerator {
		s.log.Warn("Unauthorized hand raise update", "attendee_id", authCtx.AttendeeID)
		return apperrors.ErrUnauthorized
	}

	var payload domain.RoutedPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return apperrors.ErrValidation
	}
	if payload.AttendeeID == "" {
		return apperrors.ErrValidation
	}

	// QueueId - id модератора, поставившего в очередь; снятие очищает поле
	queueID := ""
	if payload.Queue {
		queueID = authCtx.AttendeeID
	}

	raise, err := s.handRaiseRepo.SetQueue(ctx, authCtx.LiveEventID, payload.AttendeeID, queueID)
	if err != nil {
		s.log.Error("Failed to update hand raise", "error", err, "target", payload.AttendeeID)
		return err
	}

	outgoing, err := json.Marshal(domain.Message{
		Type:    domain.MessageUpdateHandRaise,
		Payload: mustMarshal(raise),
	})
	if err != nil {
		return err
	}
	return s.registry.NotifyModerators(ctx, authCtx.LiveEventID, outgoing)
}

// handleForwardToTarget пересылает сообщение одному участнику. Для
// join-meeting модератор попутно выпускает ключ доступа для приглашенного.
func (s *routerService) handleForwardToTarget(ctx context.Context, authCtx *domain.AuthContext, msg *domain.Message) error {
	var payload domain.RoutedPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return apperrors.ErrValidation
	}
	if payload.TargetAttendeeID == "" {
		return apperrors.ErrNoTargetConnection
	}

	// Адресовать другого участника может только модератор
	if !authCtx.IsModerator && payload.TargetAttendeeID != authCtx.AttendeeID {
		s.log.Warn("Unauthorized attempt to address another attendee",
			"attendee_id", authCtx.AttendeeID, "target", payload.TargetAttendeeID)
		return apperrors.ErrUnauthorized
	}

	outgoing := msg
	if msg.Type == domain.MessageJoinMeeting && authCtx.IsModerator {
		accessKey, err := s.credentials.IssueAccessKey(ctx, inviteKeyUsageLimit, domain.RoleAttendee, authCtx.LiveEventID)
		if err != nil {
			s.log.Error("Failed to issue invite access key", "error", err)
			return err
		}
		payload.AccessKey = accessKey
		outgoing = &domain.Message{
			Type:        msg.Type,
			Payload:     mustMarshal(payload),
			TimestampMs: msg.TimestampMs,
		}
	}

	raw, err := json.Marshal(outgoing)
	if err != nil {
		return apperrors.ErrValidation
	}
	return s.registry.SendToAttendee(ctx, domain.EventRoom(authCtx.LiveEventID), payload.TargetAttendeeID, raw)
}

func (s *routerService) RouteMeeting(ctx context.Context, authCtx *domain.AuthContext, meetingID string, msg *domain.Message) error {
	if msg.Type == domain.MessageInitAttendee {
		return s.handleInitAttendee(ctx, authCtx, meetingID)
	}

	// Все прочие сообщения митинга - административные (mute, kick,
	// transfer-meeting и т.п.), их шлет только модератор
	if !authCtx.IsModerator {
		s.log.Warn("Unauthorized attempt to send meeting message",
			"type", msg.Type, "attendee_id", authCtx.AttendeeID, "role", authCtx.Role)
		return apperrors.ErrUnauthorized
	}

	var payload domain.RoutedPayload
	if len(msg.Payload) > 0 {
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return apperrors.ErrValidation
		}
	}
	if payload.TargetAttendeeID == "" {
		// Отсутствие адресата - ошибка маршрутизации, не авторизации
		return apperrors.ErrNoTargetConnection
	}

	if msg.Type == domain.MessageTransferMeeting {
		// Приглашение в holding room означает, что участник прошел проверку
		if payload.LiveEventAttendeeID == "" {
			return apperrors.ErrValidation
		}
		if _, err := s.credentials.SetVetted(ctx, payload.LiveEventAttendeeID, true); err != nil {
			s.log.Error("Failed to mark attendee vetted", "error", err, "attendee_id", payload.LiveEventAttendeeID)
			return err
		}
	}

	raw, err := json.Marshal(msg)
	if err != nil {
		return apperrors.ErrValidation
	}
	return s.registry.SendToAttendee(ctx, domain.MeetingRoom(meetingID), payload.TargetAttendeeID, raw)
}

// handleInitAttendee отдает отправителю текущий состав эфира. Доступно
// модератору, таланту и проверенному участнику.
func (s *routerService) handleInitAttendee(ctx context.Context, authCtx *domain.AuthContext, meetingID string) error {
	isVettedAttendee := authCtx.Role == domain.RoleAttendee && authCtx.IsVetted
	if !isVettedAttendee && !authCtx.IsModerator && authCtx.Role != domain.RoleTalent {
		s.log.Warn("Unauthorized init-attendee", "attendee_id", authCtx.AttendeeID, "role", authCtx.Role)
		return apperrors.ErrUnauthorized
	}

	event, err := s.liveEventRepo.GetByID(ctx, authCtx.LiveEventID)
	if err != nil {
		s.log.Error("Failed to get live event for roster", "error", err, "live_event_id", authCtx.LiveEventID)
		return err
	}

	roster, err := json.Marshal(domain.Message{
		Type:    domain.MessageLiveVideoFeeds,
		Payload: mustMarshal(event.LiveAttendeeIDs),
	})
	if err != nil {
		return err
	}

	// Ответ уходит только отправителю
	return s.registry.SendToAttendee(ctx, domain.MeetingRoom(meetingID), authCtx.AttendeeID, roster)
}
