package service

import (
	"context"
	"encoding/json"

	"live_event_platform/internal/domain"
	"live_event_platform/internal/repository"
	"live_event_platform/pkg/logger"
)

// LiveEventService - административные операции модератора над составом эфира
type LiveEventService interface {
	GetEvent(ctx context.Context, liveEventID string) (*domain.LiveEvent, error)
	// PromoteLiveAttendee добавляет участника в состав эфира и рассылает
	// обновленный список всем соединениям talent-митинга
	PromoteLiveAttendee(ctx context.Context, liveEventID, attendeeID string) (*domain.LiveEvent, error)
	DemoteLiveAttendee(ctx context.Context, liveEventID, attendeeID string) (*domain.LiveEvent, error)
	// KickAttendee выгоняет участника из митинга на движке и снимает
	// с него флаг vetted
	KickAttendee(ctx context.Context, meetingID, engineAttendeeID, liveEventAttendeeID string) error
	ListHandRaises(ctx context.Context, liveEventID string) ([]*domain.HandRaise, error)
}

type liveEventService struct {
	liveEventRepo repository.LiveEventRepository
	handRaiseRepo repository.HandRaiseRepository
	registry      RegistryService
	credentials   CredentialService
	meetings      MeetingService
	log           logger.Logger
}

func NewLiveEventService(
	liveEventRepo repository.LiveEventRepository,
	handRaiseRepo repository.HandRaiseRepository,
	registry RegistryService,
	credentials CredentialService,
	meetings MeetingService,
	log logger.Logger,
) LiveEventService {
	return &liveEventService{
		liveEventRepo: liveEventRepo,
		handRaiseRepo: handRaiseRepo,
		registry:      registry,
		credentials:   credentials,
		meetings:      meetings,
		log:           log,
	}
}

func (s *liveEventService) GetEvent(ctx context.Context, liveEventID string) (*domain.LiveEvent, error) {
	return s.liveEventRepo.GetByID(ctx, liveEventID)
}

func (s *liveEventService) PromoteLiveAttendee(ctx context.Context, liveEventID, attendeeID string) (*domain.LiveEvent, error) {
	event, err := s.liveEventRepo.AddLiveAttendee(ctx, liveEventID, attendeeID)
	if err != nil {
		return nil, err
	}

	if err := s.pushLiveFeeds(ctx, event); err != nil {
		s.log.Warn("Failed to push live feeds update", "error", err, "live_event_id", liveEventID)
	}

	s.log.Info("Attendee promoted to live broadcast", "live_event_id", liveEventID, "attendee_id", attendeeID)
	return event, nil
}

func (s *liveEventService) DemoteLiveAttendee(ctx context.Context, liveEventID, attendeeID string) (*domain.LiveEvent, error) {
	event, err := s.liveEventRepo.RemoveLiveAttendee(ctx, liveEventID, attendeeID)
	if err != nil {
		return nil, err
	}

	if err := s.pushLiveFeeds(ctx, event); err != nil {
		s.log.Warn("Failed to push live feeds update", "error", err, "live_event_id", liveEventID)
	}

	s.log.Info("Attendee removed from live broadcast", "live_event_id", liveEventID, "attendee_id", attendeeID)
	return event, nil
}

// pushLiveFeeds рассылает актуальный состав эфира в комнату talent-митинга
func (s *liveEventService) pushLiveFeeds(ctx context.Context, event *domain.LiveEvent) error {
	message, err := json.Marshal(domain.Message{
		Type:    domain.MessageLiveVideoFeeds,
		Payload: mustMarshal(event.LiveAttendeeIDs),
	})
	if err != nil {
		return err
	}

	return s.registry.BroadcastToRoom(ctx, domain.MeetingRoom(event.TalentMeetingID), message)
}

func (s *liveEventService) KickAttendee(ctx context.Context, meetingID, engineAttendeeID, liveEventAttendeeID string) error {
	if err := s.meetings.KickAttendee(ctx, meetingID, engineAttendeeID); err != nil {
		return err
	}

	// Выгнанный участник теряет статус vetted
	if _, err := s.credentials.SetVetted(ctx, liveEventAttendeeID, false); err != nil {
		return err
	}

	return nil
}

func (s *liveEventService) ListHandRaises(ctx context.Context, liveEventID string) ([]*domain.HandRaise, error) {
	return s.handRaiseRepo.ListByEvent(ctx, liveEventID)
}
