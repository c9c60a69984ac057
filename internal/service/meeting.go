package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/livekit/protocol/auth"
	"github.com/livekit/protocol/livekit"
	"github.com/twitchtv/twirp"

	"live_event_platform/internal/config"
	"live_event_platform/pkg/logger"
)

// MeetingService - граница внешнего видеодвижка. Ядро не трогает медиа:
// оно только выдает join-токены и делегирует control-plane команды.
type MeetingService interface {
	JoinToken(ctx context.Context, meetingID, attendeeID, displayName string) (string, error)
	// KickAttendee удаляет участника из митинга на стороне движка
	KickAttendee(ctx context.Context, meetingID, attendeeID string) error
}

type meetingService struct {
	cfg   config.MeetingConfig
	rooms livekit.RoomService
	log   logger.Logger
}

func NewMeetingService(cfg config.MeetingConfig, log logger.Logger) MeetingService {
	return &meetingService{
		cfg:   cfg,
		rooms: livekit.NewRoomServiceJSONClient(controlPlaneURL(cfg.URL), &http.Client{Timeout: 10 * time.Second}),
		log:   log,
	}
}

// controlPlaneURL переводит ws(s)-адрес движка в http(s) для twirp-вызовов
func controlPlaneURL(url string) string {
	switch {
	case strings.HasPrefix(url, "wss://"):
		return "https://" + strings.TrimPrefix(url, "wss://")
	case strings.HasPrefix(url, "ws://"):
		return "http://" + strings.TrimPrefix(url, "ws://")
	}
	return url
}

func (s *meetingService) JoinToken(ctx context.Context, meetingID, attendeeID, displayName string) (string, error) {
	at := auth.NewAccessToken(s.cfg.APIKey, s.cfg.APISecret)
	canPublish := true
	canSubscribe := true
	grant := &auth.VideoGrant{
		RoomJoin:     true,
		Room:         meetingID,
		CanPublish:   &canPublish,
		CanSubscribe: &canSubscribe,
	}

	at.AddGrant(grant).
		SetIdentity(attendeeID).
		SetName(displayName).
		SetValidFor(time.Hour)

	token, err := at.ToJWT()
	if err != nil {
		s.log.Error("Failed to generate meeting token", "error", err)
		return "", errors.New("failed to generate meeting token")
	}

	return token, nil
}

func (s *meetingService) KickAttendee(ctx context.Context, meetingID, attendeeID string) error {
	adminToken, err := s.adminToken(meetingID)
	if err != nil {
		return err
	}

	header := make(http.Header)
	header.Set("Authorization", "Bearer "+adminToken)
	ctx, err = twirp.WithHTTPRequestHeaders(ctx, header)
	if err != nil {
		return err
	}

	_, err = s.rooms.RemoveParticipant(ctx, &livekit.RoomParticipantIdentity{
		Room:     meetingID,
		Identity: attendeeID,
	})
	if err != nil {
		s.log.Error("Failed to kick attendee from meeting", "error", err, "meeting_id", meetingID, "attendee_id", attendeeID)
		return err
	}

	s.log.Info("Attendee kicked from meeting", "meeting_id", meetingID, "attendee_id", attendeeID)
	return nil
}

func (s *meetingService) adminToken(meetingID string) (string, error) {
	at := auth.NewAccessToken(s.cfg.APIKey, s.cfg.APISecret)
	roomAdmin := true
	at.AddGrant(&auth.VideoGrant{Room: meetingID, RoomAdmin: roomAdmin}).
		SetValidFor(time.Minute)
	return at.ToJWT()
}
