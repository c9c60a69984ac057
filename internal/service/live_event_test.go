package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"live_event_platform/internal/domain"
	apperrors "live_event_platform/pkg/errors"
)

type fakeMeetingService struct {
	joinTokens []string
	kicked     []string
	kickErr    error
}

func (m *fakeMeetingService) JoinToken(ctx context.Context, meetingID, attendeeID, displayName string) (string, error) {
	m.joinTokens = append(m.joinTokens, meetingID+"/"+attendeeID)
	return "join-token", nil
}

func (m *fakeMeetingService) KickAttendee(ctx context.Context, meetingID, attendeeID string) error {
	if m.kickErr != nil {
		return m.kickErr
	}
	m.kicked = append(m.kicked, meetingID+"/"+attendeeID)
	return nil
}

func newLiveEventService(f *routerFixture, meetings MeetingService) LiveEventService {
	log := testLogger()
	credentials := NewCredentialService(f.accessKeys, f.attendees, log)
	return NewLiveEventService(f.events, f.handRaises, f.registry, credentials, meetings, log)
}

func TestPromoteAndDemotePushLiveFeeds(t *testing.T) {
	f := newRouterFixture(t)
	ctx := context.Background()
	svc := newLiveEventService(f, &fakeMeetingService{})

	// Talent-митинг слушает обновления состава эфира
	talentRoom := domain.MeetingRoom("talent-meet")
	if err := f.registry.OnConnect(ctx, talentRoom, "talent-1", "t-conn"); err != nil {
		t.Fatalf("OnConnect: %v", err)
	}

	event, err := svc.PromoteLiveAttendee(ctx, "event-1", "att-1")
	if err != nil {
		t.Fatalf("PromoteLiveAttendee: %v", err)
	}
	if len(event.LiveAttendeeIDs) != 1 || event.LiveAttendeeIDs[0] != "att-1" {
		t.Fatalf("LiveAttendeeIDs = %v, want [att-1]", event.LiveAttendeeIDs)
	}

	delivered := f.sender.messages("t-conn")
	if len(delivered) != 1 {
		t.Fatalf("talent room received %d messages, want 1", len(delivered))
	}
	var feeds struct {
		Type    string   `json:"type"`
		Payload []string `json:"payload"`
	}
	if err := json.Unmarshal(delivered[0], &feeds); err != nil {
		t.Fatalf("unmarshal feeds: %v", err)
	}
	if feeds.Type != domain.MessageLiveVideoFeeds || len(feeds.Payload) != 1 {
		t.Fatalf("unexpected feeds message: %+v", feeds)
	}

	event, err = svc.DemoteLiveAttendee(ctx, "event-1", "att-1")
	if err != nil {
		t.Fatalf("DemoteLiveAttendee: %v", err)
	}
	if len(event.LiveAttendeeIDs) != 0 {
		t.Fatalf("LiveAttendeeIDs = %v, want empty", event.LiveAttendeeIDs)
	}
	if got := len(f.sender.messages("t-conn")); got != 2 {
		t.Fatalf("talent room received %d messages, want 2", got)
	}
}

func TestKickAttendeeClearsVetted(t *testing.T) {
	f := newRouterFixture(t)
	ctx := context.Background()
	meetings := &fakeMeetingService{}
	svc := newLiveEventService(f, meetings)

	if _, err := f.attendees.SetVetted(ctx, "att-2", true); err != nil {
		t.Fatalf("SetVetted: %v", err)
	}

	if err := svc.KickAttendee(ctx, "meet-1", "engine-att", "att-2"); err != nil {
		t.Fatalf("KickAttendee: %v", err)
	}

	if len(meetings.kicked) != 1 || meetings.kicked[0] != "meet-1/engine-att" {
		t.Fatalf("engine kicks = %v", meetings.kicked)
	}
	attendee, _ := f.attendees.GetByID(ctx, "att-2")
	if attendee.IsVetted {
		t.Fatal("kick did not clear vetted flag")
	}
}

func TestKickAttendeeKeepsVettedOnEngineFailure(t *testing.T) {
	f := newRouterFixture(t)
	ctx := context.Background()
	meetings := &fakeMeetingService{kickErr: apperrors.ErrUpstreamUnavailable}
	svc := newLiveEventService(f, meetings)

	if _, err := f.attendees.SetVetted(ctx, "att-2", true); err != nil {
		t.Fatalf("SetVetted: %v", err)
	}

	err := svc.KickAttendee(ctx, "meet-1", "engine-att", "att-2")
	if !errors.Is(err, apperrors.ErrUpstreamUnavailable) {
		t.Fatalf("KickAttendee = %v, want ErrUpstreamUnavailable", err)
	}
	attendee, _ := f.attendees.GetByID(ctx, "att-2")
	if !attendee.IsVetted {
		t.Fatal("vetted flag cleared despite engine failure")
	}
}
