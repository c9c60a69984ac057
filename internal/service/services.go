package service

import (
	"live_event_platform/internal/config"
	"live_event_platform/internal/repository"
	"live_event_platform/pkg/logger"
	"live_event_platform/pkg/token"
)

type Services struct {
	Credentials CredentialService
	Token       TokenService
	Registry    RegistryService
	Router      RouterService
	LiveEvent   LiveEventService
	Broadcast   BroadcastService
	Meeting     MeetingService
	RateLimit   RateLimitService
}

func NewServices(
	repos *repository.Repositories,
	cfg *config.Config,
	sealer *token.Sealer,
	sender ConnectionSender,
	secrets SecretStore,
	log logger.Logger,
) *Services {
	credentials := NewCredentialService(repos.AccessKey, repos.Attendee, log)
	registry := NewRegistryService(repos.Connection, repos.HandRaise, repos.LiveEvent, sender, log)
	meetings := NewMeetingService(cfg.Meeting, log)

	return &Services{
		Credentials: credentials,
		Token:       NewTokenService(repos.AccessKey, repos.Attendee, repos.LiveEvent, sealer, log),
		Registry:    registry,
		Router:      NewRouterService(registry, repos.HandRaise, repos.LiveEvent, credentials, log),
		LiveEvent:   NewLiveEventService(repos.LiveEvent, repos.HandRaise, registry, credentials, meetings, log),
		Broadcast:   NewBroadcastService(cfg.Signing, secrets, log),
		Meeting:     meetings,
		RateLimit:   NewRateLimitService(repos.RateLimit, log),
	}
}
