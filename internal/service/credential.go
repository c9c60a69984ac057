package service

import (
	"context"
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"live_event_platform/internal/domain"
	"live_event_platform/internal/repository"
	"live_event_platform/pkg/logger"
)

const (
	accessKeyAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	accessKeyLength   = 24
)

type CredentialService interface {
	// IssueAccessKey генерирует высокоэнтропийный ключ и сохраняет его
	// с нулевым счетчиком использований
	IssueAccessKey(ctx context.Context, limit int, role domain.Role, liveEventID string) (string, error)
	ConsumeAccessKey(ctx context.Context, key string) (*domain.AccessKey, error)
	GetAccessKey(ctx context.Context, key string) (*domain.AccessKey, error)
	GetAttendee(ctx context.Context, attendeeID string) (*domain.Attendee, error)
	SetVetted(ctx context.Context, attendeeID string, vetted bool) (*domain.Attendee, error)
}

type credentialService struct {
	accessKeyRepo repository.AccessKeyRepository
	attendeeRepo  repository.AttendeeRepository
	log           logger.Logger
}

func NewCredentialService(accessKeyRepo repository.AccessKeyRepository, attendeeRepo repository.AttendeeRepository, log logger.Logger) CredentialService {
	return &credentialService{
		accessKeyRepo: accessKeyRepo,
		attendeeRepo:  attendeeRepo,
		log:           log,
	}
}

func (s *credentialService) IssueAccessKey(ctx context.Context, limit int, role domain.Role, liveEventID string) (string, error) {
	key, err := gonanoid.Generate(accessKeyAlphabet, accessKeyLength)
	if err != nil {
		s.log.Error("Failed to generate access key", "error", err)
		return "", fmt.Errorf("failed to generate access key: %w", err)
	}

	accessKey := &domain.AccessKey{
		Key:         key,
		KeyType:     role,
		LiveEventID: liveEventID,
		UsedCount:   0,
		UsageLimit:  limit,
	}

	if err := s.accessKeyRepo.Create(ctx, accessKey); err != nil {
		return "", err
	}

	s.log.Info("Issued access key", "live_event_id", liveEventID, "role", role, "limit", limit)
	return key, nil
}

func (s *credentialService) ConsumeAccessKey(ctx context.Context, key string) (*domain.AccessKey, error) {
	return s.accessKeyRepo.Consume(ctx, key)
}

func (s *credentialService) GetAccessKey(ctx context.Context, key string) (*domain.AccessKey, error) {
	return s.accessKeyRepo.GetByKey(ctx, key)
}

func (s *credentialService) GetAttendee(ctx context.Context, attendeeID string) (*domain.Attendee, error) {
	return s.attendeeRepo.GetByID(ctx, attendeeID)
}

func (s *credentialService) SetVetted(ctx context.Context, attendeeID string, vetted bool) (*domain.Attendee, error) {
	attendee, err := s.attendeeRepo.SetVetted(ctx, attendeeID, vetted)
	if err != nil {
		return nil, err
	}

	s.log.Info("Attendee vetted flag updated", "attendee_id", attendeeID, "is_vetted", vetted)
	return attendee, nil
}
