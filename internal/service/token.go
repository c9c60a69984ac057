package service

import (
	"context"

	"live_event_platform/internal/domain"
	"live_event_platform/internal/repository"
	apperrors "live_event_platform/pkg/errors"
	"live_event_platform/pkg/logger"
	"live_event_platform/pkg/token"
)

type TokenService interface {
	// Authenticate обменивает действующий ключ доступа (и, опционально,
	// attendeeId) на зашифрованный bearer-токен
	Authenticate(ctx context.Context, liveEventID, accessKey, attendeeID string) (string, error)
	// ValidateToken расшифровывает токен и проверяет идентичность; любая
	// ошибка схлопывается в отказ (fail-closed)
	ValidateToken(ctx context.Context, encrypted, expectedAttendeeID string, allowedRoles []domain.Role) (*domain.AuthContext, error)
}

type tokenService struct {
	accessKeyRepo repository.AccessKeyRepository
	attendeeRepo  repository.AttendeeRepository
	liveEventRepo repository.LiveEventRepository
	sealer        *token.Sealer
	log           logger.Logger
}

func NewTokenService(
	accessKeyRepo repository.AccessKeyRepository,
	attendeeRepo repository.AttendeeRepository,
	liveEventRepo repository.LiveEventRepository,
	sealer *token.Sealer,
	log logger.Logger,
) TokenService {
	return &tokenService{
		accessKeyRepo: accessKeyRepo,
		attendeeRepo:  attendeeRepo,
		liveEventRepo: liveEventRepo,
		sealer:        sealer,
		log:           log,
	}
}

func (s *tokenService) Authenticate(ctx context.Context, liveEventID, accessKey, attendeeID string) (string, error) {
	// Ключ должен существовать, принадлежать событию и иметь остаток
	// использований
	keyObject, err := s.accessKeyRepo.GetByKey(ctx, accessKey)
	if err != nil {
		return "", apperrors.ErrInvalidAccessKey
	}
	if !keyObject.HasRemainingUses() || keyObject.LiveEventID != liveEventID {
		return "", apperrors.ErrInvalidAccessKey
	}

	var attendee *domain.Attendee
	if attendeeID != "" {
		attendee, err = s.attendeeRepo.GetByID(ctx, attendeeID)
		if err != nil {
			return "", apperrors.ErrInvalidAccessKey
		}
		// Тип и событие участника должны совпадать с типом и событием ключа
		if attendee.Role != keyObject.KeyType || attendee.LiveEventID != keyObject.LiveEventID {
			return "", apperrors.ErrInvalidAccessKey
		}
	}

	if _, err := s.accessKeyRepo.Consume(ctx, accessKey); err != nil {
		return "", apperrors.ErrInvalidAccessKey
	}

	claims := token.Claims{
		AccessKey:   keyObject.Key,
		LiveEventID: keyObject.LiveEventID,
	}

	if attendee != nil {
		claims.AttendeeID = attendee.AttendeeID

		if attendee.Role == domain.RoleModerator {
			if err := s.liveEventRepo.AddModerator(ctx, liveEventID, attendee.AttendeeID); err != nil {
				s.log.Error("Failed to register moderator on event", "error", err, "attendee_id", attendee.AttendeeID)
				return "", err
			}
		}

		if err := s.attendeeRepo.SetUsedAccessKey(ctx, attendee.AttendeeID, keyObject.Key); err != nil {
			s.log.Warn("Failed to record used access key", "error", err, "attendee_id", attendee.AttendeeID)
		}
	}

	encrypted, err := s.sealer.Seal(claims)
	if err != nil {
		s.log.Error("Failed to seal token", "error", err)
		return "", apperrors.ErrInternalServer
	}

	s.log.Info("Attendee authenticated", "live_event_id", liveEventID, "attendee_id", attendeeID)
	return encrypted, nil
}

func (s *tokenService) ValidateToken(ctx context.Context, encrypted, expectedAttendeeID string, allowedRoles []domain.Role) (*domain.AuthContext, error) {
	claims, err := s.sealer.Open(encrypted)
	if err != nil {
		return nil, apperrors.ErrUnauthorized
	}

	if _, err := s.accessKeyRepo.GetByKey(ctx, claims.AccessKey); err != nil {
		return nil, apperrors.ErrUnauthorized
	}

	attendee, err := s.attendeeRepo.GetByID(ctx, claims.AttendeeID)
	if err != nil {
		return nil, apperrors.ErrUnauthorized
	}

	// Заявленный в запросе attendeeId обязан совпасть с зашитым в токене
	if attendee.AttendeeID != expectedAttendeeID {
		return nil, apperrors.ErrUnauthorized
	}

	allowed := false
	for _, role := range allowedRoles {
		if attendee.Role == role {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, apperrors.ErrUnauthorized
	}

	return &domain.AuthContext{
		LiveEventID: claims.LiveEventID,
		AttendeeID:  attendee.AttendeeID,
		Role:        attendee.Role,
		IsModerator: attendee.Role == domain.RoleModerator,
		IsVetted:    attendee.IsVetted,
	}, nil
}
