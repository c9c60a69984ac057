package service

import (
	"context"
	"crypto/rsa"
	"fmt"
	"sync"
	"time"

	"live_event_platform/internal/config"
	"live_event_platform/pkg/cfsign"
	apperrors "live_event_platform/pkg/errors"
	"live_event_platform/pkg/logger"
)

// BroadcastAuthorization - то, что клиент получает для доступа к трансляции
type BroadcastAuthorization struct {
	Cookies map[string]string `json:"cookies"`
	Path    string            `json:"path"`
	MaxAge  int               `json:"maxAge"`
}

// BroadcastService выдает time/IP-scoped подписанные cookie для CDN.
// Проверку личности сервис не делает: вызывающий обязан сперва убедиться,
// что запрашивающий - действующий участник события.
type BroadcastService interface {
	// CanGrantCookies - true, когда настроены и id ключевой пары, и ссылка
	// на секрет с приватным ключом
	CanGrantCookies() bool
	GrantCookies(ctx context.Context) (*BroadcastAuthorization, error)
}

type broadcastService struct {
	cfg     config.SigningConfig
	secrets SecretStore
	log     logger.Logger

	// Ключ подписи загружается из секретного хранилища один раз на процесс;
	// неудачная загрузка не кэшируется
	mu  sync.Mutex
	key *rsa.PrivateKey
}

func NewBroadcastService(cfg config.SigningConfig, secrets SecretStore, log logger.Logger) BroadcastService {
	return &broadcastService{
		cfg:     cfg,
		secrets: secrets,
		log:     log,
	}
}

func (s *broadcastService) CanGrantCookies() bool {
	return s.cfg.KeyPairID != "" && s.cfg.SecretID != ""
}

func (s *broadcastService) GrantCookies(ctx context.Context) (*BroadcastAuthorization, error) {
	if !s.CanGrantCookies() {
		return nil, apperrors.ErrUpstreamUnavailable
	}

	key, err := s.signingKey(ctx)
	if err != nil {
		s.log.Error("Failed to load signing key", "error", err)
		return nil, apperrors.ErrUpstreamUnavailable
	}

	maxAge := int(s.cfg.AllowedDuration.Seconds())
	expiresOn := time.Now().Unix() + int64(maxAge)
	resource := fmt.Sprintf("https://%s%s", s.cfg.DomainName, s.cfg.OriginPath)

	cookies, err := cfsign.SignedCookies(s.cfg.KeyPairID, key, expiresOn, resource, 0, "")
	if err != nil {
		s.log.Error("Failed to sign broadcast cookies", "error", err)
		return nil, apperrors.ErrUpstreamUnavailable
	}

	return &BroadcastAuthorization{
		Cookies: cookies,
		Path:    s.cfg.CookiePath,
		MaxAge:  maxAge,
	}, nil
}

// signingKey возвращает мемоизированный ключ; конкурентные первые обращения
// сериализуются, чтобы секрет читался ровно один раз
func (s *broadcastService) signingKey(ctx context.Context) (*rsa.PrivateKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.key != nil {
		return s.key, nil
	}

	pemBytes, err := s.secrets.GetSecret(ctx, s.cfg.SecretID)
	if err != nil {
		return nil, err
	}

	key, err := cfsign.ParsePrivateKey(pemBytes)
	if err != nil {
		return nil, err
	}

	s.key = key
	s.log.Info("Broadcast signing key loaded", "key_pair_id", s.cfg.KeyPairID)
	return key, nil
}
