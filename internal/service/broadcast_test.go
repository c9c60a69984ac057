package service

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"strings"
	"testing"
	"time"

	"live_event_platform/internal/config"
	"live_event_platform/pkg/cfsign"
	apperrors "live_event_platform/pkg/errors"
)

type fakeSecretStore struct {
	secret []byte
	err    error
	calls  int
}

func (s *fakeSecretStore) GetSecret(ctx context.Context, secretID string) ([]byte, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.secret, nil
}

func signingStore(t *testing.T) (*fakeSecretStore, *rsa.PrivateKey) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("rsa.GenerateKey: %v", err)
	}
	pemBytes := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	return &fakeSecretStore{secret: pemBytes}, key
}

func signingConfig() config.SigningConfig {
	return config.SigningConfig{
		KeyPairID:       "KEYPAIR1",
		SecretID:        "cdn/signing-key",
		DomainName:      "cdn.example.com",
		OriginPath:      "/live/*",
		CookiePath:      "/live",
		AllowedDuration: time.Hour,
	}
}

func TestGrantCookiesSignsPolicy(t *testing.T) {
	store, key := signingStore(t)
	svc := NewBroadcastService(signingConfig(), store, testLogger())

	authorization, err := svc.GrantCookies(context.Background())
	if err != nil {
		t.Fatalf("GrantCookies: %v", err)
	}
	if authorization.Path != "/live" || authorization.MaxAge != 3600 {
		t.Fatalf("unexpected authorization: %+v", authorization)
	}

	policy, err := cfsign.DecodeURLSafe(authorization.Cookies[cfsign.CookiePolicy])
	if err != nil {
		t.Fatalf("decode policy: %v", err)
	}
	if !strings.Contains(string(policy), `"Resource":"https://cdn.example.com/live/*"`) {
		t.Fatalf("policy resource missing: %s", policy)
	}

	signature, err := cfsign.DecodeURLSafe(authorization.Cookies[cfsign.CookieSignature])
	if err != nil {
		t.Fatalf("decode signature: %v", err)
	}
	digest := sha1.Sum(policy)
	if err := rsa.VerifyPKCS1v15(&key.PublicKey, crypto.SHA1, digest[:], signature); err != nil {
		t.Fatalf("signature does not verify: %v", err)
	}
	if authorization.Cookies[cfsign.CookieKeyPairID] != "KEYPAIR1" {
		t.Fatalf("key pair cookie = %q", authorization.Cookies[cfsign.CookieKeyPairID])
	}
}

func TestGrantCookiesMemoizesSigningKey(t *testing.T) {
	store, _ := signingStore(t)
	svc := NewBroadcastService(signingConfig(), store, testLogger())

	for i := 0; i < 3; i++ {
		if _, err := svc.GrantCookies(context.Background()); err != nil {
			t.Fatalf("GrantCookies #%d: %v", i+1, err)
		}
	}
	if store.calls != 1 {
		t.Fatalf("secret loaded %d times, want 1", store.calls)
	}
}

func TestGrantCookiesRetriesAfterSecretFailure(t *testing.T) {
	store, _ := signingStore(t)
	loadErr := errors.New("secrets manager down")
	store.err = loadErr
	svc := NewBroadcastService(signingConfig(), store, testLogger())

	if _, err := svc.GrantCookies(context.Background()); !errors.Is(err, apperrors.ErrUpstreamUnavailable) {
		t.Fatalf("GrantCookies = %v, want ErrUpstreamUnavailable", err)
	}

	// Неудачная загрузка не кэшируется: после восстановления секрета
	// выдача работает
	store.err = nil
	if _, err := svc.GrantCookies(context.Background()); err != nil {
		t.Fatalf("GrantCookies after recovery: %v", err)
	}
	if store.calls != 2 {
		t.Fatalf("secret loaded %d times, want 2", store.calls)
	}
}

func TestGrantCookiesDisabledWithoutConfig(t *testing.T) {
	store, _ := signingStore(t)
	cfg := signingConfig()
	cfg.KeyPairID = ""
	svc := NewBroadcastService(cfg, store, testLogger())

	if svc.CanGrantCookies() {
		t.Fatal("CanGrantCookies = true without key pair id")
	}
	if _, err := svc.GrantCookies(context.Background()); !errors.Is(err, apperrors.ErrUpstreamUnavailable) {
		t.Fatalf("GrantCookies = %v, want ErrUpstreamUnavailable", err)
	}
}
