package token

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
)

var (
	ErrInvalidKey   = errors.New("sealing key must be 32 bytes")
	ErrInvalidToken = errors.New("invalid token")
)

// Claims - содержимое bearer-токена. Токен непрозрачен для клиента:
// claims шифруются целиком, а не подписываются.
type Claims struct {
	AccessKey   string `json:"AccessKey"`
	AttendeeID  string `json:"AttendeeId"`
	LiveEventID string `json:"LiveEventId"`
}

type Sealer struct {
	aead cipher.AEAD
}

// NewSealer создает кодек токенов на базе AES-256-GCM
func NewSealer(key []byte) (*Sealer, error) {
	if len(key) != 32 {
		return nil, ErrInvalidKey
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	return &Sealer{aead: aead}, nil
}

// Seal шифрует claims и возвращает непрозрачную base64url-строку.
// Nonce генерируется на каждый вызов и хранится префиксом шифротекста.
func (s *Sealer) Seal(claims Claims) (string, error) {
	plaintext, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ciphertext := s.aead.Seal(nonce, nonce, plaintext, nil)
	return base64.RawURLEncoding.EncodeToString(ciphertext), nil
}

// Open расшифровывает токен. Любая проблема (битый base64, подделанный
// шифротекст, чужой ключ) схлопывается в ErrInvalidToken.
func (s *Sealer) Open(encoded string) (*Claims, error) {
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if len(raw) < s.aead.NonceSize() {
		return nil, ErrInvalidToken
	}

	nonce, ciphertext := raw[:s.aead.NonceSize()], raw[s.aead.NonceSize():]
	plaintext, err := s.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrInvalidToken
	}

	var claims Claims
	if err := json.Unmarshal(plaintext, &claims); err != nil {
		return nil, ErrInvalidToken
	}

	return &claims, nil
}
