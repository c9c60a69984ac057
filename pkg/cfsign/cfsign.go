package cfsign

import (
	"crypto"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"
)

// Имена cookie, которые CloudFront распознает для доступа по подписи
const (
	CookieKeyPairID = "CloudFront-Key-Pair-Id"
	CookiePolicy    = "CloudFront-Policy"
	CookieSignature = "CloudFront-Signature"
)

var ErrExpiresRequired = errors.New("must specify expiresOn parameter")

// Policy сериализуется ровно в тот JSON, который CloudFront ожидает увидеть
// в cookie: порядок и имена полей значимы, подпись считается по этим байтам.
type Policy struct {
	Statement []Statement `json:"Statement"`
}

type Statement struct {
	Resource  string    `json:"Resource"`
	Condition Condition `json:"Condition"`
}

type Condition struct {
	DateLessThan    EpochTime  `json:"DateLessThan"`
	IPAddress       SourceIP   `json:"IpAddress"`
	DateGreaterThan *EpochTime `json:"DateGreaterThan,omitempty"`
}

type EpochTime struct {
	EpochTime int64 `json:"AWS:EpochTime"`
}

type SourceIP struct {
	SourceIP string `json:"AWS:SourceIp"`
}

// BuildPolicy формирует политику доступа. expiresOn и activeFrom - epoch-время
// в UTC; activeFrom и srcIP опциональны, пустой path означает "*".
func BuildPolicy(expiresOn int64, path string, activeFrom int64, srcIP string) (string, error) {
	if expiresOn == 0 {
		return "", ErrExpiresRequired
	}
	if path == "" {
		path = "*"
	}
	if srcIP == "" {
		srcIP = "0.0.0.0/0"
	}

	policy := Policy{
		Statement: []Statement{{
			Resource: path,
			Condition: Condition{
				DateLessThan: EpochTime{EpochTime: expiresOn},
				IPAddress:    SourceIP{SourceIP: srcIP},
			},
		}},
	}
	if activeFrom != 0 {
		policy.Statement[0].Condition.DateGreaterThan = &EpochTime{EpochTime: activeFrom}
	}

	// Порядок полей в структурах повторяет канонический формат политики:
	// подпись считается ровно по этим байтам
	raw, err := json.Marshal(policy)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// SignPolicy подписывает байты политики RSA-ключом через SHA-1 (формат,
// который требует CloudFront)
func SignPolicy(key *rsa.PrivateKey, policy string) ([]byte, error) {
	digest := sha1.Sum([]byte(policy))
	return rsa.SignPKCS1v15(nil, key, crypto.SHA1, digest[:])
}

// EncodeURLSafe кодирует значение в base64 c заменой символов, небезопасных
// для URL: '+' -> '-', '=' -> '_', '/' -> '~'
func EncodeURLSafe(value []byte) string {
	encoded := base64.StdEncoding.EncodeToString(value)
	replacer := strings.NewReplacer("+", "-", "=", "_", "/", "~")
	return replacer.Replace(encoded)
}

// DecodeURLSafe - обратное преобразование, нужно для проверки подписи в тестах
// и отладке
func DecodeURLSafe(value string) ([]byte, error) {
	replacer := strings.NewReplacer("-", "+", "_", "=", "~", "/")
	return base64.StdEncoding.DecodeString(replacer.Replace(value))
}

// SignedCookies генерирует значения cookie для доступа к CloudFront origin
func SignedCookies(keyPairID string, key *rsa.PrivateKey, expiresOn int64, path string, activeFrom int64, srcIP string) (map[string]string, error) {
	policy, err := BuildPolicy(expiresOn, path, activeFrom, srcIP)
	if err != nil {
		return nil, err
	}

	signature, err := SignPolicy(key, policy)
	if err != nil {
		return nil, err
	}

	return map[string]string{
		CookieKeyPairID: keyPairID,
		CookiePolicy:    EncodeURLSafe([]byte(policy)),
		CookieSignature: EncodeURLSafe(signature),
	}, nil
}

// ParsePrivateKey читает RSA-ключ из PEM (PKCS#1 или PKCS#8)
func ParsePrivateKey(pemBytes []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, errors.New("no PEM block found in signing key")
	}

	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}

	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse signing key: %w", err)
	}

	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.New("signing key is not an RSA key")
	}
	return key, nil
}
