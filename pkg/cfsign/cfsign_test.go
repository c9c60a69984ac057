package cfsign

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	"encoding/pem"
	"strings"
	"testing"
)

func testRSAKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("rsa.GenerateKey: %v", err)
	}
	return key
}

func TestBuildPolicyCanonicalFormat(t *testing.T) {
	policy, err := BuildPolicy(1700000000, "https://cdn.example.com/live/*", 0, "")
	if err != nil {
		t.Fatalf("BuildPolicy: %v", err)
	}

	want := `{"Statement":[{"Resource":"https://cdn.example.com/live/*","Condition":{"DateLessThan":{"AWS:EpochTime":1700000000},"IpAddress":{"AWS:SourceIp":"0.0.0.0/0"}}}]}`
	if policy != want {
		t.Fatalf("policy mismatch:\ngot  %s\nwant %s", policy, want)
	}
}

func TestBuildPolicyWithActiveFrom(t *testing.T) {
	policy, err := BuildPolicy(1700000000, "", 1690000000, "10.0.0.0/8")
	if err != nil {
		t.Fatalf("BuildPolicy: %v", err)
	}

	if !strings.Contains(policy, `"Resource":"*"`) {
		t.Errorf("empty path should default to *: %s", policy)
	}
	if !strings.Contains(policy, `"DateGreaterThan":{"AWS:EpochTime":1690000000}`) {
		t.Errorf("missing DateGreaterThan condition: %s", policy)
	}
	if !strings.Contains(policy, `"AWS:SourceIp":"10.0.0.0/8"`) {
		t.Errorf("missing source IP condition: %s", policy)
	}
}

func TestBuildPolicyRequiresExpiry(t *testing.T) {
	if _, err := BuildPolicy(0, "*", 0, ""); err != ErrExpiresRequired {
		t.Fatalf("BuildPolicy(0) = %v, want ErrExpiresRequired", err)
	}
}

func TestSignPolicyVerifies(t *testing.T) {
	key := testRSAKey(t)

	policy, err := BuildPolicy(1700000000, "*", 0, "")
	if err != nil {
		t.Fatalf("BuildPolicy: %v", err)
	}
	signature, err := SignPolicy(key, policy)
	if err != nil {
		t.Fatalf("SignPolicy: %v", err)
	}

	digest := sha1.Sum([]byte(policy))
	if err := rsa.VerifyPKCS1v15(&key.PublicKey, crypto.SHA1, digest[:], signature); err != nil {
		t.Fatalf("signature does not verify: %v", err)
	}

	// Подпись считается по байтам политики: другая политика не проходит
	otherDigest := sha1.Sum([]byte(policy + " "))
	if err := rsa.VerifyPKCS1v15(&key.PublicKey, crypto.SHA1, otherDigest[:], signature); err == nil {
		t.Fatal("signature verified against a different policy")
	}
}

func TestEncodeURLSafeAlphabet(t *testing.T) {
	// Байты подобраны так, чтобы стандартный base64 дал и '+', и '/',
	// и padding '='
	value := []byte{0xfb, 0xff, 0xfe, 0x01}
	encoded := EncodeURLSafe(value)

	if strings.ContainsAny(encoded, "+/=") {
		t.Fatalf("encoded value contains URL-unsafe characters: %s", encoded)
	}

	decoded, err := DecodeURLSafe(encoded)
	if err != nil {
		t.Fatalf("DecodeURLSafe: %v", err)
	}
	if string(decoded) != string(value) {
		t.Fatalf("round trip mismatch: got %v, want %v", decoded, value)
	}
}

func TestSignedCookies(t *testing.T) {
	key := testRSAKey(t)

	cookies, err := SignedCookies("KEYPAIRID123", key, 1700000000, "https://cdn.example.com/*", 0, "")
	if err != nil {
		t.Fatalf("SignedCookies: %v", err)
	}

	if cookies[CookieKeyPairID] != "KEYPAIRID123" {
		t.Errorf("key pair cookie = %q", cookies[CookieKeyPairID])
	}
	if cookies[CookiePolicy] == "" || cookies[CookieSignature] == "" {
		t.Fatal("policy or signature cookie is empty")
	}

	// Политика и подпись должны сходиться после раскодирования
	policy, err := DecodeURLSafe(cookies[CookiePolicy])
	if err != nil {
		t.Fatalf("decode policy: %v", err)
	}
	signature, err := DecodeURLSafe(cookies[CookieSignature])
	if err != nil {
		t.Fatalf("decode signature: %v", err)
	}
	digest := sha1.Sum(policy)
	if err := rsa.VerifyPKCS1v15(&key.PublicKey, crypto.SHA1, digest[:], signature); err != nil {
		t.Fatalf("cookie signature does not verify: %v", err)
	}
}

func TestParsePrivateKeyPKCS1AndPKCS8(t *testing.T) {
	key := testRSAKey(t)

	pkcs1 := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	parsed, err := ParsePrivateKey(pkcs1)
	if err != nil {
		t.Fatalf("ParsePrivateKey(PKCS1): %v", err)
	}
	if parsed.N.Cmp(key.N) != 0 {
		t.Fatal("PKCS1 parsed key does not match original")
	}

	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatalf("MarshalPKCS8PrivateKey: %v", err)
	}
	pkcs8 := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})
	parsed, err = ParsePrivateKey(pkcs8)
	if err != nil {
		t.Fatalf("ParsePrivateKey(PKCS8): %v", err)
	}
	if parsed.N.Cmp(key.N) != 0 {
		t.Fatal("PKCS8 parsed key does not match original")
	}

	if _, err := ParsePrivateKey([]byte("not a pem")); err == nil {
		t.Fatal("ParsePrivateKey accepted garbage input")
	}
}
