package testutil

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

// Generate RSA key for signing payment tokens in tests
func RSAKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err, "rsa key must be generated")
	return key
}

// Public key encoded as PEM, the way gateways share it
func PublicKeyPEM(t *testing.T, key *rsa.PrivateKey) []byte {
	t.Helper()

	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err, "public key must be marshaled")
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})
}

// Write public key PEM to temporary file and return its path
func WritePublicKey(t *testing.T, key *rsa.PrivateKey) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "public_key.pem")
	err := os.WriteFile(path, PublicKeyPEM(t, key), 0o600)
	require.NoError(t, err, "public key file must be written")
	return path
}

// Claims accepted by the payment token verifier with default settings
func PaymentClaims(ttl time.Duration) jwt.MapClaims {
	now := time.Now()
	return jwt.MapClaims{
		"iss": "parkncharge",
		"aud": "parkncharge-app",
		"sub": "parkncharge",
		"typ": "Bearer",
		"usr": "serv",
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
}

// Sign claims with RS256
func SignPaymentToken(t *testing.T, key *rsa.PrivateKey, claims jwt.MapClaims) string {
	t.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	require.NoError(t, err, "payment token must be signed")
	return token
}
