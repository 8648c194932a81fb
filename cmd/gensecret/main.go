// Command gensecret prints keys for local setup: access token secret,
// optionally RSA key pair for payment tokens and a driver access token.
package main

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/pflag"

	"github.com/adriandotdev/pnc-topup/internal/models"
	"github.com/adriandotdev/pnc-topup/internal/service/auth/tokenmanager"
)

const (
	SecretKeyBytesLen = 32
	rsaKeyBits        = 2048
)

type options struct {
	keyDir string

	// Issue access token for the user if set
	userID   int64
	username string
	secret   string
	ttl      time.Duration
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "gensecret: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	var o options

	fs := pflag.NewFlagSet("gensecret", pflag.ContinueOnError)
	fs.StringVar(&o.keyDir, "rsa-dir", "", "Write payment token RSA key pair (PEM) into the directory")
	fs.Int64Var(&o.userID, "user-id", 0, "Issue access token for the driver with the id")
	fs.StringVar(&o.username, "username", "driver", "Username put into the access token")
	fs.StringVar(&o.secret, "secret", "", "Sign access token with the secret instead of a new one")
	fs.DurationVar(&o.ttl, "ttl", 24*time.Hour, "Access token TTL")
	if err := fs.Parse(args); err != nil {
		return err
	}

	secret := o.secret
	if secret == "" {
		b := make([]byte, SecretKeyBytesLen)
		if _, err := rand.Read(b); err != nil {
			return fmt.Errorf("error while generating secret key: %w", err)
		}
		secret = hex.EncodeToString(b)
		fmt.Fprintf(out, "JWT_ACCESS_KEY=%s\n", secret)
	}

	if o.keyDir != "" {
		public, err := writeKeyPair(o.keyDir)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "PAYMENT_TOKEN_PUBLIC_KEY=%s\n", public)
	}

	if o.userID != 0 {
		tm, err := tokenmanager.New(tokenmanager.Config{SecretKey: secret, AccessTTL: o.ttl})
		if err != nil {
			return err
		}
		token, err := tm.Issue(models.User{ID: o.userID, Username: o.username, Role: models.UserTypeDriver})
		if err != nil {
			return fmt.Errorf("error while issuing access token: %w", err)
		}
		fmt.Fprintf(out, "ACCESS_TOKEN=%s\n", token.Value)
	}

	return nil
}

// writeKeyPair writes private.pem and public.pem and returns path to the public one
func writeKeyPair(dir string) (string, error) {
	key, err := rsa.GenerateKey(rand.Reader, rsaKeyBits)
	if err != nil {
		return "", fmt.Errorf("error while generating rsa key: %w", err)
	}

	publicDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return "", err
	}

	files := []struct {
		name  string
		block *pem.Block
	}{
		{"private.pem", &pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)}},
		{"public.pem", &pem.Block{Type: "PUBLIC KEY", Bytes: publicDER}},
	}

	for _, f := range files {
		err := os.WriteFile(filepath.Join(dir, f.name), pem.EncodeToMemory(f.block), 0o600)
		if err != nil {
			return "", fmt.Errorf("error while writing %s: %w", f.name, err)
		}
	}

	return filepath.Join(dir, "public.pem"), nil
}
