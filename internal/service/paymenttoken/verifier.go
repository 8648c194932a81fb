package paymenttoken

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"os"

	"github.com/golang-jwt/jwt/v5"

	"github.com/adriandotdev/pnc-topup/internal/apperrors"
)

const (
	DefaultIssuer = "parkncharge"

	audience    = "parkncharge-app"
	subject     = "parkncharge"
	tokenType   = "Bearer"
	serviceUser = "serv"
)

// Claims gateways put into redirect tokens
type Claims struct {
	jwt.RegisteredClaims
	Type string `json:"typ"`
	User string `json:"usr"`
}

// Validate is called by jwt parser after registered claims are checked
func (c Claims) Validate() error {
	if c.Type != tokenType {
		return fmt.Errorf("unexpected token type %q", c.Type)
	}
	if c.User != serviceUser {
		return fmt.Errorf("unexpected token user %q", c.User)
	}
	return nil
}

type Config struct {
	// RSA public key in PEM
	PublicKey []byte

	// Expected 'iss'. Empty disables the check
	Issuer string
}

// Verifier checks RS256 tokens the payment gateways redirect users with
type Verifier struct {
	key    *rsa.PublicKey
	parser *jwt.Parser
}

func New(cfg Config) (*Verifier, error) {
	key, err := jwt.ParseRSAPublicKeyFromPEM(cfg.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("invalid payment token public key. Err: %w", err)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithAudience(audience),
		jwt.WithSubject(subject),
		jwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}

	return &Verifier{
		key:    key,
		parser: jwt.NewParser(opts...),
	}, nil
}

// NewFromFile reads public key PEM from path
func NewFromFile(path string, issuer string) (*Verifier, error) {
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("can't read payment token public key. Err: %w", err)
	}

	return New(Config{PublicKey: pem, Issuer: issuer})
}

// Verify returns apperrors.ErrTokenExpired for expired but otherwise valid token
// and apperrors.ErrInvalidPaymentToken for anything else
func (v *Verifier) Verify(token string) error {
	_, err := v.parser.ParseWithClaims(token, &Claims{}, func(*jwt.Token) (any, error) {
		return v.key, nil
	})

	switch {
	case err == nil:
		return nil
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return fmt.Errorf("%w: %w", apperrors.ErrInvalidPaymentToken, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %w", apperrors.ErrTokenExpired, err)
	default:
		return fmt.Errorf("%w: %w", apperrors.ErrInvalidPaymentToken, err)
	}
}
