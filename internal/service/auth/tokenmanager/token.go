package tokenmanager

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/adriandotdev/pnc-topup/internal/apperrors"
	"github.com/adriandotdev/pnc-topup/internal/models"
)

const (
	defaultAccessTokenTTL = 15 * time.Minute
	defaultSigningMethod  = "HS256"
	defaultIssuer         = "parkncharge"

	audience    = "parkncharge-app"
	tokenType   = "Bearer"
	serviceUser = "serv"
)

type UserData struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	RoleID   int    `json:"role_id"`
	Role     string `json:"role"`
}

type AccessTokenClaims struct {
	jwt.RegisteredClaims
	Type string   `json:"typ"`
	User string   `json:"usr"`
	Data UserData `json:"data"`
}

func (c AccessTokenClaims) Validate() error {
	if c.Type != tokenType || c.User != serviceUser {
		return errors.New("not an access token")
	}
	if c.Data.ID == 0 {
		return errors.New("access token without user")
	}
	return nil
}

// Token manager with sensible default
type Config struct {
	// Secret key to sign access token
	// Required to be set
	SecretKey string

	// JWT MAC (Message Authentication Code) algorithm
	// If not set than default is used
	Alg string

	// If not set than default is used
	AccessTTL time.Duration
	Issuer    string
}

type TokenManager struct {
	// Secret key to sign access token
	key string

	// JWT MAC (Message Authentication Code) algorithm
	alg jwt.SigningMethod

	accessTTL time.Duration
	issuer    string
}

func New(cfg Config) (*TokenManager, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("secret key must not be empty")
	}

	if cfg.Alg == "" {
		cfg.Alg = defaultSigningMethod
	}
	alg := jwt.GetSigningMethod(cfg.Alg)
	if _, ok := alg.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unsupported signing method %q", cfg.Alg)
	}

	if cfg.AccessTTL == 0 {
		cfg.AccessTTL = defaultAccessTokenTTL
	}
	if cfg.Issuer == "" {
		cfg.Issuer = defaultIssuer
	}

	return &TokenManager{
		key:       cfg.SecretKey,
		alg:       alg,
		accessTTL: cfg.AccessTTL,
		issuer:    cfg.Issuer,
	}, nil
}

// Issue signs access token for the user
func (m *TokenManager) Issue(user models.User) (models.IssuedToken, error) {
	now := time.Now().Truncate(time.Second)
	expiresAt := now.Add(m.accessTTL)

	token := jwt.NewWithClaims(
		m.alg,
		AccessTokenClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				ID:        uuid.NewString(),
				Issuer:    m.issuer,
				Audience:  jwt.ClaimStrings{audience},
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(expiresAt),
			},
			Type: tokenType,
			User: serviceUser,
			Data: UserData{
				ID:       user.ID,
				Username: user.Username,
				RoleID:   user.RoleID,
				Role:     user.Role,
			},
		},
	)
	access, err := token.SignedString([]byte(m.key))
	if err != nil {
		return models.IssuedToken{}, fmt.Errorf("error while signing access token. Err: %w", err)
	}

	return models.IssuedToken{Value: access, ExpiresAt: expiresAt}, nil
}

// Parse and validate access token
// Expired token is apperrors.ErrTokenExpired, any other problem is apperrors.ErrUnauthorized
func (m *TokenManager) ParseAccess(_ context.Context, access string) (models.User, error) {
	claims := &AccessTokenClaims{}

	_, err := jwt.ParseWithClaims(
		access,
		claims,
		func(t *jwt.Token) (any, error) {
			return []byte(m.key), nil
		},
		jwt.WithValidMethods([]string{m.alg.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
	)

	switch {
	case err == nil:
		return models.User{
			ID:       claims.Data.ID,
			Username: claims.Data.Username,
			RoleID:   claims.Data.RoleID,
			Role:     claims.Data.Role,
		}, nil
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return models.User{}, fmt.Errorf("%w: %w", apperrors.ErrUnauthorized, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return models.User{}, fmt.Errorf("%w: %w", apperrors.ErrTokenExpired, err)
	default:
		return models.User{}, fmt.Errorf("%w: %w", apperrors.ErrUnauthorized, err)
	}
}
