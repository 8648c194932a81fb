package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/adriandotdev/pnc-topup/internal/apperrors"
	"github.com/adriandotdev/pnc-topup/internal/models"
	"github.com/adriandotdev/pnc-topup/internal/repository"
)

const (
	defaultAccessHeaderName = "Authorization"
	defaultAccessAuthScheme = "Bearer"
)

// Interface to create or compare user password hashes
type PasswordHasher interface {
	// Generate Hash from password
	Hash(password string) (string, error)

	// Compare known hashedPassword and user provided password
	// Must be protected against timing attacks
	Compare(hashedPassword string, password string) error
}

type TokenParser interface {
	ParseAccess(ctx context.Context, access string) (models.User, error)
}

type Config struct {
	// Hasher for api client secrets. BcryptHasher if not set
	Hasher PasswordHasher

	// Where access token is read from. Defaults to 'Authorization: Bearer <token>'
	AccessHeaderName string
	AccessAuthScheme string
}

// Auth service
type AuthService struct {
	tokens  TokenParser
	hasher  PasswordHasher
	clients repository.ClientRepo

	accessHeaderName string
	accessAuthScheme string
}

func NewService(cfg Config, tokens TokenParser, clients repository.ClientRepo) (*AuthService, error) {
	if cfg.Hasher == nil {
		cfg.Hasher = BcryptHasher{}
	}
	if cfg.AccessHeaderName == "" {
		cfg.AccessHeaderName = defaultAccessHeaderName
	}
	if cfg.AccessAuthScheme == "" {
		cfg.AccessAuthScheme = defaultAccessAuthScheme
	}

	return &AuthService{
		tokens:           tokens,
		hasher:           cfg.Hasher,
		clients:          clients,
		accessHeaderName: cfg.AccessHeaderName,
		accessAuthScheme: cfg.AccessAuthScheme,
	}, nil
}

// Auth returns user from request access token
// Missing or malformed header is apperrors.ErrUnauthorized
func (s *AuthService) Auth(ctx context.Context, r *http.Request) (models.User, error) {
	header := r.Header.Get(s.accessHeaderName)
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, s.accessAuthScheme) || strings.TrimSpace(token) == "" {
		return models.User{}, apperrors.ErrUnauthorized
	}

	return s.tokens.ParseAccess(ctx, strings.TrimSpace(token))
}

// AuthBasic returns api client from request basic credentials
// Any failure is apperrors.ErrInvalidBasicToken
func (s *AuthService) AuthBasic(ctx context.Context, r *http.Request) (models.Client, error) {
	username, password, ok := r.BasicAuth()
	if !ok || username == "" {
		return models.Client{}, apperrors.ErrInvalidBasicToken
	}

	client, err := s.clients.GetClientByUsername(ctx, username)
	switch {
	case errors.Is(err, apperrors.ErrClientNotFound):
		return models.Client{}, apperrors.ErrInvalidBasicToken
	case err != nil:
		return models.Client{}, err
	}

	if err := s.hasher.Compare(client.PasswordHash, password); err != nil {
		return models.Client{}, apperrors.ErrInvalidBasicToken
	}

	return client, nil
}

// RegisterClient stores api client with hashed secret
func (s *AuthService) RegisterClient(ctx context.Context, username string, password string) (models.Client, error) {
	if username == "" || password == "" {
		return models.Client{}, errors.New("client username and password must not be empty")
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return models.Client{}, fmt.Errorf("can't use this as password, error=%w", err)
	}

	return s.clients.CreateClient(ctx, username, hash)
}
