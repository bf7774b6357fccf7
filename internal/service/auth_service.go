package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stemsi/analytics-middletier/internal/config"
	"github.com/stemsi/analytics-middletier/internal/model"
	"github.com/stemsi/analytics-middletier/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

// Claims extends JWT standard claims with the client's permissions.
type Claims struct {
	jwt.RegisteredClaims
	ClientID    string   `json:"client_id"`
	Permissions []string `json:"permissions"`
}

// HasPermission reports whether the token grants code.
func (c *Claims) HasPermission(code string) bool {
	for _, p := range c.Permissions {
		if p == code {
			return true
		}
	}
	return false
}

// AuthService issues and validates client-credential tokens.
type AuthService struct {
	cfg        *config.Config
	clientRepo repository.APIClientRepository
}

// NewAuthService creates a new AuthService.
func NewAuthService(cfg *config.Config, clientRepo repository.APIClientRepository) *AuthService {
	return &AuthService{cfg: cfg, clientRepo: clientRepo}
}

// HashSecret hashes a client secret with the configured bcrypt cost.
func (s *AuthService) HashSecret(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), s.cfg.BcryptCost)
	return string(hash), err
}

// CreateClient registers a client with a hashed secret.
func (s *AuthService) CreateClient(ctx context.Context, clientID, name, secret string, permissions []string) (*model.APIClient, error) {
	for _, p := range permissions {
		if !model.IsValidPermission(p) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownPermission, p)
		}
	}

	hash, err := s.HashSecret(secret)
	if err != nil {
		return nil, fmt.Errorf("hash secret: %w", err)
	}

	client := &model.APIClient{
		ClientID:    clientID,
		Name:        name,
		SecretHash:  hash,
		Permissions: permissions,
	}
	if err := s.clientRepo.Create(ctx, client); err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}
	return client, nil
}

// IssueToken exchanges client credentials for a signed token.
func (s *AuthService) IssueToken(ctx context.Context, clientID, secret string) (*model.TokenResponse, error) {
	client, err := s.clientRepo.GetByClientID(ctx, clientID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("load client: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(client.SecretHash), []byte(secret)); err != nil {
		return nil, ErrInvalidCredentials
	}

	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   client.ClientID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWTExpiry)),
		},
		ClientID:    client.ClientID,
		Permissions: client.Permissions,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	return &model.TokenResponse{
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresIn:   int(s.cfg.JWTExpiry.Seconds()),
		Permissions: client.Permissions,
	}, nil
}

// ValidateToken parses and validates a JWT, returning the claims.
func (s *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}

	return claims, nil
}
