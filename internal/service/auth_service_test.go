package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/stemsi/analytics-middletier/internal/config"
	"github.com/stemsi/analytics-middletier/internal/model"
)

func newAuth() (*AuthService, *fakeClientRepo) {
	cfg := &config.Config{
		JWTSecret:  "test-secret",
		JWTExpiry:  time.Hour,
		BcryptCost: bcrypt.MinCost,
	}
	repo := newFakeClientRepo()
	return NewAuthService(cfg, repo), repo
}

func TestIssueAndValidateToken(t *testing.T) {
	ctx := context.Background()
	svc, _ := newAuth()

	client, err := svc.CreateClient(ctx, "grand-bend-etl", "Grand Bend ETL", "correct-horse-battery",
		[]string{string(model.PermissionAnalyticsRead)})
	require.NoError(t, err)
	assert.NotEqual(t, "correct-horse-battery", client.SecretHash)

	resp, err := svc.IssueToken(ctx, "grand-bend-etl", "correct-horse-battery")
	require.NoError(t, err)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, 3600, resp.ExpiresIn)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "grand-bend-etl", claims.ClientID)
	assert.True(t, claims.HasPermission(string(model.PermissionAnalyticsRead)))
	assert.False(t, claims.HasPermission(string(model.PermissionFixturesStage)))
}

func TestIssueTokenRejectsBadCredentials(t *testing.T) {
	ctx := context.Background()
	svc, _ := newAuth()
	_, err := svc.CreateClient(ctx, "etl", "ETL", "correct-horse-battery", nil)
	require.NoError(t, err)

	_, err = svc.IssueToken(ctx, "etl", "wrong-secret-value")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.IssueToken(ctx, "nobody", "correct-horse-battery")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestCreateClientRejectsUnknownPermission(t *testing.T) {
	svc, repo := newAuth()
	_, err := svc.CreateClient(context.Background(), "etl", "ETL", "correct-horse-battery", []string{"analytics:write"})
	assert.ErrorIs(t, err, ErrUnknownPermission)
	assert.Empty(t, repo.clients)
}

func TestValidateTokenRejectsForeignSignature(t *testing.T) {
	ctx := context.Background()
	svc, _ := newAuth()
	_, err := svc.CreateClient(ctx, "etl", "ETL", "correct-horse-battery", nil)
	require.NoError(t, err)
	resp, err := svc.IssueToken(ctx, "etl", "correct-horse-battery")
	require.NoError(t, err)

	other := NewAuthService(&config.Config{JWTSecret: "another-secret", JWTExpiry: time.Hour}, newFakeClientRepo())
	_, err = other.ValidateToken(resp.AccessToken)
	assert.Error(t, err)
}
