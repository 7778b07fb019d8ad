package service

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-space-scheduler/internal/models"
	appErrors "github.com/noah-isme/sma-space-scheduler/pkg/errors"
)

func TestTokenServiceRoundTrip(t *testing.T) {
	svc := NewTokenService("secret")
	token, err := svc.Issue("admin-1", models.RoleAdmin, time.Minute)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "admin-1", claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)
}

func TestTokenServiceRejects(t *testing.T) {
	svc := NewTokenService("secret")

	foreign, err := NewTokenService("other").Issue("admin-1", models.RoleAdmin, time.Minute)
	require.NoError(t, err)
	_, err = svc.ValidateToken(foreign)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))

	expired, err := svc.Issue("admin-1", models.RoleAdmin, -time.Minute)
	require.NoError(t, err)
	_, err = svc.ValidateToken(expired)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))

	roleless, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &models.JWTClaims{UserID: "u"}).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = svc.ValidateToken(roleless)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, &models.JWTClaims{UserID: "u", Role: models.RoleAdmin}).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = svc.ValidateToken(hs512)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))
}
