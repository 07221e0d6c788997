package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTokens() *Tokens {
	return NewTokens("device-secret", "admin-secret", 365*24*time.Hour, 7*24*time.Hour)
}

func TestDeviceTokenRoundtrip(t *testing.T) {
	tokens := newTestTokens()

	signed, err := tokens.IssueDeviceToken("dev-1", "android-abc")
	require.NoError(t, err)
	require.NotEmpty(t, signed)

	claims, err := tokens.VerifyDeviceToken(signed)
	require.NoError(t, err)
	assert.Equal(t, "dev-1", claims.DeviceID)
	assert.Equal(t, "android-abc", claims.AndroidID)
}

func TestAdminTokenRoundtrip(t *testing.T) {
	tokens := newTestTokens()

	resp, err := tokens.IssueAdminToken("admin-1", "admin@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Greater(t, resp.ExpiresIn, int64(0))

	claims, err := tokens.VerifyAdminToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "admin-1", claims.AdminID)
	assert.Equal(t, "admin@example.com", claims.Email)
}

func TestVerifyStripsBearerPrefix(t *testing.T) {
	tokens := newTestTokens()

	signed, err := tokens.IssueDeviceToken("dev-1", "android-abc")
	require.NoError(t, err)

	claims, err := tokens.VerifyDeviceToken("Bearer " + signed)
	require.NoError(t, err)
	assert.Equal(t, "dev-1", claims.DeviceID)
}

func TestWrongSecretRejected(t *testing.T) {
	tokens := newTestTokens()
	other := NewTokens("other-device-secret", "other-admin-secret", time.Hour, time.Hour)

	signed, err := tokens.IssueDeviceToken("dev-1", "android-abc")
	require.NoError(t, err)

	_, err = other.VerifyDeviceToken(signed)
	assert.Error(t, err)
}

// Токены не взаимозаменяемы между периметрами: секреты разные.
func TestCrossPerimeterTokensRejected(t *testing.T) {
	tokens := newTestTokens()

	deviceToken, err := tokens.IssueDeviceToken("dev-1", "android-abc")
	require.NoError(t, err)
	_, err = tokens.VerifyAdminToken(deviceToken)
	assert.Error(t, err)

	adminResp, err := tokens.IssueAdminToken("admin-1", "admin@example.com")
	require.NoError(t, err)
	_, err = tokens.VerifyDeviceToken(adminResp.AccessToken)
	assert.Error(t, err)
}

func TestExpiredTokenRejected(t *testing.T) {
	expired := NewTokens("device-secret", "admin-secret", -time.Hour, -time.Hour)

	signed, err := expired.IssueDeviceToken("dev-1", "android-abc")
	require.NoError(t, err)

	_, err = expired.VerifyDeviceToken(signed)
	assert.Error(t, err)
}

func TestGarbageTokenRejected(t *testing.T) {
	tokens := newTestTokens()

	_, err := tokens.VerifyDeviceToken("not-a-jwt")
	assert.Error(t, err)

	_, err = tokens.VerifyAdminToken("")
	assert.Error(t, err)
}
