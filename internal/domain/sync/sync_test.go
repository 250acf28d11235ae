package sync

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParsePlatform(t *testing.T) {
	for _, platform := range AllPlatforms() {
		got, err := ParsePlatform(platform.String())
		assert.NoError(t, err)
		assert.Equal(t, platform, got)

		// Lowercase route parameters parse too.
		got, err = ParsePlatform(strings.ToLower(platform.String()))
		assert.NoError(t, err)
		assert.Equal(t, platform, got)
	}

	_, err := ParsePlatform("MERCADOLIVRE")
	assert.ErrorIs(t, err, ErrInvalidPlatform)
	_, err = ParsePlatform("")
	assert.ErrorIs(t, err, ErrInvalidPlatform)
}

func TestIntegration_Disconnect_ClearsCredentials(t *testing.T) {
	key := "ciphertext-a"
	token := "ciphertext-b"
	expiry := time.Now().Add(time.Hour)
	integ := Integration{
		Status:      IntegrationConnected,
		APIKey:      &key,
		AccessToken: &token,
		// a disconnect after a failed sync also clears the failure marker
		SyncStatus:     SyncStateFailed,
		LastError:      "HTTP 502",
		TokenExpiresAt: &expiry,
	}

	integ.Disconnect()

	assert.Equal(t, IntegrationDisconnected, integ.Status)
	assert.Nil(t, integ.APIKey)
	assert.Nil(t, integ.APISecret)
	assert.Nil(t, integ.AccessToken)
	assert.Nil(t, integ.RefreshToken)
	assert.Nil(t, integ.TokenExpiresAt)
	assert.Equal(t, SyncStateIdle, integ.SyncStatus)
	assert.Empty(t, integ.LastError)
	assert.False(t, integ.IsConnected())
}

func TestIntegration_TokenExpiresWithin(t *testing.T) {
	var integ Integration
	assert.False(t, integ.TokenExpiresWithin(time.Hour), "no expiry recorded")

	soon := time.Now().Add(10 * time.Minute)
	integ.TokenExpiresAt = &soon
	assert.True(t, integ.TokenExpiresWithin(time.Hour))
	assert.False(t, integ.TokenExpiresWithin(time.Minute))
}

func TestSyncOutcome(t *testing.T) {
	success := Success(PlatformShopify, 42)
	assert.True(t, success.IsSuccess())
	assert.Equal(t, 42, success.Synced)
	assert.Empty(t, success.Err)

	nc := NotConnected(PlatformFacebookAds)
	assert.True(t, nc.IsNotConnected())
	assert.Equal(t, "Facebook Ads not connected", nc.Err)

	failure := Failure(PlatformYampi, "HTTP 500")
	assert.False(t, failure.IsSuccess())
	assert.False(t, failure.IsNotConnected())
	assert.Equal(t, "HTTP 500", failure.Err)
}
