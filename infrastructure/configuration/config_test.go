package configuration

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestConfigurationDefaults(t *testing.T) {
	t.Run("configuration_struct_exists", func(t *testing.T) {
		require.NotNil(t, &C, "Configuration should not be nil")
		require.NotNil(t, &C.App, "App configuration should exist")
		require.NotNil(t, &C.Database, "Database configuration should exist")
	})

	t.Run("credential_and_publish_defaults", func(t *testing.T) {
		require.Equal(t, 5*time.Minute, C.Credential.RefreshThreshold())
		require.Equal(t, 5*time.Minute, C.Credential.TTLMargin())
		require.Equal(t, 10*time.Second, C.Credential.LockTTL())
		require.Equal(t, 3, C.Credential.LockRetryCount)
		require.Equal(t, 3, C.Publish.MaxAttempts)
		require.Equal(t, 2*time.Second, C.Publish.BackoffBase())
		require.Equal(t, 10*time.Second, C.Publish.HTTPTimeout())
	})
}
