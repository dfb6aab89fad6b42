package settings_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"vitrine/internal/settings"
	"vitrine/internal/testsupport"
)

func TestSettingsStore(t *testing.T) {
	dbManager, _ := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()
	require.NoError(t, settings.SetupDefaultSettings(db))

	t.Run("defaults exist", func(t *testing.T) {
		value, err := settings.GetSetting(db, settings.KeyExcludedIPs)
		require.NoError(t, err)
		assert.Equal(t, "", value)
	})

	t.Run("create then update", func(t *testing.T) {
		require.NoError(t, settings.CreateOrUpdateSetting(db, "site_title", "Portfolio"))
		require.NoError(t, settings.CreateOrUpdateSetting(db, "site_title", "Studio"))

		value, err := settings.GetSetting(db, "site_title")
		require.NoError(t, err)
		assert.Equal(t, "Studio", value)
	})

	t.Run("defaults do not overwrite", func(t *testing.T) {
		require.NoError(t, settings.CreateOrUpdateSetting(db, settings.KeyExcludedIPs, "1.2.3.4"))
		require.NoError(t, settings.SetupDefaultSettings(db))

		value, err := settings.GetSetting(db, settings.KeyExcludedIPs)
		require.NoError(t, err)
		assert.Equal(t, "1.2.3.4", value)
	})

	t.Run("missing key", func(t *testing.T) {
		_, err := settings.GetSetting(db, "nope")
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	})
}

func TestParseIPList(t *testing.T) {
	assert.Equal(t, []string{"192.168.1.100", "10.0.0.1"}, settings.ParseIPList(" 192.168.1.100 , 10.0.0.1 ,"))
	assert.Empty(t, settings.ParseIPList(""))
}

func TestIPExclusions(t *testing.T) {
	dbManager, logger := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()

	exclusions := settings.NewIPExclusions(db, logger)

	t.Run("missing setting excludes nothing", func(t *testing.T) {
		excluded, err := exclusions.IsExcluded("192.168.1.100")
		require.NoError(t, err)
		assert.False(t, excluded)
	})

	t.Run("exact matches after refresh", func(t *testing.T) {
		require.NoError(t, settings.CreateOrUpdateSetting(db, settings.KeyExcludedIPs, " 192.168.1.100 , 10.0.0.1 "))
		exclusions.Refresh()

		excluded, err := exclusions.IsExcluded("192.168.1.100")
		require.NoError(t, err)
		assert.True(t, excluded)

		excluded, err = exclusions.IsExcluded("10.0.0.1")
		require.NoError(t, err)
		assert.True(t, excluded)

		excluded, err = exclusions.IsExcluded("192.168.1.101")
		require.NoError(t, err)
		assert.False(t, excluded)
	})
}
