package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("DB_DRIVER", DriverMemory)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, time.Hour, cfg.CooldownWindow)
	assert.Equal(t, 10, cfg.LeaderboardPageSize)
	assert.Equal(t, 60*time.Second, cfg.LeaderboardViewTTL)
	assert.Equal(t, 10*time.Second, cfg.AFKNoticeTTL)
	assert.Equal(t, 5*time.Second, cfg.StorageTimeout)
	assert.True(t, cfg.FeatureResourcesEnabled)
	assert.Empty(t, cfg.AllowedGuildIDs)
	assert.Empty(t, cfg.TriggerWords)
}

func TestLoad_Lists(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("DB_DRIVER", DriverMemory)
	t.Setenv("ADMIN_IDS", "111, 222")
	t.Setenv("ALLOWED_GUILD_IDS", "333")
	t.Setenv("TRIGGER_WORDS", "thanks, cheers ,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"111", "222"}, cfg.AdminIDs)
	assert.Equal(t, []string{"333"}, cfg.AllowedGuildIDs)
	assert.Equal(t, []string{"thanks", "cheers"}, cfg.TriggerWords)
	assert.True(t, cfg.IsAdmin("222"))
	assert.False(t, cfg.IsAdmin("333"))
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing token", func(t *testing.T) {
		t.Setenv("DISCORD_TOKEN", "")
		t.Setenv("DB_DRIVER", DriverMemory)
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("bad admin ids", func(t *testing.T) {
		t.Setenv("DISCORD_TOKEN", "token")
		t.Setenv("DB_DRIVER", DriverMemory)
		t.Setenv("ADMIN_IDS", "abc")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("postgres without password", func(t *testing.T) {
		t.Setenv("DISCORD_TOKEN", "token")
		t.Setenv("DB_DRIVER", DriverPostgres)
		t.Setenv("DB_PASSWORD", "")
		_, err := Load()
		assert.Error(t, err)
	})
}

func TestValidate_PageSize(t *testing.T) {
	cfg := Config{
		DiscordToken:        "token",
		DBDriver:            DriverMemory,
		StorageTimeout:      time.Second,
		BotMaxInflight:      1,
		LeaderboardPageSize: 26,
		LeaderboardViewTTL:  time.Minute,
		RateLimitRequests:   1,
		RateLimitWindow:     time.Minute,
	}
	assert.Error(t, cfg.Validate())

	cfg.LeaderboardPageSize = 25
	assert.NoError(t, cfg.Validate())
}

func TestDatabaseDSN(t *testing.T) {
	cfg := Config{DBUser: "u", DBPassword: "p", DBHost: "h", DBPort: 5432, DBName: "d", DBSSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@h:5432/d?sslmode=disable", cfg.DatabaseDSN())
}
