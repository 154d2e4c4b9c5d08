package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"serotonyl.ru/resource-bot/internal/config"
	"serotonyl.ru/resource-bot/internal/features/moderation"
)

func commandNames(cfg *config.Config) []string {
	var names []string
	for _, c := range CommandDefinitions(cfg) {
		names = append(names, c.Name)
	}
	return names
}

func TestCommandDefinitions_FeatureFlags(t *testing.T) {
	cfg := &config.Config{}
	assert.Equal(t, []string{"sync"}, commandNames(cfg))

	cfg.FeatureResourcesEnabled = true
	cfg.FeatureAFKEnabled = true
	names := commandNames(cfg)
	assert.Equal(t, []string{"sync", "rep", "profile", "leaderboard", "afk"}, names)

	cfg.FeatureModerationEnabled = true
	names = commandNames(cfg)
	for _, c := range moderation.Commands {
		assert.Contains(t, names, c)
	}
}

func TestCommandDefinitions_GuildOnly(t *testing.T) {
	cfg := &config.Config{FeatureResourcesEnabled: true, FeatureAFKEnabled: true, FeatureModerationEnabled: true}
	for _, c := range CommandDefinitions(cfg) {
		if assert.NotNil(t, c.DMPermission, c.Name) {
			assert.False(t, *c.DMPermission, c.Name)
		}
	}
}

func TestIsModerationCommand(t *testing.T) {
	assert.True(t, isModerationCommand("ban"))
	assert.True(t, isModerationCommand("clear"))
	assert.False(t, isModerationCommand("rep"))
}
