// Package filters решает, какие события бот вообще обрабатывает.
package filters

import (
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/resource-bot/internal/chat"
)

// GuildFilter пропускает только сообщения людей в разрешённых гильдиях.
type GuildFilter struct {
	allowed map[string]struct{} // пусто — разрешены все гильдии
}

// NewGuildFilter создаёт фильтр. Пустой список — без ограничений.
func NewGuildFilter(allowedGuildIDs []string) *GuildFilter {
	allowed := make(map[string]struct{}, len(allowedGuildIDs))
	for _, id := range allowedGuildIDs {
		allowed[id] = struct{}{}
	}
	return &GuildFilter{allowed: allowed}
}

// AllowGuild — разрешена ли гильдия.
func (f *GuildFilter) AllowGuild(guildID string) bool {
	if guildID == "" {
		return false
	}
	if len(f.allowed) == 0 {
		return true
	}
	_, ok := f.allowed[guildID]
	return ok
}

// CheckAccess — обрабатывать ли сообщение: не бот, не ЛС, гильдия разрешена.
func (f *GuildFilter) CheckAccess(msg chat.Message) bool {
	logger := log.WithFields(log.Fields{
		"component": "GuildFilter",
		"guild_id":  msg.GuildID,
		"user_id":   msg.Author.ID,
	})

	switch {
	case msg.Author.ID == "":
		logger.Warn("deny: message without author")
		return false
	case msg.Author.Bot:
		return false
	case msg.GuildID == "":
		logger.Debug("deny: direct message")
		return false
	case !f.AllowGuild(msg.GuildID):
		logger.Debug("deny: guild not in allow-list")
		return false
	}
	return true
}
