// Package middleware содержит промежуточные обработчики для логирования,
// восстановления после паники и rate-limiting.
package middleware

import (
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/resource-bot/internal/chat"
	"serotonyl.ru/resource-bot/internal/common"
)

// LogMessage логирует входящее сообщение.
// Записывает: guild_id, channel_id, user_id, число упоминаний, текст (первые 50 символов).
func LogMessage(msg chat.Message) {
	text := msg.Content
	if short := common.TruncateRunes(text, 50); short != text {
		text = short + "..."
	}

	log.WithFields(log.Fields{
		"guild_id":   msg.GuildID,
		"channel_id": msg.ChannelID,
		"user_id":    msg.Author.ID,
		"mentions":   len(msg.Mentions),
		"text":       text,
	}).Debug("Входящее сообщение")
}

// LogInteraction логирует слэш-команду или нажатие кнопки.
func LogInteraction(name, guildID, userID string) {
	log.WithFields(log.Fields{
		"guild_id": guildID,
		"user_id":  userID,
		"command":  name,
	}).Debug("Входящая команда")
}
