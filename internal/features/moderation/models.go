// Package moderation реализует журнал предупреждений и модераторские команды.
// models.go описывает запись предупреждения.
package moderation

import "time"

// Collection — коллекция предупреждений. Ключ: {guild}_{user}_{uuidv7}.
const Collection = "warnings"

// Warning — одно предупреждение.
type Warning struct {
	ID          string    `json:"-"`
	GuildID     string    `json:"guild_id"`
	UserID      string    `json:"user_id"`
	Reason      string    `json:"reason"`
	ModeratorID string    `json:"mod_id"`
	Timestamp   time.Time `json:"timestamp"`
	// CreatedMs — время в миллисекундах, по нему сортируется список
	CreatedMs int64 `json:"created_ms"`
}

// MaxTimeoutMinutes — предел тайм-аута Discord (28 дней).
const MaxTimeoutMinutes = 28 * 24 * 60

// MaxDeleteDays — сколько дней сообщений можно удалить при бане.
const MaxDeleteDays = 7

// DefaultDeleteDays — значение delete_days по умолчанию.
const DefaultDeleteDays = 1

// MaxPurge — максимум сообщений для /clear.
const MaxPurge = 100
