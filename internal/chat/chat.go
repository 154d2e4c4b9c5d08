// Package chat описывает платформенно-независимые типы событий чата.
// Адаптер Discord (internal/bot) переводит события discordgo в эти структуры,
// а фичи работают только с ними.
package chat

import "time"

// User — пользователь платформы.
type User struct {
	ID          string
	DisplayName string
	Bot         bool
}

// Mention — упоминание пользователя в тексте (<@id>).
func (u User) Mention() string {
	return "<@" + u.ID + ">"
}

// Member — участник гильдии вместе с положением в иерархии ролей.
type Member struct {
	User
	// TopRolePosition — позиция высшей роли (0 — только @everyone)
	TopRolePosition int
	IsOwner         bool
}

// Outranks — может ли участник модерировать other.
// Владельца гильдии не модерирует никто, сам владелец модерирует всех.
func (m Member) Outranks(other Member) bool {
	if other.IsOwner {
		return false
	}
	if m.IsOwner {
		return true
	}
	return m.TopRolePosition > other.TopRolePosition
}

// Message — входящее сообщение в канале гильдии.
type Message struct {
	ID          string
	GuildID     string
	ChannelID   string
	ChannelName string
	Author      User
	Mentions    []User
	Content     string
}

// Permissions — права пользователя в гильдии.
type Permissions struct {
	Administrator   bool
	ModerateMembers bool
	KickMembers     bool
	BanMembers      bool
	ManageMessages  bool
	ManageNicknames bool
	ChangeNickname  bool
}

// Actor — пользователь, вызвавший команду.
type Actor struct {
	Member
	GuildID     string
	GuildName   string
	Permissions Permissions
}

// Notice — сообщение бота в канал. DeleteAfter > 0 — удалить через это время.
type Notice struct {
	Text        string
	DeleteAfter time.Duration
}
