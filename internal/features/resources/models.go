// Package resources реализует учёт благодарностей (ресурсов) участникам гильдии.
// models.go описывает документы профиля пользователя и агрегата канала.
package resources

import "sort"

// Коллекции документного хранилища.
const (
	CollectionProfiles = "resources"
	CollectionChannels = "channels"
)

// ChannelCount — счётчик пользователя в одном канале.
type ChannelCount struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// UserProfile — профиль пользователя в гильдии. Ключ: {guild}_{user}.
// Count == сумма Channels[*].Count == сумма GivenBy[*].
type UserProfile struct {
	GuildID  string                  `json:"guild_id"`
	UserID   string                  `json:"user_id"`
	Count    int64                   `json:"count"`
	Channels map[string]ChannelCount `json:"channels"`
	GivenBy  map[string]int64        `json:"given_by"`
}

// ChannelAggregate — агрегат канала. Ключ: {guild}_{channel}.
// TotalResources == сумма Users[*].
type ChannelAggregate struct {
	GuildID        string           `json:"guild_id"`
	ChannelID      string           `json:"channel_id"`
	ChannelName    string           `json:"channel_name"`
	TotalResources int64            `json:"total_resources"`
	Users          map[string]int64 `json:"users"`
}

// RankedEntry — строка рейтинга.
type RankedEntry struct {
	UserID string `json:"user_id"`
	Count  int64  `json:"count"`
}

// ChannelStat — канал в профиле, для вывода топа каналов.
type ChannelStat struct {
	ChannelID string
	Name      string
	Count     int64
}

func emptyProfile(guildID, userID string) UserProfile {
	return UserProfile{
		GuildID:  guildID,
		UserID:   userID,
		Channels: map[string]ChannelCount{},
		GivenBy:  map[string]int64{},
	}
}

// normalize заменяет nil-карты пустыми (документ мог прийти без полей).
func (p *UserProfile) normalize() {
	if p.Channels == nil {
		p.Channels = map[string]ChannelCount{}
	}
	if p.GivenBy == nil {
		p.GivenBy = map[string]int64{}
	}
}

func (a *ChannelAggregate) normalize() {
	if a.Users == nil {
		a.Users = map[string]int64{}
	}
}

// TopChannels возвращает до n каналов с наибольшим числом благодарностей.
func (p UserProfile) TopChannels(n int) []ChannelStat {
	out := make([]ChannelStat, 0, len(p.Channels))
	for id, c := range p.Channels {
		out = append(out, ChannelStat{ChannelID: id, Name: c.Name, Count: c.Count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].ChannelID < out[j].ChannelID
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// TopGivers возвращает до n пользователей, чаще всех благодаривших владельца профиля.
func (p UserProfile) TopGivers(n int) []RankedEntry {
	return rank(p.GivenBy, n)
}

// rank сортирует карту user -> count: по убыванию count, при равенстве по user id.
func rank(counts map[string]int64, limit int) []RankedEntry {
	out := make([]RankedEntry, 0, len(counts))
	for id, c := range counts {
		out = append(out, RankedEntry{UserID: id, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].UserID < out[j].UserID
	})
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
