// Package interaction — общие помощники для слэш-команд и кнопок Discord:
// ответы, разбор опций и сборка chat.Actor / chat.Member из событий discordgo.
package interaction

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/resource-bot/internal/chat"
	"serotonyl.ru/resource-bot/internal/common"
)

// Цвета embed'ов.
const (
	ColorGold    = 0xF1C40F
	ColorBlue    = 0x3498DB
	ColorYellow  = 0xFEE75C
	ColorOrange  = 0xE67E22
	ColorRed     = 0xE74C3C
	ColorDarkRed = 0x992D22
	ColorGreen   = 0x2ECC71
)

func flags(ephemeral bool) discordgo.MessageFlags {
	if ephemeral {
		return discordgo.MessageFlagsEphemeral
	}
	return 0
}

// Respond отвечает на interaction текстом.
func Respond(s *discordgo.Session, i *discordgo.InteractionCreate, content string, ephemeral bool) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   flags(ephemeral),
		},
	})
	if err != nil {
		log.WithError(err).WithField("interaction_id", i.ID).Warn("Не удалось ответить на команду")
	}
}

// Defer откладывает ответ (бот "думает"), дальше — Followup.
func Defer(s *discordgo.Session, i *discordgo.InteractionCreate, ephemeral bool) bool {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: flags(ephemeral)},
	})
	if err != nil {
		log.WithError(err).WithField("interaction_id", i.ID).Warn("Не удалось отложить ответ")
		return false
	}
	return true
}

// DeferUpdate подтверждает нажатие кнопки без нового сообщения.
// Исходное сообщение затем правится через InteractionResponseEdit.
func DeferUpdate(s *discordgo.Session, i *discordgo.InteractionCreate) bool {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredMessageUpdate,
	})
	if err != nil {
		log.WithError(err).WithField("interaction_id", i.ID).Warn("Не удалось подтвердить нажатие")
		return false
	}
	return true
}

// Followup отправляет сообщение после Defer.
func Followup(s *discordgo.Session, i *discordgo.InteractionCreate, params *discordgo.WebhookParams) {
	if _, err := s.FollowupMessageCreate(i.Interaction, true, params); err != nil {
		log.WithError(err).WithField("interaction_id", i.ID).Warn("Не удалось отправить followup")
	}
}

// FollowupText — Followup с текстом.
func FollowupText(s *discordgo.Session, i *discordgo.InteractionCreate, content string, ephemeral bool) {
	Followup(s, i, &discordgo.WebhookParams{Content: content, Flags: flags(ephemeral)})
}

// FollowupEmbed — Followup с embed'ом.
func FollowupEmbed(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) {
	Followup(s, i, &discordgo.WebhookParams{Embeds: []*discordgo.MessageEmbed{embed}})
}

// userFacing — ошибки, текст которых можно показать пользователю как есть.
var userFacing = []error{
	common.ErrSelfAcknowledge,
	common.ErrAcknowledgeBot,
	common.ErrOnCooldown,
	common.ErrNoMoreEntries,
	common.ErrFirstPage,
	common.ErrViewExpired,
	common.ErrNoPermission,
	common.ErrNoPermissionWarnings,
	common.ErrRoleHierarchy,
	common.ErrInvalidDeleteDays,
	common.ErrInvalidPurgeAmount,
	common.ErrInvalidDuration,
	common.ErrInvalidUserID,
	common.ErrEmptyReason,
}

// ErrorText превращает ошибку в сообщение для пользователя. Ошибки проверок
// и прав показываются как есть, всё остальное — fallback.
func ErrorText(err error, fallback string) string {
	for _, known := range userFacing {
		if errors.Is(err, known) {
			return Capitalize(known.Error())
		}
	}
	return fallback
}

// Capitalize делает первую букву заглавной.
func Capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// Options — опции слэш-команды по имени.
type Options map[string]*discordgo.ApplicationCommandInteractionDataOption

// ParseOptions собирает опции команды в map.
func ParseOptions(i *discordgo.InteractionCreate) Options {
	opts := i.ApplicationCommandData().Options
	out := make(Options, len(opts))
	for _, o := range opts {
		out[o.Name] = o
	}
	return out
}

// String — строковая опция или "".
func (o Options) String(name string) string {
	if opt, ok := o[name]; ok {
		return strings.TrimSpace(opt.StringValue())
	}
	return ""
}

// Int — целая опция или def.
func (o Options) Int(name string, def int) int {
	if opt, ok := o[name]; ok {
		return int(opt.IntValue())
	}
	return def
}

// ID — id пользователя/канала из опции или "".
func (o Options) ID(name string) string {
	opt, ok := o[name]
	if !ok {
		return ""
	}
	if v, ok := opt.Value.(string); ok {
		return v
	}
	return ""
}

// permissions раскладывает битовую маску прав.
func permissions(bits int64) chat.Permissions {
	has := func(p int64) bool { return bits&p != 0 }
	admin := has(discordgo.PermissionAdministrator)
	return chat.Permissions{
		Administrator:   admin,
		ModerateMembers: admin || has(discordgo.PermissionModerateMembers),
		KickMembers:     admin || has(discordgo.PermissionKickMembers),
		BanMembers:      admin || has(discordgo.PermissionBanMembers),
		ManageMessages:  admin || has(discordgo.PermissionManageMessages),
		ManageNicknames: admin || has(discordgo.PermissionManageNicknames),
		ChangeNickname:  admin || has(discordgo.PermissionChangeNickname),
	}
}

// User переводит пользователя discordgo.
func User(u *discordgo.User, m *discordgo.Member) chat.User {
	if u == nil {
		return chat.User{}
	}
	name := u.GlobalName
	if name == "" {
		name = u.Username
	}
	if m != nil && m.Nick != "" {
		name = m.Nick
	}
	return chat.User{ID: u.ID, DisplayName: name, Bot: u.Bot}
}

// topRolePosition — позиция высшей роли участника (0 — ролей нет).
func topRolePosition(s *discordgo.Session, guildID string, roleIDs []string) int {
	top := 0
	for _, id := range roleIDs {
		role, err := s.State.Role(guildID, id)
		if err != nil || role == nil {
			continue
		}
		if role.Position > top {
			top = role.Position
		}
	}
	return top
}

func guildOwner(s *discordgo.Session, guildID string) (ownerID, name string) {
	g, err := s.State.Guild(guildID)
	if err != nil || g == nil {
		g, err = s.Guild(guildID)
		if err != nil || g == nil {
			return "", ""
		}
	}
	return g.OwnerID, g.Name
}

// Actor — вызвавший команду пользователь с правами и позицией в иерархии.
func Actor(s *discordgo.Session, i *discordgo.InteractionCreate) chat.Actor {
	ownerID, guildName := guildOwner(s, i.GuildID)
	actor := chat.Actor{GuildID: i.GuildID, GuildName: guildName}

	if i.Member != nil {
		user := User(i.Member.User, i.Member)
		actor.Member = chat.Member{
			User:            user,
			TopRolePosition: topRolePosition(s, i.GuildID, i.Member.Roles),
			IsOwner:         user.ID != "" && user.ID == ownerID,
		}
		actor.Permissions = permissions(i.Member.Permissions)
	} else if i.User != nil {
		actor.Member = chat.Member{User: User(i.User, nil)}
	}
	return actor
}

// Member — участник из опции-пользователя (resolved-данные interaction'а).
// ok == false — пользователь не состоит в гильдии.
func Member(s *discordgo.Session, i *discordgo.InteractionCreate, userID string) (chat.Member, bool) {
	data := i.ApplicationCommandData()
	if data.Resolved == nil {
		return chat.Member{}, false
	}
	u := data.Resolved.Users[userID]
	if u == nil {
		return chat.Member{}, false
	}
	m := data.Resolved.Members[userID]
	if m == nil {
		return chat.Member{User: User(u, nil)}, false
	}

	ownerID, _ := guildOwner(s, i.GuildID)
	return chat.Member{
		User:            User(u, m),
		TopRolePosition: topRolePosition(s, i.GuildID, m.Roles),
		IsOwner:         userID == ownerID,
	}, true
}

// ResolvedUser — пользователь из опции или из самого interaction'а (если опции нет).
func ResolvedUser(i *discordgo.InteractionCreate, opts Options, name string) (chat.User, *discordgo.User) {
	id := opts.ID(name)
	if id != "" {
		data := i.ApplicationCommandData()
		if data.Resolved != nil {
			if u := data.Resolved.Users[id]; u != nil {
				return User(u, data.Resolved.Members[id]), u
			}
		}
		return chat.User{ID: id}, &discordgo.User{ID: id}
	}
	if i.Member != nil && i.Member.User != nil {
		return User(i.Member.User, i.Member), i.Member.User
	}
	if i.User != nil {
		return User(i.User, nil), i.User
	}
	return chat.User{}, nil
}

// ChannelName — имя канала из кэша или API ("" при ошибке).
func ChannelName(s *discordgo.Session, channelID string) string {
	if ch, err := s.State.Channel(channelID); err == nil && ch != nil {
		return ch.Name
	}
	if ch, err := s.Channel(channelID); err == nil && ch != nil {
		return ch.Name
	}
	return ""
}

// DisplayName — имя участника гильдии ("" если не найден).
func DisplayName(s *discordgo.Session, guildID, userID string) string {
	if m, err := s.State.Member(guildID, userID); err == nil && m != nil {
		return User(m.User, m).DisplayName
	}
	return ""
}
