// Package afk — handlers.go обрабатывает /afk [reason] и управляет
// префиксом "[AFK] " в нике участника.
package afk

import (
	"context"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/resource-bot/internal/bot/interaction"
)

// Handler обрабатывает команды AFK.
type Handler struct {
	registry *Registry
	session  *discordgo.Session
}

// NewHandler создаёт обработчик AFK.
func NewHandler(registry *Registry, session *discordgo.Session) *Handler {
	return &Handler{registry: registry, session: session}
}

// HandleAfk — /afk [reason].
func (h *Handler) HandleAfk(ctx context.Context, i *discordgo.InteractionCreate) {
	s := h.session
	opts := interaction.ParseOptions(i)
	actor := interaction.Actor(s, i)
	reason := opts.String("reason")

	if !interaction.Defer(s, i, false) {
		return
	}

	if _, err := h.registry.SetAfk(ctx, i.GuildID, actor.ID, reason); err != nil {
		interaction.FollowupText(s, i, interaction.ErrorText(err, "Failed to set AFK status. Please try again later."), true)
		return
	}

	text := "🔄 " + actor.Mention() + " is now AFK"
	if reason != "" {
		text += ": " + reason
	}
	interaction.FollowupText(s, i, text, false)

	if !actor.Permissions.ChangeNickname || !h.botCanManageNicknames(i.ChannelID) {
		return
	}
	nick, ok := AddNickPrefix(actor.DisplayName)
	if !ok {
		return
	}
	if err := s.GuildMemberNickname(i.GuildID, actor.ID, nick, discordgo.WithContext(ctx)); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"guild_id": i.GuildID,
			"user_id":  actor.ID,
		}).Debug("Не удалось поставить AFK-префикс")
	}
}

// StripNick снимает префикс AFK с ника вернувшегося участника.
// Ошибки только логируются.
func (h *Handler) StripNick(ctx context.Context, guildID, channelID, userID string) {
	s := h.session
	if !h.botCanManageNicknames(channelID) {
		return
	}

	m, err := s.State.Member(guildID, userID)
	if err != nil || m == nil {
		m, err = s.GuildMember(guildID, userID, discordgo.WithContext(ctx))
		if err != nil || m == nil {
			return
		}
	}

	nick, ok := StripNickPrefix(m.Nick)
	if !ok {
		return
	}
	if err := s.GuildMemberNickname(guildID, userID, nick, discordgo.WithContext(ctx)); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"guild_id": guildID,
			"user_id":  userID,
		}).Debug("Не удалось снять AFK-префикс")
	}
}

func (h *Handler) botCanManageNicknames(channelID string) bool {
	s := h.session
	if s.State == nil || s.State.User == nil {
		return false
	}
	perms, err := s.State.UserChannelPermissions(s.State.User.ID, channelID)
	if err != nil {
		return false
	}
	return perms&(discordgo.PermissionManageNicknames|discordgo.PermissionAdministrator) != 0
}
