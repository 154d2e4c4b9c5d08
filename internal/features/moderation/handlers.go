// Package moderation — handlers.go обрабатывает модераторские команды:
// /warn, /warnings, /clearwarnings, /kick, /ban, /unban, /timeout, /clear.
package moderation

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/resource-bot/internal/bot/interaction"
	"serotonyl.ru/resource-bot/internal/chat"
	"serotonyl.ru/resource-bot/internal/common"
)

// Handler обрабатывает модераторские команды.
type Handler struct {
	service *Service
	session *discordgo.Session
}

// NewHandler создаёт обработчик модерации.
func NewHandler(service *Service, session *discordgo.Session) *Handler {
	return &Handler{service: service, session: session}
}

// Commands — имена команд, которые обслуживает Handler.
var Commands = []string{"warn", "warnings", "clearwarnings", "kick", "ban", "unban", "timeout", "clear"}

// Handle направляет команду по имени.
func (h *Handler) Handle(ctx context.Context, i *discordgo.InteractionCreate) {
	switch name := i.ApplicationCommandData().Name; name {
	case "warn":
		h.handleWarn(ctx, i)
	case "warnings":
		h.handleWarnings(ctx, i)
	case "clearwarnings":
		h.handleClearWarnings(ctx, i)
	case "kick":
		h.handleKick(ctx, i)
	case "ban":
		h.handleBan(ctx, i)
	case "unban":
		h.handleUnban(ctx, i)
	case "timeout":
		h.handleTimeout(ctx, i)
	case "clear":
		h.handleClear(ctx, i)
	default:
		log.WithField("command", name).Warn("Неизвестная команда модерации")
	}
}

// authorize отвечает приватным отказом, если проверка не прошла.
func (h *Handler) authorize(i *discordgo.InteractionCreate, command string, actor chat.Actor, target *chat.Member) bool {
	if err := h.service.Authorize(command, actor, target); err != nil {
		interaction.Respond(h.session, i, interaction.ErrorText(err, "You don't have permission to use this command"), true)
		return false
	}
	return true
}

func (h *Handler) fail(i *discordgo.InteractionCreate, err error, fallback string) {
	interaction.FollowupText(h.session, i, interaction.ErrorText(err, fallback), true)
}

func field(name, value string, inline bool) *discordgo.MessageEmbedField {
	return &discordgo.MessageEmbedField{Name: name, Value: value, Inline: inline}
}

// targetMember — участник из опции "user". Для не-участника гильдии
// возвращается пользователь без ролей.
func (h *Handler) targetMember(i *discordgo.InteractionCreate, opts interaction.Options) chat.Member {
	user, _ := interaction.ResolvedUser(i, opts, "user")
	if m, ok := interaction.Member(h.session, i, user.ID); ok {
		return m
	}
	return chat.Member{User: user}
}

func (h *Handler) handleWarn(ctx context.Context, i *discordgo.InteractionCreate) {
	s := h.session
	opts := interaction.ParseOptions(i)
	actor := interaction.Actor(s, i)
	target := h.targetMember(i, opts)
	if !h.authorize(i, "warn", actor, &target) {
		return
	}
	if !interaction.Defer(s, i, false) {
		return
	}

	w, err := h.service.Warn(ctx, actor, target.User, opts.String("reason"))
	if err != nil {
		h.fail(i, err, "Failed to warn user. Please try again.")
		return
	}

	interaction.FollowupEmbed(s, i, &discordgo.MessageEmbed{
		Title: "⚠️ Warning Issued",
		Color: interaction.ColorYellow,
		Fields: []*discordgo.MessageEmbedField{
			field("User", target.Mention(), true),
			field("Moderator", actor.Mention(), true),
			field("Reason", w.Reason, false),
		},
		Footer: &discordgo.MessageEmbedFooter{Text: "Warned on " + common.FormatDateTime(w.Timestamp)},
	})
}

func (h *Handler) handleWarnings(ctx context.Context, i *discordgo.InteractionCreate) {
	s := h.session
	opts := interaction.ParseOptions(i)
	actor := interaction.Actor(s, i)
	target := h.targetMember(i, opts)
	if !h.authorize(i, "warnings", actor, &target) {
		return
	}
	if !interaction.Defer(s, i, false) {
		return
	}

	list, err := h.service.Warnings(ctx, actor, target.User)
	if err != nil {
		h.fail(i, err, "Failed to load warnings. Please try again.")
		return
	}

	name := target.DisplayName
	if name == "" {
		name = "User " + target.ID
	}
	embed := &discordgo.MessageEmbed{
		Title: "Warnings for " + name,
		Color: interaction.ColorOrange,
	}
	if len(list) == 0 {
		embed.Description = "This user has no warnings! 🎉"
	}
	for n, w := range list {
		mod := interaction.DisplayName(s, actor.GuildID, w.ModeratorID)
		if mod == "" {
			mod = "Unknown Moderator"
		}
		when := "Unknown"
		if !w.Timestamp.IsZero() {
			when = common.FormatDateTime(w.Timestamp)
		}
		embed.Fields = append(embed.Fields, field(
			fmt.Sprintf("Warning #%d", n+1),
			fmt.Sprintf("**Reason:** %s\n**By:** %s\n**When:** %s", w.Reason, mod, when),
			false,
		))
	}
	interaction.FollowupEmbed(s, i, embed)
}

func (h *Handler) handleClearWarnings(ctx context.Context, i *discordgo.InteractionCreate) {
	s := h.session
	opts := interaction.ParseOptions(i)
	actor := interaction.Actor(s, i)
	target := h.targetMember(i, opts)
	if !h.authorize(i, "clearwarnings", actor, &target) {
		return
	}
	if !interaction.Defer(s, i, false) {
		return
	}

	if _, err := h.service.ClearWarnings(ctx, actor, target.User); err != nil {
		h.fail(i, err, "Failed to clear warnings. Please try again.")
		return
	}
	interaction.FollowupText(s, i, fmt.Sprintf("All warnings for %s have been cleared.", target.Mention()), false)
}

// actionEmbed — embed результата kick/ban/unban/timeout.
func actionEmbed(title string, color int, user string, actor chat.Actor, extra ...*discordgo.MessageEmbedField) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: title,
		Color: color,
		Fields: append([]*discordgo.MessageEmbedField{
			field("User", user, true),
			field("Moderator", actor.Mention(), true),
		}, extra...),
	}
}

func reasonField(reason string) []*discordgo.MessageEmbedField {
	if reason == "" {
		return nil
	}
	return []*discordgo.MessageEmbedField{field("Reason", reason, false)}
}

func username(u *discordgo.User, fallback chat.User) string {
	if u != nil && u.Username != "" {
		return u.String()
	}
	if fallback.DisplayName != "" {
		return fallback.DisplayName
	}
	return fallback.Mention()
}

func (h *Handler) handleKick(ctx context.Context, i *discordgo.InteractionCreate) {
	s := h.session
	opts := interaction.ParseOptions(i)
	actor := interaction.Actor(s, i)
	target := h.targetMember(i, opts)
	if !h.authorize(i, "kick", actor, &target) {
		return
	}
	if !interaction.Defer(s, i, false) {
		return
	}

	reason := opts.String("reason")
	if err := h.service.Kick(ctx, actor, target, reason); err != nil {
		h.fail(i, err, "Failed to kick user. Check my permissions and try again.")
		return
	}
	_, raw := interaction.ResolvedUser(i, opts, "user")
	interaction.FollowupEmbed(s, i, actionEmbed("👢 User Kicked", interaction.ColorRed,
		username(raw, target.User), actor, reasonField(reason)...))
}

func (h *Handler) handleBan(ctx context.Context, i *discordgo.InteractionCreate) {
	s := h.session
	opts := interaction.ParseOptions(i)
	actor := interaction.Actor(s, i)
	target := h.targetMember(i, opts)
	if !h.authorize(i, "ban", actor, &target) {
		return
	}
	days := opts.Int("delete_days", DefaultDeleteDays)
	if days < 0 || days > MaxDeleteDays {
		interaction.Respond(s, i, interaction.ErrorText(common.ErrInvalidDeleteDays, ""), true)
		return
	}
	if !interaction.Defer(s, i, false) {
		return
	}

	reason := opts.String("reason")
	if err := h.service.Ban(ctx, actor, target, reason, days); err != nil {
		h.fail(i, err, "Failed to ban user. Check my permissions and try again.")
		return
	}
	_, raw := interaction.ResolvedUser(i, opts, "user")
	interaction.FollowupEmbed(s, i, actionEmbed("🔨 User Banned", interaction.ColorDarkRed,
		username(raw, target.User), actor, reasonField(reason)...))
}

func (h *Handler) handleUnban(ctx context.Context, i *discordgo.InteractionCreate) {
	s := h.session
	opts := interaction.ParseOptions(i)
	actor := interaction.Actor(s, i)
	if !h.authorize(i, "unban", actor, nil) {
		return
	}
	userID := opts.String("user_id")
	if err := common.ValidateSnowflake(userID); err != nil {
		interaction.Respond(s, i, interaction.ErrorText(err, ""), true)
		return
	}
	if !interaction.Defer(s, i, false) {
		return
	}

	if err := h.service.Unban(ctx, actor, userID); err != nil {
		h.fail(i, err, "User not found or not banned. Please check the ID and try again.")
		return
	}

	name := "<@" + userID + ">"
	if u, err := s.User(userID, discordgo.WithContext(ctx)); err == nil && u != nil {
		name = u.String()
	}
	interaction.FollowupEmbed(s, i, actionEmbed("🔓 User Unbanned", interaction.ColorGreen, name, actor))
}

func (h *Handler) handleTimeout(ctx context.Context, i *discordgo.InteractionCreate) {
	s := h.session
	opts := interaction.ParseOptions(i)
	actor := interaction.Actor(s, i)
	target := h.targetMember(i, opts)
	if !h.authorize(i, "timeout", actor, &target) {
		return
	}
	minutes := opts.Int("duration", 0)
	if minutes < 1 || minutes > MaxTimeoutMinutes {
		interaction.Respond(s, i, interaction.ErrorText(common.ErrInvalidDuration, ""), true)
		return
	}
	if !interaction.Defer(s, i, false) {
		return
	}

	reason := opts.String("reason")
	if err := h.service.Timeout(ctx, actor, target, minutes, reason); err != nil {
		h.fail(i, err, "Failed to timeout user. Check my permissions and try again.")
		return
	}

	extra := append([]*discordgo.MessageEmbedField{
		field("Duration", fmt.Sprintf("%d %s", minutes, common.Pluralize(int64(minutes), "minute")), true),
	}, reasonField(reason)...)
	interaction.FollowupEmbed(s, i, actionEmbed("⏰ User Timed Out", interaction.ColorOrange,
		target.Mention(), actor, extra...))
}

func (h *Handler) handleClear(ctx context.Context, i *discordgo.InteractionCreate) {
	s := h.session
	opts := interaction.ParseOptions(i)
	actor := interaction.Actor(s, i)
	if !h.authorize(i, "clear", actor, nil) {
		return
	}
	amount := opts.Int("amount", 0)
	if amount < 1 || amount > MaxPurge {
		interaction.Respond(s, i, interaction.ErrorText(common.ErrInvalidPurgeAmount, ""), true)
		return
	}
	if !interaction.Defer(s, i, true) {
		return
	}

	n, err := h.service.Purge(ctx, actor, i.ChannelID, amount)
	if err != nil && n == 0 {
		h.fail(i, err, "I don't have permission to delete messages.")
		return
	}
	interaction.FollowupText(s, i, fmt.Sprintf("Deleted %d %s.", n, common.Pluralize(int64(n), "message")), true)
}
