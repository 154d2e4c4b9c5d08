// Package leaderboard — handlers.go обрабатывает /leaderboard [channel]
// и кнопки Previous/Next под сообщением рейтинга.
package leaderboard

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/resource-bot/internal/bot/interaction"
	"serotonyl.ru/resource-bot/internal/common"
)

// Префиксы custom_id кнопок: "lb:prev:<view id>", "lb:next:<view id>".
const (
	ButtonPrefix = "lb:"
	prevPrefix   = "lb:prev:"
	nextPrefix   = "lb:next:"
)

// Handler обрабатывает команды рейтинга.
type Handler struct {
	registry *Registry
	session  *discordgo.Session
}

// NewHandler создаёт обработчик рейтинга.
func NewHandler(registry *Registry, session *discordgo.Session) *Handler {
	return &Handler{registry: registry, session: session}
}

// HandleLeaderboard — /leaderboard [channel].
func (h *Handler) HandleLeaderboard(ctx context.Context, i *discordgo.InteractionCreate) {
	s := h.session
	opts := interaction.ParseOptions(i)
	scope := Scope{GuildID: i.GuildID, ChannelID: opts.ID("channel")}

	if !interaction.Defer(s, i, false) {
		return
	}

	id, page, err := h.registry.Open(ctx, scope)
	if err != nil {
		interaction.FollowupText(s, i, interaction.ErrorText(err, "Failed to load leaderboard. Please try again later."), true)
		return
	}

	interaction.Followup(s, i, &discordgo.WebhookParams{
		Embeds:     []*discordgo.MessageEmbed{h.embed(page)},
		Components: buttons(id),
	})
}

// HandleButton — нажатие Previous/Next. Сначала подтверждаем нажатие
// (DeferredMessageUpdate), затем редактируем исходное сообщение:
// перечитывание рейтинга может не уложиться в 3 секунды.
func (h *Handler) HandleButton(ctx context.Context, i *discordgo.InteractionCreate) {
	s := h.session
	customID := i.MessageComponentData().CustomID

	var move func(context.Context, string) (Page, error)
	var id string
	switch {
	case strings.HasPrefix(customID, prevPrefix):
		id, move = strings.TrimPrefix(customID, prevPrefix), h.registry.Previous
	case strings.HasPrefix(customID, nextPrefix):
		id, move = strings.TrimPrefix(customID, nextPrefix), h.registry.Next
	default:
		log.WithField("custom_id", customID).Warn("Неизвестная кнопка рейтинга")
		return
	}

	if !interaction.DeferUpdate(s, i) {
		return
	}

	page, err := move(ctx, id)
	if err != nil {
		interaction.FollowupText(s, i, buttonErrorText(err), true)
		return
	}

	embeds := []*discordgo.MessageEmbed{h.embed(page)}
	components := buttons(id)
	if _, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
		Embeds:     &embeds,
		Components: &components,
	}, discordgo.WithContext(ctx)); err != nil {
		log.WithError(err).WithField("view_id", id).Warn("Не удалось обновить рейтинг")
	}
}

// buttonErrorText — текст приватного ответа на неудачный переход.
func buttonErrorText(err error) string {
	if errors.Is(err, common.ErrNoMoreEntries) {
		return "End of leaderboard reached"
	}
	return interaction.ErrorText(err, "Failed to load leaderboard. Please try again later.")
}

func (h *Handler) embed(page Page) *discordgo.MessageEmbed {
	guildID := page.Scope.GuildID
	fields := Fields(page, func(userID string) string {
		return interaction.DisplayName(h.session, guildID, userID)
	})

	embed := &discordgo.MessageEmbed{
		Title:  Title,
		Color:  interaction.ColorGold,
		Footer: &discordgo.MessageEmbedFooter{Text: Footer(page)},
	}
	if page.Scope.ChannelID != "" {
		embed.Description = "Channel: <#" + page.Scope.ChannelID + ">"
	}
	for _, f := range fields {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: f.Name, Value: f.Value})
	}
	return embed
}

func buttons(viewID string) []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{Label: "Previous", Style: discordgo.SecondaryButton, CustomID: prevPrefix + viewID},
			discordgo.Button{Label: "Next", Style: discordgo.SecondaryButton, CustomID: nextPrefix + viewID},
		}},
	}
}
