// Package resources — handlers.go обрабатывает команды:
// /rep (явная благодарность) и /profile (профиль вкладов).
package resources

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"serotonyl.ru/resource-bot/internal/bot/interaction"
	"serotonyl.ru/resource-bot/internal/common"
)

// Handler обрабатывает команды благодарностей.
type Handler struct {
	service *Service
	session *discordgo.Session
}

// NewHandler создаёт обработчик команд благодарностей.
func NewHandler(service *Service, session *discordgo.Session) *Handler {
	return &Handler{service: service, session: session}
}

// HandleRep — /rep user [reason].
func (h *Handler) HandleRep(ctx context.Context, i *discordgo.InteractionCreate) {
	s := h.session
	opts := interaction.ParseOptions(i)
	actor := interaction.Actor(s, i)
	recipient, _ := interaction.ResolvedUser(i, opts, "user")

	req := RepRequest{
		GuildID:   i.GuildID,
		ChannelID: i.ChannelID,
		Actor:     actor.User,
		Recipient: recipient,
		Reason:    opts.String("reason"),
	}

	// проверки и кулдаун без обращения к хранилищу отвечают сразу и приватно
	res, err := h.service.ReserveRep(req)
	if err != nil {
		interaction.Respond(s, i, h.refusalText(actor.ID, err), true)
		return
	}

	if !interaction.Defer(s, i, false) {
		res.Cancel()
		return
	}

	req.ChannelName = interaction.ChannelName(s, i.ChannelID)
	notice, err := h.service.CompleteRep(ctx, req, res)
	if err != nil {
		interaction.FollowupText(s, i, interaction.ErrorText(err, "Failed to add resource. Please try again later."), true)
		return
	}
	interaction.FollowupText(s, i, notice, false)
}

// refusalText — текст отказа /rep до начисления.
func (h *Handler) refusalText(actorID string, err error) string {
	if errors.Is(err, common.ErrOnCooldown) {
		if left := h.service.CooldownRemaining(actorID); left != "" {
			return fmt.Sprintf("You're on cooldown. Try again in %s.", left)
		}
		return "You're on cooldown. Try again later."
	}
	return interaction.ErrorText(err, "Failed to add resource. Please try again later.")
}

// HandleProfile — /profile [user].
//
// Формат embed'а:
//
//	📚 Resource Profile: alice
//	Total Contributions: **3** acknowledgments
//	Top Channels: #general — 2, #help — 1
//	Most Thanked By: @bob — 2, @carol — 1
func (h *Handler) HandleProfile(ctx context.Context, i *discordgo.InteractionCreate) {
	s := h.session
	opts := interaction.ParseOptions(i)
	target, raw := interaction.ResolvedUser(i, opts, "user")

	if !interaction.Defer(s, i, false) {
		return
	}

	profile := h.service.Profile(ctx, i.GuildID, target.ID)

	name := target.DisplayName
	if name == "" {
		name = "User " + target.ID
	}
	embed := &discordgo.MessageEmbed{
		Title: "📚 Resource Profile: " + name,
		Color: interaction.ColorBlue,
		Fields: []*discordgo.MessageEmbedField{{
			Name:  "Total Contributions",
			Value: common.FormatCount(profile.Count, "acknowledgment"),
		}},
	}
	if raw != nil && raw.Avatar != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: raw.AvatarURL("")}
	}

	if top := profile.TopChannels(3); len(top) > 0 {
		lines := make([]string, len(top))
		for n, c := range top {
			lines[n] = fmt.Sprintf("<#%s> — %d", c.ChannelID, c.Count)
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: "Top Channels", Value: strings.Join(lines, "\n"), Inline: true,
		})
	}
	if givers := profile.TopGivers(3); len(givers) > 0 {
		lines := make([]string, len(givers))
		for n, g := range givers {
			lines[n] = fmt.Sprintf("<@%s> — %d", g.UserID, g.Count)
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: "Most Thanked By", Value: strings.Join(lines, "\n"), Inline: true,
		})
	}

	interaction.FollowupEmbed(s, i, embed)
}
