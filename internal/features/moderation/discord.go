// Package moderation — discord.go реализует Actions и Notifier поверх discordgo.
package moderation

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

// bulkDeleteMaxAge — Discord не удаляет пачкой сообщения старше 14 дней.
const bulkDeleteMaxAge = 14 * 24 * time.Hour

// DiscordActions — модераторские действия через REST API Discord.
type DiscordActions struct {
	session *discordgo.Session
}

// NewDiscordActions создаёт реализацию Actions.
func NewDiscordActions(session *discordgo.Session) *DiscordActions {
	return &DiscordActions{session: session}
}

func requestOptions(ctx context.Context, reason string) []discordgo.RequestOption {
	opts := []discordgo.RequestOption{discordgo.WithContext(ctx)}
	if reason != "" {
		opts = append(opts, discordgo.WithAuditLogReason(reason))
	}
	return opts
}

func (d *DiscordActions) Kick(ctx context.Context, guildID, userID, reason string) error {
	return d.session.GuildMemberDeleteWithReason(guildID, userID, reason, discordgo.WithContext(ctx))
}

func (d *DiscordActions) Ban(ctx context.Context, guildID, userID, reason string, deleteDays int) error {
	return d.session.GuildBanCreateWithReason(guildID, userID, reason, deleteDays, discordgo.WithContext(ctx))
}

func (d *DiscordActions) Unban(ctx context.Context, guildID, userID string) error {
	return d.session.GuildBanDelete(guildID, userID, discordgo.WithContext(ctx))
}

func (d *DiscordActions) Timeout(ctx context.Context, guildID, userID string, until time.Time, reason string) error {
	return d.session.GuildMemberTimeout(guildID, userID, &until, requestOptions(ctx, reason)...)
}

// Purge удаляет последние amount сообщений. Свежие удаляются одним запросом,
// старше 14 дней по одному.
func (d *DiscordActions) Purge(ctx context.Context, channelID string, amount int) (int, error) {
	msgs, err := d.session.ChannelMessages(channelID, amount, "", "", "", discordgo.WithContext(ctx))
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-bulkDeleteMaxAge)
	var fresh, old []string
	for _, m := range msgs {
		ts, err := discordgo.SnowflakeTimestamp(m.ID)
		if err == nil && ts.After(cutoff) {
			fresh = append(fresh, m.ID)
		} else {
			old = append(old, m.ID)
		}
	}

	deleted := 0
	switch len(fresh) {
	case 0:
	case 1:
		old = append(old, fresh[0])
	default:
		if err := d.session.ChannelMessagesBulkDelete(channelID, fresh, discordgo.WithContext(ctx)); err != nil {
			return 0, err
		}
		deleted = len(fresh)
	}

	for _, id := range old {
		if err := d.session.ChannelMessageDelete(channelID, id, discordgo.WithContext(ctx)); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}

// DMNotifier отправляет личные сообщения. Ошибки (закрытые ЛС, бот
// уже не делит гильдию с пользователем) пишутся в debug.
type DMNotifier struct {
	session *discordgo.Session
}

// NewDMNotifier создаёт Notifier.
func NewDMNotifier(session *discordgo.Session) *DMNotifier {
	return &DMNotifier{session: session}
}

func (n *DMNotifier) NotifyBestEffort(ctx context.Context, userID, text string) {
	ch, err := n.session.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err == nil {
		_, err = n.session.ChannelMessageSend(ch.ID, text, discordgo.WithContext(ctx))
	}
	if err != nil {
		log.WithError(err).WithField("user_id", userID).Debug("Не удалось отправить ЛС")
	}
}
