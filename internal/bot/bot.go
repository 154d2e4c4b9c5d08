// Package bot содержит главный модуль бота — подключение к шлюзу Discord,
// диспетчеризацию событий и остановку.
// bot.go принимает события discordgo, фильтрует их и раздаёт обработчикам.
package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/resource-bot/internal/bot/filters"
	"serotonyl.ru/resource-bot/internal/bot/interaction"
	"serotonyl.ru/resource-bot/internal/bot/middleware"
	"serotonyl.ru/resource-bot/internal/chat"
	"serotonyl.ru/resource-bot/internal/config"
	"serotonyl.ru/resource-bot/internal/features/afk"
	"serotonyl.ru/resource-bot/internal/features/leaderboard"
	"serotonyl.ru/resource-bot/internal/features/moderation"
	"serotonyl.ru/resource-bot/internal/features/resources"
	"serotonyl.ru/resource-bot/internal/metrics"
)

// Intents — события шлюза, которые нужны боту. MessageContent и GuildMembers
// привилегированные, их нужно включить в Developer Portal.
const Intents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildMessages |
	discordgo.IntentsGuildMembers |
	discordgo.IntentsMessageContent

// Handlers — обработчики фич. Выключенная фича — nil.
type Handlers struct {
	Resources   *resources.Handler
	Leaderboard *leaderboard.Handler
	AFK         *afk.Handler
	Moderation  *moderation.Handler
}

// Bot — главная структура бота, объединяющая все компоненты.
type Bot struct {
	session *discordgo.Session
	cfg     *config.Config

	guildFilter *filters.GuildFilter
	rateLimiter *middleware.RateLimiter
	router      *Router
	handlers    Handlers

	// ограничитель параллелизма обработки событий
	inflight chan struct{}
	// ctx живёт до остановки бота, обработчики событий берут его отсюда
	ctx context.Context
}

// New создаёт новый экземпляр бота со всеми зависимостями.
func New(
	session *discordgo.Session,
	cfg *config.Config,
	router *Router,
	handlers Handlers,
	guildFilter *filters.GuildFilter,
	rateLimiter *middleware.RateLimiter,
) *Bot {
	maxInFlight := cfg.BotMaxInflight
	if maxInFlight <= 0 {
		maxInFlight = 64
	}

	session.Identify.Intents = Intents
	// события приходят по одному, параллелизм ограничиваем сами
	session.SyncEvents = true

	return &Bot{
		session:     session,
		cfg:         cfg,
		guildFilter: guildFilter,
		rateLimiter: rateLimiter,
		router:      router,
		handlers:    handlers,
		inflight:    make(chan struct{}, maxInFlight),
		ctx:         context.Background(),
	}
}

// Start подключается к шлюзу и работает до отмены ctx.
func (b *Bot) Start(ctx context.Context) error {
	b.ctx = ctx

	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onMessageCreate)
	b.session.AddHandler(b.onInteractionCreate)

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("ошибка подключения к шлюзу Discord: %w", err)
	}

	log.WithFields(log.Fields{
		"max_inflight": cap(b.inflight),
		"intents":      Intents,
	}).Info("Бот запущен и ожидает события...")

	<-ctx.Done()
	log.Info("Бот останавливается (ctx done)...")
	if err := b.session.Close(); err != nil {
		log.WithError(err).Warn("Ошибка закрытия сессии Discord")
	}
	return nil
}

// dispatch запускает обработчик в горутине с учётом лимита параллелизма.
func (b *Bot) dispatch(event string, fn func(ctx context.Context)) {
	select {
	case b.inflight <- struct{}{}:
	case <-b.ctx.Done():
		return
	}
	go func() {
		defer func() { <-b.inflight }()
		defer middleware.RecoverFromPanic(event)
		fn(b.ctx)
	}()
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	log.WithFields(log.Fields{
		"user":   r.User.String(),
		"guilds": len(r.Guilds),
	}).Info("Авторизован в Discord")

	b.dispatch("ready", func(ctx context.Context) {
		if _, err := b.SyncCommands(ctx); err != nil {
			log.WithError(err).Error("Не удалось зарегистрировать команды")
		}
	})
}

func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	if !b.guildFilter.CheckAccess(chat.Message{
		GuildID: m.GuildID,
		Author:  interaction.User(m.Author, nil),
	}) {
		return
	}

	b.dispatch("message_create", func(ctx context.Context) {
		// имена каналов и участников могут потребовать REST-запроса
		msg := b.toChatMessage(m)
		middleware.LogMessage(msg)

		out := b.router.HandleMessage(ctx, msg)
		for _, n := range out.Notices {
			b.sendNotice(msg.ChannelID, n)
		}
		if out.Returned && b.handlers.AFK != nil {
			b.handlers.AFK.StripNick(ctx, msg.GuildID, msg.ChannelID, msg.Author.ID)
		}
	})
}

// toChatMessage переводит сообщение discordgo в chat.Message.
func (b *Bot) toChatMessage(m *discordgo.MessageCreate) chat.Message {
	msg := chat.Message{
		ID:          m.ID,
		GuildID:     m.GuildID,
		ChannelID:   m.ChannelID,
		ChannelName: interaction.ChannelName(b.session, m.ChannelID),
		Author:      interaction.User(m.Author, m.Member),
		Content:     m.Content,
	}
	for _, u := range m.Mentions {
		cu := interaction.User(u, nil)
		if name := interaction.DisplayName(b.session, m.GuildID, u.ID); name != "" {
			cu.DisplayName = name
		}
		msg.Mentions = append(msg.Mentions, cu)
	}
	return msg
}

// sendNotice отправляет уведомление в канал и при необходимости
// удаляет его через DeleteAfter.
func (b *Bot) sendNotice(channelID string, n chat.Notice) {
	sent, err := b.session.ChannelMessageSend(channelID, n.Text)
	if err != nil {
		log.WithError(err).WithField("channel_id", channelID).Error("Ошибка отправки сообщения")
		return
	}
	if n.DeleteAfter <= 0 {
		return
	}
	time.AfterFunc(n.DeleteAfter, func() {
		if err := b.session.ChannelMessageDelete(channelID, sent.ID); err != nil {
			log.WithError(err).WithField("message_id", sent.ID).Debug("Не удалось удалить уведомление")
		}
	})
}

func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	userID := interactionUserID(i)

	var name string
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		name = i.ApplicationCommandData().Name
	case discordgo.InteractionMessageComponent:
		name = "button"
	default:
		return
	}

	if i.GuildID == "" {
		interaction.Respond(s, i, "This command can only be used in a server.", true)
		return
	}
	if !b.guildFilter.AllowGuild(i.GuildID) {
		return
	}
	if !b.rateLimiter.Allow(userID) {
		metrics.RateLimited.Inc()
		log.WithField("user_id", userID).Debug("Превышен лимит запросов")
		interaction.Respond(s, i, "You're doing that too often. Please slow down.", true)
		return
	}

	b.dispatch("interaction_create", func(ctx context.Context) {
		middleware.LogInteraction(name, i.GuildID, userID)
		metrics.CommandsTotal.WithLabelValues(name).Inc()

		if i.Type == discordgo.InteractionMessageComponent {
			b.routeComponent(ctx, i)
			return
		}
		b.routeCommand(ctx, name, i)
	})
}

// routeCommand маршрутизирует слэш-команду к нужному обработчику.
func (b *Bot) routeCommand(ctx context.Context, name string, i *discordgo.InteractionCreate) {
	h := b.handlers
	switch {
	case name == "sync":
		b.handleSync(ctx, i)
	case name == "rep" && h.Resources != nil:
		h.Resources.HandleRep(ctx, i)
	case name == "profile" && h.Resources != nil:
		h.Resources.HandleProfile(ctx, i)
	case name == "leaderboard" && h.Leaderboard != nil:
		h.Leaderboard.HandleLeaderboard(ctx, i)
	case name == "afk" && h.AFK != nil:
		h.AFK.HandleAfk(ctx, i)
	case isModerationCommand(name) && h.Moderation != nil:
		h.Moderation.Handle(ctx, i)
	default:
		interaction.Respond(b.session, i, "This command is currently disabled.", true)
	}
}

func (b *Bot) routeComponent(ctx context.Context, i *discordgo.InteractionCreate) {
	customID := i.MessageComponentData().CustomID
	if strings.HasPrefix(customID, leaderboard.ButtonPrefix) && b.handlers.Leaderboard != nil {
		b.handlers.Leaderboard.HandleButton(ctx, i)
		return
	}
	log.WithField("custom_id", customID).Debug("Кнопка без обработчика")
}

func isModerationCommand(name string) bool {
	for _, c := range moderation.Commands {
		if c == name {
			return true
		}
	}
	return false
}

func interactionUserID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}
