// Package bot — router.go обрабатывает входящее сообщение без привязки к Discord:
// возвращение из AFK, уведомления об AFK упомянутых и распознавание благодарностей.
package bot

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/resource-bot/internal/chat"
	"serotonyl.ru/resource-bot/internal/features/afk"
	"serotonyl.ru/resource-bot/internal/features/resources"
	"serotonyl.ru/resource-bot/internal/metrics"
)

// Outcome — что нужно сделать в ответ на сообщение.
type Outcome struct {
	Notices []chat.Notice
	// Returned — автор только что вернулся из AFK (нужно снять префикс ника)
	Returned bool
}

// Router — поток обработки сообщения.
type Router struct {
	resources *resources.Service // nil — фича выключена
	afk       *afk.Registry      // nil — фича выключена
	noticeTTL time.Duration
}

// NewRouter создаёт роутер. Любой из сервисов может быть nil.
func NewRouter(res *resources.Service, afkRegistry *afk.Registry, noticeTTL time.Duration) *Router {
	return &Router{resources: res, afk: afkRegistry, noticeTTL: noticeTTL}
}

// HandleMessage обрабатывает одно сообщение гильдии. Сообщения ботов
// и личные сообщения отсекаются фильтром раньше.
func (r *Router) HandleMessage(ctx context.Context, msg chat.Message) Outcome {
	var out Outcome

	if r.afk != nil {
		// 1) автор вернулся — снимаем статус, уведомление ровно одно
		if _, ok := r.afk.Return(ctx, msg.Author.ID); ok {
			out.Returned = true
			out.Notices = append(out.Notices, chat.Notice{
				Text:        fmt.Sprintf("Welcome back, %s! I've removed your AFK status.", msg.Author.Mention()),
				DeleteAfter: r.noticeTTL,
			})
			metrics.AFKNoticesTotal.WithLabelValues("welcome_back").Inc()
			log.WithFields(log.Fields{
				"component": "afk",
				"guild_id":  msg.GuildID,
				"user_id":   msg.Author.ID,
			}).Debug("Пользователь вернулся из AFK")
		}

		// 2) упомянутые AFK-пользователи: по уведомлению на каждого, статус не снимается
		seen := make(map[string]struct{}, len(msg.Mentions))
		for _, u := range msg.Mentions {
			if u.ID == msg.Author.ID {
				continue
			}
			if _, dup := seen[u.ID]; dup {
				continue
			}
			seen[u.ID] = struct{}{}

			rec, ok := r.afk.IsAfk(u.ID)
			if !ok {
				continue
			}
			out.Notices = append(out.Notices, chat.Notice{
				Text: fmt.Sprintf("%s is currently AFK: %s", displayName(u), rec.DisplayReason()),
			})
			metrics.AFKNoticesTotal.WithLabelValues("mention").Inc()
		}
	}

	// 3) благодарность
	if r.resources != nil {
		if ack, ok := r.resources.HandleMessage(ctx, msg); ok {
			out.Notices = append(out.Notices, chat.Notice{Text: ack.Notice()})
		}
	}

	return out
}

func displayName(u chat.User) string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Mention()
}
