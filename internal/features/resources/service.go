// Package resources — service.go содержит бизнес-логику благодарностей:
// автоматическое распознавание в сообщениях и команду /rep.
package resources

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/resource-bot/internal/chat"
	"serotonyl.ru/resource-bot/internal/common"
	"serotonyl.ru/resource-bot/internal/metrics"
)

// Service управляет выдачей благодарностей.
type Service struct {
	repo     *Repository
	gate     *CooldownGate
	detector *Detector
}

// NewService создаёт сервис благодарностей.
func NewService(repo *Repository, gate *CooldownGate, detector *Detector) *Service {
	return &Service{repo: repo, gate: gate, detector: detector}
}

// Acknowledgment — результат успешной обработки сообщения.
type Acknowledgment struct {
	Actor   chat.User
	Awarded []chat.User
}

// Notice — публичное сообщение о благодарности.
func (a Acknowledgment) Notice() string {
	mentions := make([]string, len(a.Awarded))
	for i, u := range a.Awarded {
		mentions[i] = u.Mention()
	}
	return fmt.Sprintf("📚 %s acknowledged %s for their helpful contribution!",
		a.Actor.Mention(), strings.Join(mentions, ", "))
}

// HandleMessage проверяет сообщение на благодарность и начисляет ресурсы
// всем подходящим упомянутым. ok == false — сообщение ничего не начислило.
//
// Кулдаун проверяется и резервируется атомарно до первой записи в хранилище,
// а запускается только если хотя бы одно начисление прошло.
func (s *Service) HandleMessage(ctx context.Context, msg chat.Message) (Acknowledgment, bool) {
	if len(msg.Mentions) == 0 || !s.detector.ContainsTrigger(msg.Content) {
		return Acknowledgment{}, false
	}

	recipients := validRecipients(msg.Author, msg.Mentions)
	if len(recipients) == 0 {
		return Acknowledgment{}, false
	}

	res, ok := s.gate.Reserve(msg.Author.ID)
	if !ok {
		metrics.CooldownRefusals.Inc()
		log.WithFields(log.Fields{
			"component": "resources",
			"guild_id":  msg.GuildID,
			"user_id":   msg.Author.ID,
		}).Debug("Благодарность пропущена: кулдаун")
		return Acknowledgment{}, false
	}

	ack := Acknowledgment{Actor: msg.Author}
	for _, u := range recipients {
		if s.repo.Award(ctx, msg.GuildID, u.ID, msg.ChannelID, msg.ChannelName, msg.Author.ID) {
			ack.Awarded = append(ack.Awarded, u)
		}
	}

	if len(ack.Awarded) == 0 {
		res.Cancel()
		return Acknowledgment{}, false
	}
	res.Commit()
	return ack, true
}

// validRecipients отбрасывает автора, ботов и повторные упоминания.
func validRecipients(author chat.User, mentions []chat.User) []chat.User {
	seen := make(map[string]struct{}, len(mentions))
	out := make([]chat.User, 0, len(mentions))
	for _, u := range mentions {
		if u.ID == author.ID || u.Bot {
			continue
		}
		if _, dup := seen[u.ID]; dup {
			continue
		}
		seen[u.ID] = struct{}{}
		out = append(out, u)
	}
	return out
}

// RepRequest — параметры команды /rep.
type RepRequest struct {
	GuildID     string
	ChannelID   string
	ChannelName string
	Actor       chat.User
	Recipient   chat.User
	Reason      string
}

// Rep — явная благодарность командой. Возвращает публичный текст уведомления.
// Ошибки: ErrSelfAcknowledge, ErrAcknowledgeBot, ErrOnCooldown, ErrStorage.
func (s *Service) Rep(ctx context.Context, req RepRequest) (string, error) {
	res, err := s.ReserveRep(req)
	if err != nil {
		return "", err
	}
	return s.CompleteRep(ctx, req, res)
}

// ReserveRep проверяет запрос /rep и резервирует кулдаун, не трогая хранилище.
// Обработчик вызывает её до отложенного ответа, чтобы отказ ушёл приватно.
// Ошибки: ErrSelfAcknowledge, ErrAcknowledgeBot, ErrOnCooldown.
func (s *Service) ReserveRep(req RepRequest) (*Reservation, error) {
	if req.Recipient.ID == req.Actor.ID {
		return nil, common.ErrSelfAcknowledge
	}
	if req.Recipient.Bot {
		return nil, common.ErrAcknowledgeBot
	}

	res, ok := s.gate.Reserve(req.Actor.ID)
	if !ok {
		metrics.CooldownRefusals.Inc()
		return nil, common.ErrOnCooldown
	}
	return res, nil
}

// CompleteRep начисляет благодарность по резерву из ReserveRep. Резерв
// подтверждается при успехе и отменяется при ошибке хранилища.
func (s *Service) CompleteRep(ctx context.Context, req RepRequest, res *Reservation) (string, error) {
	if !s.repo.Award(ctx, req.GuildID, req.Recipient.ID, req.ChannelID, req.ChannelName, req.Actor.ID) {
		res.Cancel()
		return "", common.ErrStorage
	}
	res.Commit()

	reason := ""
	if r := strings.TrimSpace(req.Reason); r != "" {
		reason = " for: " + r
	}
	return fmt.Sprintf("📚 %s acknowledged %s's contribution%s!",
		req.Actor.Mention(), req.Recipient.Mention(), reason), nil
}

// CooldownRemaining — текст оставшегося кулдауна ("" — не на кулдауне).
func (s *Service) CooldownRemaining(actorID string) string {
	return common.FormatCooldown(int(s.gate.Remaining(actorID).Seconds()))
}

// Profile возвращает профиль пользователя (пустой при отсутствии или ошибке).
func (s *Service) Profile(ctx context.Context, guildID, userID string) UserProfile {
	return s.repo.ReadProfile(ctx, guildID, userID)
}

// Ranked — рейтинг гильдии или канала (channelID == "").
func (s *Service) Ranked(ctx context.Context, guildID string, limit int, channelID string) []RankedEntry {
	return s.repo.RankedRead(ctx, guildID, limit, channelID)
}
