// Package moderation — service.go проверяет права, иерархию ролей и границы
// аргументов, а затем вызывает действия платформы.
package moderation

import (
	"context"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/resource-bot/internal/chat"
	"serotonyl.ru/resource-bot/internal/common"
	"serotonyl.ru/resource-bot/internal/metrics"
)

// Actions — модераторские действия платформы. Логики внутри нет,
// это прямые вызовы API.
type Actions interface {
	Kick(ctx context.Context, guildID, userID, reason string) error
	Ban(ctx context.Context, guildID, userID, reason string, deleteDays int) error
	Unban(ctx context.Context, guildID, userID string) error
	Timeout(ctx context.Context, guildID, userID string, until time.Time, reason string) error
	// Purge удаляет до amount последних сообщений канала, возвращает сколько удалено.
	Purge(ctx context.Context, channelID string, amount int) (int, error)
}

// Notifier отправляет личное сообщение. Ошибка отправки (закрытые ЛС и т.п.)
// не должна мешать основному действию: реализация логирует её на debug и забывает.
type Notifier interface {
	NotifyBestEffort(ctx context.Context, userID, text string)
}

// Service — модерация.
type Service struct {
	repo    *Repository
	actions Actions
	notify  Notifier
	now     func() time.Time
}

// NewService создаёт сервис модерации.
func NewService(repo *Repository, actions Actions, notify Notifier) *Service {
	return &Service{repo: repo, actions: actions, notify: notify, now: time.Now}
}

func canModerate(p chat.Permissions) bool { return p.Administrator || p.ModerateMembers }
func canKick(p chat.Permissions) bool     { return p.Administrator || p.KickMembers }
func canBan(p chat.Permissions) bool      { return p.Administrator || p.BanMembers }
func canPurge(p chat.Permissions) bool    { return p.Administrator || p.ManageMessages }

func record(action string, err error) {
	result := "ok"
	if err != nil {
		result = "failed"
	}
	metrics.ModerationActionsTotal.WithLabelValues(action, result).Inc()
}

// withReason — " for: reason" или пустая строка.
func withReason(reason string) string {
	if reason == "" {
		return ""
	}
	return " for: " + reason
}

// Authorize — проверки прав и иерархии без побочных эффектов. Обработчики
// вызывают её до Defer, чтобы отказ ушёл приватным ответом.
// target == nil — у команды нет цели-участника.
func (s *Service) Authorize(command string, actor chat.Actor, target *chat.Member) error {
	var allowed bool
	switch command {
	case "warn", "clearwarnings", "timeout":
		allowed = canModerate(actor.Permissions)
	case "warnings":
		allowed = canModerate(actor.Permissions) || (target != nil && target.ID == actor.ID)
		if !allowed {
			return common.ErrNoPermissionWarnings
		}
	case "kick":
		allowed = canKick(actor.Permissions)
	case "ban", "unban":
		allowed = canBan(actor.Permissions)
	case "clear":
		allowed = canPurge(actor.Permissions)
	default:
		return fmt.Errorf("unknown moderation command %q", command)
	}
	if !allowed {
		return common.ErrNoPermission
	}

	switch command {
	case "kick", "ban", "timeout":
		if target == nil || !actor.Outranks(*target) {
			return common.ErrRoleHierarchy
		}
	}
	return nil
}

// Warn выдаёт предупреждение и уведомляет пользователя в ЛС.
func (s *Service) Warn(ctx context.Context, actor chat.Actor, target chat.User, reason string) (Warning, error) {
	if !canModerate(actor.Permissions) {
		return Warning{}, common.ErrNoPermission
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return Warning{}, common.ErrEmptyReason
	}

	w, err := s.repo.AddWarning(ctx, actor.GuildID, target.ID, reason, actor.ID)
	record("warn", err)
	if err != nil {
		s.logger(actor, target.ID).WithError(err).Error("Ошибка сохранения предупреждения")
		return Warning{}, fmt.Errorf("%w: %v", common.ErrStorage, err)
	}

	s.notify.NotifyBestEffort(ctx, target.ID,
		fmt.Sprintf("You were warned in %s for: %s", actor.GuildName, reason))
	return w, nil
}

// Warnings — список предупреждений. Свои может смотреть любой,
// чужие — только модератор.
func (s *Service) Warnings(ctx context.Context, actor chat.Actor, target chat.User) ([]Warning, error) {
	if target.ID != actor.ID && !canModerate(actor.Permissions) {
		return nil, common.ErrNoPermissionWarnings
	}
	list, err := s.repo.ListWarnings(ctx, actor.GuildID, target.ID)
	if err != nil {
		s.logger(actor, target.ID).WithError(err).Error("Ошибка чтения предупреждений")
		return nil, fmt.Errorf("%w: %v", common.ErrStorage, err)
	}
	return list, nil
}

// ClearWarnings удаляет все предупреждения пользователя.
func (s *Service) ClearWarnings(ctx context.Context, actor chat.Actor, target chat.User) (int, error) {
	if !canModerate(actor.Permissions) {
		return 0, common.ErrNoPermission
	}
	n, err := s.repo.ClearAll(ctx, actor.GuildID, target.ID)
	record("clear_warnings", err)
	if err != nil {
		s.logger(actor, target.ID).WithError(err).Error("Ошибка очистки предупреждений")
		return 0, fmt.Errorf("%w: %v", common.ErrStorage, err)
	}
	return n, nil
}

// Kick выгоняет участника. ЛС отправляется до действия, пока бот ещё
// делит с пользователем гильдию.
func (s *Service) Kick(ctx context.Context, actor chat.Actor, target chat.Member, reason string) error {
	if !canKick(actor.Permissions) {
		return common.ErrNoPermission
	}
	if !actor.Outranks(target) {
		return common.ErrRoleHierarchy
	}

	reason = strings.TrimSpace(reason)
	s.notify.NotifyBestEffort(ctx, target.ID,
		fmt.Sprintf("You were kicked from %s%s", actor.GuildName, withReason(reason)))

	err := s.actions.Kick(ctx, actor.GuildID, target.ID, reason)
	record("kick", err)
	if err != nil {
		return fmt.Errorf("kick: %w", err)
	}
	return nil
}

// Ban банит участника и удаляет его сообщения за deleteDays дней (0..7).
func (s *Service) Ban(ctx context.Context, actor chat.Actor, target chat.Member, reason string, deleteDays int) error {
	if !canBan(actor.Permissions) {
		return common.ErrNoPermission
	}
	if !actor.Outranks(target) {
		return common.ErrRoleHierarchy
	}
	if deleteDays < 0 || deleteDays > MaxDeleteDays {
		return common.ErrInvalidDeleteDays
	}

	reason = strings.TrimSpace(reason)
	s.notify.NotifyBestEffort(ctx, target.ID,
		fmt.Sprintf("You were banned from %s%s", actor.GuildName, withReason(reason)))

	err := s.actions.Ban(ctx, actor.GuildID, target.ID, reason, deleteDays)
	record("ban", err)
	if err != nil {
		return fmt.Errorf("ban: %w", err)
	}
	return nil
}

// Unban снимает бан по ID пользователя.
func (s *Service) Unban(ctx context.Context, actor chat.Actor, userID string) error {
	if !canBan(actor.Permissions) {
		return common.ErrNoPermission
	}
	userID = strings.TrimSpace(userID)
	if err := common.ValidateSnowflake(userID); err != nil {
		return err
	}

	err := s.actions.Unban(ctx, actor.GuildID, userID)
	record("unban", err)
	if err != nil {
		return fmt.Errorf("unban: %w", err)
	}
	return nil
}

// Timeout отправляет участника в тайм-аут на minutes минут (1..40320).
// ЛС отправляется после действия.
func (s *Service) Timeout(ctx context.Context, actor chat.Actor, target chat.Member, minutes int, reason string) error {
	if !canModerate(actor.Permissions) {
		return common.ErrNoPermission
	}
	if !actor.Outranks(target) {
		return common.ErrRoleHierarchy
	}
	if minutes < 1 || minutes > MaxTimeoutMinutes {
		return common.ErrInvalidDuration
	}

	reason = strings.TrimSpace(reason)
	until := s.now().Add(time.Duration(minutes) * time.Minute)
	err := s.actions.Timeout(ctx, actor.GuildID, target.ID, until, reason)
	record("timeout", err)
	if err != nil {
		return fmt.Errorf("timeout: %w", err)
	}

	tail := "."
	if reason != "" {
		tail = ": " + reason
	}
	s.notify.NotifyBestEffort(ctx, target.ID, fmt.Sprintf("You have been timed out in %s for %d %s%s",
		actor.GuildName, minutes, common.Pluralize(int64(minutes), "minute"), tail))
	return nil
}

// Purge удаляет последние amount (1..100) сообщений канала.
func (s *Service) Purge(ctx context.Context, actor chat.Actor, channelID string, amount int) (int, error) {
	if !canPurge(actor.Permissions) {
		return 0, common.ErrNoPermission
	}
	if amount < 1 || amount > MaxPurge {
		return 0, common.ErrInvalidPurgeAmount
	}

	n, err := s.actions.Purge(ctx, channelID, amount)
	record("purge", err)
	if err != nil {
		return n, fmt.Errorf("purge: %w", err)
	}
	return n, nil
}

func (s *Service) logger(actor chat.Actor, targetID string) *log.Entry {
	return log.WithFields(log.Fields{
		"component": "moderation",
		"guild_id":  actor.GuildID,
		"user_id":   targetID,
		"moderator": actor.ID,
	})
}
