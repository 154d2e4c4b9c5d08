// Package common — errors.go определяет пользовательские ошибки,
// которые используются во всех модулях бота.
// Эти ошибки позволяют обработчикам различать типы проблем
// и отправлять пользователю понятные сообщения.
package common

import "errors"

// Ошибки благодарностей (resources)
var (
	// ErrSelfAcknowledge — попытка поблагодарить самого себя
	ErrSelfAcknowledge = errors.New("you cannot acknowledge yourself")
	// ErrAcknowledgeBot — попытка поблагодарить бота
	ErrAcknowledgeBot = errors.New("you cannot acknowledge bots")
	// ErrOnCooldown — благодаривший ещё на кулдауне
	ErrOnCooldown = errors.New("you're on cooldown, try again later")
	// ErrNoRecipients — в сообщении нет подходящих упоминаний
	ErrNoRecipients = errors.New("no valid recipients")
)

// Ошибки хранилища
var (
	// ErrStorage — хранилище недоступно или вернуло ошибку
	ErrStorage = errors.New("storage is unavailable, please try again later")
)

// Ошибки лидерборда
var (
	// ErrNoMoreEntries — следующей страницы нет
	ErrNoMoreEntries = errors.New("end of leaderboard reached")
	// ErrFirstPage — уже на первой странице
	ErrFirstPage = errors.New("already on first page")
	// ErrViewExpired — вид лидерборда истёк, нужно вызвать команду заново
	ErrViewExpired = errors.New("this leaderboard has expired, run /leaderboard again")
)

// Ошибки модерации
var (
	// ErrNoPermission — у пользователя нет нужного права
	ErrNoPermission = errors.New("you don't have permission to use this command")
	// ErrNoPermissionWarnings — нельзя смотреть чужие предупреждения
	ErrNoPermissionWarnings = errors.New("you don't have permission to view others' warnings")
	// ErrRoleHierarchy — цель имеет роль не ниже роли модератора
	ErrRoleHierarchy = errors.New("you cannot moderate someone with a role higher than or equal to yours")
	// ErrInvalidDeleteDays — delete_days вне диапазона 0..7
	ErrInvalidDeleteDays = errors.New("delete days must be between 0 and 7")
	// ErrInvalidPurgeAmount — количество сообщений вне диапазона 1..100
	ErrInvalidPurgeAmount = errors.New("amount must be between 1 and 100")
	// ErrInvalidDuration — некорректная длительность тайм-аута
	ErrInvalidDuration = errors.New("duration must be between 1 minute and 28 days")
	// ErrInvalidUserID — ID пользователя не число
	ErrInvalidUserID = errors.New("invalid user ID, please provide a valid user ID")
	// ErrEmptyReason — причина предупреждения пустая
	ErrEmptyReason = errors.New("a reason is required")
)
