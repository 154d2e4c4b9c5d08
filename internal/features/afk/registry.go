// Package afk реализует статус "отошёл" (AFK) с причиной.
// Записи хранятся в документном хранилище, а для быстрой проверки при
// каждом сообщении держится кэш в памяти.
package afk

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/resource-bot/internal/common"
	"serotonyl.ru/resource-bot/internal/db/docstore"
)

// Collection — коллекция AFK-записей. Ключ: {guild}_{user}.
const Collection = "afk"

// DefaultReason — причина, если пользователь её не указал.
const DefaultReason = "No reason provided"

// NickPrefix — префикс ника на время AFK.
const NickPrefix = "[AFK] "

// Record — AFK-запись пользователя.
type Record struct {
	GuildID string    `json:"guild_id"`
	UserID  string    `json:"user_id"`
	Reason  string    `json:"reason,omitempty"`
	SetAt   time.Time `json:"set_at"`
}

// DisplayReason — причина для уведомлений.
func (r Record) DisplayReason() string {
	if r.Reason == "" {
		return DefaultReason
	}
	return r.Reason
}

// Registry — AFK-статусы. Кэш индексирован по пользователю,
// запись помнит гильдию, в которой статус выставлен.
type Registry struct {
	mu    sync.RWMutex
	store docstore.Store
	cache map[string]Record
	now   func() time.Time
}

// NewRegistry создаёт реестр AFK.
func NewRegistry(store docstore.Store) *Registry {
	return &Registry{
		store: store,
		cache: make(map[string]Record),
		now:   time.Now,
	}
}

// SetAfk выставляет (или перезаписывает) статус. Кэш обновляется только
// после успешной записи в хранилище.
func (r *Registry) SetAfk(ctx context.Context, guildID, userID, reason string) (Record, error) {
	rec := Record{
		GuildID: guildID,
		UserID:  userID,
		Reason:  strings.TrimSpace(reason),
		SetAt:   r.now().UTC(),
	}

	doc, err := docstore.Encode(rec)
	if err != nil {
		return Record{}, err
	}
	if err := r.store.Set(ctx, Collection, common.DocKey(guildID, userID), doc); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"component": "afk",
			"guild_id":  guildID,
			"user_id":   userID,
		}).Error("Ошибка сохранения AFK")
		return Record{}, fmt.Errorf("%w: %v", common.ErrStorage, err)
	}

	r.mu.Lock()
	r.cache[userID] = rec
	r.mu.Unlock()
	return rec, nil
}

// ClearAfk снимает статус в гильдии: удаляет запись и кэш.
func (r *Registry) ClearAfk(ctx context.Context, guildID, userID string) error {
	r.mu.Lock()
	if rec, ok := r.cache[userID]; ok && rec.GuildID == guildID {
		delete(r.cache, userID)
	}
	r.mu.Unlock()

	return r.deleteRecord(ctx, guildID, userID)
}

// Return снимает статус с пользователя, написавшего сообщение.
// Ровно один вызов на возвращение получает ok == true: запись из кэша
// забирается под блокировкой до обращения к хранилищу.
func (r *Registry) Return(ctx context.Context, userID string) (Record, bool) {
	r.mu.Lock()
	rec, ok := r.cache[userID]
	if ok {
		delete(r.cache, userID)
	}
	r.mu.Unlock()

	if !ok {
		return Record{}, false
	}
	// ошибка уже залогирована, статус в памяти снят в любом случае
	_ = r.deleteRecord(ctx, rec.GuildID, userID)
	return rec, true
}

func (r *Registry) deleteRecord(ctx context.Context, guildID, userID string) error {
	err := r.store.Delete(ctx, Collection, common.DocKey(guildID, userID))
	if err == nil || errors.Is(err, docstore.ErrNotFound) {
		return nil
	}
	log.WithError(err).WithFields(log.Fields{
		"component": "afk",
		"guild_id":  guildID,
		"user_id":   userID,
	}).Error("Ошибка удаления AFK")
	return fmt.Errorf("%w: %v", common.ErrStorage, err)
}

// IsAfk возвращает запись, если пользователь AFK.
func (r *Registry) IsAfk(userID string) (Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.cache[userID]
	return rec, ok
}

// Len — число AFK-пользователей в кэше.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.cache)
}

// Warm загружает кэш из хранилища при старте.
func (r *Registry) Warm(ctx context.Context) (int, error) {
	snaps, err := r.store.Query(ctx, Collection, docstore.Query{})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", common.ErrStorage, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	loaded := 0
	for _, s := range snaps {
		var rec Record
		if err := s.Decode(&rec); err != nil || rec.UserID == "" {
			log.WithField("key", s.Key).Warn("Пропущена повреждённая AFK-запись")
			continue
		}
		// при нескольких гильдиях остаётся самая свежая запись
		if cur, ok := r.cache[rec.UserID]; ok && cur.SetAt.After(rec.SetAt) {
			continue
		}
		r.cache[rec.UserID] = rec
		loaded++
	}
	return loaded, nil
}

// AddNickPrefix возвращает ник с префиксом AFK (не длиннее 32 символов).
// ok == false — префикс уже стоит.
func AddNickPrefix(nick string) (string, bool) {
	if strings.HasPrefix(nick, NickPrefix) {
		return nick, false
	}
	return common.TruncateRunes(NickPrefix+nick, 32), true
}

// StripNickPrefix убирает префикс AFK. ok == false — префикса не было.
func StripNickPrefix(nick string) (string, bool) {
	if !strings.HasPrefix(nick, NickPrefix) {
		return nick, false
	}
	return strings.TrimPrefix(nick, NickPrefix), true
}
