// Package resources — repository.go ведёт два денормализованных агрегата:
// профиль пользователя и агрегат канала.
package resources

import (
	"context"
	"errors"
	"sync"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/resource-bot/internal/common"
	"serotonyl.ru/resource-bot/internal/db/docstore"
	"serotonyl.ru/resource-bot/internal/metrics"
)

// Repository хранит благодарности в документном хранилище.
//
// Award обновляет профиль и агрегат канала двумя независимыми записями без
// транзакции: сбой между ними оставляет агрегаты рассогласованными.
// Каждое чтение-изменение-запись документа идёт под блокировкой его ключа,
// поэтому параллельные благодарности в одном процессе не теряют счёт.
type Repository struct {
	store docstore.Store
	locks *keyLocks
}

// NewRepository создаёт репозиторий благодарностей.
func NewRepository(store docstore.Store) *Repository {
	return &Repository{store: store, locks: newKeyLocks()}
}

// keyLocks — мьютексы по ключу документа. Запись удаляется, когда
// её больше никто не держит и не ждёт.
type keyLocks struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyLocks() *keyLocks {
	return &keyLocks{locks: make(map[string]*keyLock)}
}

// lock захватывает мьютекс ключа и возвращает функцию освобождения.
func (k *keyLocks) lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

// size — число ключей с активной блокировкой.
func (k *keyLocks) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}

// Award записывает одну благодарность actorID -> recipientID в канале.
// Проверки (не себе, не боту, кулдаун) делает вызывающий.
// false — ошибка хранилища; часть изменений при этом могла примениться.
func (r *Repository) Award(ctx context.Context, guildID, recipientID, channelID, channelName, actorID string) bool {
	logger := log.WithFields(log.Fields{
		"component":  "resources",
		"guild_id":   guildID,
		"user_id":    recipientID,
		"channel_id": channelID,
	})

	if err := r.bumpProfile(ctx, guildID, recipientID, channelID, channelName, actorID); err != nil {
		logger.WithError(err).Error("Ошибка обновления профиля")
		metrics.AwardsTotal.WithLabelValues("failed").Inc()
		return false
	}
	if err := r.bumpChannel(ctx, guildID, recipientID, channelID, channelName); err != nil {
		logger.WithError(err).Error("Ошибка обновления агрегата канала (профиль уже обновлён)")
		metrics.AwardsTotal.WithLabelValues("partial").Inc()
		return false
	}

	metrics.AwardsTotal.WithLabelValues("ok").Inc()
	return true
}

func (r *Repository) bumpProfile(ctx context.Context, guildID, userID, channelID, channelName, actorID string) error {
	key := common.DocKey(guildID, userID)
	unlock := r.locks.lock(CollectionProfiles + "/" + key)
	defer unlock()

	profile, err := r.loadProfile(ctx, guildID, userID)
	if err != nil {
		return err
	}

	profile.Count++
	ch := profile.Channels[channelID]
	ch.Count++
	ch.Name = channelName
	profile.Channels[channelID] = ch
	profile.GivenBy[actorID]++

	doc, err := docstore.Encode(profile)
	if err != nil {
		return err
	}
	return r.store.Set(ctx, CollectionProfiles, key, doc)
}

func (r *Repository) bumpChannel(ctx context.Context, guildID, userID, channelID, channelName string) error {
	key := common.DocKey(guildID, channelID)
	unlock := r.locks.lock(CollectionChannels + "/" + key)
	defer unlock()

	agg, err := r.loadChannel(ctx, guildID, channelID)
	if err != nil {
		return err
	}

	agg.ChannelName = channelName
	agg.TotalResources++
	agg.Users[userID]++

	doc, err := docstore.Encode(agg)
	if err != nil {
		return err
	}
	return r.store.Set(ctx, CollectionChannels, key, doc)
}

// loadProfile читает профиль или возвращает пустой, если его ещё нет.
func (r *Repository) loadProfile(ctx context.Context, guildID, userID string) (UserProfile, error) {
	doc, err := r.store.Get(ctx, CollectionProfiles, common.DocKey(guildID, userID))
	if errors.Is(err, docstore.ErrNotFound) {
		return emptyProfile(guildID, userID), nil
	}
	if err != nil {
		return UserProfile{}, err
	}

	var p UserProfile
	if err := docstore.Decode(doc, &p); err != nil {
		return UserProfile{}, err
	}
	p.GuildID, p.UserID = guildID, userID
	p.normalize()
	return p, nil
}

// loadChannel читает агрегат канала или возвращает пустой.
func (r *Repository) loadChannel(ctx context.Context, guildID, channelID string) (ChannelAggregate, error) {
	doc, err := r.store.Get(ctx, CollectionChannels, common.DocKey(guildID, channelID))
	if errors.Is(err, docstore.ErrNotFound) {
		return ChannelAggregate{GuildID: guildID, ChannelID: channelID, Users: map[string]int64{}}, nil
	}
	if err != nil {
		return ChannelAggregate{}, err
	}

	var a ChannelAggregate
	if err := docstore.Decode(doc, &a); err != nil {
		return ChannelAggregate{}, err
	}
	a.GuildID, a.ChannelID = guildID, channelID
	a.normalize()
	return a, nil
}

// ReadProfile возвращает профиль. Ошибки хранилища не пробрасываются:
// логируются, а наружу уходит пустой профиль.
func (r *Repository) ReadProfile(ctx context.Context, guildID, userID string) UserProfile {
	p, err := r.loadProfile(ctx, guildID, userID)
	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"component": "resources",
			"guild_id":  guildID,
			"user_id":   userID,
		}).Error("Ошибка чтения профиля")
		return emptyProfile(guildID, userID)
	}
	return p
}

// ReadChannel возвращает агрегат канала (пустой, если нет или ошибка).
func (r *Repository) ReadChannel(ctx context.Context, guildID, channelID string) ChannelAggregate {
	a, err := r.loadChannel(ctx, guildID, channelID)
	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"component":  "resources",
			"guild_id":   guildID,
			"channel_id": channelID,
		}).Error("Ошибка чтения агрегата канала")
		return ChannelAggregate{GuildID: guildID, ChannelID: channelID, Users: map[string]int64{}}
	}
	return a
}

// RankedRead возвращает рейтинг гильдии (channelID == "") или канала.
// Порядок: count по убыванию, при равенстве user id по возрастанию.
// При ошибке — пустой срез и запись в лог.
func (r *Repository) RankedRead(ctx context.Context, guildID string, limit int, channelID string) []RankedEntry {
	if limit <= 0 {
		return []RankedEntry{}
	}

	logger := log.WithFields(log.Fields{
		"component":  "resources",
		"guild_id":   guildID,
		"channel_id": channelID,
	})

	if channelID != "" {
		agg, err := r.loadChannel(ctx, guildID, channelID)
		if err != nil {
			logger.WithError(err).Error("Ошибка чтения рейтинга канала")
			return []RankedEntry{}
		}
		return rank(agg.Users, limit)
	}

	snaps, err := r.store.Query(ctx, CollectionProfiles, docstore.Query{
		Filters: []docstore.Filter{{Field: "guild_id", Value: guildID}},
		OrderBy: "count",
		Desc:    true,
		Limit:   limit,
	})
	if err != nil {
		logger.WithError(err).Error("Ошибка чтения рейтинга гильдии")
		return []RankedEntry{}
	}

	out := make([]RankedEntry, 0, len(snaps))
	for _, s := range snaps {
		var p UserProfile
		if err := s.Decode(&p); err != nil {
			logger.WithError(err).WithField("key", s.Key).Warn("Пропущен повреждённый профиль")
			continue
		}
		out = append(out, RankedEntry{UserID: p.UserID, Count: p.Count})
	}
	return out
}
