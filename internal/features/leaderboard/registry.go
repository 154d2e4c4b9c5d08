// Package leaderboard — registry.go хранит активные виды рейтинга по id.
package leaderboard

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/resource-bot/internal/common"
	"serotonyl.ru/resource-bot/internal/metrics"
)

// Registry — активные виды рейтинга. Id вида зашивается в кнопки сообщения.
// Истёкшие виды не принимают переходы сразу, а из памяти их убирает Sweep.
type Registry struct {
	mu       sync.Mutex
	views    map[string]*Pager
	ranker   Ranker
	pageSize int
	ttl      time.Duration
	now      func() time.Time
}

// NewRegistry создаёт реестр видов.
func NewRegistry(ranker Ranker, pageSize int, ttl time.Duration) *Registry {
	return &Registry{
		views:    make(map[string]*Pager),
		ranker:   ranker,
		pageSize: pageSize,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Open создаёт вид и отрисовывает первую страницу.
func (r *Registry) Open(ctx context.Context, scope Scope) (string, Page, error) {
	pager := newPager(r.ranker, scope, r.pageSize, r.ttl, r.now)
	page, err := pager.Render(ctx)
	if err != nil {
		return "", Page{}, err
	}

	id := uuid.NewString()
	r.mu.Lock()
	r.views[id] = pager
	n := len(r.views)
	r.mu.Unlock()

	metrics.LeaderboardViewsActive.Set(float64(n))
	log.WithFields(log.Fields{
		"component":  "leaderboard",
		"guild_id":   scope.GuildID,
		"channel_id": scope.ChannelID,
		"view_id":    id,
	}).Debug("Открыт вид рейтинга")
	return id, page, nil
}

// Next — следующая страница вида id.
func (r *Registry) Next(ctx context.Context, id string) (Page, error) {
	pager, err := r.lookup(id)
	if err != nil {
		return Page{}, err
	}
	return pager.Next(ctx)
}

// Previous — предыдущая страница вида id.
func (r *Registry) Previous(ctx context.Context, id string) (Page, error) {
	pager, err := r.lookup(id)
	if err != nil {
		return Page{}, err
	}
	return pager.Previous(ctx)
}

func (r *Registry) lookup(id string) (*Pager, error) {
	r.mu.Lock()
	pager, ok := r.views[id]
	r.mu.Unlock()
	if !ok {
		metrics.LeaderboardPagesTotal.WithLabelValues("expired").Inc()
		return nil, common.ErrViewExpired
	}
	return pager, nil
}

// Len — число видов в памяти.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.views)
}

// Sweep удаляет истёкшие виды. Вызывается планировщиком.
// Срок проверяется вне r.mu: Expired ждёт блокировку вида, пока тот рисуется.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	snapshot := make(map[string]*Pager, len(r.views))
	for id, pager := range r.views {
		snapshot[id] = pager
	}
	r.mu.Unlock()

	var expired []string
	for id, pager := range snapshot {
		if pager.Expired() {
			expired = append(expired, id)
		}
	}

	r.mu.Lock()
	removed := 0
	for _, id := range expired {
		// вид мог быть заменён, пока проверяли срок
		if r.views[id] == snapshot[id] {
			delete(r.views, id)
			removed++
		}
	}
	n := len(r.views)
	r.mu.Unlock()

	metrics.LeaderboardViewsActive.Set(float64(n))
	return removed
}
