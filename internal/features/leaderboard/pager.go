// Package leaderboard реализует постраничный просмотр рейтинга благодарностей.
// pager.go — состояние одного вида: текущая страница и переходы Next/Previous.
package leaderboard

import (
	"context"
	"sync"
	"time"

	"serotonyl.ru/resource-bot/internal/common"
	"serotonyl.ru/resource-bot/internal/features/resources"
	"serotonyl.ru/resource-bot/internal/metrics"
)

// Ranker — источник рейтинга (resources.Service).
type Ranker interface {
	Ranked(ctx context.Context, guildID string, limit int, channelID string) []resources.RankedEntry
}

// Scope — область рейтинга: вся гильдия (ChannelID == "") или один канал.
type Scope struct {
	GuildID   string
	ChannelID string
}

// Page — отрисованная страница.
type Page struct {
	Scope      Scope
	Number     int
	Offset     int // сколько мест выше первой записи страницы
	Entries    []resources.RankedEntry
	RenderedAt time.Time
}

// Pager — состояние одного вида рейтинга.
// Каждая отрисовка заново читает рейтинг до конца текущей страницы:
// счётчики могут измениться между нажатиями.
type Pager struct {
	mu        sync.Mutex
	ranker    Ranker
	scope     Scope
	page      int
	pageSize  int
	ttl       time.Duration
	expiresAt time.Time
	now       func() time.Time
}

func newPager(ranker Ranker, scope Scope, pageSize int, ttl time.Duration, now func() time.Time) *Pager {
	return &Pager{
		ranker:    ranker,
		scope:     scope,
		page:      1,
		pageSize:  pageSize,
		ttl:       ttl,
		expiresAt: now().Add(ttl),
		now:       now,
	}
}

// CurrentPage — номер текущей страницы.
func (p *Pager) CurrentPage() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.page
}

// Expired — истёк ли вид.
func (p *Pager) Expired() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.expiredLocked()
}

// Render отрисовывает текущую страницу.
func (p *Pager) Render(ctx context.Context) (Page, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.expiredLocked() {
		return Page{}, common.ErrViewExpired
	}
	p.touchLocked()
	return p.renderLocked(p.fetchLocked(ctx)), nil
}

// Next переходит на следующую страницу. Если на ней нет записей,
// страница не меняется и возвращается ErrNoMoreEntries.
func (p *Pager) Next(ctx context.Context) (Page, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.expiredLocked() {
		metrics.LeaderboardPagesTotal.WithLabelValues("expired").Inc()
		return Page{}, common.ErrViewExpired
	}
	p.touchLocked()

	p.page++
	entries := p.fetchLocked(ctx)
	if len(entries) < p.pageSize*(p.page-1)+1 {
		p.page--
		metrics.LeaderboardPagesTotal.WithLabelValues("end").Inc()
		return Page{}, common.ErrNoMoreEntries
	}
	return p.renderLocked(entries), nil
}

// Previous возвращается на предыдущую страницу. На первой странице — ErrFirstPage.
func (p *Pager) Previous(ctx context.Context) (Page, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.expiredLocked() {
		metrics.LeaderboardPagesTotal.WithLabelValues("expired").Inc()
		return Page{}, common.ErrViewExpired
	}
	p.touchLocked()

	if p.page <= 1 {
		metrics.LeaderboardPagesTotal.WithLabelValues("first").Inc()
		return Page{}, common.ErrFirstPage
	}
	p.page--
	return p.renderLocked(p.fetchLocked(ctx)), nil
}

func (p *Pager) fetchLocked(ctx context.Context) []resources.RankedEntry {
	return p.ranker.Ranked(ctx, p.scope.GuildID, p.pageSize*p.page, p.scope.ChannelID)
}

// renderLocked вырезает текущую страницу из префикса рейтинга.
func (p *Pager) renderLocked(entries []resources.RankedEntry) Page {
	offset := (p.page - 1) * p.pageSize
	var slice []resources.RankedEntry
	if offset < len(entries) {
		end := offset + p.pageSize
		if end > len(entries) {
			end = len(entries)
		}
		slice = entries[offset:end]
	}
	metrics.LeaderboardPagesTotal.WithLabelValues("rendered").Inc()
	return Page{
		Scope:      p.scope,
		Number:     p.page,
		Offset:     offset,
		Entries:    slice,
		RenderedAt: p.now(),
	}
}

func (p *Pager) expiredLocked() bool {
	return !p.now().Before(p.expiresAt)
}

func (p *Pager) touchLocked() {
	p.expiresAt = p.now().Add(p.ttl)
}
