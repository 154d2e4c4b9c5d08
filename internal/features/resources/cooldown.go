// Package resources — cooldown.go хранит кулдауны благодаривших (in-memory).
package resources

import (
	"sync"
	"time"
)

// CooldownGate — окно после успешной благодарности, в течение которого
// тот же пользователь не может благодарить снова. Ключ — благодаривший, а не получатель.
// Состояние живёт только в памяти: рестарт процесса сбрасывает все кулдауны.
type CooldownGate struct {
	mu      sync.Mutex
	window  time.Duration
	last    map[string]time.Time
	pending map[string]struct{} // выдача в процессе (Reserve без Commit/Cancel)
	now     func() time.Time
}

// NewCooldownGate создаёт гейт с окном window.
func NewCooldownGate(window time.Duration) *CooldownGate {
	return &CooldownGate{
		window:  window,
		last:    make(map[string]time.Time),
		pending: make(map[string]struct{}),
		now:     time.Now,
	}
}

// IsOnCooldown — находится ли actorID в окне кулдауна.
func (g *CooldownGate) IsOnCooldown(actorID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.remainingLocked(actorID) > 0
}

// Remaining возвращает, сколько осталось до конца кулдауна (0 — не на кулдауне).
func (g *CooldownGate) Remaining(actorID string) time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.remainingLocked(actorID)
}

// RecordAward запускает окно кулдауна для actorID с текущего момента.
func (g *CooldownGate) RecordAward(actorID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.last[actorID] = g.now()
	delete(g.pending, actorID)
}

// Reserve атомарно проверяет кулдаун и помечает actorID как "выдаёт благодарность".
// Пока резерв не закрыт (Commit или Cancel), повторный Reserve того же
// пользователя вернёт false — два параллельных сообщения не пройдут оба.
func (g *CooldownGate) Reserve(actorID string) (*Reservation, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.remainingLocked(actorID) > 0 {
		return nil, false
	}
	if _, busy := g.pending[actorID]; busy {
		return nil, false
	}
	g.pending[actorID] = struct{}{}
	return &Reservation{gate: g, actorID: actorID}, true
}

// Sweep удаляет записи, окно которых уже закончилось. Вызывается планировщиком.
func (g *CooldownGate) Sweep() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	removed := 0
	now := g.now()
	for id, at := range g.last {
		if now.Sub(at) >= g.window {
			delete(g.last, id)
			removed++
		}
	}
	return removed
}

// Window возвращает длину окна кулдауна.
func (g *CooldownGate) Window() time.Duration {
	return g.window
}

func (g *CooldownGate) remainingLocked(actorID string) time.Duration {
	at, ok := g.last[actorID]
	if !ok {
		return 0
	}
	left := g.window - g.now().Sub(at)
	if left < 0 {
		return 0
	}
	return left
}

// Reservation — незавершённая выдача благодарности.
type Reservation struct {
	gate    *CooldownGate
	actorID string
	once    sync.Once
}

// Commit запускает кулдаун (хотя бы одна выдача прошла).
func (r *Reservation) Commit() {
	r.once.Do(func() { r.gate.RecordAward(r.actorID) })
}

// Cancel снимает резерв без кулдауна (ни одна выдача не прошла).
func (r *Reservation) Cancel() {
	r.once.Do(func() {
		r.gate.mu.Lock()
		delete(r.gate.pending, r.actorID)
		r.gate.mu.Unlock()
	})
}
