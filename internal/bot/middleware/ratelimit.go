package middleware

import (
	"sync"
	"time"

	"serotonyl.ru/resource-bot/internal/metrics"
)

// RateLimiter ограничивает количество команд на пользователя.
// Использует алгоритм скользящего окна. Старые записи убирает Sweep
// (его вызывает планировщик).
type RateLimiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	limit    int
	window   time.Duration
	now      func() time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
		now:      time.Now,
	}
}

// Allow — можно ли пользователю выполнить ещё одну команду.
// limit <= 0 отключает ограничение.
func (rl *RateLimiter) Allow(userID string) bool {
	if rl.limit <= 0 {
		return true
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	recent := rl.recentLocked(userID, now.Add(-rl.window))

	if len(recent) >= rl.limit {
		rl.requests[userID] = recent
		metrics.RateLimited.Inc()
		return false
	}

	rl.requests[userID] = append(recent, now)
	return true
}

// Sweep удаляет пользователей без запросов в текущем окне.
func (rl *RateLimiter) Sweep() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-rl.window)
	removed := 0
	for userID := range rl.requests {
		recent := rl.recentLocked(userID, cutoff)
		if len(recent) == 0 {
			delete(rl.requests, userID)
			removed++
		} else {
			rl.requests[userID] = recent
		}
	}
	return removed
}

func (rl *RateLimiter) recentLocked(userID string, cutoff time.Time) []time.Time {
	var recent []time.Time
	for _, t := range rl.requests[userID] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}
	return recent
}
