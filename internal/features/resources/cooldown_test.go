package resources

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock — управляемые часы для тестов.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestGate(clock *fakeClock) *CooldownGate {
	g := NewCooldownGate(time.Hour)
	g.now = clock.Now
	return g
}

func TestCooldown_WindowElapses(t *testing.T) {
	clock := newFakeClock()
	g := newTestGate(clock)

	assert.False(t, g.IsOnCooldown("actor"))
	g.RecordAward("actor")
	assert.True(t, g.IsOnCooldown("actor"))
	assert.False(t, g.IsOnCooldown("other"))

	clock.Advance(59 * time.Minute)
	assert.True(t, g.IsOnCooldown("actor"))
	assert.Equal(t, time.Minute, g.Remaining("actor"))

	clock.Advance(time.Minute)
	assert.False(t, g.IsOnCooldown("actor"))
	assert.Zero(t, g.Remaining("actor"))
}

func TestCooldown_ReserveCommitCancel(t *testing.T) {
	clock := newFakeClock()
	g := newTestGate(clock)

	r, ok := g.Reserve("actor")
	require.True(t, ok)

	// пока резерв открыт — второй Reserve не проходит
	_, ok = g.Reserve("actor")
	assert.False(t, ok)

	r.Cancel()
	assert.False(t, g.IsOnCooldown("actor"))

	r, ok = g.Reserve("actor")
	require.True(t, ok)
	r.Commit()
	r.Cancel() // после Commit ничего не меняет
	assert.True(t, g.IsOnCooldown("actor"))

	_, ok = g.Reserve("actor")
	assert.False(t, ok)
}

func TestCooldown_ConcurrentReserveSingleWinner(t *testing.T) {
	g := newTestGate(newFakeClock())

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if r, ok := g.Reserve("actor"); ok {
				atomic.AddInt32(&wins, 1)
				r.Commit()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins)
}

func TestCooldown_Sweep(t *testing.T) {
	clock := newFakeClock()
	g := newTestGate(clock)

	g.RecordAward("a")
	clock.Advance(30 * time.Minute)
	g.RecordAward("b")
	clock.Advance(31 * time.Minute)

	assert.Equal(t, 1, g.Sweep())
	assert.False(t, g.IsOnCooldown("a"))
	assert.True(t, g.IsOnCooldown("b"))
}

func TestCooldown_ZeroWindowDisables(t *testing.T) {
	g := NewCooldownGate(0)
	g.RecordAward("actor")
	assert.False(t, g.IsOnCooldown("actor"))
	_, ok := g.Reserve("actor")
	assert.True(t, ok)
}
