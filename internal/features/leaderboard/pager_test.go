package leaderboard

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/resource-bot/internal/common"
	"serotonyl.ru/resource-bot/internal/features/resources"
)

// fakeRanker отдаёт заранее заданный рейтинг и считает вызовы.
type fakeRanker struct {
	mu      sync.Mutex
	entries []resources.RankedEntry
	limits  []int
}

func newFakeRanker(n int) *fakeRanker {
	r := &fakeRanker{}
	r.set(n)
	return r
}

func (r *fakeRanker) set(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = make([]resources.RankedEntry, n)
	for i := range r.entries {
		r.entries[i] = resources.RankedEntry{UserID: fmt.Sprintf("u%02d", i+1), Count: int64(100 - i)}
	}
}

func (r *fakeRanker) Ranked(_ context.Context, _ string, limit int, _ string) []resources.RankedEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.limits = append(r.limits, limit)
	if limit > len(r.entries) {
		limit = len(r.entries)
	}
	return append([]resources.RankedEntry(nil), r.entries[:limit]...)
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestRegistry(r Ranker, c *clock) *Registry {
	reg := NewRegistry(r, 10, time.Minute)
	reg.now = c.now
	return reg
}

func TestPager_NextPastEndKeepsPage(t *testing.T) {
	ctx := context.Background()
	c := &clock{t: time.Unix(1_700_000_000, 0)}
	reg := newTestRegistry(newFakeRanker(10), c)

	id, page, err := reg.Open(ctx, Scope{GuildID: "G"})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Number)
	assert.Len(t, page.Entries, 10)

	_, err = reg.Next(ctx, id)
	assert.ErrorIs(t, err, common.ErrNoMoreEntries)
	assert.Equal(t, 1, reg.views[id].CurrentPage())
}

func TestPager_PreviousOnFirstPage(t *testing.T) {
	ctx := context.Background()
	c := &clock{t: time.Unix(1_700_000_000, 0)}
	reg := newTestRegistry(newFakeRanker(3), c)

	id, _, err := reg.Open(ctx, Scope{GuildID: "G"})
	require.NoError(t, err)

	_, err = reg.Previous(ctx, id)
	assert.ErrorIs(t, err, common.ErrFirstPage)
	assert.Equal(t, 1, reg.views[id].CurrentPage())
}

func TestPager_NavigateAndRefetch(t *testing.T) {
	ctx := context.Background()
	c := &clock{t: time.Unix(1_700_000_000, 0)}
	ranker := newFakeRanker(25)
	reg := newTestRegistry(ranker, c)

	id, _, err := reg.Open(ctx, Scope{GuildID: "G"})
	require.NoError(t, err)

	page, err := reg.Next(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Number)
	assert.Equal(t, 10, page.Offset)
	assert.Equal(t, "u11", page.Entries[0].UserID)

	page, err = reg.Next(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 3, page.Number)
	assert.Len(t, page.Entries, 5)

	// рейтинг уменьшился между нажатиями — третья страница пропала
	ranker.set(20)
	_, err = reg.Next(ctx, id)
	assert.ErrorIs(t, err, common.ErrNoMoreEntries)

	page, err = reg.Previous(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Number)

	// каждая отрисовка читает префикс до конца текущей страницы
	assert.Equal(t, []int{10, 20, 30, 40, 20}, ranker.limits)
}

func TestPager_Expiry(t *testing.T) {
	ctx := context.Background()
	c := &clock{t: time.Unix(1_700_000_000, 0)}
	reg := newTestRegistry(newFakeRanker(30), c)

	id, _, err := reg.Open(ctx, Scope{GuildID: "G", ChannelID: "C"})
	require.NoError(t, err)

	// взаимодействие продлевает вид
	c.advance(50 * time.Second)
	_, err = reg.Next(ctx, id)
	require.NoError(t, err)
	c.advance(50 * time.Second)
	_, err = reg.Previous(ctx, id)
	require.NoError(t, err)

	c.advance(time.Minute)
	_, err = reg.Next(ctx, id)
	assert.ErrorIs(t, err, common.ErrViewExpired)
	_, err = reg.Previous(ctx, id)
	assert.ErrorIs(t, err, common.ErrViewExpired)

	assert.Equal(t, 1, reg.Sweep())
	assert.Zero(t, reg.Len())

	_, err = reg.Next(ctx, id)
	assert.ErrorIs(t, err, common.ErrViewExpired)
	_, err = reg.Next(ctx, "unknown")
	assert.ErrorIs(t, err, common.ErrViewExpired)
}

func TestPager_EmptyLeaderboard(t *testing.T) {
	ctx := context.Background()
	c := &clock{t: time.Unix(1_700_000_000, 0)}
	reg := newTestRegistry(newFakeRanker(0), c)

	id, page, err := reg.Open(ctx, Scope{GuildID: "G"})
	require.NoError(t, err)
	assert.Empty(t, page.Entries)

	_, err = reg.Next(ctx, id)
	assert.ErrorIs(t, err, common.ErrNoMoreEntries)
}

func TestRender_FieldsAndFooter(t *testing.T) {
	page := Page{
		Number: 1,
		Entries: []resources.RankedEntry{
			{UserID: "1", Count: 5},
			{UserID: "2", Count: 1},
			{UserID: "3", Count: 0},
			{UserID: "4", Count: 2},
		},
		RenderedAt: time.Date(2024, 3, 9, 14, 5, 0, 0, time.UTC),
	}
	names := map[string]string{"1": "alice", "2": "bob", "4": "dora"}

	fields := Fields(page, func(id string) string { return names[id] })
	assert.Equal(t, []Field{
		{Name: "🥇 alice", Value: "**5** contributions"},
		{Name: "🥈 bob", Value: "**1** contribution"},
		{Name: "🥉 User 3", Value: "**0** contributions"},
		{Name: "4. dora", Value: "**2** contributions"},
	}, fields)
	assert.Equal(t, "Page 1 • Updated 2024-03-09 14:05", Footer(page))

	second := Page{Number: 2, Offset: 10, Entries: []resources.RankedEntry{{UserID: "9", Count: 1}}}
	assert.Equal(t, "11. User 9", Fields(second, nil)[0].Name)

	empty := Fields(Page{Number: 1}, nil)
	assert.Equal(t, []Field{{Name: "No entries found", Value: "Be the first to contribute!"}}, empty)
}

// gatedRanker после arm держит каждую отрисовку, пока не закрыт release.
type gatedRanker struct {
	*fakeRanker
	armed   atomic.Bool
	entered chan struct{}
	release chan struct{}
}

func (r *gatedRanker) Ranked(ctx context.Context, guildID string, limit int, channelID string) []resources.RankedEntry {
	if r.armed.CompareAndSwap(true, false) {
		r.entered <- struct{}{}
		<-r.release
	}
	return r.fakeRanker.Ranked(ctx, guildID, limit, channelID)
}

func TestRegistry_SweepDoesNotBlockOnBusyView(t *testing.T) {
	ctx := context.Background()
	c := &clock{t: time.Unix(1_700_000_000, 0)}
	ranker := &gatedRanker{
		fakeRanker: newFakeRanker(30),
		entered:    make(chan struct{}, 1),
		release:    make(chan struct{}),
	}
	reg := newTestRegistry(ranker, c)

	slowID, _, err := reg.Open(ctx, Scope{GuildID: "G"})
	require.NoError(t, err)

	ranker.armed.Store(true)
	nextDone := make(chan struct{})
	go func() {
		defer close(nextDone)
		_, _ = reg.Next(ctx, slowID)
	}()
	<-ranker.entered // Next держит блокировку вида

	sweepDone := make(chan int, 1)
	go func() { sweepDone <- reg.Sweep() }()
	time.Sleep(10 * time.Millisecond)

	openDone := make(chan error, 1)
	go func() {
		_, _, err := reg.Open(ctx, Scope{GuildID: "G", ChannelID: "C"})
		openDone <- err
	}()
	select {
	case err := <-openDone:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Open заблокирован очисткой")
	}
	assert.Equal(t, 2, reg.Len())

	close(ranker.release)
	<-nextDone
	assert.Zero(t, <-sweepDone)
	assert.Equal(t, 2, reg.Len())
}
