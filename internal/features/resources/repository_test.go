package resources

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/resource-bot/internal/db/docstore"
	"serotonyl.ru/resource-bot/internal/testutil"
)

func sumChannels(p UserProfile) int64 {
	var n int64
	for _, c := range p.Channels {
		n += c.Count
	}
	return n
}

func sumMap(m map[string]int64) int64 {
	var n int64
	for _, c := range m {
		n += c
	}
	return n
}

func TestRepository_AwardScenario(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(docstore.NewMemory())

	for i := 0; i < 3; i++ {
		require.True(t, repo.Award(ctx, "G", "userA", "C", "general", "actorX"))
		if i < 2 {
			require.True(t, repo.Award(ctx, "G", "userB", "C", "general", "actorX"))
		}
	}

	a := repo.ReadProfile(ctx, "G", "userA")
	b := repo.ReadProfile(ctx, "G", "userB")
	assert.Equal(t, int64(3), a.Count)
	assert.Equal(t, int64(2), b.Count)
	assert.Equal(t, ChannelCount{Name: "general", Count: 3}, a.Channels["C"])
	assert.Equal(t, map[string]int64{"actorX": 3}, a.GivenBy)

	ch := repo.ReadChannel(ctx, "G", "C")
	assert.Equal(t, int64(5), ch.TotalResources)
	assert.Equal(t, "general", ch.ChannelName)
	assert.Equal(t, map[string]int64{"userA": 3, "userB": 2}, ch.Users)
}

func TestRepository_CountInvariants(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(docstore.NewMemory())

	channels := []string{"c1", "c2", "c3"}
	actors := []string{"x", "y"}
	const n = 17
	for i := 0; i < n; i++ {
		ch := channels[i%len(channels)]
		require.True(t, repo.Award(ctx, "G", "u", ch, "name-"+ch, actors[i%len(actors)]))
	}

	p := repo.ReadProfile(ctx, "G", "u")
	assert.Equal(t, int64(n), p.Count)
	assert.Equal(t, p.Count, sumChannels(p))
	assert.Equal(t, p.Count, sumMap(p.GivenBy))

	for _, ch := range channels {
		agg := repo.ReadChannel(ctx, "G", ch)
		assert.Equal(t, agg.TotalResources, sumMap(agg.Users))
		assert.Equal(t, p.Channels[ch].Count, agg.Users["u"])
	}
}

func TestRepository_ChannelNameRefreshed(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(docstore.NewMemory())

	require.True(t, repo.Award(ctx, "G", "u", "C", "old", "x"))
	require.True(t, repo.Award(ctx, "G", "u", "C", "new", "x"))

	assert.Equal(t, "new", repo.ReadProfile(ctx, "G", "u").Channels["C"].Name)
	assert.Equal(t, "new", repo.ReadChannel(ctx, "G", "C").ChannelName)
}

func TestRepository_ReadProfileMissingAndIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(docstore.NewMemory())

	p := repo.ReadProfile(ctx, "G", "nobody")
	assert.Equal(t, int64(0), p.Count)
	assert.NotNil(t, p.Channels)
	assert.NotNil(t, p.GivenBy)
	assert.Equal(t, "nobody", p.UserID)

	require.True(t, repo.Award(ctx, "G", "u", "C", "general", "x"))
	first := repo.ReadProfile(ctx, "G", "u")
	second := repo.ReadProfile(ctx, "G", "u")
	assert.Equal(t, first, second)
}

func TestRepository_ReadProfileStorageFault(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewFaultyStore(docstore.NewMemory())
	repo := NewRepository(store)
	require.True(t, repo.Award(ctx, "G", "u", "C", "general", "x"))

	store.Fail("get", CollectionProfiles)
	p := repo.ReadProfile(ctx, "G", "u")
	assert.Equal(t, int64(0), p.Count)
	assert.Empty(t, p.Channels)
}

func TestRepository_AwardFailures(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewFaultyStore(docstore.NewMemory())
	repo := NewRepository(store)

	store.Fail("set", CollectionProfiles)
	assert.False(t, repo.Award(ctx, "G", "u", "C", "general", "x"))
	store.Heal()
	assert.Equal(t, int64(0), repo.ReadProfile(ctx, "G", "u").Count)
	assert.Equal(t, int64(0), repo.ReadChannel(ctx, "G", "C").TotalResources)

	// сбой на втором шаге: профиль уже обновлён, канал — нет
	store.Fail("set", CollectionChannels)
	assert.False(t, repo.Award(ctx, "G", "u", "C", "general", "x"))
	store.Heal()
	assert.Equal(t, int64(1), repo.ReadProfile(ctx, "G", "u").Count)
	assert.Equal(t, int64(0), repo.ReadChannel(ctx, "G", "C").TotalResources)
}

func TestRepository_RankedReadGuild(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(docstore.NewMemory())

	award := func(guild, user string, n int) {
		for i := 0; i < n; i++ {
			require.True(t, repo.Award(ctx, guild, user, "C", "general", "x"))
		}
	}
	award("G", "u3", 1)
	award("G", "u1", 5)
	award("G", "u2", 5)
	award("G", "u4", 2)
	award("OTHER", "u9", 50)

	got := repo.RankedRead(ctx, "G", 10, "")
	assert.Equal(t, []RankedEntry{
		{UserID: "u1", Count: 5},
		{UserID: "u2", Count: 5},
		{UserID: "u4", Count: 2},
		{UserID: "u3", Count: 1},
	}, got)

	assert.Len(t, repo.RankedRead(ctx, "G", 2, ""), 2)
	assert.Empty(t, repo.RankedRead(ctx, "G", 0, ""))
	assert.Empty(t, repo.RankedRead(ctx, "EMPTY", 10, ""))
}

func TestRepository_RankedReadChannel(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(docstore.NewMemory())

	for i := 0; i < 3; i++ {
		require.True(t, repo.Award(ctx, "G", "b", "C", "general", "x"))
		require.True(t, repo.Award(ctx, "G", "a", "C", "general", "x"))
	}
	require.True(t, repo.Award(ctx, "G", "c", "C", "general", "x"))
	require.True(t, repo.Award(ctx, "G", "z", "D", "random", "x"))

	got := repo.RankedRead(ctx, "G", 10, "C")
	assert.Equal(t, []RankedEntry{
		{UserID: "a", Count: 3},
		{UserID: "b", Count: 3},
		{UserID: "c", Count: 1},
	}, got)
	assert.Equal(t, []RankedEntry{{UserID: "a", Count: 3}}, repo.RankedRead(ctx, "G", 1, "C"))
	assert.Empty(t, repo.RankedRead(ctx, "G", 10, "missing"))
}

func TestRepository_RankedReadFault(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewFaultyStore(docstore.NewMemory())
	repo := NewRepository(store)
	require.True(t, repo.Award(ctx, "G", "u", "C", "general", "x"))

	store.Fail("query", CollectionProfiles)
	store.Fail("get", CollectionChannels)
	assert.Empty(t, repo.RankedRead(ctx, "G", 10, ""))
	assert.Empty(t, repo.RankedRead(ctx, "G", 10, "C"))
}

func TestUserProfile_Tops(t *testing.T) {
	p := emptyProfile("G", "u")
	for i := 1; i <= 4; i++ {
		id := fmt.Sprintf("c%d", i)
		p.Channels[id] = ChannelCount{Name: "name" + id, Count: int64(i)}
		p.GivenBy[fmt.Sprintf("g%d", i)] = int64(5 - i)
	}

	top := p.TopChannels(2)
	require.Len(t, top, 2)
	assert.Equal(t, "c4", top[0].ChannelID)
	assert.Equal(t, "c3", top[1].ChannelID)

	givers := p.TopGivers(3)
	assert.Equal(t, []RankedEntry{{"g1", 4}, {"g2", 3}, {"g3", 2}}, givers)
}

func TestRepository_ConcurrentAwardsKeepCounts(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewFaultyStore(docstore.NewMemory())
	store.Delay("get", 5*time.Millisecond)
	repo := NewRepository(store)

	const n = 50
	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if repo.Award(ctx, "G", "userA", "C", "general", fmt.Sprintf("actor%d", i)) {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	require.Equal(t, n, ok)

	p := repo.ReadProfile(ctx, "G", "userA")
	assert.Equal(t, int64(n), p.Count)
	assert.Equal(t, int64(n), sumMap(p.GivenBy))
	assert.Equal(t, int64(n), p.Channels["C"].Count)

	agg := repo.ReadChannel(ctx, "G", "C")
	assert.Equal(t, int64(n), agg.TotalResources)
	assert.Equal(t, int64(n), agg.Users["userA"])

	// блокировки ключей не накапливаются
	assert.Zero(t, repo.locks.size())
}

func TestRepository_ConcurrentAwardsAcrossRecipients(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewFaultyStore(docstore.NewMemory())
	store.Delay("get", time.Millisecond)
	repo := NewRepository(store)

	recipients := []string{"a", "b", "c"}
	const perRecipient = 10
	var wg sync.WaitGroup
	for _, r := range recipients {
		for i := 0; i < perRecipient; i++ {
			wg.Add(1)
			go func(r string) {
				defer wg.Done()
				assert.True(t, repo.Award(ctx, "G", r, "C", "general", "x"))
			}(r)
		}
	}
	wg.Wait()

	agg := repo.ReadChannel(ctx, "G", "C")
	assert.Equal(t, int64(len(recipients)*perRecipient), agg.TotalResources)
	for _, r := range recipients {
		assert.Equal(t, int64(perRecipient), repo.ReadProfile(ctx, "G", r).Count)
		assert.Equal(t, int64(perRecipient), agg.Users[r])
	}
}
