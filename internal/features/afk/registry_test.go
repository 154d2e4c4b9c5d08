package afk

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/resource-bot/internal/common"
	"serotonyl.ru/resource-bot/internal/db/docstore"
	"serotonyl.ru/resource-bot/internal/testutil"
)

func TestRegistry_SetAndReturn(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()
	reg := NewRegistry(store)

	_, err := reg.SetAfk(ctx, "G", "u", "brb")
	require.NoError(t, err)

	rec, ok := reg.IsAfk("u")
	require.True(t, ok)
	assert.Equal(t, "brb", rec.DisplayReason())

	_, err = store.Get(ctx, Collection, "G_u")
	require.NoError(t, err)

	// упоминание другим пользователем статус не снимает — снимает только Return
	_, ok = reg.IsAfk("u")
	assert.True(t, ok)

	rec, ok = reg.Return(ctx, "u")
	require.True(t, ok)
	assert.Equal(t, "G", rec.GuildID)

	_, ok = reg.IsAfk("u")
	assert.False(t, ok)
	_, err = store.Get(ctx, Collection, "G_u")
	assert.ErrorIs(t, err, docstore.ErrNotFound)

	_, ok = reg.Return(ctx, "u")
	assert.False(t, ok)
}

func TestRegistry_DefaultReasonAndOverwrite(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(docstore.NewMemory())

	_, err := reg.SetAfk(ctx, "G", "u", "   ")
	require.NoError(t, err)
	rec, _ := reg.IsAfk("u")
	assert.Equal(t, DefaultReason, rec.DisplayReason())

	_, err = reg.SetAfk(ctx, "G", "u", "lunch")
	require.NoError(t, err)
	rec, _ = reg.IsAfk("u")
	assert.Equal(t, "lunch", rec.Reason)
}

func TestRegistry_ClearAfk(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(docstore.NewMemory())

	_, err := reg.SetAfk(ctx, "G", "u", "")
	require.NoError(t, err)

	require.NoError(t, reg.ClearAfk(ctx, "OTHER", "u"))
	_, ok := reg.IsAfk("u")
	assert.True(t, ok, "clear in another guild keeps status")

	require.NoError(t, reg.ClearAfk(ctx, "G", "u"))
	_, ok = reg.IsAfk("u")
	assert.False(t, ok)
}

func TestRegistry_SetStorageFault(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewFaultyStore(docstore.NewMemory())
	reg := NewRegistry(store)

	store.Fail("set", Collection)
	_, err := reg.SetAfk(ctx, "G", "u", "brb")
	assert.ErrorIs(t, err, common.ErrStorage)
	_, ok := reg.IsAfk("u")
	assert.False(t, ok)
}

func TestRegistry_ReturnExactlyOnce(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(docstore.NewMemory())
	_, err := reg.SetAfk(ctx, "G", "u", "")
	require.NoError(t, err)

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := reg.Return(ctx, "u"); ok {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins)
}

func TestRegistry_ReturnStorageFaultStillClears(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewFaultyStore(docstore.NewMemory())
	reg := NewRegistry(store)
	_, err := reg.SetAfk(ctx, "G", "u", "")
	require.NoError(t, err)

	store.Fail("delete", Collection)
	_, ok := reg.Return(ctx, "u")
	assert.True(t, ok)
	_, ok = reg.IsAfk("u")
	assert.False(t, ok)
}

func TestRegistry_Warm(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()

	first := NewRegistry(store)
	first.now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
	_, err := first.SetAfk(ctx, "G1", "u", "old")
	require.NoError(t, err)
	first.now = func() time.Time { return time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC) }
	_, err = first.SetAfk(ctx, "G2", "u", "new")
	require.NoError(t, err)
	_, err = first.SetAfk(ctx, "G1", "v", "")
	require.NoError(t, err)

	second := NewRegistry(store)
	_, err = second.Warm(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, second.Len())

	rec, ok := second.IsAfk("u")
	require.True(t, ok)
	assert.Equal(t, "new", rec.Reason)
	assert.Equal(t, "G2", rec.GuildID)
}

func TestNickPrefix(t *testing.T) {
	nick, ok := AddNickPrefix("alice")
	assert.True(t, ok)
	assert.Equal(t, "[AFK] alice", nick)

	_, ok = AddNickPrefix("[AFK] alice")
	assert.False(t, ok)

	long, _ := AddNickPrefix(strings.Repeat("ж", 40))
	assert.Equal(t, 32, len([]rune(long)))

	plain, ok := StripNickPrefix("[AFK] alice")
	assert.True(t, ok)
	assert.Equal(t, "alice", plain)
	_, ok = StripNickPrefix("alice")
	assert.False(t, ok)
}
