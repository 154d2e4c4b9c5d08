package bot

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/resource-bot/internal/chat"
	"serotonyl.ru/resource-bot/internal/db/docstore"
	"serotonyl.ru/resource-bot/internal/features/afk"
	"serotonyl.ru/resource-bot/internal/features/resources"
)

type routerFixture struct {
	router *Router
	afk    *afk.Registry
	repo   *resources.Repository
}

func newRouterFixture() *routerFixture {
	store := docstore.NewMemory()
	repo := resources.NewRepository(store)
	svc := resources.NewService(repo, resources.NewCooldownGate(time.Hour), resources.NewDetector(nil))
	reg := afk.NewRegistry(store)
	return &routerFixture{
		router: NewRouter(svc, reg, 10*time.Second),
		afk:    reg,
		repo:   repo,
	}
}

var (
	alice = chat.User{ID: "1", DisplayName: "alice"}
	bob   = chat.User{ID: "2", DisplayName: "bob"}
	carol = chat.User{ID: "3", DisplayName: "carol"}
)

func message(author chat.User, content string, mentions ...chat.User) chat.Message {
	return chat.Message{
		ID:          "m",
		GuildID:     "G",
		ChannelID:   "C",
		ChannelName: "general",
		Author:      author,
		Mentions:    mentions,
		Content:     content,
	}
}

func texts(out Outcome) []string {
	res := make([]string, len(out.Notices))
	for i, n := range out.Notices {
		res[i] = n.Text
	}
	return res
}

func TestRouter_AfkMentionDoesNotClear(t *testing.T) {
	f := newRouterFixture()
	ctx := context.Background()

	_, err := f.afk.SetAfk(ctx, "G", bob.ID, "brb")
	require.NoError(t, err)

	out := f.router.HandleMessage(ctx, message(alice, "hey", bob))
	assert.Equal(t, []string{"bob is currently AFK: brb"}, texts(out))
	assert.False(t, out.Returned)

	rec, ok := f.afk.IsAfk(bob.ID)
	require.True(t, ok)
	assert.Equal(t, "brb", rec.Reason)
}

func TestRouter_WelcomeBackOnce(t *testing.T) {
	f := newRouterFixture()
	ctx := context.Background()

	_, err := f.afk.SetAfk(ctx, "G", bob.ID, "")
	require.NoError(t, err)

	out := f.router.HandleMessage(ctx, message(bob, "back"))
	require.Len(t, out.Notices, 1)
	assert.Equal(t, "Welcome back, <@2>! I've removed your AFK status.", out.Notices[0].Text)
	assert.Equal(t, 10*time.Second, out.Notices[0].DeleteAfter)
	assert.True(t, out.Returned)

	_, ok := f.afk.IsAfk(bob.ID)
	assert.False(t, ok)

	out = f.router.HandleMessage(ctx, message(bob, "still here"))
	assert.Empty(t, out.Notices)
	assert.False(t, out.Returned)
}

func TestRouter_MultipleAfkMentions(t *testing.T) {
	f := newRouterFixture()
	ctx := context.Background()

	_, err := f.afk.SetAfk(ctx, "G", bob.ID, "")
	require.NoError(t, err)
	_, err = f.afk.SetAfk(ctx, "G", carol.ID, "lunch")
	require.NoError(t, err)

	out := f.router.HandleMessage(ctx, message(alice, "ping", bob, carol, bob))
	assert.Equal(t, []string{
		"bob is currently AFK: No reason provided",
		"carol is currently AFK: lunch",
	}, texts(out))
}

func TestRouter_AcknowledgmentAndAfkTogether(t *testing.T) {
	f := newRouterFixture()
	ctx := context.Background()

	_, err := f.afk.SetAfk(ctx, "G", alice.ID, "")
	require.NoError(t, err)
	_, err = f.afk.SetAfk(ctx, "G", bob.ID, "sleeping")
	require.NoError(t, err)

	out := f.router.HandleMessage(ctx, message(alice, "thanks a lot", bob, carol))
	assert.Equal(t, []string{
		"Welcome back, <@1>! I've removed your AFK status.",
		"bob is currently AFK: sleeping",
		"📚 <@1> acknowledged <@2>, <@3> for their helpful contribution!",
	}, texts(out))

	assert.Equal(t, int64(1), f.repo.ReadProfile(ctx, "G", bob.ID).Count)
	assert.Equal(t, int64(1), f.repo.ReadProfile(ctx, "G", carol.ID).Count)

	// кулдаун: повторная благодарность ничего не начисляет
	out = f.router.HandleMessage(ctx, message(alice, "thanks again", carol))
	assert.Empty(t, out.Notices)
	assert.Equal(t, int64(1), f.repo.ReadProfile(ctx, "G", carol.ID).Count)
}

func TestRouter_DisabledFeatures(t *testing.T) {
	r := NewRouter(nil, nil, 0)
	out := r.HandleMessage(context.Background(), message(alice, "thanks", bob))
	assert.Empty(t, out.Notices)
}
