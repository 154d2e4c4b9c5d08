package jobs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSweeper struct {
	calls   int
	removed int
}

func (c *countingSweeper) Sweep() int {
	c.calls++
	return c.removed
}

func TestScheduler_RunOnce(t *testing.T) {
	s := NewScheduler("")
	views := &countingSweeper{removed: 2}
	gate := &countingSweeper{}
	s.Register("leaderboard_views", views)
	s.Register("cooldowns", gate)

	out := s.RunOnce()
	assert.Equal(t, map[string]int{"leaderboard_views": 2, "cooldowns": 0}, out)
	assert.Equal(t, 1, views.calls)
	assert.Equal(t, 1, gate.calls)
}

func TestScheduler_InvalidSpec(t *testing.T) {
	s := NewScheduler("every tuesday")
	assert.Error(t, s.Start(context.Background()))
}

func TestScheduler_StartStop(t *testing.T) {
	s := NewScheduler("@every 1h")
	require.NoError(t, s.Start(context.Background()))
	s.Stop()
}
