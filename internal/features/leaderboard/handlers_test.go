package leaderboard

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"serotonyl.ru/resource-bot/internal/common"
)

func TestButtonErrorText(t *testing.T) {
	assert.Equal(t, "End of leaderboard reached", buttonErrorText(common.ErrNoMoreEntries))
	assert.Equal(t, "Already on first page", buttonErrorText(common.ErrFirstPage))
	assert.Equal(t, "Failed to load leaderboard. Please try again later.", buttonErrorText(errors.New("boom")))
}
