package docstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stores возвращает все реализации, которые можно поднять без внешних сервисов.
func stores(t *testing.T) map[string]Store {
	t.Helper()
	sq, err := OpenSQLite(filepath.Join(t.TempDir(), "test.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { sq.Close() })

	return map[string]Store{
		"memory":  NewMemory(),
		"sqlite":  sq,
		"timeout": WithTimeout(NewMemory(), time.Second),
	}
}

func TestStore_GetSetUpdateDelete(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Get(ctx, "resources", "g_u")
			assert.ErrorIs(t, err, ErrNotFound)

			err = s.Update(ctx, "resources", "g_u", Document{"count": 1})
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, s.Set(ctx, "resources", "g_u", Document{
				"guild_id": "g",
				"count":    1,
				"channels": map[string]any{"c1": map[string]any{"name": "general", "count": 1}},
			}))

			require.NoError(t, s.Update(ctx, "resources", "g_u", Document{
				"count":    2,
				"channels": map[string]any{"c2": map[string]any{"name": "help", "count": 1}},
			}))

			doc, err := s.Get(ctx, "resources", "g_u")
			require.NoError(t, err)
			assert.Equal(t, "g", doc["guild_id"])
			assert.EqualValues(t, 2, doc["count"])
			// вложенные объекты заменяются целиком
			channels := doc["channels"].(map[string]any)
			assert.Len(t, channels, 1)
			assert.Contains(t, channels, "c2")

			require.NoError(t, s.Delete(ctx, "resources", "g_u"))
			_, err = s.Get(ctx, "resources", "g_u")
			assert.ErrorIs(t, err, ErrNotFound)

			// удаление несуществующего документа — не ошибка
			assert.NoError(t, s.Delete(ctx, "resources", "missing"))
		})
	}
}

func TestStore_QueryFiltersOrderLimit(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			seed := []struct {
				key   string
				guild string
				count int
			}{
				{"g1_a", "g1", 3},
				{"g1_b", "g1", 7},
				{"g1_c", "g1", 3},
				{"g1_d", "g1", 1},
				{"g2_a", "g2", 100},
			}
			for _, d := range seed {
				require.NoError(t, s.Set(ctx, "resources", d.key, Document{"guild_id": d.guild, "count": d.count}))
			}

			snaps, err := s.Query(ctx, "resources", Query{
				Filters: []Filter{{Field: "guild_id", Value: "g1"}},
				OrderBy: "count",
				Desc:    true,
				Limit:   3,
			})
			require.NoError(t, err)
			require.Len(t, snaps, 3)
			// равные значения упорядочены по ключу
			assert.Equal(t, []string{"g1_b", "g1_a", "g1_c"}, keys(snaps))

			all, err := s.Query(ctx, "resources", Query{})
			require.NoError(t, err)
			assert.Len(t, all, 5)

			none, err := s.Query(ctx, "resources", Query{Filters: []Filter{{Field: "guild_id", Value: "nope"}}})
			require.NoError(t, err)
			assert.Empty(t, none)

			_, err = s.Query(ctx, "resources", Query{OrderBy: "count; DROP TABLE documents"})
			assert.Error(t, err)
		})
	}
}

func TestStore_BatchDelete(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			refs := []Ref{
				{Collection: "warnings", Key: "w1"},
				{Collection: "warnings", Key: "w2"},
			}
			for _, r := range refs {
				require.NoError(t, s.Set(ctx, r.Collection, r.Key, Document{"user_id": "u"}))
			}
			require.NoError(t, s.Set(ctx, "warnings", "keep", Document{"user_id": "other"}))

			require.NoError(t, s.BatchDelete(ctx, refs))
			require.NoError(t, s.BatchDelete(ctx, nil))

			left, err := s.Query(ctx, "warnings", Query{})
			require.NoError(t, err)
			assert.Equal(t, []string{"keep"}, keys(left))
		})
	}
}

func TestEncodeDecode(t *testing.T) {
	type profile struct {
		GuildID string         `json:"guild_id"`
		Count   int64          `json:"count"`
		GivenBy map[string]int `json:"given_by"`
	}
	doc, err := Encode(profile{GuildID: "g", Count: 4, GivenBy: map[string]int{"x": 4}})
	require.NoError(t, err)
	assert.Equal(t, "g", doc["guild_id"])

	var back profile
	require.NoError(t, Decode(doc, &back))
	assert.Equal(t, int64(4), back.Count)
	assert.Equal(t, 4, back.GivenBy["x"])
}

func TestWithTimeout_CancelledContext(t *testing.T) {
	s := WithTimeout(NewMemory(), time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Get(ctx, "resources", "g_u")
	assert.ErrorIs(t, err, context.Canceled)
}

func keys(snaps []Snapshot) []string {
	out := make([]string, len(snaps))
	for i, s := range snaps {
		out[i] = s.Key
	}
	return out
}
