// Package moderation — repository.go хранит предупреждения в документном хранилище.
package moderation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"serotonyl.ru/resource-bot/internal/common"
	"serotonyl.ru/resource-bot/internal/db/docstore"
)

// Repository — журнал предупреждений: только добавление, чтение и полная очистка.
type Repository struct {
	store docstore.Store
	now   func() time.Time
	newID func() (uuid.UUID, error)
}

// NewRepository создаёт журнал предупреждений.
func NewRepository(store docstore.Store) *Repository {
	return &Repository{store: store, now: time.Now, newID: uuid.NewV7}
}

// AddWarning добавляет предупреждение. Ключ включает UUIDv7, поэтому
// два предупреждения в одну и ту же миллисекунду не перезаписывают друг друга.
func (r *Repository) AddWarning(ctx context.Context, guildID, userID, reason, moderatorID string) (Warning, error) {
	id, err := r.newID()
	if err != nil {
		return Warning{}, fmt.Errorf("warning id: %w", err)
	}

	now := r.now().UTC()
	w := Warning{
		ID:          common.DocKey(guildID, userID, id.String()),
		GuildID:     guildID,
		UserID:      userID,
		Reason:      reason,
		ModeratorID: moderatorID,
		Timestamp:   now,
		CreatedMs:   now.UnixMilli(),
	}

	doc, err := docstore.Encode(w)
	if err != nil {
		return Warning{}, err
	}
	if err := r.store.Set(ctx, Collection, w.ID, doc); err != nil {
		return Warning{}, fmt.Errorf("add warning: %w", err)
	}
	return w, nil
}

// ListWarnings возвращает предупреждения пользователя в хронологическом порядке.
func (r *Repository) ListWarnings(ctx context.Context, guildID, userID string) ([]Warning, error) {
	snaps, err := r.store.Query(ctx, Collection, docstore.Query{
		Filters: []docstore.Filter{
			{Field: "guild_id", Value: guildID},
			{Field: "user_id", Value: userID},
		},
		OrderBy: "created_ms",
	})
	if err != nil {
		return nil, fmt.Errorf("list warnings: %w", err)
	}

	out := make([]Warning, 0, len(snaps))
	for _, s := range snaps {
		var w Warning
		if err := s.Decode(&w); err != nil {
			return nil, fmt.Errorf("list warnings: %w", err)
		}
		w.ID = s.Key
		out = append(out, w)
	}
	return out, nil
}

// ClearAll удаляет все предупреждения пользователя одним пакетом:
// либо все, либо ни одного. Возвращает число удалённых.
func (r *Repository) ClearAll(ctx context.Context, guildID, userID string) (int, error) {
	warnings, err := r.ListWarnings(ctx, guildID, userID)
	if err != nil {
		return 0, err
	}
	if len(warnings) == 0 {
		return 0, nil
	}

	refs := make([]docstore.Ref, len(warnings))
	for i, w := range warnings {
		refs[i] = docstore.Ref{Collection: Collection, Key: w.ID}
	}
	if err := r.store.BatchDelete(ctx, refs); err != nil {
		return 0, fmt.Errorf("clear warnings: %w", err)
	}
	return len(refs), nil
}
