package docstore

import (
	"context"
	"errors"
	"time"

	"serotonyl.ru/resource-bot/internal/metrics"
)

// timeoutStore ограничивает каждый вызов хранилища по времени
// и пишет метрики операций.
type timeoutStore struct {
	next    Store
	timeout time.Duration
}

// WithTimeout оборачивает хранилище: ни один вызов не висит дольше timeout.
func WithTimeout(next Store, timeout time.Duration) Store {
	return &timeoutStore{next: next, timeout: timeout}
}

func (t *timeoutStore) run(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	start := time.Now()
	err := fn(ctx)
	metrics.StorageOpDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())

	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound):
		result = "not_found"
	default:
		result = "error"
	}
	metrics.StorageOpsTotal.WithLabelValues(op, result).Inc()
	return err
}

func (t *timeoutStore) Get(ctx context.Context, collection, key string) (doc Document, err error) {
	err = t.run(ctx, "get", func(ctx context.Context) error {
		doc, err = t.next.Get(ctx, collection, key)
		return err
	})
	return doc, err
}

func (t *timeoutStore) Set(ctx context.Context, collection, key string, fields Document) error {
	return t.run(ctx, "set", func(ctx context.Context) error {
		return t.next.Set(ctx, collection, key, fields)
	})
}

func (t *timeoutStore) Update(ctx context.Context, collection, key string, fields Document) error {
	return t.run(ctx, "update", func(ctx context.Context) error {
		return t.next.Update(ctx, collection, key, fields)
	})
}

func (t *timeoutStore) Delete(ctx context.Context, collection, key string) error {
	return t.run(ctx, "delete", func(ctx context.Context) error {
		return t.next.Delete(ctx, collection, key)
	})
}

func (t *timeoutStore) Query(ctx context.Context, collection string, q Query) (snaps []Snapshot, err error) {
	err = t.run(ctx, "query", func(ctx context.Context) error {
		snaps, err = t.next.Query(ctx, collection, q)
		return err
	})
	return snaps, err
}

func (t *timeoutStore) BatchDelete(ctx context.Context, refs []Ref) error {
	return t.run(ctx, "batch_delete", func(ctx context.Context) error {
		return t.next.BatchDelete(ctx, refs)
	})
}
