// Package testutil содержит тестовые двойники, общие для нескольких пакетов.
package testutil

import (
	"context"
	"errors"
	"sync"
	"time"

	"serotonyl.ru/resource-bot/internal/db/docstore"
)

// ErrInjected — ошибка, которую возвращает FaultyStore.
var ErrInjected = errors.New("injected storage fault")

// FaultyStore оборачивает Store и позволяет ронять отдельные операции.
// Правило задаётся на (операция, коллекция); пустая коллекция — любая.
type FaultyStore struct {
	docstore.Store

	mu    sync.Mutex
	rules   map[string]map[string]bool
	calls   map[string]int
	latency map[string]time.Duration
}

// NewFaultyStore создаёт обёртку над next.
func NewFaultyStore(next docstore.Store) *FaultyStore {
	return &FaultyStore{
		Store: next,
		rules:   make(map[string]map[string]bool),
		calls:   make(map[string]int),
		latency: make(map[string]time.Duration),
	}
}

// Delay добавляет задержку d перед каждой операцией op.
func (f *FaultyStore) Delay(op string, d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.latency[op] = d
}

// Fail включает отказ операции op ("get", "set", "update", "delete", "query", "batch_delete").
func (f *FaultyStore) Fail(op, collection string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rules[op] == nil {
		f.rules[op] = make(map[string]bool)
	}
	f.rules[op][collection] = true
}

// Heal снимает все отказы.
func (f *FaultyStore) Heal() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules = make(map[string]map[string]bool)
}

// Calls — сколько раз вызывалась операция op.
func (f *FaultyStore) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *FaultyStore) check(op, collection string) error {
	f.mu.Lock()
	f.calls[op]++
	failed := f.rules[op][collection] || f.rules[op][""]
	delay := f.latency[op]
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if failed {
		return ErrInjected
	}
	return nil
}

func (f *FaultyStore) Get(ctx context.Context, collection, key string) (docstore.Document, error) {
	if err := f.check("get", collection); err != nil {
		return nil, err
	}
	return f.Store.Get(ctx, collection, key)
}

func (f *FaultyStore) Set(ctx context.Context, collection, key string, fields docstore.Document) error {
	if err := f.check("set", collection); err != nil {
		return err
	}
	return f.Store.Set(ctx, collection, key, fields)
}

func (f *FaultyStore) Update(ctx context.Context, collection, key string, fields docstore.Document) error {
	if err := f.check("update", collection); err != nil {
		return err
	}
	return f.Store.Update(ctx, collection, key, fields)
}

func (f *FaultyStore) Delete(ctx context.Context, collection, key string) error {
	if err := f.check("delete", collection); err != nil {
		return err
	}
	return f.Store.Delete(ctx, collection, key)
}

func (f *FaultyStore) Query(ctx context.Context, collection string, q docstore.Query) ([]docstore.Snapshot, error) {
	if err := f.check("query", collection); err != nil {
		return nil, err
	}
	return f.Store.Query(ctx, collection, q)
}

func (f *FaultyStore) BatchDelete(ctx context.Context, refs []docstore.Ref) error {
	coll := ""
	if len(refs) > 0 {
		coll = refs[0].Collection
	}
	if err := f.check("batch_delete", coll); err != nil {
		return err
	}
	return f.Store.BatchDelete(ctx, refs)
}
