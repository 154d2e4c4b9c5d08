package docstore

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/goccy/go-json"
)

// Memory — in-memory хранилище. Документы хранятся сериализованными,
// поэтому вызывающий код не может поменять их в обход Set/Update.
// Используется в тестах и при DB_DRIVER=memory.
type Memory struct {
	mu   sync.RWMutex
	data map[string]map[string][]byte
}

// NewMemory создаёт пустое in-memory хранилище.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]map[string][]byte)}
}

func (m *Memory) Get(ctx context.Context, collection, key string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	raw, ok := m.data[collection][key]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return unmarshalDoc(raw)
}

func (m *Memory) Set(ctx context.Context, collection, key string, fields Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("memory set: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	coll, ok := m.data[collection]
	if !ok {
		coll = make(map[string][]byte)
		m.data[collection] = coll
	}
	coll[key] = raw
	return nil
}

func (m *Memory) Update(ctx context.Context, collection, key string, fields Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.data[collection][key]
	if !ok {
		return ErrNotFound
	}
	base, err := unmarshalDoc(raw)
	if err != nil {
		return err
	}
	merged, err := json.Marshal(merge(base, fields))
	if err != nil {
		return fmt.Errorf("memory update: %w", err)
	}
	m.data[collection][key] = merged
	return nil
}

func (m *Memory) Delete(ctx context.Context, collection, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data[collection], key)
	return nil
}

func (m *Memory) Query(ctx context.Context, collection string, q Query) ([]Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateQuery(q); err != nil {
		return nil, err
	}

	wanted := make([][]byte, len(q.Filters))
	for i, f := range q.Filters {
		b, err := json.Marshal(f.Value)
		if err != nil {
			return nil, fmt.Errorf("memory query: %w", err)
		}
		wanted[i] = b
	}

	m.mu.RLock()
	keys := make([]string, 0, len(m.data[collection]))
	for k := range m.data[collection] {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []Snapshot
	for _, k := range keys {
		doc, err := unmarshalDoc(m.data[collection][k])
		if err != nil {
			m.mu.RUnlock()
			return nil, err
		}
		if matches(doc, q.Filters, wanted) {
			out = append(out, Snapshot{Key: k, Fields: doc})
		}
	}
	m.mu.RUnlock()

	if q.OrderBy != "" {
		sort.SliceStable(out, func(i, j int) bool {
			a, b := numeric(out[i].Fields[q.OrderBy]), numeric(out[j].Fields[q.OrderBy])
			if q.Desc {
				return a > b
			}
			return a < b
		})
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (m *Memory) BatchDelete(ctx context.Context, refs []Ref) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range refs {
		delete(m.data[r.Collection], r.Key)
	}
	return nil
}

func matches(doc Document, filters []Filter, wanted [][]byte) bool {
	for i, f := range filters {
		v, ok := doc[f.Field]
		if !ok {
			return false
		}
		got, err := json.Marshal(v)
		if err != nil || !bytes.Equal(got, wanted[i]) {
			return false
		}
	}
	return true
}

// numeric приводит значение поля к float64 для сортировки. Нечисловые поля = 0.
func numeric(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case json.Number:
		f, _ := n.Float64()
		return f
	case string:
		f, _ := strconv.ParseFloat(n, 64)
		return f
	}
	return 0
}

func unmarshalDoc(raw []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("corrupted document: %w", err)
	}
	return doc, nil
}
