// Package docstore описывает минимальный контракт документного хранилища,
// через который работают все фичи бота: get/set/update/delete/query и атомарное
// пакетное удаление. Реализации: Postgres (JSONB), SQLite и in-memory.
//
// Документ — это набор полей верхнего уровня. Update заменяет только
// переданные поля, вложенные объекты не сливаются.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/goccy/go-json"
)

// ErrNotFound — документа с таким ключом нет.
var ErrNotFound = errors.New("document not found")

// Document — поля документа.
type Document map[string]any

// Snapshot — документ вместе с ключом (результат Query).
type Snapshot struct {
	Key    string
	Fields Document
}

// Decode раскладывает поля снапшота в структуру.
func (s Snapshot) Decode(v any) error {
	return Decode(s.Fields, v)
}

// Filter — условие равенства по полю верхнего уровня.
type Filter struct {
	Field string
	Value any
}

// Query — параметры выборки. OrderBy — числовое поле; при равенстве
// значений порядок всегда по ключу документа (по возрастанию).
type Query struct {
	Filters []Filter
	OrderBy string
	Desc    bool
	Limit   int
}

// Ref — ссылка на документ для пакетного удаления.
type Ref struct {
	Collection string
	Key        string
}

// Store — контракт документного хранилища.
type Store interface {
	Get(ctx context.Context, collection, key string) (Document, error)
	Set(ctx context.Context, collection, key string, fields Document) error
	Update(ctx context.Context, collection, key string, fields Document) error
	Delete(ctx context.Context, collection, key string) error
	Query(ctx context.Context, collection string, q Query) ([]Snapshot, error)
	// BatchDelete удаляет все документы или ни одного.
	BatchDelete(ctx context.Context, refs []Ref) error
}

// Encode превращает структуру (с json-тегами) в Document.
func Encode(v any) (Document, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return doc, nil
}

// Decode раскладывает Document в структуру.
func Decode(doc Document, v any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	return nil
}

var fieldRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// validateQuery не пускает в SQL имена полей с произвольными символами.
func validateQuery(q Query) error {
	for _, f := range q.Filters {
		if !fieldRe.MatchString(f.Field) {
			return fmt.Errorf("invalid filter field %q", f.Field)
		}
	}
	if q.OrderBy != "" && !fieldRe.MatchString(q.OrderBy) {
		return fmt.Errorf("invalid order field %q", q.OrderBy)
	}
	if q.Limit < 0 {
		return fmt.Errorf("invalid limit %d", q.Limit)
	}
	return nil
}

// merge возвращает копию base с заменёнными полями верхнего уровня.
func merge(base, patch Document) Document {
	out := make(Document, len(base)+len(patch))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range patch {
		out[k] = v
	}
	return out
}
