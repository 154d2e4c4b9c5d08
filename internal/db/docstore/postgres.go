package docstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres хранит документы в одной таблице documents(collection, key, fields JSONB).
// Схема создаётся миграцией (см. internal/app).
type Postgres struct {
	db *pgxpool.Pool
}

// NewPostgres создаёт хранилище поверх пула соединений.
func NewPostgres(db *pgxpool.Pool) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) Get(ctx context.Context, collection, key string) (Document, error) {
	var raw []byte
	err := p.db.QueryRow(ctx,
		`SELECT fields FROM documents WHERE collection = $1 AND key = $2`,
		collection, key,
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("postgres get %s/%s: %w", collection, key, err)
	}
	return unmarshalDoc(raw)
}

func (p *Postgres) Set(ctx context.Context, collection, key string, fields Document) error {
	raw, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("postgres set: %w", err)
	}
	_, err = p.db.Exec(ctx, `
		INSERT INTO documents (collection, key, fields, updated_at)
		VALUES ($1, $2, $3::jsonb, NOW())
		ON CONFLICT (collection, key) DO UPDATE
		SET fields = EXCLUDED.fields, updated_at = NOW()
	`, collection, key, string(raw))
	if err != nil {
		return fmt.Errorf("postgres set %s/%s: %w", collection, key, err)
	}
	return nil
}

// Update заменяет поля верхнего уровня оператором || (вложенные объекты не сливаются).
func (p *Postgres) Update(ctx context.Context, collection, key string, fields Document) error {
	raw, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("postgres update: %w", err)
	}
	tag, err := p.db.Exec(ctx, `
		UPDATE documents
		SET fields = fields || $3::jsonb, updated_at = NOW()
		WHERE collection = $1 AND key = $2
	`, collection, key, string(raw))
	if err != nil {
		return fmt.Errorf("postgres update %s/%s: %w", collection, key, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) Delete(ctx context.Context, collection, key string) error {
	_, err := p.db.Exec(ctx, `DELETE FROM documents WHERE collection = $1 AND key = $2`, collection, key)
	if err != nil {
		return fmt.Errorf("postgres delete %s/%s: %w", collection, key, err)
	}
	return nil
}

func (p *Postgres) Query(ctx context.Context, collection string, q Query) ([]Snapshot, error) {
	if err := validateQuery(q); err != nil {
		return nil, err
	}

	var sb strings.Builder
	args := []any{collection}
	sb.WriteString(`SELECT key, fields FROM documents WHERE collection = $1`)

	for _, f := range q.Filters {
		val, err := json.Marshal(f.Value)
		if err != nil {
			return nil, fmt.Errorf("postgres query: %w", err)
		}
		args = append(args, f.Field, string(val))
		fmt.Fprintf(&sb, ` AND fields -> $%d::text = $%d::jsonb`, len(args)-1, len(args))
	}

	if q.OrderBy != "" {
		args = append(args, q.OrderBy)
		dir := "ASC"
		if q.Desc {
			dir = "DESC"
		}
		fmt.Fprintf(&sb, ` ORDER BY (fields ->> $%d::text)::numeric %s NULLS LAST, key ASC`, len(args), dir)
	} else {
		sb.WriteString(` ORDER BY key ASC`)
	}

	if q.Limit > 0 {
		args = append(args, q.Limit)
		fmt.Fprintf(&sb, ` LIMIT $%d`, len(args))
	}

	rows, err := p.db.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("postgres query %s: %w", collection, err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var (
			key string
			raw []byte
		)
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, fmt.Errorf("postgres scan %s: %w", collection, err)
		}
		doc, err := unmarshalDoc(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, Snapshot{Key: key, Fields: doc})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres rows %s: %w", collection, err)
	}
	return out, nil
}

// BatchDelete удаляет документы в одной транзакции.
func (p *Postgres) BatchDelete(ctx context.Context, refs []Ref) error {
	if len(refs) == 0 {
		return nil
	}
	tx, err := p.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	// Откатываем транзакцию, если что-то пошло не так
	defer tx.Rollback(ctx)

	for _, r := range refs {
		if _, err := tx.Exec(ctx,
			`DELETE FROM documents WHERE collection = $1 AND key = $2`, r.Collection, r.Key,
		); err != nil {
			return fmt.Errorf("postgres batch delete %s/%s: %w", r.Collection, r.Key, err)
		}
	}
	return tx.Commit(ctx)
}
