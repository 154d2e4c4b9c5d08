package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	_ "modernc.org/sqlite"
)

// SQLite — хранилище документов в одном файле, для запуска без PostgreSQL.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite открывает (или создаёт) базу по пути path и создаёт схему.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", path, err)
	}
	// один писатель: транзакции read-modify-write не упираются в SQLITE_BUSY
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", pragma, err)
		}
	}

	const ddl = `
CREATE TABLE IF NOT EXISTS documents (
  collection TEXT NOT NULL,
  key TEXT NOT NULL,
  fields TEXT NOT NULL,
  updated_at INTEGER NOT NULL DEFAULT 0,
  PRIMARY KEY (collection, key)
);`
	if _, err := db.Exec(ddl); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: init schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Close закрывает базу.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) Get(ctx context.Context, collection, key string) (Document, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT fields FROM documents WHERE collection = ? AND key = ?`, collection, key,
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("sqlite get %s/%s: %w", collection, key, err)
	}
	return unmarshalDoc([]byte(raw))
}

func (s *SQLite) Set(ctx context.Context, collection, key string, fields Document) error {
	raw, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("sqlite set: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (collection, key, fields, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(collection, key) DO UPDATE SET fields = excluded.fields, updated_at = excluded.updated_at`,
		collection, key, string(raw), time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("sqlite set %s/%s: %w", collection, key, err)
	}
	return nil
}

// Update читает документ и заменяет поля верхнего уровня в одной транзакции.
func (s *SQLite) Update(ctx context.Context, collection, key string, fields Document) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin tx: %w", err)
	}
	defer tx.Rollback()

	var raw string
	err = tx.QueryRowContext(ctx,
		`SELECT fields FROM documents WHERE collection = ? AND key = ?`, collection, key,
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("sqlite update %s/%s: %w", collection, key, err)
	}
	base, err := unmarshalDoc([]byte(raw))
	if err != nil {
		return err
	}
	merged, err := json.Marshal(merge(base, fields))
	if err != nil {
		return fmt.Errorf("sqlite update: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE documents SET fields = ?, updated_at = ? WHERE collection = ? AND key = ?`,
		string(merged), time.Now().Unix(), collection, key,
	); err != nil {
		return fmt.Errorf("sqlite update %s/%s: %w", collection, key, err)
	}
	return tx.Commit()
}

func (s *SQLite) Delete(ctx context.Context, collection, key string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE collection = ? AND key = ?`, collection, key,
	); err != nil {
		return fmt.Errorf("sqlite delete %s/%s: %w", collection, key, err)
	}
	return nil
}

func (s *SQLite) Query(ctx context.Context, collection string, q Query) ([]Snapshot, error) {
	if err := validateQuery(q); err != nil {
		return nil, err
	}

	var sb strings.Builder
	args := []any{collection}
	sb.WriteString(`SELECT key, fields FROM documents WHERE collection = ?`)

	for _, f := range q.Filters {
		val, err := json.Marshal(f.Value)
		if err != nil {
			return nil, fmt.Errorf("sqlite query: %w", err)
		}
		sb.WriteString(` AND json_extract(fields, ?) = json_extract(?, '$')`)
		args = append(args, "$."+f.Field, string(val))
	}

	if q.OrderBy != "" {
		dir := "ASC"
		if q.Desc {
			dir = "DESC"
		}
		fmt.Fprintf(&sb, ` ORDER BY CAST(json_extract(fields, ?) AS REAL) %s, key ASC`, dir)
		args = append(args, "$."+q.OrderBy)
	} else {
		sb.WriteString(` ORDER BY key ASC`)
	}

	if q.Limit > 0 {
		sb.WriteString(` LIMIT ?`)
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite query %s: %w", collection, err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var key, raw string
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, fmt.Errorf("sqlite scan %s: %w", collection, err)
		}
		doc, err := unmarshalDoc([]byte(raw))
		if err != nil {
			return nil, err
		}
		out = append(out, Snapshot{Key: key, Fields: doc})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite rows %s: %w", collection, err)
	}
	return out, nil
}

// BatchDelete удаляет документы в одной транзакции.
func (s *SQLite) BatchDelete(ctx context.Context, refs []Ref) error {
	if len(refs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, r := range refs {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM documents WHERE collection = ? AND key = ?`, r.Collection, r.Key,
		); err != nil {
			return fmt.Errorf("sqlite batch delete %s/%s: %w", r.Collection, r.Key, err)
		}
	}
	return tx.Commit()
}
