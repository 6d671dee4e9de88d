package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	domain "mailsweep/internal/domain/email"
	_ "modernc.org/sqlite"
)

// CategoryCache remembers sender categories so repeat fetches skip the model.
type CategoryCache struct {
	db  *sql.DB
	now func() time.Time
}

// NewCategoryCache opens dsn. The default in-memory DSN keeps the cache
// scoped to the process.
func NewCategoryCache(dsn string) (*CategoryCache, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// one long-lived connection: a memory database vanishes when its last
	// connection closes
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	db.Exec("PRAGMA busy_timeout = 5000;")

	schema := `
CREATE TABLE IF NOT EXISTS sender_categories (
    sender TEXT PRIMARY KEY,
    category TEXT NOT NULL,
    updated_at INTEGER NOT NULL
);
`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &CategoryCache{db: db, now: time.Now}, nil
}

func (c *CategoryCache) Get(ctx context.Context, senders []string) (map[string]domain.Category, error) {
	out := make(map[string]domain.Category)
	if len(senders) == 0 {
		return out, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(senders)), ",")
	args := make([]any, len(senders))
	for i, s := range senders {
		args[i] = s
	}

	rows, err := c.db.QueryContext(ctx,
		`SELECT sender, category FROM sender_categories WHERE sender IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var sender, category string
		if err := rows.Scan(&sender, &category); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out[sender] = domain.ParseCategory(category)
	}
	return out, rows.Err()
}

func (c *CategoryCache) Put(ctx context.Context, categories map[string]domain.Category) error {
	if len(categories) == 0 {
		return nil
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO sender_categories (sender, category, updated_at) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	ts := c.now().Unix()
	for sender, cat := range categories {
		if _, err := stmt.ExecContext(ctx, sender, string(cat), ts); err != nil {
			return fmt.Errorf("save category: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (c *CategoryCache) Close() error {
	return c.db.Close()
}
