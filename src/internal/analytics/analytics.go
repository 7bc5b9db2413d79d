// Package analytics persists per-day message counts for every bot.
package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

type Type string

const (
	Send    Type = "send"
	Receive Type = "receive"
)

// Event is one message sent or received by a bot.
type Event struct {
	Type     Type
	Platform string
	SelfID   string
	At       time.Time
}

// Row is an aggregated count for one (type, platform, self id) group.
type Row struct {
	Type     Type
	Platform string
	SelfID   string
	Count    int64
}

type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the sqlite database at path.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL&_synchronous=NORMAL", path)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database not responding: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := runMigration(db); err != nil {
		db.Close()
		return nil, err
	}

	slog.Info("analytics database ready", "path", path)
	return &Store{db: db}, nil
}

func runMigration(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS analytics_message (
		date INTEGER NOT NULL,
		type TEXT NOT NULL,
		platform TEXT NOT NULL,
		self_id TEXT NOT NULL,
		count INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (date, type, platform, self_id)
	);
	`
	if _, err := db.Exec(query); err != nil {
		return fmt.Errorf("failed to migrate analytics_message table: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Record counts e against the calendar day it happened on.
func (s *Store) Record(ctx context.Context, e Event) error {
	const query = `
	INSERT INTO analytics_message (date, type, platform, self_id, count)
	VALUES (?, ?, ?, ?, 1)
	ON CONFLICT (date, type, platform, self_id) DO UPDATE SET count = count + 1`

	if _, err := s.db.ExecContext(ctx, query, DateNumber(e.At), string(e.Type), e.Platform, e.SelfID); err != nil {
		return fmt.Errorf("record %s event: %w", e.Type, err)
	}
	return nil
}

// Aggregate sums counts with from <= date < to, grouped by type, platform
// and self id.
func (s *Store) Aggregate(ctx context.Context, from, to int) ([]Row, error) {
	const query = `
	SELECT type, platform, self_id, SUM(count)
	FROM analytics_message
	WHERE date >= ? AND date < ?
	GROUP BY type, platform, self_id`

	rows, err := s.db.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("aggregate message counts: %w", err)
	}
	defer rows.Close()

	var res []Row
	for rows.Next() {
		var r Row
		var typ string
		if err := rows.Scan(&typ, &r.Platform, &r.SelfID, &r.Count); err != nil {
			return nil, fmt.Errorf("scan message count: %w", err)
		}
		r.Type = Type(typ)
		res = append(res, r)
	}
	return res, rows.Err()
}

// Prune deletes counts older than the given day number.
func (s *Store) Prune(ctx context.Context, before int) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM analytics_message WHERE date < ?`, before)
	if err != nil {
		return 0, fmt.Errorf("prune message counts: %w", err)
	}
	return res.RowsAffected()
}
