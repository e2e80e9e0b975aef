// Package cache is the client's local SQLite store: the last fetched
// events and notifications, kept so the app has something to show when
// the backend is unreachable.
package cache

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3"

	"github.com/civibook/civibook-go/internal/civibook"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Cache wraps the local database.
type Cache struct {
	db *sql.DB
}

// Open opens (creating directories as needed) the cache database at
// path and applies embedded migrations.
func Open(path string) (*Cache, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", ensureForeignKeysEnabledDSN(path))
	if err != nil {
		return nil, fmt.Errorf("open cache database: %w", err)
	}
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate cache database: %w", err)
	}
	return &Cache{db: db}, nil
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// ensureForeignKeysEnabledDSN adds _fk=1 to the DSN unless the caller
// already set a foreign-key mode.
func ensureForeignKeysEnabledDSN(dsn string) string {
	if strings.Contains(dsn, "_fk=") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&_fk=1"
	}
	return dsn + "?_fk=1"
}

func runMigrations(db *sql.DB) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("create migrate driver: %w", err)
	}
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// SaveEvents replaces the cached event snapshot.
func (c *Cache) SaveEvents(ctx context.Context, events []civibook.Event) error {
	return c.replaceSnapshot(ctx, "cached_events", len(events), func(i int) (string, []byte, error) {
		payload, err := json.Marshal(events[i])
		return fmt.Sprintf("%d", events[i].ID), payload, err
	})
}

// Events returns the cached event snapshot in fetch order.
func (c *Cache) Events(ctx context.Context) ([]civibook.Event, error) {
	rows, err := c.db.QueryContext(ctx,
		"SELECT payload FROM cached_events ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("query cached events: %w", err)
	}
	defer rows.Close()

	var events []civibook.Event
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan cached event: %w", err)
		}
		var event civibook.Event
		if err := json.Unmarshal(payload, &event); err != nil {
			return nil, fmt.Errorf("decode cached event: %w", err)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// SaveNotifications replaces the cached notification snapshot.
func (c *Cache) SaveNotifications(ctx context.Context, notifications []civibook.Notification) error {
	return c.replaceSnapshot(ctx, "cached_notifications", len(notifications), func(i int) (string, []byte, error) {
		payload, err := json.Marshal(notifications[i])
		return notifications[i].ID, payload, err
	})
}

// Notifications returns the cached notification snapshot in fetch
// order.
func (c *Cache) Notifications(ctx context.Context) ([]civibook.Notification, error) {
	rows, err := c.db.QueryContext(ctx,
		"SELECT payload FROM cached_notifications ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("query cached notifications: %w", err)
	}
	defer rows.Close()

	var notifications []civibook.Notification
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan cached notification: %w", err)
		}
		var notification civibook.Notification
		if err := json.Unmarshal(payload, &notification); err != nil {
			return nil, fmt.Errorf("decode cached notification: %w", err)
		}
		notifications = append(notifications, notification)
	}
	return notifications, rows.Err()
}

// replaceSnapshot swaps a table's contents for a new snapshot in one
// transaction, so readers never observe a half-written cache.
func (c *Cache) replaceSnapshot(ctx context.Context, table string, count int, row func(i int) (string, []byte, error)) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin cache transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
		return fmt.Errorf("clear %s: %w", table, err)
	}

	now := time.Now().UTC()
	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO "+table+" (id, position, payload, fetched_at) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i := 0; i < count; i++ {
		id, payload, err := row(i)
		if err != nil {
			return fmt.Errorf("encode row %d: %w", i, err)
		}
		if _, err := stmt.ExecContext(ctx, id, i, payload, now); err != nil {
			return fmt.Errorf("insert into %s: %w", table, err)
		}
	}

	return tx.Commit()
}

// PurgeOlderThan removes snapshots fetched before the cutoff. Run from
// the poller's maintenance schedule.
func (c *Cache) PurgeOlderThan(ctx context.Context, age time.Duration) error {
	cutoff := time.Now().UTC().Add(-age)
	for _, table := range []string{"cached_events", "cached_notifications"} {
		if _, err := c.db.ExecContext(ctx,
			"DELETE FROM "+table+" WHERE fetched_at < ?", cutoff); err != nil {
			return fmt.Errorf("purge %s: %w", table, err)
		}
	}
	return nil
}
