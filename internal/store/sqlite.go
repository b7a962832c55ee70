package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// Registers the "sqlite" driver (pure Go).
	_ "modernc.org/sqlite"

	"github.com/koztkozt/bottlecangowhere/internal/domain"
)

// SQLiteRepo implements Repo using an embedded SQLite database.
type SQLiteRepo struct{ db *sql.DB }

// OpenSQLite opens (or creates) the SQLite database at the given path,
// applies recommended PRAGMAs, runs SQL migrations, and returns a repository.
func OpenSQLite(ctx context.Context, path string) (*SQLiteRepo, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Reasonable pooling for SQLite; it's a single-writer engine.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applyPragmas(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	return &SQLiteRepo{db: db}, nil
}

// applyPragmas configures the SQLite connection for durability and concurrency.
func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying database resources.
func (r *SQLiteRepo) Close() error {
	return r.db.Close()
}

// UpsertReminder inserts or replaces a chat's reminder. Reconfiguring
// overwrites the whole row, including last_fired_at and created_at, so the
// new schedule starts with a clean delivery history.
func (r *SQLiteRepo) UpsertReminder(ctx context.Context, rem *domain.Reminder) error {
	if rem == nil {
		return errors.New("nil reminder")
	}

	created := rem.CreatedAt.UTC().Unix()
	if rem.CreatedAt.IsZero() {
		created = time.Now().UTC().Unix()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO reminders (
			chat_id, frequency, day_of_month, minute_of_day, last_fired_at, created_at
		) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(chat_id) DO UPDATE SET
			frequency     = excluded.frequency,
			day_of_month  = excluded.day_of_month,
			minute_of_day = excluded.minute_of_day,
			last_fired_at = excluded.last_fired_at,
			created_at    = excluded.created_at`,
		rem.ChatID, string(rem.Frequency), rem.Day, rem.MinuteOfDay,
		toNullInt64(rem.LastFiredAt), created,
	)
	return err
}

// GetReminder returns a chat's reminder, or ErrNotFound.
func (r *SQLiteRepo) GetReminder(ctx context.Context, chatID int64) (*domain.Reminder, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT chat_id, frequency, day_of_month, minute_of_day, last_fired_at, created_at
		FROM reminders
		WHERE chat_id = ?`,
		chatID,
	)

	rem, err := scanReminder(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rem, nil
}

// ListReminders returns every reminder, ordered by chat_id. Due filtering
// happens in Go: the fire moment depends on month length and timezone,
// which domain.Due owns.
func (r *SQLiteRepo) ListReminders(ctx context.Context) ([]domain.Reminder, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT chat_id, frequency, day_of_month, minute_of_day, last_fired_at, created_at
		FROM reminders
		ORDER BY chat_id ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.Reminder
	for rows.Next() {
		rem, err := scanReminder(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, *rem)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// SetLastFired records a successful delivery for a chat's reminder.
func (r *SQLiteRepo) SetLastFired(ctx context.Context, chatID int64, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE reminders
		SET last_fired_at = ?
		WHERE chat_id = ?`,
		at.UTC().Unix(), chatID,
	)
	return err
}

// CountReminders returns the number of configured reminders.
func (r *SQLiteRepo) CountReminders(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reminders`).Scan(&n)
	return n, err
}

// scanReminder maps one row onto a domain.Reminder via the given Scan func,
// shared by single-row and multi-row queries.
func scanReminder(scan func(dest ...any) error) (*domain.Reminder, error) {
	var (
		chatID    int64
		frequency string
		day       int
		minute    int
		lastNS    sql.NullInt64
		createdAt int64
	)
	if err := scan(&chatID, &frequency, &day, &minute, &lastNS, &createdAt); err != nil {
		return nil, err
	}
	return &domain.Reminder{
		ChatID:      chatID,
		Frequency:   domain.Frequency(frequency),
		Day:         day,
		MinuteOfDay: minute,
		LastFiredAt: fromNullInt64(lastNS),
		CreatedAt:   time.Unix(createdAt, 0).UTC(),
	}, nil
}

// toNullInt64 converts an optional UTC time to a nullable unix column.
func toNullInt64(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UTC().Unix(), Valid: true}
}

func fromNullInt64(ns sql.NullInt64) *time.Time {
	if !ns.Valid {
		return nil
	}
	t := time.Unix(ns.Int64, 0).UTC()
	return &t
}
