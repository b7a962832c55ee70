package store

import (
	"context"
	"errors"
	"time"

	"github.com/koztkozt/bottlecangowhere/internal/domain"
)

// ErrNotFound is returned when a chat has no reminder configured.
var ErrNotFound = errors.New("store: reminder not found")

// Repo defines storage operations for reminders.
type Repo interface {
	UpsertReminder(ctx context.Context, r *domain.Reminder) error
	GetReminder(ctx context.Context, chatID int64) (*domain.Reminder, error)
	ListReminders(ctx context.Context) ([]domain.Reminder, error)
	SetLastFired(ctx context.Context, chatID int64, at time.Time) error
	CountReminders(ctx context.Context) (int, error)
	Close() error
}
