package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/koztkozt/bottlecangowhere/internal/domain"
	"github.com/koztkozt/bottlecangowhere/internal/metrics"
	"github.com/koztkozt/bottlecangowhere/internal/store"
)

// Sender is a minimal interface the scheduler needs to send a text message.
// telegram.Router will implement this (method: SendMessage).
type Sender interface {
	SendMessage(chatID int64, text string) error
}

// Scheduler periodically polls the DB and delivers due recycling reminders.
type Scheduler struct {
	repo     store.Repo
	log      *zap.Logger
	sender   Sender
	loc      *time.Location
	interval time.Duration
}

// New creates a new Scheduler. Reminder days and times are interpreted in loc.
func New(repo store.Repo, log *zap.Logger, sender Sender, loc *time.Location, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Scheduler{
		repo:     repo,
		log:      log,
		sender:   sender,
		loc:      loc,
		interval: interval,
	}
}

// Run starts the loop until ctx is canceled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopping")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick performs one scheduling cycle: load reminders, deliver the due ones,
// mark deliveries. A failed send is not marked, so the reminder stays due
// and is retried on the next cycle.
func (s *Scheduler) tick(ctx context.Context) {
	now := time.Now()

	reminders, err := s.repo.ListReminders(ctx)
	if err != nil {
		s.log.Error("ListReminders failed", zap.Error(err))
		return
	}
	for _, rem := range reminders {
		if !domain.Due(&rem, now, s.loc) {
			continue
		}

		if err := s.sender.SendMessage(rem.ChatID, domain.ReminderText); err != nil {
			metrics.ReminderSendFailuresTotal.Inc()
			s.log.Error("reminder send failed", zap.Error(err), zap.Int64("chatID", rem.ChatID))
			continue
		}
		metrics.RemindersFiredTotal.Inc()

		if err := s.repo.SetLastFired(ctx, rem.ChatID, time.Now().UTC()); err != nil {
			s.log.Error("SetLastFired failed", zap.Error(err), zap.Int64("chatID", rem.ChatID))
		}
	}
}
