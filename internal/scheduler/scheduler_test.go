package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/koztkozt/bottlecangowhere/internal/domain"
)

type fakeRepo struct {
	reminders []domain.Reminder
	listErr   error
	fired     []int64
}

func (f *fakeRepo) UpsertReminder(ctx context.Context, r *domain.Reminder) error { return nil }
func (f *fakeRepo) GetReminder(ctx context.Context, chatID int64) (*domain.Reminder, error) {
	return nil, errors.New("not implemented")
}
func (f *fakeRepo) ListReminders(ctx context.Context) ([]domain.Reminder, error) {
	return f.reminders, f.listErr
}
func (f *fakeRepo) SetLastFired(ctx context.Context, chatID int64, at time.Time) error {
	f.fired = append(f.fired, chatID)
	return nil
}
func (f *fakeRepo) CountReminders(ctx context.Context) (int, error) { return len(f.reminders), nil }
func (f *fakeRepo) Close() error                                    { return nil }

type fakeSender struct {
	sent    []int64
	sendErr error
}

func (f *fakeSender) SendMessage(chatID int64, text string) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, chatID)
	return nil
}

// dueReminder is due at any realistic test moment: day 1, midnight,
// created long ago, never fired.
func dueReminder(chatID int64) domain.Reminder {
	return domain.Reminder{
		ChatID:      chatID,
		Frequency:   domain.FrequencyMonthly,
		Day:         1,
		MinuteOfDay: 0,
		CreatedAt:   time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC),
	}
}

func notDueReminder(chatID int64) domain.Reminder {
	fired := time.Now().UTC()
	r := dueReminder(chatID)
	r.LastFiredAt = &fired
	return r
}

func newTestScheduler(repo *fakeRepo, sender *fakeSender) *Scheduler {
	return New(repo, zap.NewNop(), sender, time.UTC, time.Minute)
}

func TestTickDeliversDueReminders(t *testing.T) {
	repo := &fakeRepo{reminders: []domain.Reminder{dueReminder(1), notDueReminder(2), dueReminder(3)}}
	sender := &fakeSender{}

	newTestScheduler(repo, sender).tick(context.Background())

	if len(sender.sent) != 2 || sender.sent[0] != 1 || sender.sent[1] != 3 {
		t.Fatalf("sent to %v, want [1 3]", sender.sent)
	}
	if len(repo.fired) != 2 || repo.fired[0] != 1 || repo.fired[1] != 3 {
		t.Fatalf("marked fired for %v, want [1 3]", repo.fired)
	}
}

func TestTickFailedSendIsNotMarked(t *testing.T) {
	repo := &fakeRepo{reminders: []domain.Reminder{dueReminder(1)}}
	sender := &fakeSender{sendErr: errors.New("chat transport down")}
	s := newTestScheduler(repo, sender)

	s.tick(context.Background())
	if len(repo.fired) != 0 {
		t.Fatalf("marked fired for %v after failed send, want none", repo.fired)
	}

	// Transport recovers: the same reminder is still due and goes out.
	sender.sendErr = nil
	s.tick(context.Background())
	if len(sender.sent) != 1 || sender.sent[0] != 1 {
		t.Fatalf("sent to %v after recovery, want [1]", sender.sent)
	}
	if len(repo.fired) != 1 {
		t.Fatalf("marked fired for %v after recovery, want [1]", repo.fired)
	}
}

func TestTickListErrorSendsNothing(t *testing.T) {
	repo := &fakeRepo{listErr: errors.New("db closed")}
	sender := &fakeSender{}

	newTestScheduler(repo, sender).tick(context.Background())

	if len(sender.sent) != 0 {
		t.Fatalf("sent to %v with failing repo, want none", sender.sent)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	repo := &fakeRepo{}
	s := New(repo, zap.NewNop(), &fakeSender{}, time.UTC, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
