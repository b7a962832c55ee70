package domain

import (
	"testing"
	"time"
)

func sgt(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Singapore")
	if err != nil {
		t.Fatalf("load tz: %v", err)
	}
	return loc
}

// newReminder builds a monthly reminder created well before any test moment.
func newReminder(day, minute int) *Reminder {
	return &Reminder{
		ChatID:      1,
		Frequency:   FrequencyMonthly,
		Day:         day,
		MinuteOfDay: minute,
		CreatedAt:   time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestClampDay(t *testing.T) {
	tests := []struct {
		day   int
		year  int
		month time.Month
		want  int
	}{
		{31, 2026, time.June, 30},
		{31, 2025, time.February, 28},
		{29, 2024, time.February, 29},
		{29, 2025, time.February, 28},
		{31, 2026, time.December, 31},
		{15, 2026, time.January, 15},
		{1, 2026, time.April, 1},
	}
	for _, tt := range tests {
		if got := ClampDay(tt.day, tt.year, tt.month); got != tt.want {
			t.Errorf("ClampDay(%d, %d, %s) = %d, want %d", tt.day, tt.year, tt.month, got, tt.want)
		}
	}
}

func TestFireTime_ClampsToMonthEnd(t *testing.T) {
	loc := sgt(t)
	r := newReminder(31, 9*60)

	got := FireTime(r, 2026, time.April, loc)
	want := time.Date(2026, time.April, 30, 9, 0, 0, 0, loc)
	if !got.Equal(want) {
		t.Fatalf("FireTime = %v, want %v", got, want)
	}
}

func TestDue_BeforeFireMoment(t *testing.T) {
	loc := sgt(t)
	r := newReminder(10, 9*60)

	now := time.Date(2026, time.June, 10, 8, 59, 0, 0, loc)
	if Due(r, now, loc) {
		t.Fatalf("due at %v, want not due before 09:00", now)
	}
}

func TestDue_AtFireMoment(t *testing.T) {
	loc := sgt(t)
	r := newReminder(10, 9*60)

	now := time.Date(2026, time.June, 10, 9, 0, 0, 0, loc)
	if !Due(r, now, loc) {
		t.Fatalf("not due at %v, want due", now)
	}
}

func TestDue_CatchUpAfterMissedMoment(t *testing.T) {
	loc := sgt(t)
	r := newReminder(10, 9*60)
	last := time.Date(2026, time.May, 10, 1, 0, 0, 0, time.UTC)
	r.LastFiredAt = &last

	// The process was down on the 10th; the next pass still delivers.
	now := time.Date(2026, time.June, 15, 20, 0, 0, 0, loc)
	if !Due(r, now, loc) {
		t.Fatalf("not due at %v after missed moment, want due", now)
	}
}

func TestDue_OncePerMonth(t *testing.T) {
	loc := sgt(t)
	r := newReminder(10, 9*60)
	last := time.Date(2026, time.June, 10, 1, 0, 0, 0, time.UTC) // 09:00 SGT
	r.LastFiredAt = &last

	for _, now := range []time.Time{
		time.Date(2026, time.June, 10, 9, 5, 0, 0, loc),
		time.Date(2026, time.June, 28, 12, 0, 0, 0, loc),
	} {
		if Due(r, now, loc) {
			t.Errorf("due at %v after firing this month, want not due", now)
		}
	}

	// Next month it fires again.
	now := time.Date(2026, time.July, 10, 9, 0, 0, 0, loc)
	if !Due(r, now, loc) {
		t.Fatalf("not due at %v, want due in the next month", now)
	}
}

func TestDue_Day31InShortMonth(t *testing.T) {
	loc := sgt(t)
	r := newReminder(31, 9*60)

	// June has 30 days: the reminder fires on the 30th.
	if Due(r, time.Date(2026, time.June, 29, 12, 0, 0, 0, loc), loc) {
		t.Fatalf("due on June 29, want not due")
	}
	if !Due(r, time.Date(2026, time.June, 30, 9, 0, 0, 0, loc), loc) {
		t.Fatalf("not due on June 30 09:00, want due")
	}
}

func TestDue_CreatedAfterThisMonthsMoment(t *testing.T) {
	loc := sgt(t)
	r := newReminder(10, 9*60)
	r.CreatedAt = time.Date(2026, time.June, 12, 0, 0, 0, 0, time.UTC)

	// Configured after June's moment passed: waits for July.
	if Due(r, time.Date(2026, time.June, 15, 12, 0, 0, 0, loc), loc) {
		t.Fatalf("due in the month the reminder was created after its moment, want not due")
	}
	if !Due(r, time.Date(2026, time.July, 10, 9, 0, 0, 0, loc), loc) {
		t.Fatalf("not due in the following month, want due")
	}
}

func TestDue_RetriesUntilMarkedFired(t *testing.T) {
	loc := sgt(t)
	r := newReminder(10, 9*60)

	// A failed send leaves LastFiredAt untouched, so the reminder stays
	// due on subsequent passes the same day.
	for _, now := range []time.Time{
		time.Date(2026, time.June, 10, 9, 0, 0, 0, loc),
		time.Date(2026, time.June, 10, 9, 1, 0, 0, loc),
		time.Date(2026, time.June, 10, 17, 30, 0, 0, loc),
	} {
		if !Due(r, now, loc) {
			t.Errorf("not due at %v with no recorded delivery, want due", now)
		}
	}
}
