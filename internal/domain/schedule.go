package domain

import "time"

// ClampDay maps a requested day of month onto the given month: days past
// the month's end land on its last day (31 in June fires on the 30th,
// 31 in February on the 28th or 29th).
func ClampDay(day int, year int, month time.Month) int {
	// Day zero of the next month is the last day of this one.
	last := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if day > last {
		return last
	}
	return day
}

// FireTime returns the reminder's fire moment within the given month,
// in the given location.
func FireTime(r *Reminder, year int, month time.Month, loc *time.Location) time.Time {
	day := ClampDay(r.Day, year, month)
	return time.Date(year, month, day, r.MinuteOfDay/60, r.MinuteOfDay%60, 0, 0, loc)
}

// Due reports whether r should fire now. A reminder is due once per
// calendar month, any time at or after its fire moment, so a missed
// moment (downtime, failed send) is caught up on the next pass rather
// than skipped. Reminders configured after this month's moment wait for
// the next month.
func Due(r *Reminder, now time.Time, loc *time.Location) bool {
	local := now.In(loc)
	fire := FireTime(r, local.Year(), local.Month(), loc)

	if local.Before(fire) {
		return false
	}
	if fire.Before(r.CreatedAt.In(loc)) {
		return false
	}
	if r.LastFiredAt == nil {
		return true
	}
	last := r.LastFiredAt.In(loc)
	return last.Year() != local.Year() || last.Month() != local.Month()
}
