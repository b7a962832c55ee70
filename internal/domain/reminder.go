package domain

import "time"

// Frequency is how often a reminder repeats. Monthly is the only
// supported cadence for now.
type Frequency string

const FrequencyMonthly Frequency = "monthly"

// ReminderText is the canned message delivered when a reminder fires.
const ReminderText = "It's time to recycle! Don't forget to bring your bottles and cans to the nearest RVM."

// Reminder is a per-chat recycling reminder. Each chat has at most one;
// setting a new reminder replaces the old.
type Reminder struct {
	ChatID      int64
	Frequency   Frequency
	Day         int        // requested day of month, 1..31
	MinuteOfDay int        // minutes from midnight, 0..1439
	LastFiredAt *time.Time // UTC, nullable
	CreatedAt   time.Time  // UTC
}
