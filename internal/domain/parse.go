package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrInvalidFrequency = errors.New("unsupported frequency")
	ErrInvalidDay       = errors.New("day must be a number between 1 and 31")
	ErrInvalidTime      = errors.New("time must be HH:MM or HHMM")
)

// ParseFrequency accepts the supported reminder cadences.
func ParseFrequency(s string) (Frequency, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "monthly":
		return FrequencyMonthly, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrInvalidFrequency, s)
	}
}

// ParseDay parses a day-of-month entry, 1..31.
func ParseDay(s string) (int, error) {
	s = strings.TrimSpace(s)
	d, err := strconv.Atoi(s)
	if err != nil || d < 1 || d > 31 {
		return 0, fmt.Errorf("%w: %s", ErrInvalidDay, s)
	}
	return d, nil
}

// ParseTimeOfDay parses "HH:MM" or the bare "HHMM" form (e.g. "0930")
// into minutes since midnight.
func ParseTimeOfDay(s string) (int, error) {
	s = strings.TrimSpace(s)

	var hh, mm string
	switch {
	case strings.Contains(s, ":"):
		parts := strings.Split(s, ":")
		if len(parts) != 2 {
			return 0, fmt.Errorf("%w: %s", ErrInvalidTime, s)
		}
		hh, mm = parts[0], parts[1]
	case len(s) == 4:
		hh, mm = s[:2], s[2:]
	default:
		return 0, fmt.Errorf("%w: %s", ErrInvalidTime, s)
	}

	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("%w: %s", ErrInvalidTime, s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("%w: %s", ErrInvalidTime, s)
	}
	return h*60 + m, nil
}

// FormatMinutes returns HH:MM for minutes since midnight (00:00..23:59).
func FormatMinutes(mins int) string {
	if mins < 0 {
		mins = 0
	}
	h := mins / 60
	m := mins % 60
	return fmt.Sprintf("%02d:%02d", h, m)
}
