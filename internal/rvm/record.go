package rvm

import (
	"fmt"
	"strings"
	"time"

	"github.com/koztkozt/bottlecangowhere/internal/geo"
)

// Status is the reported operational state of a machine.
type Status string

const (
	StatusWorking    Status = "Working"
	StatusNotWorking Status = "NotWorking"
	StatusUnknown    Status = "Unknown"
)

// ParseStatus maps a stored or reported status string to its canonical value.
// Legacy spellings from older exports ("Full", "Out of Order", "Other Issues")
// all count as NotWorking; an empty cell means the status was never reported.
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "working":
		return StatusWorking, nil
	case "notworking", "not working", "full", "out of order", "other issues":
		return StatusNotWorking, nil
	case "unknown", "":
		return StatusUnknown, nil
	default:
		return StatusUnknown, fmt.Errorf("unrecognized status %q", s)
	}
}

// Emoji returns the indicator shown next to a machine in chat messages.
func (s Status) Emoji() string {
	switch s {
	case StatusWorking:
		return "🟢"
	case StatusNotWorking:
		return "🔴"
	default:
		return "⚪"
	}
}

// Record is a single reverse vending machine.
type Record struct {
	ID          string
	Name        string
	Address     string
	Description string
	Hours       string
	Coord       geo.Coordinate
	Status      Status
	Nearby      string    // nearby recycling bins, free text, may be empty
	UpdatedAt   time.Time // UTC; zero when the status was never reported
}

// Neighbor pairs a record with its distance from a query origin.
type Neighbor struct {
	Record Record
	Meters float64
}
