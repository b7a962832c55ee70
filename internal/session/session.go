// Package session holds per-chat conversation state. State lives in memory
// only: a restart drops every chat back to idle, which is acceptable for
// short prompt-response flows.
package session

import (
	"sync"

	"github.com/koztkozt/bottlecangowhere/internal/domain"
	"github.com/koztkozt/bottlecangowhere/internal/geo"
	"github.com/koztkozt/bottlecangowhere/internal/rvm"
)

// Flow identifies which multi-step conversation a chat is in.
type Flow int

const (
	FlowNone Flow = iota
	FlowFind
	FlowReport
	FlowReminder
)

func (f Flow) String() string {
	switch f {
	case FlowFind:
		return "find"
	case FlowReport:
		return "report"
	case FlowReminder:
		return "reminder"
	default:
		return "none"
	}
}

// Await is the input the bot expects next within the current flow.
type Await int

const (
	AwaitNothing Await = iota
	AwaitLocation  // a shared location or a free-text place query
	AwaitSelection // a machine picked from the candidate buttons
	AwaitStatus    // a status picked from the status buttons
	AwaitFrequency // a reminder cadence
	AwaitDay       // a day of month
	AwaitTime      // a time of day
)

// Session is the scratch state of one chat's conversation.
type Session struct {
	Flow  Flow
	Await Await

	// Report flow scratch.
	Origin     geo.Coordinate
	Candidates []rvm.Neighbor
	SelectedID string

	// Reminder flow scratch.
	Frequency domain.Frequency
	Day       int
}

// Manager tracks sessions for all chats.
type Manager struct {
	mu       sync.RWMutex
	sessions map[int64]Session
}

func NewManager() *Manager {
	return &Manager{sessions: make(map[int64]Session)}
}

// Get returns the chat's session, or a zero (idle) session.
func (m *Manager) Get(chatID int64) Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[chatID]
}

// Set stores the chat's session.
func (m *Manager) Set(chatID int64, s Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[chatID] = s
}

// Reset drops the chat back to idle.
func (m *Manager) Reset(chatID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, chatID)
}
