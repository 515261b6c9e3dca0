package dto

import "time"

// Event names one notable thing a controller step did. Subscribers use them
// for notices; the snapshot alone is always enough to redraw.
type Event string

const (
	EventSessionStarted       Event = "session_started"
	EventPhaseAdvanced        Event = "phase_advanced"
	EventPhaseExpired         Event = "phase_expired"
	EventSessionFinished      Event = "session_finished"
	EventSessionExpired       Event = "session_expired"
	EventSessionReset         Event = "session_reset"
	EventClearSelection       Event = "clear_selection"
	EventPaused               Event = "paused"
	EventResumed              Event = "resumed"
	EventLocked               Event = "locked"
	EventUnlocked             Event = "unlocked"
	EventPollingStarted       Event = "polling_started"
	EventPollingStopped       Event = "polling_stopped"
	EventClassified           Event = "classified"
	EventPermissionDenied     Event = "permission_denied"
	EventClassificationFailed Event = "classification_failed"
)

type HistoryEntry struct {
	Label    string        `json:"label"`
	Elapsed  time.Duration `json:"elapsed_ns"`
	Display  string        `json:"display"`
	Recorded bool          `json:"recorded"`
}

type Failure struct {
	Kind    Event     `json:"kind"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Snapshot is everything presentation needs to draw the overlay.
type Snapshot struct {
	Phase               string          `json:"phase"`
	PhaseIndex          int             `json:"phase_index"`
	DayLabel            string          `json:"day_label"`
	Remaining           time.Duration   `json:"remaining_ns"`
	RemainingText       string          `json:"remaining"`
	TotalElapsed        time.Duration   `json:"total_elapsed_ns"`
	TotalElapsedText    string          `json:"total_elapsed"`
	PhaseTimerRunning   bool            `json:"phase_timer_running"`
	SessionTimerRunning bool            `json:"session_timer_running"`
	Paused              bool            `json:"paused"`
	History             []HistoryEntry  `json:"history"`
	Polling             bool            `json:"polling"`
	Busy                bool            `json:"busy"`
	Locked              bool            `json:"locked"`
	ManuallyStarted     bool            `json:"manually_started"`
	LastLabel           string          `json:"last_label,omitempty"`
	LastFailure         *Failure        `json:"last_failure,omitempty"`
	Durations           []time.Duration `json:"durations_ns"`
	TakenAt             time.Time       `json:"taken_at"`
}

// Update is what subscribers receive after every mutation.
type Update struct {
	Snapshot Snapshot `json:"snapshot"`
	Events   []Event  `json:"events,omitempty"`
}

func (u Update) Has(event Event) bool {
	for _, e := range u.Events {
		if e == event {
			return true
		}
	}
	return false
}

type ClassifyOutput struct {
	Label    string
	Duration time.Duration
}
