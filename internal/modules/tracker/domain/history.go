package domain

import (
	"time"

	"nightwatch/internal/platform/clock"
)

// Mark is one history slot: the session elapsed time recorded when its day
// phase completed.
type Mark struct {
	Label    string
	Elapsed  time.Duration
	Recorded bool
}

// Display renders the recorded time as mm:ss, or "-" while unset.
func (m Mark) Display() string {
	if !m.Recorded {
		return "-"
	}
	return FormatClock(m.Elapsed)
}

// History has one slot per day phase, in fixed order. A slot is written at
// most once per session.
type History [DayCount]Mark

func NewHistory() History {
	var h History
	for i := range h {
		h[i] = Mark{Label: DayLabels[i]}
	}
	return h
}

// record writes slot i if it is still unset and reports whether it did.
func (h *History) record(i int, elapsed time.Duration) bool {
	if i < 0 || i >= DayCount || h[i].Recorded {
		return false
	}
	h[i].Elapsed = elapsed
	h[i].Recorded = true
	return true
}

// Recorded returns the written slots in order.
func (h History) Recorded() []Mark {
	out := make([]Mark, 0, DayCount)
	for _, m := range h {
		if m.Recorded {
			out = append(out, m)
		}
	}
	return out
}

// FormatClock renders d as mm:ss for the overlay.
func FormatClock(d time.Duration) string {
	return clock.Format(d)
}
