package domain

import (
	"fmt"
	"strings"
	"time"
)

// Phase is one stage of a tracked session. Unclassified classifier output is
// a Label, never a Phase.
type Phase int

const (
	PhaseAwaitingStart Phase = iota
	PhaseDay1
	PhaseDay2
	PhaseDay3
	PhaseDefeat
	PhaseVictory
)

var phaseNames = map[Phase]string{
	PhaseAwaitingStart: "awaiting_start",
	PhaseDay1:          "day_1",
	PhaseDay2:          "day_2",
	PhaseDay3:          "day_3",
	PhaseDefeat:        "defeat",
	PhaseVictory:       "victory",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// DayIndex maps a day phase to its slot in PhaseDurations and History.
func (p Phase) DayIndex() (int, bool) {
	switch p {
	case PhaseDay1:
		return 0, true
	case PhaseDay2:
		return 1, true
	case PhaseDay3:
		return 2, true
	default:
		return 0, false
	}
}

// DayCount is the number of timed day phases in a session.
const DayCount = 3

// PhaseDurations holds the countdown budget per day phase, in order.
type PhaseDurations [DayCount]time.Duration

// DefaultDurations is the shrinking-circle timing for Day I, II and III.
var DefaultDurations = PhaseDurations{
	268 * time.Second,
	179 * time.Second,
	209 * time.Second,
}

// DayLabels are the display names of the history slots.
var DayLabels = [DayCount]string{"DAY I", "DAY II", "DAY III"}

// Label is the closed set of values the classifier may report. Wire values
// match the vision flow's output enum.
type Label string

const (
	LabelDay1         Label = "DAY_I"
	LabelDay2         Label = "DAY_II"
	LabelDay3         Label = "DAY_III"
	LabelDefeat       Label = "DEFEAT"
	LabelVictory      Label = "NIGHT_LORD_DEFEATED"
	LabelUnclassified Label = "UNKNOWN"
)

// victoryAlias is accepted for manual marks.
const victoryAlias = "VICTORY"

// ParseLabel never fails: values outside the closed set are Unclassified.
func ParseLabel(raw string) Label {
	switch l := Label(strings.ToUpper(strings.TrimSpace(raw))); l {
	case LabelDay1, LabelDay2, LabelDay3, LabelDefeat, LabelVictory:
		return l
	case victoryAlias:
		return LabelVictory
	default:
		return LabelUnclassified
	}
}

// Phase resolves the label to the phase it announces.
func (l Label) Phase() (Phase, bool) {
	switch l {
	case LabelDay1:
		return PhaseDay1, true
	case LabelDay2:
		return PhaseDay2, true
	case LabelDay3:
		return PhaseDay3, true
	case LabelDefeat:
		return PhaseDefeat, true
	case LabelVictory:
		return PhaseVictory, true
	default:
		return PhaseAwaitingStart, false
	}
}
