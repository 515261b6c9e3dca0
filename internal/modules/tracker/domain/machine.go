package domain

import (
	"time"

	apperrors "nightwatch/internal/platform/errors"
)

// Effects tells the caller which side effects a machine step produced. The
// machine never touches the scheduler or presentation itself.
type Effects uint16

const (
	EffectSessionStarted Effects = 1 << iota
	EffectPhaseAdvanced
	EffectHistoryRecorded
	EffectPhaseExpired
	EffectSessionFinished
	EffectSessionExpired
	EffectClearSelection
	EffectSessionReset
	EffectPaused
	EffectResumed
)

func (e Effects) Has(flag Effects) bool { return e&flag != 0 }

// Ended reports a step that closed the session on its own (terminal label
// or last countdown running out).
func (e Effects) Ended() bool {
	return e.Has(EffectSessionFinished) || e.Has(EffectSessionExpired)
}

type Outcome string

const (
	OutcomeVictory Outcome = "victory"
	OutcomeDefeat  Outcome = "defeat"
	OutcomeExpired Outcome = "expired"
)

// TimerState is a read-only view of the machine at one instant.
type TimerState struct {
	Phase               Phase
	PhaseIndex          int
	Remaining           time.Duration
	TotalElapsed        time.Duration
	PhaseTimerRunning   bool
	SessionTimerRunning bool
	Paused              bool
	History             History
	StartedAt           time.Time
}

// RunSummary describes a session that ended by itself.
type RunSummary struct {
	StartedAt    time.Time
	EndedAt      time.Time
	Outcome      Outcome
	TotalElapsed time.Duration
	History      History
}

// Machine is the phase state machine. It owns the session timers and the
// history. It is not safe for concurrent use; callers serialise access.
type Machine struct {
	durations PhaseDurations
	phase     Phase
	index     int
	timers    Timers
	history   History
	startedAt time.Time
	endedAt   time.Time
	outcome   Outcome
}

func NewMachine(durations PhaseDurations) *Machine {
	m := &Machine{durations: durations}
	m.clear()
	return m
}

func (m *Machine) Durations() PhaseDurations { return m.durations }

func (m *Machine) Phase() Phase { return m.phase }

// Running reports whether the session timer runs.
func (m *Machine) Running() bool { return m.timers.Session.Running() }

// Apply feeds one classifier label (or a manual equivalent) into the table.
func (m *Machine) Apply(label Label, now time.Time) Effects {
	effects := m.Tick(now)
	phase, ok := label.Phase()
	if !ok || phase == m.phase {
		return effects
	}
	r := lookup(label)
	if !r.admits(m.Running(), m.index) {
		return effects
	}
	switch r.action {
	case actionStart:
		effects |= m.start(now)
	case actionAdvance:
		effects |= m.advance(phase, now)
	case actionFinish:
		effects |= m.finish(phase, now)
	}
	return effects
}

// ManualStart begins a session as if Day1 had been detected. It is a no-op
// while a session runs.
func (m *Machine) ManualStart(now time.Time) Effects {
	effects := m.Tick(now)
	if m.Running() {
		return effects
	}
	return effects | m.start(now)
}

// Tick handles a countdown that reached zero since the last step. The phase
// never advances on its own; only the last day ends the session.
func (m *Machine) Tick(now time.Time) Effects {
	if !m.timers.Phase.Expired(now) {
		return 0
	}
	at := now.Add(-m.timers.Phase.overrun(now))
	m.timers.Phase.Stop(at)
	if m.index < DayCount-1 {
		return EffectPhaseExpired
	}
	m.timers.StopAll(at)
	m.phase = PhaseAwaitingStart
	m.endedAt = at
	m.outcome = OutcomeExpired
	return EffectPhaseExpired | EffectSessionExpired
}

func (m *Machine) TogglePause(now time.Time) (Effects, error) {
	effects := m.Tick(now)
	if !m.Running() {
		return effects, apperrors.ErrSessionNotRunning
	}
	if m.timers.Paused() {
		m.timers.Resume(now)
		return effects | EffectResumed, nil
	}
	m.timers.Pause(now)
	return effects | EffectPaused, nil
}

// Reset returns to the initial AwaitingStart state with empty history.
func (m *Machine) Reset(now time.Time) Effects {
	m.timers.StopAll(now)
	m.clear()
	return EffectSessionReset
}

func (m *Machine) State(now time.Time) TimerState {
	return TimerState{
		Phase:               m.phase,
		PhaseIndex:          m.index,
		Remaining:           m.timers.Phase.Remaining(now),
		TotalElapsed:        m.timers.Session.Elapsed(now),
		PhaseTimerRunning:   m.timers.Phase.Running(),
		SessionTimerRunning: m.timers.Session.Running(),
		Paused:              m.timers.Paused(),
		History:             m.history,
		StartedAt:           m.startedAt,
	}
}

// Summary describes the session that just ended. Only meaningful right after
// a step whose effects report Ended.
func (m *Machine) Summary() RunSummary {
	return RunSummary{
		StartedAt:    m.startedAt,
		EndedAt:      m.endedAt,
		Outcome:      m.outcome,
		TotalElapsed: m.timers.Session.Elapsed(m.endedAt),
		History:      m.history,
	}
}

func (m *Machine) clear() {
	m.phase = PhaseAwaitingStart
	m.index = 0
	m.timers = Timers{}
	m.timers.Phase.Load(m.durations[0])
	m.history = NewHistory()
	m.startedAt = time.Time{}
	m.endedAt = time.Time{}
	m.outcome = ""
}

func (m *Machine) start(now time.Time) Effects {
	m.clear()
	m.phase = PhaseDay1
	m.startedAt = now
	m.timers.Session.Start(now)
	m.timers.StartPhase(now, m.durations[0])
	return EffectSessionStarted
}

func (m *Machine) advance(phase Phase, now time.Time) Effects {
	next, _ := phase.DayIndex()
	effects := EffectPhaseAdvanced
	if m.history.record(m.index, m.timers.Session.Elapsed(now)) {
		effects |= EffectHistoryRecorded
	}
	m.index = next
	m.phase = phase
	m.timers.StartPhase(now, m.durations[next])
	return effects
}

func (m *Machine) finish(phase Phase, now time.Time) Effects {
	effects := EffectSessionFinished | EffectClearSelection
	if m.history.record(m.index, m.timers.Session.Elapsed(now)) {
		effects |= EffectHistoryRecorded
	}
	m.timers.StopAll(now)
	m.phase = phase
	m.endedAt = now
	m.outcome = OutcomeDefeat
	if phase == PhaseVictory {
		m.outcome = OutcomeVictory
	}
	return effects
}
