package domain_test

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"nightwatch/internal/modules/tracker/domain"
	apperrors "nightwatch/internal/platform/errors"
)

var t0 = time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC)

func at(sec int) time.Time { return t0.Add(time.Duration(sec) * time.Second) }

func secs(n int) time.Duration { return time.Duration(n) * time.Second }

func TestDay1StartsSession(t *testing.T) {
	t.Parallel()
	m := domain.NewMachine(domain.DefaultDurations)
	effects := m.Apply(domain.LabelDay1, at(0))
	if !effects.Has(domain.EffectSessionStarted) {
		t.Fatalf("expected session started effect, got %b", effects)
	}
	st := m.State(at(12))
	if st.Phase != domain.PhaseDay1 || st.PhaseIndex != 0 {
		t.Fatalf("unexpected phase %s index %d", st.Phase, st.PhaseIndex)
	}
	if !st.SessionTimerRunning || !st.PhaseTimerRunning {
		t.Fatalf("both timers must run after day 1")
	}
	if st.TotalElapsed != secs(12) || st.Remaining != secs(268-12) {
		t.Fatalf("unexpected timers total=%s remaining=%s", st.TotalElapsed, st.Remaining)
	}
}

func TestFullRunEndsInVictoryWithIncreasingHistory(t *testing.T) {
	t.Parallel()
	m := domain.NewMachine(domain.PhaseDurations{secs(268), secs(179), secs(209)})
	m.Apply(domain.LabelDay1, at(0))
	m.Apply(domain.LabelDay2, at(100))
	m.Apply(domain.LabelDay3, at(250))
	effects := m.Apply(domain.LabelVictory, at(400))
	if !effects.Has(domain.EffectSessionFinished) || !effects.Has(domain.EffectClearSelection) {
		t.Fatalf("expected finished and clear selection effects, got %b", effects)
	}

	st := m.State(at(10000))
	if st.Phase != domain.PhaseVictory {
		t.Fatalf("session must stay at victory until reset, got %s", st.Phase)
	}
	if st.SessionTimerRunning || st.PhaseTimerRunning {
		t.Fatalf("timers must stop at victory")
	}
	marks := st.History.Recorded()
	if len(marks) != 3 {
		t.Fatalf("expected three history entries, got %d", len(marks))
	}
	want := []time.Duration{secs(100), secs(250), secs(400)}
	for i, mark := range marks {
		if mark.Elapsed != want[i] {
			t.Fatalf("slot %d: expected %s, got %s", i, want[i], mark.Elapsed)
		}
		if i > 0 && mark.Elapsed <= marks[i-1].Elapsed {
			t.Fatalf("history must strictly increase: %v", marks)
		}
	}
	if marks[2].Display() != "06:40" {
		t.Fatalf("expected 06:40 display, got %s", marks[2].Display())
	}

	summary := m.Summary()
	if summary.Outcome != domain.OutcomeVictory || summary.TotalElapsed != secs(400) {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if m.Tick(at(20000)) != 0 {
		t.Fatalf("ticks after victory must be inert")
	}
}

func TestDay1WhileRunningKeepsElapsedAndHistory(t *testing.T) {
	t.Parallel()
	m := domain.NewMachine(domain.DefaultDurations)
	m.Apply(domain.LabelDay1, at(0))
	m.Apply(domain.LabelDay2, at(50))
	if effects := m.Apply(domain.LabelDay1, at(80)); effects.Has(domain.EffectSessionStarted) {
		t.Fatalf("day 1 while running must not restart the session")
	}
	st := m.State(at(80))
	if st.Phase != domain.PhaseDay2 || st.TotalElapsed != secs(80) {
		t.Fatalf("unexpected state after spurious day 1: %s total=%s", st.Phase, st.TotalElapsed)
	}
	if !st.History[0].Recorded || st.History[0].Elapsed != secs(50) {
		t.Fatalf("history slot 0 must survive: %+v", st.History[0])
	}
}

func TestOutOfOrderAndDuplicateLabelsAreIgnored(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name  string
		setup []domain.Label
		label domain.Label
		phase domain.Phase
		index int
	}{
		{"day 3 at index 0", []domain.Label{domain.LabelDay1}, domain.LabelDay3, domain.PhaseDay1, 0},
		{"day 2 at index 2", []domain.Label{domain.LabelDay1, domain.LabelDay2, domain.LabelDay3}, domain.LabelDay2, domain.PhaseDay3, 2},
		{"duplicate day 2", []domain.Label{domain.LabelDay1, domain.LabelDay2}, domain.LabelDay2, domain.PhaseDay2, 1},
		{"unclassified", []domain.Label{domain.LabelDay1}, domain.LabelUnclassified, domain.PhaseDay1, 0},
		{"day 2 before start", nil, domain.LabelDay2, domain.PhaseAwaitingStart, 0},
		{"defeat before start", nil, domain.LabelDefeat, domain.PhaseAwaitingStart, 0},
		{"defeat after victory", []domain.Label{domain.LabelDay1, domain.LabelVictory}, domain.LabelDefeat, domain.PhaseVictory, 0},
	}
	for _, tc := range cases {
		m := domain.NewMachine(domain.DefaultDurations)
		for i, label := range tc.setup {
			m.Apply(label, at(i*10))
		}
		before := m.State(at(60))
		if effects := m.Apply(tc.label, at(60)); effects != 0 {
			t.Fatalf("%s: expected no effects, got %b", tc.name, effects)
		}
		after := m.State(at(60))
		if after.Phase != tc.phase || after.PhaseIndex != tc.index {
			t.Fatalf("%s: expected %s/%d, got %s/%d", tc.name, tc.phase, tc.index, after.Phase, after.PhaseIndex)
		}
		if after.History != before.History || after.Remaining != before.Remaining {
			t.Fatalf("%s: ignored label must not change history or timers", tc.name)
		}
	}
}

func TestDay2AtIndexZeroAdvances(t *testing.T) {
	t.Parallel()
	m := domain.NewMachine(domain.DefaultDurations)
	m.Apply(domain.LabelDay1, at(0))
	effects := m.Apply(domain.LabelDay2, at(30))
	if !effects.Has(domain.EffectPhaseAdvanced) || !effects.Has(domain.EffectHistoryRecorded) {
		t.Fatalf("expected advance with history, got %b", effects)
	}
	st := m.State(at(30))
	if st.PhaseIndex != 1 || st.Remaining != secs(179) {
		t.Fatalf("expected index 1 with fresh budget, got %d %s", st.PhaseIndex, st.Remaining)
	}
}

func TestResetReturnsToInitialState(t *testing.T) {
	t.Parallel()
	m := domain.NewMachine(domain.DefaultDurations)
	m.Apply(domain.LabelDay1, at(0))
	m.Apply(domain.LabelDay2, at(90))
	if _, err := m.TogglePause(at(100)); err != nil {
		t.Fatalf("pause: %v", err)
	}
	effects := m.Reset(at(120))
	if !effects.Has(domain.EffectSessionReset) {
		t.Fatalf("expected reset effect")
	}
	st := m.State(at(500))
	if st.Phase != domain.PhaseAwaitingStart || st.TotalElapsed != 0 || st.PhaseIndex != 0 {
		t.Fatalf("unexpected state after reset: %+v", st)
	}
	if st.Remaining != secs(268) || st.Paused || st.SessionTimerRunning || st.PhaseTimerRunning {
		t.Fatalf("timers must be idle with day 1 budget loaded: %+v", st)
	}
	if len(st.History.Recorded()) != 0 {
		t.Fatalf("history must be cleared")
	}
	for _, mark := range st.History {
		if mark.Display() != "-" {
			t.Fatalf("unset slot must render as '-', got %q", mark.Display())
		}
	}
}

func TestPauseFreezesBothCounters(t *testing.T) {
	t.Parallel()
	m := domain.NewMachine(domain.DefaultDurations)
	m.Apply(domain.LabelDay1, at(0))
	if effects, err := m.TogglePause(at(10)); err != nil || !effects.Has(domain.EffectPaused) {
		t.Fatalf("pause: effects=%b err=%v", effects, err)
	}
	paused := m.State(at(70))
	if paused.TotalElapsed != secs(10) || paused.Remaining != secs(258) || !paused.Paused {
		t.Fatalf("counters must freeze while paused: %+v", paused)
	}
	if effects, err := m.TogglePause(at(70)); err != nil || !effects.Has(domain.EffectResumed) {
		t.Fatalf("resume: effects=%b err=%v", effects, err)
	}
	st := m.State(at(80))
	if st.TotalElapsed != secs(20) || st.Remaining != secs(248) {
		t.Fatalf("only unpaused time may count: total=%s remaining=%s", st.TotalElapsed, st.Remaining)
	}
}

func TestTogglePauseRequiresRunningSession(t *testing.T) {
	t.Parallel()
	m := domain.NewMachine(domain.DefaultDurations)
	if _, err := m.TogglePause(at(0)); !errors.Is(err, apperrors.ErrSessionNotRunning) {
		t.Fatalf("expected ErrSessionNotRunning, got %v", err)
	}
}

func TestLastPhaseExpiryEndsSession(t *testing.T) {
	t.Parallel()
	m := domain.NewMachine(domain.DefaultDurations)
	m.Apply(domain.LabelDay1, at(0))
	m.Apply(domain.LabelDay2, at(10))
	m.Apply(domain.LabelDay3, at(20))

	if effects := m.Tick(at(228)); effects != 0 {
		t.Fatalf("countdown has one second left, got effects %b", effects)
	}
	// Tick arrives late; the crossing is still pinned to 229s.
	effects := m.Tick(at(300))
	if !effects.Has(domain.EffectSessionExpired) || !effects.Ended() {
		t.Fatalf("expected session expired, got %b", effects)
	}
	st := m.State(at(400))
	if st.Phase != domain.PhaseAwaitingStart || st.SessionTimerRunning || st.PhaseTimerRunning {
		t.Fatalf("expected idle awaiting start, got %+v", st)
	}
	if st.TotalElapsed != secs(229) || st.Remaining != 0 {
		t.Fatalf("expected total pinned at crossing, got total=%s remaining=%s", st.TotalElapsed, st.Remaining)
	}
	if st.History[2].Recorded {
		t.Fatalf("expiry must not write the last slot")
	}
	if m.Summary().Outcome != domain.OutcomeExpired {
		t.Fatalf("expected expired outcome")
	}
}

func TestMidSessionExpiryWaitsForNextLabel(t *testing.T) {
	t.Parallel()
	m := domain.NewMachine(domain.DefaultDurations)
	m.Apply(domain.LabelDay1, at(0))
	effects := m.Tick(at(300))
	if !effects.Has(domain.EffectPhaseExpired) || effects.Ended() {
		t.Fatalf("expected phase expiry only, got %b", effects)
	}
	st := m.State(at(300))
	if st.Phase != domain.PhaseDay1 || st.PhaseTimerRunning || !st.SessionTimerRunning || st.Remaining != 0 {
		t.Fatalf("phase must hold with countdown stopped at zero: %+v", st)
	}
	m.Apply(domain.LabelDay2, at(310))
	st = m.State(at(310))
	if st.Remaining != secs(179) || !st.PhaseTimerRunning || st.History[0].Elapsed != secs(310) {
		t.Fatalf("day 2 must restart the countdown: %+v", st)
	}
}

func TestManualStartIsNoopWhileRunning(t *testing.T) {
	t.Parallel()
	m := domain.NewMachine(domain.DefaultDurations)
	if effects := m.ManualStart(at(0)); !effects.Has(domain.EffectSessionStarted) {
		t.Fatalf("manual start must start an idle session")
	}
	m.Apply(domain.LabelDay2, at(40))
	if effects := m.ManualStart(at(60)); effects.Has(domain.EffectSessionStarted) {
		t.Fatalf("manual start must not restart a running session")
	}
	if st := m.State(at(60)); st.Phase != domain.PhaseDay2 || st.TotalElapsed != secs(60) {
		t.Fatalf("running session disturbed: %+v", st)
	}
}

func TestNewSessionAfterDefeatStartsFresh(t *testing.T) {
	t.Parallel()
	m := domain.NewMachine(domain.DefaultDurations)
	m.Apply(domain.LabelDay1, at(0))
	m.Apply(domain.LabelDefeat, at(70))
	if m.Summary().Outcome != domain.OutcomeDefeat {
		t.Fatalf("expected defeat outcome")
	}
	m.Apply(domain.LabelDay1, at(500))
	st := m.State(at(505))
	if st.TotalElapsed != secs(5) || len(st.History.Recorded()) != 0 {
		t.Fatalf("next session must start from zero: %+v", st)
	}
}

func TestHistoryGrowsOnePerTransitionForRandomLabels(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewSource(7))
	for run := 0; run < 200; run++ {
		m := domain.NewMachine(domain.DefaultDurations)
		now := 0
		transitions := 0
		for step := 0; step < 40; step++ {
			now += rng.Intn(120)
			var effects domain.Effects
			if rng.Intn(10) == 0 {
				effects = m.Tick(at(now))
			} else {
				effects = m.Apply(domain.Labels[rng.Intn(len(domain.Labels))], at(now))
			}
			if effects.Has(domain.EffectSessionStarted) {
				transitions = 0
			}
			if effects.Has(domain.EffectHistoryRecorded) {
				transitions++
			}
			marks := m.State(at(now)).History.Recorded()
			if len(marks) != transitions {
				t.Fatalf("run %d step %d: expected %d marks, got %d", run, step, transitions, len(marks))
			}
			for i := 1; i < len(marks); i++ {
				if marks[i].Elapsed < marks[i-1].Elapsed {
					t.Fatalf("run %d: history decreased: %v", run, marks)
				}
			}
			st := m.State(at(now))
			if st.PhaseTimerRunning && !st.SessionTimerRunning {
				t.Fatalf("phase timer may only run inside a running session")
			}
		}
	}
}
