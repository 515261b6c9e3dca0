package app

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	runlogdto "nightwatch/internal/modules/runlog/dto"
	trackerdto "nightwatch/internal/modules/tracker/dto"
	apperrors "nightwatch/internal/platform/errors"
	"nightwatch/internal/ui/components"
)

type fakeTracker struct {
	snap    trackerdto.Snapshot
	calls   []string
	updates chan trackerdto.Update
	err     error
}

func newFakeTracker(snap trackerdto.Snapshot) *fakeTracker {
	return &fakeTracker{snap: snap, updates: make(chan trackerdto.Update, 4)}
}

func (f *fakeTracker) Snapshot() trackerdto.Snapshot { return f.snap }

func (f *fakeTracker) Subscribe(context.Context) <-chan trackerdto.Update { return f.updates }

func (f *fakeTracker) op(name string) (trackerdto.Snapshot, error) {
	f.calls = append(f.calls, name)
	return f.snap, f.err
}

func (f *fakeTracker) StartManually(context.Context) (trackerdto.Snapshot, error) {
	return f.op("start")
}

func (f *fakeTracker) StopAutoDetection(context.Context) (trackerdto.Snapshot, error) {
	return f.op("stop")
}

func (f *fakeTracker) TogglePause(context.Context) (trackerdto.Snapshot, error) {
	return f.op("pause")
}

func (f *fakeTracker) ResetSession(context.Context) (trackerdto.Snapshot, error) {
	return f.op("reset")
}

func (f *fakeTracker) ToggleLock(context.Context) (trackerdto.Snapshot, error) {
	return f.op("lock")
}

func (f *fakeTracker) MarkPhase(_ context.Context, label string) (trackerdto.Snapshot, error) {
	return f.op("mark " + label)
}

func (f *fakeTracker) ClassifyOnce(context.Context) (trackerdto.ClassifyOutput, error) {
	return trackerdto.ClassifyOutput{Label: "DAY_I", Duration: 120 * time.Millisecond}, nil
}

type fakeRuns struct{ runs []runlogdto.RunOutput }

func (f fakeRuns) List(context.Context, int, string) ([]runlogdto.RunOutput, error) {
	return f.runs, nil
}

func press(t *testing.T, m Model, k string) (Model, tea.Msg) {
	t.Helper()
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)})
	model := next.(Model)
	if cmd == nil {
		return model, nil
	}
	return model, cmd()
}

func TestStopHotkeyOnlyWhileIdleAndPolling(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name    string
		snap    trackerdto.Snapshot
		stopped bool
	}{
		{"idle and polling", trackerdto.Snapshot{Polling: true}, true},
		{"idle without polling", trackerdto.Snapshot{}, false},
		{"session running", trackerdto.Snapshot{SessionTimerRunning: true, Polling: true}, false},
	}
	for _, tc := range cases {
		f := newFakeTracker(tc.snap)
		m := NewModel(context.Background(), f, nil)
		m, msg := press(t, m, "2")
		if got := len(f.calls) == 1 && f.calls[0] == "stop"; got != tc.stopped {
			t.Fatalf("%s: calls = %v", tc.name, f.calls)
		}
		if !tc.stopped && (msg != nil || m.status != "detection is not running") {
			t.Fatalf("%s: expected guard status, got %q", tc.name, m.status)
		}
	}
}

func TestNextDayHotkeyFollowsPhaseIndex(t *testing.T) {
	t.Parallel()
	cases := []struct {
		index int
		want  string
	}{
		{0, "mark DAY_II"},
		{1, "mark DAY_III"},
		{2, ""},
	}
	for _, tc := range cases {
		f := newFakeTracker(trackerdto.Snapshot{SessionTimerRunning: true, PhaseIndex: tc.index})
		m := NewModel(context.Background(), f, nil)
		press(t, m, "n")
		got := strings.Join(f.calls, ",")
		if got != tc.want {
			t.Fatalf("index %d: calls = %q, want %q", tc.index, got, tc.want)
		}
	}
}

func TestHotkeysMapToControls(t *testing.T) {
	t.Parallel()
	f := newFakeTracker(trackerdto.Snapshot{})
	m := NewModel(context.Background(), f, nil)
	for _, k := range []string{"1", "3", "4", "l", "v", "x"} {
		var msg tea.Msg
		m, msg = press(t, m, k)
		next, _ := m.Update(msg)
		m = next.(Model)
	}
	want := "reset,pause,start,lock,mark VICTORY,mark DEFEAT"
	if got := strings.Join(f.calls, ","); got != want {
		t.Fatalf("calls = %q, want %q", got, want)
	}
}

func TestControlErrorsReachStatus(t *testing.T) {
	t.Parallel()
	f := newFakeTracker(trackerdto.Snapshot{})
	f.err = apperrors.ErrControlsLocked
	m := NewModel(context.Background(), f, nil)
	m, msg := press(t, m, "3")
	next, _ := m.Update(msg)
	m = next.(Model)
	if !strings.Contains(m.status, "controls are locked") {
		t.Fatalf("status = %q", m.status)
	}
}

func TestUpdatesRedrawAndReloadRuns(t *testing.T) {
	t.Parallel()
	f := newFakeTracker(trackerdto.Snapshot{Phase: "awaiting_start", RemainingText: "04:28"})
	runs := fakeRuns{runs: []runlogdto.RunOutput{{Outcome: "victory", Total: "06:40", StartedAt: time.Now()}}}
	m := NewModel(context.Background(), f, runs)

	f.updates <- trackerdto.Update{
		Snapshot: trackerdto.Snapshot{Phase: "victory", TotalElapsedText: "06:40", RemainingText: "00:00"},
		Events:   []trackerdto.Event{trackerdto.EventSessionFinished},
	}
	msg := m.waitForUpdate()()
	next, cmd := m.Update(msg)
	m = next.(Model)
	if m.snap.Phase != "victory" || m.status != "session finished: victory at 06:40" {
		t.Fatalf("unexpected state: phase=%s status=%q", m.snap.Phase, m.status)
	}
	if cmd == nil {
		t.Fatalf("expected follow-up commands")
	}

	next, _ = m.Update(runsLoadedMsg{runs: runs.runs})
	m = next.(Model)
	if view := m.View(); !strings.Contains(view, "recent runs") || !strings.Contains(view, "06:40") {
		t.Fatalf("view missing runs:\n%s", view)
	}
}

func TestPaletteCommands(t *testing.T) {
	t.Parallel()
	f := newFakeTracker(trackerdto.Snapshot{})
	m := NewModel(context.Background(), f, nil)

	next, cmd := m.Update(components.PaletteSubmitMsg{Input: "mark DAY_III"})
	m = next.(Model)
	if cmd == nil {
		t.Fatalf("expected mark command")
	}
	cmd()
	if len(f.calls) != 1 || f.calls[0] != "mark DAY_III" {
		t.Fatalf("calls = %v", f.calls)
	}

	next, _ = m.Update(components.PaletteSubmitMsg{Input: "mark"})
	m = next.(Model)
	if !strings.HasPrefix(m.status, "usage:") {
		t.Fatalf("status = %q", m.status)
	}
	next, _ = m.Update(components.PaletteSubmitMsg{Input: "launch"})
	m = next.(Model)
	if m.status != "unknown command: launch" {
		t.Fatalf("status = %q", m.status)
	}
}

func TestOpenPaletteKeepsSnapshotsFlowing(t *testing.T) {
	t.Parallel()
	f := newFakeTracker(trackerdto.Snapshot{Phase: "awaiting_start"})
	m := NewModel(context.Background(), f, nil)

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(":")})
	m = next.(Model)
	if !m.palette.Visible() {
		t.Fatalf("expected palette to open")
	}

	f.updates <- trackerdto.Update{
		Snapshot: trackerdto.Snapshot{Phase: "day_1", RemainingText: "04:27"},
		Events:   []trackerdto.Event{trackerdto.EventSessionStarted},
	}
	next, cmd := m.Update(m.waitForUpdate()())
	m = next.(Model)
	if m.snap.Phase != "day_1" {
		t.Fatalf("update dropped while palette open: phase=%s", m.snap.Phase)
	}
	if cmd == nil {
		t.Fatalf("expected the update wait to be re-armed")
	}
	if !m.palette.Visible() {
		t.Fatalf("palette must stay open across updates")
	}

	next, _ = m.Update(controlDoneMsg{op: "start", snap: trackerdto.Snapshot{Phase: "day_1", Locked: true}})
	m = next.(Model)
	if !m.snap.Locked {
		t.Fatalf("control result dropped while palette open")
	}

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("4")})
	m = next.(Model)
	if len(f.calls) != 0 {
		t.Fatalf("keys typed into the palette must not fire hotkeys, got %v", f.calls)
	}
}
