package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	runlogdto "nightwatch/internal/modules/runlog/dto"
	trackerdto "nightwatch/internal/modules/tracker/dto"
	"nightwatch/internal/ui/components"
	"nightwatch/internal/ui/theme"
)

// ─── ports ───────────────────────────────────────────────────────────────────

type trackerPort interface {
	Snapshot() trackerdto.Snapshot
	Subscribe(ctx context.Context) <-chan trackerdto.Update
	StartManually(ctx context.Context) (trackerdto.Snapshot, error)
	StopAutoDetection(ctx context.Context) (trackerdto.Snapshot, error)
	TogglePause(ctx context.Context) (trackerdto.Snapshot, error)
	ResetSession(ctx context.Context) (trackerdto.Snapshot, error)
	ToggleLock(ctx context.Context) (trackerdto.Snapshot, error)
	MarkPhase(ctx context.Context, label string) (trackerdto.Snapshot, error)
	ClassifyOnce(ctx context.Context) (trackerdto.ClassifyOutput, error)
}

type runsPort interface {
	List(ctx context.Context, limit int, outcome string) ([]runlogdto.RunOutput, error)
}

const recentRuns = 5

// nextDay maps the current day slot to the label that advances it.
var nextDay = map[int]string{0: "DAY_II", 1: "DAY_III"}

var paletteHints = []string{
	"start",
	"stop",
	"pause",
	"reset",
	"lock",
	"mark DAY_II",
	"mark DAY_III",
	"mark VICTORY",
	"mark DEFEAT",
	"classify",
	"runs",
}

// ─── async messages ──────────────────────────────────────────────────────────

type updateMsg struct {
	update trackerdto.Update
	closed bool
}

type controlDoneMsg struct {
	op   string
	snap trackerdto.Snapshot
	err  error
}

type classifiedMsg struct {
	out trackerdto.ClassifyOutput
	err error
}

type runsLoadedMsg struct {
	runs []runlogdto.RunOutput
	err  error
}

// ─── key bindings ────────────────────────────────────────────────────────────

type keyMap struct {
	Reset    key.Binding
	Stop     key.Binding
	Pause    key.Binding
	Start    key.Binding
	Lock     key.Binding
	NextDay  key.Binding
	Victory  key.Binding
	Defeat   key.Binding
	Classify key.Binding
	Palette  key.Binding
	Help     key.Binding
	Quit     key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Reset:    key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "reset")),
		Stop:     key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "stop detection")),
		Pause:    key.NewBinding(key.WithKeys("3"), key.WithHelp("3", "pause/resume")),
		Start:    key.NewBinding(key.WithKeys("4"), key.WithHelp("4", "start manually")),
		Lock:     key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "lock controls")),
		NextDay:  key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "next day")),
		Victory:  key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "victory")),
		Defeat:   key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "defeat")),
		Classify: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "classify now")),
		Palette:  key.NewBinding(key.WithKeys(":"), key.WithHelp(":", "command")),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:     key.NewBinding(key.WithKeys("ctrl+c", "q"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Reset, k.Stop, k.Pause, k.Start, k.Lock, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Reset, k.Stop, k.Pause, k.Start},
		{k.NextDay, k.Victory, k.Defeat, k.Classify},
		{k.Lock, k.Palette, k.Help, k.Quit},
	}
}

// ─── model ───────────────────────────────────────────────────────────────────

// Model is the terminal overlay. It redraws from controller updates and maps
// hotkeys onto controller operations; it holds no timer state of its own.
type Model struct {
	tracker trackerPort
	runs    runsPort
	updates <-chan trackerdto.Update

	snap     trackerdto.Snapshot
	recent   []runlogdto.RunOutput
	keys     keyMap
	help     help.Model
	showHelp bool
	palette  components.Palette
	status   string
	width    int
	height   int
}

// NewModel subscribes to the tracker for as long as ctx lives. runs may be
// nil when no run log is configured.
func NewModel(ctx context.Context, tracker trackerPort, runs runsPort) Model {
	return Model{
		tracker: tracker,
		runs:    runs,
		updates: tracker.Subscribe(ctx),
		snap:    tracker.Snapshot(),
		keys:    defaultKeys(),
		help:    help.New(),
		palette: components.NewPalette(paletteHints),
		status:  "waiting for day I",
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.waitForUpdate(), m.loadRunsCmd())
}

// ─── update ──────────────────────────────────────────────────────────────────

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// The open palette owns the keyboard; everything else still reaches the
	// overlay so snapshots keep flowing.
	if _, isKey := msg.(tea.KeyMsg); isKey && m.palette.Visible() {
		var cmd tea.Cmd
		m.palette, cmd = m.palette.Update(msg)
		return m, cmd
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.palette.SetWidth(min(msg.Width-4, 60))

	case updateMsg:
		if msg.closed {
			return m, nil
		}
		m.snap = msg.update.Snapshot
		cmds := []tea.Cmd{m.waitForUpdate()}
		if notice := describe(msg.update); notice != "" {
			m.status = notice
		}
		if msg.update.Has(trackerdto.EventSessionFinished) || msg.update.Has(trackerdto.EventSessionExpired) {
			cmds = append(cmds, m.loadRunsCmd())
		}
		return m, tea.Batch(cmds...)

	case controlDoneMsg:
		if msg.err != nil {
			m.status = msg.op + ": " + msg.err.Error()
		}
		m.snap = msg.snap

	case classifiedMsg:
		if msg.err != nil {
			m.status = "classify: " + msg.err.Error()
		} else {
			m.status = fmt.Sprintf("classified %s in %dms", msg.out.Label, msg.out.Duration.Milliseconds())
		}

	case runsLoadedMsg:
		if msg.err != nil {
			m.status = "runs: " + msg.err.Error()
		} else {
			m.recent = msg.runs
		}

	case components.PaletteSubmitMsg:
		return m.executePalette(msg.Input)

	case components.PaletteCancelMsg:
		m.status = ""

	case tea.KeyMsg:
		if m.showHelp {
			if msg.String() == "?" || msg.String() == "esc" {
				m.showHelp = false
			}
			return m, nil
		}
		return m.handleKey(msg)

	default:
		if m.palette.Visible() {
			var cmd tea.Cmd
			m.palette, cmd = m.palette.Update(msg)
			return m, cmd
		}
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
	case key.Matches(msg, m.keys.Palette):
		return m, m.palette.Open()
	case key.Matches(msg, m.keys.Reset):
		return m, m.controlCmd("reset", m.tracker.ResetSession)
	case key.Matches(msg, m.keys.Stop):
		// Only an idle overlay that is still polling can be told to stop.
		if m.snap.SessionTimerRunning || !m.snap.Polling {
			m.status = "detection is not running"
			return m, nil
		}
		return m, m.controlCmd("stop", m.tracker.StopAutoDetection)
	case key.Matches(msg, m.keys.Pause):
		return m, m.controlCmd("pause", m.tracker.TogglePause)
	case key.Matches(msg, m.keys.Start):
		return m, m.controlCmd("start", m.tracker.StartManually)
	case key.Matches(msg, m.keys.Lock):
		return m, m.controlCmd("lock", m.tracker.ToggleLock)
	case key.Matches(msg, m.keys.NextDay):
		if !m.snap.SessionTimerRunning {
			m.status = "no session running"
			return m, nil
		}
		label, ok := nextDay[m.snap.PhaseIndex]
		if !ok {
			m.status = "already on the last day"
			return m, nil
		}
		return m, m.markCmd(label)
	case key.Matches(msg, m.keys.Victory):
		return m, m.markCmd("VICTORY")
	case key.Matches(msg, m.keys.Defeat):
		return m, m.markCmd("DEFEAT")
	case key.Matches(msg, m.keys.Classify):
		m.status = "classifying…"
		return m, m.classifyCmd()
	}
	return m, nil
}

// ─── view ────────────────────────────────────────────────────────────────────

func (m Model) View() string {
	header := m.renderHeader()
	status := m.renderStatusBar()

	var content string
	switch {
	case m.showHelp:
		content = m.help.FullHelpView(m.keys.FullHelp())
	case m.palette.Visible():
		content = m.palette.View()
	default:
		content = lipgloss.JoinVertical(lipgloss.Left, m.renderTimer(), m.renderHistory(), m.renderRuns())
	}
	return theme.App.Render(lipgloss.JoinVertical(lipgloss.Left, header, content, status))
}

func (m Model) renderHeader() string {
	badges := []string{theme.Title.Render("nightwatch")}
	if m.snap.Polling {
		badge := "● detecting"
		if m.snap.Busy {
			badge += "…"
		}
		badges = append(badges, theme.Good.Render(badge))
	} else {
		badges = append(badges, theme.Muted.Render("○ detection off"))
	}
	if m.snap.Paused {
		badges = append(badges, theme.Warn.Render("PAUSED"))
	}
	if m.snap.Locked {
		badges = append(badges, theme.Bad.Render("LOCKED"))
	}
	if m.snap.ManuallyStarted {
		badges = append(badges, theme.Muted.Render("manual"))
	}
	return strings.Join(badges, "  ")
}

func (m Model) renderTimer() string {
	title := phaseTitle(m.snap)
	remaining := theme.Countdown(m.snap.RemainingText, m.snap.SessionTimerRunning && !m.snap.PhaseTimerRunning)
	total := theme.Muted.Render("total " + m.snap.TotalElapsedText)
	body := lipgloss.JoinVertical(lipgloss.Left, theme.Hot.Render(title), remaining, total)

	pane := theme.Pane
	if m.snap.SessionTimerRunning {
		pane = theme.PaneActive
	}
	return pane.Render(body)
}

func (m Model) renderHistory() string {
	var sb strings.Builder
	for _, h := range m.snap.History {
		line := fmt.Sprintf("%-8s %s", h.Label, h.Display)
		if h.Recorded {
			sb.WriteString(line + "\n")
		} else {
			sb.WriteString(theme.Muted.Render(line) + "\n")
		}
	}
	return theme.Pane.Render(strings.TrimRight(sb.String(), "\n"))
}

func (m Model) renderRuns() string {
	if len(m.recent) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(theme.Title.Render("recent runs") + "\n")
	for _, r := range m.recent {
		fmt.Fprintf(&sb, "%s  %s  %s\n", r.StartedAt.Local().Format("01-02 15:04"), r.Total, theme.Outcome(r.Outcome))
	}
	return theme.Pane.Render(strings.TrimRight(sb.String(), "\n"))
}

func (m Model) renderStatusBar() string {
	left := m.status
	if f := m.snap.LastFailure; f != nil && left == "" {
		left = theme.Bad.Render(f.Message)
	}
	right := m.help.ShortHelpView(m.keys.ShortHelp())
	if m.width == 0 {
		return left + "\n" + right
	}
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		return left + "\n" + right
	}
	return left + strings.Repeat(" ", gap) + right
}

func phaseTitle(s trackerdto.Snapshot) string {
	switch s.Phase {
	case "awaiting_start":
		return "waiting for day I"
	case "victory":
		return "victory"
	case "defeat":
		return "defeat"
	}
	if s.SessionTimerRunning && !s.PhaseTimerRunning {
		return s.DayLabel + " · circle closed"
	}
	return s.DayLabel
}

// describe turns the events of one update into a status line.
func describe(u trackerdto.Update) string {
	switch {
	case u.Has(trackerdto.EventPermissionDenied):
		return "screen capture permission denied; detection stopped"
	case u.Has(trackerdto.EventClassificationFailed):
		msg := "classification failed; detection stopped"
		if f := u.Snapshot.LastFailure; f != nil {
			msg += ": " + f.Message
		}
		return msg
	case u.Has(trackerdto.EventSessionFinished):
		return "session finished: " + u.Snapshot.Phase + " at " + u.Snapshot.TotalElapsedText
	case u.Has(trackerdto.EventSessionExpired):
		return "day III ran out at " + u.Snapshot.TotalElapsedText
	case u.Has(trackerdto.EventPhaseAdvanced):
		return u.Snapshot.DayLabel + " started"
	case u.Has(trackerdto.EventPhaseExpired):
		return u.Snapshot.DayLabel + " circle closed"
	case u.Has(trackerdto.EventSessionStarted):
		return "day I started"
	case u.Has(trackerdto.EventSessionReset):
		return "session reset"
	case u.Has(trackerdto.EventPaused):
		return "paused"
	case u.Has(trackerdto.EventResumed):
		return "resumed"
	case u.Has(trackerdto.EventLocked):
		return "controls locked"
	case u.Has(trackerdto.EventUnlocked):
		return "controls unlocked"
	case u.Has(trackerdto.EventPollingStopped) && !u.Snapshot.SessionTimerRunning:
		return "detection stopped"
	}
	return ""
}

// ─── palette execution ───────────────────────────────────────────────────────

func (m Model) executePalette(input string) (tea.Model, tea.Cmd) {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return m, nil
	}
	switch parts[0] {
	case "start":
		return m, m.controlCmd("start", m.tracker.StartManually)
	case "stop":
		return m, m.controlCmd("stop", m.tracker.StopAutoDetection)
	case "pause":
		return m, m.controlCmd("pause", m.tracker.TogglePause)
	case "reset":
		return m, m.controlCmd("reset", m.tracker.ResetSession)
	case "lock":
		return m, m.controlCmd("lock", m.tracker.ToggleLock)
	case "mark":
		if len(parts) < 2 {
			m.status = "usage: mark <DAY_II|DAY_III|VICTORY|DEFEAT>"
			return m, nil
		}
		return m, m.markCmd(parts[1])
	case "classify":
		return m, m.classifyCmd()
	case "runs":
		return m, m.loadRunsCmd()
	default:
		m.status = "unknown command: " + parts[0]
	}
	return m, nil
}

// ─── async commands ──────────────────────────────────────────────────────────

func (m Model) waitForUpdate() tea.Cmd {
	ch := m.updates
	return func() tea.Msg {
		u, ok := <-ch
		return updateMsg{update: u, closed: !ok}
	}
}

func (m Model) controlCmd(op string, fn func(context.Context) (trackerdto.Snapshot, error)) tea.Cmd {
	return func() tea.Msg {
		snap, err := fn(context.Background())
		return controlDoneMsg{op: op, snap: snap, err: err}
	}
}

func (m Model) markCmd(label string) tea.Cmd {
	return func() tea.Msg {
		snap, err := m.tracker.MarkPhase(context.Background(), label)
		return controlDoneMsg{op: "mark " + label, snap: snap, err: err}
	}
}

func (m Model) classifyCmd() tea.Cmd {
	return func() tea.Msg {
		out, err := m.tracker.ClassifyOnce(context.Background())
		return classifiedMsg{out: out, err: err}
	}
}

func (m Model) loadRunsCmd() tea.Cmd {
	if m.runs == nil {
		return nil
	}
	return func() tea.Msg {
		runs, err := m.runs.List(context.Background(), recentRuns, "")
		return runsLoadedMsg{runs: runs, err: err}
	}
}
