package theme

import "github.com/charmbracelet/lipgloss"

// Mocha palette.
var (
	Base     = lipgloss.Color("#1e1e2e")
	Mantle   = lipgloss.Color("#181825")
	Surface1 = lipgloss.Color("#45475a")
	Text     = lipgloss.Color("#cdd6f4")
	Subtext0 = lipgloss.Color("#a6adc8")
	Lavender = lipgloss.Color("#b4befe")
	Sapphire = lipgloss.Color("#74c7ec")
	Green    = lipgloss.Color("#a6e3a1")
	Yellow   = lipgloss.Color("#f9e2af")
	Peach    = lipgloss.Color("#fab387")
	Red      = lipgloss.Color("#f38ba8")
)

var (
	App = lipgloss.NewStyle().Background(Base).Foreground(Text).Padding(0, 1)

	// Pane frames the timer, history and run list. PaneActive is used while
	// a session runs.
	Pane       = lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(Surface1).Padding(0, 1)
	PaneActive = Pane.BorderForeground(Lavender)

	Title = lipgloss.NewStyle().Foreground(Sapphire).Bold(true)
	Muted = lipgloss.NewStyle().Foreground(Subtext0)
	Hot   = lipgloss.NewStyle().Foreground(Peach).Bold(true)
	Good  = lipgloss.NewStyle().Foreground(Green).Bold(true)
	Warn  = lipgloss.NewStyle().Foreground(Yellow)
	Bad   = lipgloss.NewStyle().Foreground(Red).Bold(true)

	Clock        = lipgloss.NewStyle().Foreground(Text).Bold(true).Padding(0, 1)
	ClockExpired = Clock.Foreground(Red)
)

// Outcome colours a stored run outcome.
func Outcome(outcome string) string {
	switch outcome {
	case "victory":
		return Good.Render(outcome)
	case "defeat":
		return Bad.Render(outcome)
	default:
		return Muted.Render(outcome)
	}
}

// Countdown renders the phase clock, red once the phase countdown has stopped
// while the session keeps counting.
func Countdown(text string, expired bool) string {
	if expired {
		return ClockExpired.Render(text)
	}
	return Clock.Render(text)
}
