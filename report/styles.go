package report

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Theme defines the colour palette of console output.
type Theme struct {
	// Primary is used for headers.
	Primary lipgloss.Color

	// Muted is for less important text.
	Muted lipgloss.Color

	// Success marks passed bundles.
	Success lipgloss.Color

	// Warning marks warnings.
	Warning lipgloss.Color

	// Error marks errors and failed bundles.
	Error lipgloss.Color

	// Information marks informational findings.
	Information lipgloss.Color
}

// DefaultTheme returns the default colour theme.
func DefaultTheme() *Theme {
	return &Theme{
		Primary:     lipgloss.Color("#7C3AED"), // Purple
		Muted:       lipgloss.Color("#6C7086"), // Medium gray
		Success:     lipgloss.Color("#A6E3A1"), // Green
		Warning:     lipgloss.Color("#F9E2AF"), // Yellow
		Error:       lipgloss.Color("#F38BA8"), // Red
		Information: lipgloss.Color("#89B4FA"), // Blue
	}
}

// Styles contains the lipgloss styles bound to one output writer.
type Styles struct {
	Header      lipgloss.Style
	Normal      lipgloss.Style
	Muted       lipgloss.Style
	Success     lipgloss.Style
	Warning     lipgloss.Style
	Error       lipgloss.Style
	Information lipgloss.Style
}

// NewStyles creates styles rendering to w. Colours are dropped when w is
// not a terminal.
func NewStyles(w io.Writer, theme *Theme) *Styles {
	if theme == nil {
		theme = DefaultTheme()
	}
	r := lipgloss.NewRenderer(w)

	return &Styles{
		Header:      r.NewStyle().Bold(true).Foreground(theme.Primary),
		Normal:      r.NewStyle(),
		Muted:       r.NewStyle().Foreground(theme.Muted),
		Success:     r.NewStyle().Foreground(theme.Success),
		Warning:     r.NewStyle().Foreground(theme.Warning),
		Error:       r.NewStyle().Foreground(theme.Error),
		Information: r.NewStyle().Foreground(theme.Information),
	}
}

// DefaultWidth is the rule width used when the terminal size is unknown.
const DefaultWidth = 80

// TerminalWidth returns the width of the terminal behind w, or
// DefaultWidth when w is not a terminal.
func TerminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return DefaultWidth
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return DefaultWidth
	}
	return width
}
