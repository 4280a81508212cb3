package preview

import "github.com/charmbracelet/lipgloss"

// Color palette echoing the boot screen defaults.
const (
	colorAccent = lipgloss.Color("#2D81FA") // Progress bar blue
	colorText   = lipgloss.Color("#1F1F1F") // Near-black message text
	colorMuted  = lipgloss.Color("#6B7280") // Gray chrome
)

// Styles used by the preview.
var (
	styleTitle   lipgloss.Style
	styleMeta    lipgloss.Style
	styleMessage lipgloss.Style
	styleFooter  lipgloss.Style
)

func init() {
	styleTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(colorAccent)

	styleMeta = lipgloss.NewStyle().
		Foreground(colorMuted)

	styleMessage = lipgloss.NewStyle().
		Foreground(colorText).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(colorMuted).
		Padding(1, 4)

	styleFooter = lipgloss.NewStyle().
		Foreground(colorMuted).
		MarginTop(1)
}
