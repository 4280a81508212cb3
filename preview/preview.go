// Package preview renders a terminal mock of the boot display so message
// and progress-bar changes can be checked without a compositor or a
// framebuffer device.
package preview

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"gitlab.com/tinyland/lab/splashctl/compositor"
	"gitlab.com/tinyland/lab/splashctl/geometry"
)

const percentStep = 5

// Model is the Bubbletea model for the boot display preview.
type Model struct {
	messageID string
	locale    string
	text      string
	category  compositor.Category
	percent   int
	bar       progress.Model
	spin      spinner.Model
	width     int
	height    int
	ready     bool
}

// NewModel returns a preview of the given message. Spinner-category
// messages animate the same way the boot screen would.
func NewModel(messageID, locale, text string, category compositor.Category) Model {
	spin := spinner.New()
	spin.Spinner = spinner.MiniDot
	spin.Style = lipgloss.NewStyle().Foreground(colorAccent)

	bar := progress.New(
		progress.WithWidth(48),
		progress.WithoutPercentage(),
		progress.WithSolidFill(string(colorAccent)),
	)

	return Model{
		messageID: messageID,
		locale:    locale,
		text:      text,
		category:  category,
		bar:       bar,
		spin:      spin,
	}
}

// SetPercent sets the initial progress position.
func (m *Model) SetPercent(percent int) {
	m.percent = geometry.ClampPercent(percent)
}

// Init implements tea.Model. Spinner messages start the tick loop.
func (m Model) Init() tea.Cmd {
	if m.category == compositor.CategorySpinner {
		return m.spin.Tick
	}
	return nil
}

// Update implements tea.Model. It handles key presses, spinner ticks and
// window resize events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.More):
			m.percent = geometry.ClampPercent(m.percent + percentStep)
		case key.Matches(msg, keys.Less):
			m.percent = geometry.ClampPercent(m.percent - percentStep)
		case key.Matches(msg, keys.Reset):
			m.percent = 0
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
	}

	return m, nil
}

// View implements tea.Model. It centers the message and progress bar the
// way the boot screen lays them out.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	header := styleTitle.Render("boot display preview") +
		styleMeta.Render(fmt.Sprintf("  %s (%s, %s)", m.messageID, m.locale, m.category))

	line := m.text
	if m.category == compositor.CategorySpinner {
		line = m.spin.View() + " " + line
	}
	message := styleMessage.Render(line)

	progressLine := fmt.Sprintf("%s %3d%%", m.bar.ViewAs(float64(m.percent)/100), m.percent)

	bodyHeight := m.height - 4
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	body := lipgloss.Place(m.width, bodyHeight, lipgloss.Center, lipgloss.Center,
		lipgloss.JoinVertical(lipgloss.Center, message, "", progressLine))

	footer := styleFooter.Width(m.width).Render("q: quit | up/down: progress | r: reset")

	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}

// Run starts the interactive preview in the alternate screen.
func Run(m Model) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
