package preview

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"gitlab.com/tinyland/lab/splashctl/compositor"
)

// isQuitCmd executes a tea.Cmd and returns true if it produces a tea.QuitMsg.
func isQuitCmd(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func TestNewModel(t *testing.T) {
	m := NewModel("update_firmware", "en-US", "Updating firmware", compositor.CategorySpinner)

	if m.messageID != "update_firmware" {
		t.Errorf("messageID = %q", m.messageID)
	}
	if m.percent != 0 {
		t.Errorf("percent = %d, want 0", m.percent)
	}
	if m.ready {
		t.Error("ready before WindowSizeMsg")
	}
}

func TestInitStartsSpinnerForSpinnerCategory(t *testing.T) {
	spin := NewModel("update_firmware", "en-US", "Updating", compositor.CategorySpinner)
	if spin.Init() == nil {
		t.Error("spinner preview did not start the tick loop")
	}

	static := NewModel("self_repair", "en-US", "Repairing", compositor.CategoryStatic)
	if static.Init() != nil {
		t.Error("static preview started a tick loop")
	}
}

func TestUpdateQuit(t *testing.T) {
	m := NewModel("self_repair", "en-US", "Repairing", compositor.CategoryStatic)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if !isQuitCmd(cmd) {
		t.Error("'q' did not quit")
	}
	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if !isQuitCmd(cmd) {
		t.Error("ctrl+c did not quit")
	}
}

func TestUpdateProgressKeys(t *testing.T) {
	m := NewModel("self_repair", "en-US", "Repairing", compositor.CategoryStatic)

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyUp})
	m = updated.(Model)
	if m.percent != percentStep {
		t.Errorf("percent after up = %d, want %d", m.percent, percentStep)
	}

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = updated.(Model)
	if m.percent != 0 {
		t.Errorf("percent after down = %d, want 0", m.percent)
	}

	// Clamped at the bottom.
	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = updated.(Model)
	if m.percent != 0 {
		t.Errorf("percent below zero = %d", m.percent)
	}

	// Clamped at the top.
	for i := 0; i < 30; i++ {
		updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
		m = updated.(Model)
	}
	if m.percent != 100 {
		t.Errorf("percent above hundred = %d", m.percent)
	}

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}})
	m = updated.(Model)
	if m.percent != 0 {
		t.Errorf("percent after reset = %d, want 0", m.percent)
	}
}

func TestSetPercentClamps(t *testing.T) {
	m := NewModel("self_repair", "en-US", "Repairing", compositor.CategoryStatic)

	m.SetPercent(150)
	if m.percent != 100 {
		t.Errorf("SetPercent(150) = %d, want 100", m.percent)
	}
	m.SetPercent(-3)
	if m.percent != 0 {
		t.Errorf("SetPercent(-3) = %d, want 0", m.percent)
	}
}

func TestUpdateWindowSize(t *testing.T) {
	m := NewModel("self_repair", "en-US", "Repairing", compositor.CategoryStatic)

	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	m = updated.(Model)
	if !m.ready {
		t.Error("not ready after WindowSizeMsg")
	}
	if m.width != 100 || m.height != 30 {
		t.Errorf("size = %dx%d, want 100x30", m.width, m.height)
	}
}

func TestViewNotReady(t *testing.T) {
	m := NewModel("self_repair", "en-US", "Repairing", compositor.CategoryStatic)
	if got := m.View(); got != "Initializing..." {
		t.Errorf("View before resize = %q", got)
	}
}

func TestViewReady(t *testing.T) {
	m := NewModel("self_repair", "en-US", "Repairing disk", compositor.CategoryStatic)
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	m = updated.(Model)

	view := m.View()
	if !strings.Contains(view, "Repairing disk") {
		t.Error("view missing message text")
	}
	if !strings.Contains(view, "self_repair") {
		t.Error("view missing message identifier")
	}
	if !strings.Contains(view, "q: quit") {
		t.Error("view missing help text")
	}
}
