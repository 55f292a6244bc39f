package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Model is the menu state. The menu only picks a flow; the selected flow
// runs after the program exits so its prompts and progress rendering own
// the terminal.
type Model struct {
	selection int
	choice    Action
	quitting  bool
}

// NewModel creates the menu model.
func NewModel() Model {
	return Model{}
}

// Choice returns the selected action, or ActionNone after a plain quit.
func (m Model) Choice() Action {
	return m.choice
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles key messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	key := keyMsg.String()

	switch key {
	case "ctrl+c", "q", "esc":
		m.quitting = true
		return m, tea.Quit
	case "up", "k":
		return m.navigateUp(), nil
	case "down", "j":
		return m.navigateDown(), nil
	case "enter", " ":
		return m.selectCurrent()
	}

	return m.selectByKey(key)
}

func (m Model) navigateUp() Model {
	if m.selection > 0 {
		m.selection--
	} else {
		m.selection = len(DefaultMenuItems()) - 1
	}
	return m
}

func (m Model) navigateDown() Model {
	if m.selection < len(DefaultMenuItems())-1 {
		m.selection++
	} else {
		m.selection = 0
	}
	return m
}

func (m Model) selectCurrent() (tea.Model, tea.Cmd) {
	items := DefaultMenuItems()
	if m.selection >= 0 && m.selection < len(items) {
		m.choice = items[m.selection].Action
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) selectByKey(key string) (tea.Model, tea.Cmd) {
	for i, item := range DefaultMenuItems() {
		if item.Key == key {
			m.selection = i
			m.choice = item.Action
			m.quitting = true
			return m, tea.Quit
		}
	}
	return m, nil
}

// View renders the menu screen.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#76b900")).MarginBottom(1)
	menuItemStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#ffffff"))
	menuItemSelectedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#000000")).Background(lipgloss.Color("#76b900")).Bold(true)
	descStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#808080")).PaddingLeft(2)
	hintStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#5fafff")).MarginTop(1)

	b.WriteString(titleStyle.Render("nvsetup — GPU Provisioning"))
	b.WriteString("\n\n")

	for i, item := range DefaultMenuItems() {
		prefix := fmt.Sprintf("[%s] ", item.Key)

		if i == m.selection {
			b.WriteString(menuItemSelectedStyle.Render(prefix + item.Label))
		} else {
			b.WriteString(menuItemStyle.Render(prefix + item.Label))
		}
		b.WriteString("\n")
		b.WriteString(descStyle.Render(item.Description))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(hintStyle.Render("Navigate: ↑/↓ or numbers | Select: Enter/Space | Quit: q"))
	b.WriteString("\n")

	return b.String()
}

// Run displays the menu and blocks until the operator picks a flow or
// quits.
func Run() (Action, error) {
	program := tea.NewProgram(NewModel())

	final, err := program.Run()
	if err != nil {
		return ActionNone, fmt.Errorf("menu failed: %w", err)
	}

	model, ok := final.(Model)
	if !ok {
		return ActionNone, nil
	}
	return model.Choice(), nil
}
