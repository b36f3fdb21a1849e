package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/tally/pkg/domain"
	"github.com/aretw0/tally/pkg/ports"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// keypadRows is the on-screen layout. Labels are valid keys for CommandFromKey.
var keypadRows = [][]string{
	{"7", "8", "9", "÷"},
	{"4", "5", "6", "×"},
	{"1", "2", "3", "−"},
	{"0", ".", "(", ")"},
	{domain.KeyEscape, domain.KeyBackspace, "=", "+"},
}

var buttonLabels = map[string]string{
	domain.KeyEscape:    "AC",
	domain.KeyBackspace: "⌫",
}

type keypadStyles struct {
	frame   lipgloss.Style
	expr    lipgloss.Style
	value   lipgloss.Style
	pending lipgloss.Style
	errText lipgloss.Style
	button  lipgloss.Style
	pressed lipgloss.Style
	help    lipgloss.Style
}

func defaultKeypadStyles() keypadStyles {
	button := lipgloss.NewStyle().Width(5).Align(lipgloss.Center)
	return keypadStyles{
		frame:   lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#60a5fa")).Padding(0, 1),
		expr:    lipgloss.NewStyle().Width(30).Align(lipgloss.Right),
		value:   lipgloss.NewStyle().Width(30).Align(lipgloss.Right).Bold(true).Foreground(lipgloss.Color("#34d399")),
		pending: lipgloss.NewStyle().Width(30).Align(lipgloss.Right).Faint(true),
		errText: lipgloss.NewStyle().Width(30).Align(lipgloss.Right).Bold(true).Foreground(lipgloss.Color("#f87171")),
		button:  button,
		pressed: button.Reverse(true),
		help:    lipgloss.NewStyle().Faint(true),
	}
}

// Keypad is a bubbletea model of a calculator with an on-screen keypad.
// Every key goes through the engine, so it behaves like any other adapter.
type Keypad struct {
	ctx         context.Context
	engine      ports.Engine
	state       *domain.State
	outcome     *domain.Outcome
	lastKey     string
	showHistory bool
	err         error
	styles      keypadStyles
}

// NewKeypad creates the model over an existing session state.
func NewKeypad(ctx context.Context, engine ports.Engine, state *domain.State) *Keypad {
	return &Keypad{
		ctx:    ctx,
		engine: engine,
		state:  state,
		styles: defaultKeypadStyles(),
	}
}

// State returns the current session state.
func (m *Keypad) State() *domain.State {
	return m.state
}

// Err returns the engine error that stopped the model, if any.
func (m *Keypad) Err() error {
	return m.err
}

func (m *Keypad) Init() tea.Cmd {
	return nil
}

func (m *Keypad) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch keyMsg.Type {
	case tea.KeyCtrlC, tea.KeyCtrlD:
		return m, tea.Quit
	case tea.KeyCtrlL:
		return m, m.dispatch(domain.ClearHistory(), "")
	case tea.KeyTab:
		m.showHistory = !m.showHistory
		return m, nil
	case tea.KeyEnter:
		return m, m.press(domain.KeyEnter)
	case tea.KeyBackspace:
		return m, m.press(domain.KeyBackspace)
	case tea.KeyEsc:
		return m, m.press(domain.KeyEscape)
	case tea.KeyRunes:
		for _, r := range keyMsg.Runes {
			if r == 'q' {
				return m, tea.Quit
			}
			if cmd := m.press(string(r)); cmd != nil {
				return m, cmd
			}
		}
	}
	return m, nil
}

// press maps a key to a command; unknown keys are ignored.
func (m *Keypad) press(key string) tea.Cmd {
	cmd, ok := domain.CommandFromKey(key)
	if !ok {
		return nil
	}
	return m.dispatch(cmd, key)
}

func (m *Keypad) dispatch(cmd domain.Command, key string) tea.Cmd {
	next, out, err := m.engine.Dispatch(m.ctx, m.state, cmd)
	if err != nil {
		m.err = err
		return tea.Quit
	}
	m.state = next
	m.lastKey = normalizeKey(key)
	if cmd.Kind == domain.CommandEvaluate {
		m.outcome = out
	}
	return nil
}

// normalizeKey maps typed keys to the keypad label they light up.
func normalizeKey(key string) string {
	switch key {
	case "*":
		return "×"
	case "/":
		return "÷"
	case "-":
		return "−"
	case domain.KeyEnter:
		return "="
	}
	return key
}

func (m *Keypad) View() string {
	var b strings.Builder

	b.WriteString(m.styles.expr.Render(m.state.Expression))
	b.WriteString("\n")
	b.WriteString(m.displayLine())
	b.WriteString("\n\n")

	for _, row := range keypadRows {
		cells := make([]string, 0, len(row))
		for _, key := range row {
			label := key
			if l, ok := buttonLabels[key]; ok {
				label = l
			}
			style := m.styles.button
			if key == m.lastKey {
				style = m.styles.pressed
			}
			cells = append(cells, style.Render(label))
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cells...))
		b.WriteString("\n")
	}

	if m.showHistory {
		b.WriteString("\n")
		b.WriteString(m.historyView())
	}

	view := m.styles.frame.Render(strings.TrimRight(b.String(), "\n"))
	help := m.styles.help.Render("enter/= eval • esc clear • tab history • ctrl+l clear history • q quit")
	return lipgloss.JoinVertical(lipgloss.Left, view, help) + "\n"
}

func (m *Keypad) displayLine() string {
	d := m.state.Display
	switch d.Kind {
	case domain.DisplayValue:
		return m.styles.value.Render(d.Text)
	case domain.DisplayError:
		text := d.Text
		if m.outcome != nil && m.outcome.Err != nil {
			text = fmt.Sprintf("%s (%s)", d.Text, m.outcome.Err.Kind)
		}
		return m.styles.errText.Render(text)
	default:
		return m.styles.pending.Render(d.Text)
	}
}

func (m *Keypad) historyView() string {
	if len(m.state.History) == 0 {
		return m.styles.help.Render("no calculations yet")
	}
	lines := make([]string, 0, len(m.state.History))
	for _, e := range m.state.History {
		lines = append(lines, fmt.Sprintf("%s = %s", e.Expression, e.Result))
	}
	return strings.Join(lines, "\n")
}

// RunKeypad runs the keypad until the user quits and returns the final state.
func RunKeypad(ctx context.Context, engine ports.Engine, state *domain.State, opts ...tea.ProgramOption) (*domain.State, error) {
	model := NewKeypad(ctx, engine, state)
	opts = append([]tea.ProgramOption{tea.WithContext(ctx), tea.WithAltScreen()}, opts...)
	final, err := tea.NewProgram(model, opts...).Run()
	if err != nil {
		return model.State(), fmt.Errorf("keypad: %w", err)
	}
	keypad := final.(*Keypad)
	return keypad.State(), keypad.Err()
}
