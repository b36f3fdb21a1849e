package tui

import (
	"context"
	"testing"

	"github.com/aretw0/tally"
	"github.com/aretw0/tally/pkg/domain"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newKeypad() *Keypad {
	engine := tally.New()
	return NewKeypad(context.Background(), engine, engine.Start("tui"))
}

func typeRunes(m *Keypad, s string) tea.Cmd {
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
	return cmd
}

func key(m *Keypad, t tea.KeyType) tea.Cmd {
	_, cmd := m.Update(tea.KeyMsg{Type: t})
	return cmd
}

func TestKeypad_EvaluatesTypedExpression(t *testing.T) {
	m := newKeypad()

	assert.Nil(t, typeRunes(m, "12+3"))
	assert.Equal(t, "12+3", m.State().Expression)

	assert.Nil(t, key(m, tea.KeyEnter))
	assert.Equal(t, "15", m.State().Expression)
	assert.Equal(t, domain.Display{Kind: domain.DisplayValue, Text: "15"}, m.State().Display)
	assert.Equal(t, []domain.HistoryEntry{{Expression: "12+3", Result: "15"}}, m.State().History)
	assert.Contains(t, m.View(), "15")
}

func TestKeypad_EditingKeys(t *testing.T) {
	m := newKeypad()

	typeRunes(m, "7×8")
	assert.Equal(t, "7*8", m.State().Expression)

	key(m, tea.KeyBackspace)
	assert.Equal(t, "7*", m.State().Expression)

	typeRunes(m, "+")
	assert.Equal(t, "7+", m.State().Expression, "operator replaces operator")

	key(m, tea.KeyEsc)
	assert.Equal(t, "", m.State().Expression)
	assert.Equal(t, domain.InitialDisplay(), m.State().Display)

	typeRunes(m, "x!")
	assert.Equal(t, "", m.State().Expression, "unmapped keys are ignored")
}

func TestKeypad_ErrorShowsKind(t *testing.T) {
	m := newKeypad()

	typeRunes(m, "5/0=")
	assert.Equal(t, "5/0", m.State().Expression)
	assert.Equal(t, domain.DisplayError, m.State().Display.Kind)
	assert.Contains(t, m.View(), "Error (non_finite_result)")
}

func TestKeypad_History(t *testing.T) {
	m := newKeypad()

	key(m, tea.KeyTab)
	assert.Contains(t, m.View(), "no calculations yet")

	typeRunes(m, "2*3=")
	assert.Contains(t, m.View(), "2*3 = 6")

	key(m, tea.KeyCtrlL)
	assert.Empty(t, m.State().History)

	key(m, tea.KeyTab)
	assert.NotContains(t, m.View(), "no calculations yet")
}

func TestKeypad_Quit(t *testing.T) {
	m := newKeypad()

	cmd := typeRunes(m, "q")
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())

	cmd = key(m, tea.KeyCtrlC)
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestKeypad_IgnoresOtherMessages(t *testing.T) {
	m := newKeypad()
	_, cmd := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	assert.Nil(t, cmd)
	assert.Nil(t, m.Init())
}

func TestNormalizeKey(t *testing.T) {
	assert.Equal(t, "×", normalizeKey("*"))
	assert.Equal(t, "÷", normalizeKey("/"))
	assert.Equal(t, "−", normalizeKey("-"))
	assert.Equal(t, "=", normalizeKey(domain.KeyEnter))
	assert.Equal(t, "7", normalizeKey("7"))
}
