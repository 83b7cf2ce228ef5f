package views

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"placetap/internal/engine/codec"
	"placetap/internal/engine/places"
	"placetap/internal/tui/styles"
)

// Field indices
const (
	fieldQuery = iota
	fieldTarget
	fieldOutput
	fieldSeed
	fieldKey
	fieldCount
)

type SearchModel struct {
	inputs  []textinput.Model
	focused int
	err     string
}

func NewSearchModel() SearchModel {
	inputs := make([]textinput.Model, fieldCount)

	inputs[fieldQuery] = newInput("restaurants in Madrid", "", 60)
	inputs[fieldTarget] = newInput("10", "", 10)
	inputs[fieldOutput] = newInput("./listings.json (.json, .csv or .xlsx)", "", 50)
	inputs[fieldSeed] = newInput("optional: existing file to extend", "", 50)
	inputs[fieldKey] = newInput("from PLACES_API_KEY", os.Getenv("PLACES_API_KEY"), 50)
	inputs[fieldKey].EchoMode = textinput.EchoPassword
	inputs[fieldKey].EchoCharacter = '*'

	inputs[fieldQuery].Focus()

	return SearchModel{
		inputs:  inputs,
		focused: fieldQuery,
	}
}

func newInput(placeholder, value string, width int) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = 200
	if width > 0 {
		ti.Width = width
	}
	if value != "" {
		ti.SetValue(value)
	}
	return ti
}

func (m SearchModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m SearchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return m, func() tea.Msg { return NavigateToHome{} }

		case "up", "shift+tab":
			m.err = ""
			return m, m.focusPrev()

		case "down", "tab":
			m.err = ""
			return m, m.focusNext()

		case "enter":
			if cmd := m.submit(); cmd != nil {
				return m, cmd
			}
		}
	}

	var cmd tea.Cmd
	m.inputs[m.focused], cmd = m.inputs[m.focused].Update(msg)
	return m, cmd
}

func (m *SearchModel) focusNext() tea.Cmd {
	m.inputs[m.focused].Blur()
	m.focused++
	if m.focused >= fieldCount {
		m.focused = fieldQuery
	}
	m.inputs[m.focused].Focus()
	return textinput.Blink
}

func (m *SearchModel) focusPrev() tea.Cmd {
	m.inputs[m.focused].Blur()
	m.focused--
	if m.focused < 0 {
		m.focused = fieldCount - 1
	}
	m.inputs[m.focused].Focus()
	return textinput.Blink
}

func (m *SearchModel) submit() tea.Cmd {
	query := strings.TrimSpace(m.inputs[fieldQuery].Value())
	if err := places.ValidateQuery(query); err != nil {
		m.err = "Query must be at least 2 characters"
		return nil
	}

	target := 10
	targetStr := strings.TrimSpace(m.inputs[fieldTarget].Value())
	if targetStr != "" {
		t, err := strconv.Atoi(targetStr)
		if err != nil || t < 1 {
			m.err = "Count must be a positive number"
			return nil
		}
		target = t
	}

	output := strings.TrimSpace(m.inputs[fieldOutput].Value())
	if output == "" {
		m.err = "Output file is required"
		return nil
	}
	if _, err := codec.DetectFormat(output); err != nil {
		m.err = "Output must end in .json, .csv or .xlsx"
		return nil
	}

	seed := strings.TrimSpace(m.inputs[fieldSeed].Value())
	if seed != "" {
		if _, err := codec.DetectFormat(seed); err != nil {
			m.err = "Seed file must end in .json, .csv or .xlsx"
			return nil
		}
		if _, err := os.Stat(seed); err != nil {
			m.err = fmt.Sprintf("Seed file not found: %s", seed)
			return nil
		}
	}

	key := strings.TrimSpace(m.inputs[fieldKey].Value())
	if err := places.ValidateAPIKey(key); err != nil {
		m.err = "API key looks invalid (set PLACES_API_KEY or paste one)"
		return nil
	}

	return func() tea.Msg {
		return StartFetchMsg{
			Query:  query,
			Target: target,
			Output: output,
			Seed:   seed,
			APIKey: key,
		}
	}
}

func (m SearchModel) View() string {
	var b strings.Builder

	b.WriteString(styles.Title.Render("New Fetch") + "\n\n")

	b.WriteString(m.renderField("Query:", fieldQuery))
	b.WriteString(m.renderField("Count:", fieldTarget))
	b.WriteString(m.renderField("Output:", fieldOutput))
	b.WriteString(m.renderField("Seed file:", fieldSeed))
	if m.focused == fieldSeed {
		hint := lipgloss.NewStyle().Foreground(styles.Muted).Italic(true).
			Render("  listings already in the seed file are skipped and new ones appended to it")
		b.WriteString(hint + "\n")
	}
	b.WriteString(m.renderField("API key:", fieldKey))

	if m.err != "" {
		b.WriteString("\n")
		b.WriteString(styles.ErrorText.Render("  " + m.err))
	}

	b.WriteString("\n\n")
	b.WriteString(styles.StatusBar.Render("enter start • tab next • esc back"))

	return styles.Border.Render(b.String())
}

func (m SearchModel) renderField(label string, idx int) string {
	l := styles.Label.Render(label)
	v := m.inputs[idx].View()
	return fmt.Sprintf("%s %s\n", l, v)
}

// Messages
type NavigateToHome struct{}

type StartFetchMsg struct {
	Query  string
	Target int
	Output string
	Seed   string
	APIKey string
}
