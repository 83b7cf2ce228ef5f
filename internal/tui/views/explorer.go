package views

import (
	"encoding/json"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"placetap/internal/engine/codec"
	"placetap/internal/engine/storage"
	"placetap/internal/model"
	"placetap/internal/tui/styles"
)

type focusArea int

const (
	focusTable focusArea = iota
	focusFilter
	focusCard
	focusJSON
)

// ExplorerModel displays a loaded dataset with table + detail panels.
type ExplorerModel struct {
	path      string
	listings  []model.BusinessRecord
	filtered  []model.BusinessRecord
	table     table.Model
	filter    textinput.Model
	focus     focusArea
	selected  int
	width     int
	height    int
	err       error
	total     int
	exportMsg string

	// Scroll state for detail panels
	cardScrollY int
	cardLines   []string // cached rendered card lines
	jsonScrollY int
	jsonScrollX int
	jsonLines   []string // cached raw JSON lines
	jsonRaw     string   // full JSON for clipboard copy
}

type datasetLoadedMsg struct {
	Listings []model.BusinessRecord
	Err      error
}

func NewExplorerModel(path string) ExplorerModel {
	filter := textinput.New()
	filter.Placeholder = "Type to filter..."
	filter.CharLimit = 50

	return ExplorerModel{
		path:     path,
		filter:   filter,
		selected: -1,
	}
}

func (m ExplorerModel) Init() tea.Cmd {
	return func() tea.Msg {
		listings, err := loadListings(m.path)
		return datasetLoadedMsg{Listings: listings, Err: err}
	}
}

func (m ExplorerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
	case tea.KeyMsg:
		key := msg.String()

		// Global keys
		if key == "ctrl+c" {
			return m, tea.Quit
		}

		switch m.focus {
		case focusTable:
			switch key {
			case "esc", "q":
				return m, func() tea.Msg { return NavigateToHome{} }
			case "/":
				m.focus = focusFilter
				m.filter.Focus()
				return m, textinput.Blink
			case "tab":
				m.focus = focusFilter
				m.filter.Focus()
				return m, textinput.Blink
			case "1":
				m.focus = focusCard
				m.table.SetStyles(m.unfocusedTableStyles())
				return m, nil
			case "2":
				m.focus = focusJSON
				m.table.SetStyles(m.unfocusedTableStyles())
				return m, nil
			case "e":
				m.exportCSV()
				return m, nil
			}

		case focusFilter:
			switch key {
			case "esc", "enter", "tab":
				m.focus = focusTable
				m.filter.Blur()
				return m, nil
			}

		case focusCard:
			ph := m.panelHeight()
			maxScroll := len(m.cardLines) - ph
			if maxScroll < 0 {
				maxScroll = 0
			}
			switch key {
			case "esc":
				m.focus = focusTable
				m.table.SetStyles(m.focusedTableStyles())
				return m, nil
			case "up", "k":
				if m.cardScrollY > 0 {
					m.cardScrollY--
				}
				return m, nil
			case "down", "j":
				if m.cardScrollY < maxScroll {
					m.cardScrollY++
				}
				return m, nil
			}

		case focusJSON:
			ph := m.panelHeight()
			maxScroll := len(m.jsonLines) - ph
			if maxScroll < 0 {
				maxScroll = 0
			}
			switch key {
			case "esc":
				m.focus = focusTable
				m.table.SetStyles(m.focusedTableStyles())
				return m, nil
			case "up", "k":
				if m.jsonScrollY > 0 {
					m.jsonScrollY--
				}
				return m, nil
			case "down", "j":
				if m.jsonScrollY < maxScroll {
					m.jsonScrollY++
				}
				return m, nil
			case "left", "h":
				if m.jsonScrollX > 0 {
					m.jsonScrollX -= 4
					if m.jsonScrollX < 0 {
						m.jsonScrollX = 0
					}
				}
				return m, nil
			case "right", "l":
				m.jsonScrollX += 4
				return m, nil
			case "c":
				m.copyToClipboard()
				return m, nil
			}
		}

	case datasetLoadedMsg:
		if msg.Err != nil {
			m.err = msg.Err
			return m, nil
		}
		m.listings = msg.Listings
		m.filtered = msg.Listings
		m.total = len(m.listings)
		m.buildTable(m.listings)
		m.updateLayout()
		if len(m.filtered) > 0 {
			m.selected = 0
			m.cacheDetailContent()
		}
		return m, nil
	}

	// Route input to focused area
	var cmd tea.Cmd
	switch m.focus {
	case focusTable:
		m.table, cmd = m.table.Update(msg)
		cursor := m.table.Cursor()
		if cursor != m.selected && cursor < len(m.filtered) {
			m.selected = cursor
			m.cardScrollY = 0
			m.jsonScrollY = 0
			m.jsonScrollX = 0
			m.cacheDetailContent()
		}
	case focusFilter:
		m.filter, cmd = m.filter.Update(msg)
		m.applyFilter()
	}

	return m, cmd
}

func (m *ExplorerModel) cacheDetailContent() {
	if m.selected < 0 || m.selected >= len(m.filtered) {
		m.cardLines = nil
		m.jsonLines = nil
		m.jsonRaw = ""
		return
	}

	// Cache card content as plain lines
	rec := m.filtered[m.selected]
	m.cardLines = m.buildCardLines(rec)

	// Cache JSON
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		m.jsonLines = []string{"JSON error"}
		m.jsonRaw = ""
		return
	}
	m.jsonRaw = string(data)
	m.jsonLines = strings.Split(m.jsonRaw, "\n")
}

func (m ExplorerModel) buildCardLines(rec model.BusinessRecord) []string {
	var lines []string

	lines = append(lines, rec.Name)

	if rec.Rating != "" && rec.Rating != "NA" {
		r := rec.Rating
		if rec.RatingCount > 0 {
			r += fmt.Sprintf(" (%d reviews)", rec.RatingCount)
		}
		lines = append(lines, r)
	}

	if rec.BusinessType != "" {
		lines = append(lines, rec.BusinessType)
	}

	lines = append(lines, "")

	addRow := func(label, value string) {
		if value != "" {
			lines = append(lines, fmt.Sprintf("%-10s %s", label, value))
		}
	}

	addRow("Address:", rec.Address)
	addRow("Phone:", rec.Phone)
	addRow("Website:", rec.Website)
	addRow("Maps:", rec.GMapsURL)
	addRow("Price:", rec.PriceTier)
	if rec.PhotoCount > 0 {
		addRow("Photos:", fmt.Sprintf("%d", rec.PhotoCount))
	}

	if len(rec.Amenities) > 0 {
		lines = append(lines, "")
		addRow("Amenities:", strings.Join(rec.Amenities, ", "))
	}
	if len(rec.DeliveryOptions) > 0 {
		addRow("Delivery:", strings.Join(rec.DeliveryOptions, ", "))
	}

	if rec.OpeningHours != "" {
		lines = append(lines, "")
		addRow("Hours:", rec.OpeningHours)
	}

	return lines
}

func (m *ExplorerModel) buildTable(listings []model.BusinessRecord) {
	nameW := 28
	typeW := 16
	ratingW := 6
	phoneW := 16
	addrW := 24
	if m.width > 120 {
		extra := m.width - 120
		nameW += extra * 3 / 10
		typeW += extra * 2 / 10
		addrW += extra * 3 / 10
		phoneW += extra * 2 / 10
	}

	columns := []table.Column{
		{Title: "Name", Width: nameW},
		{Title: "Type", Width: typeW},
		{Title: "Rating", Width: ratingW},
		{Title: "Phone", Width: phoneW},
		{Title: "Address", Width: addrW},
	}

	rows := make([]table.Row, len(listings))
	for i, r := range listings {
		rating := r.Rating
		if rating == "NA" {
			rating = ""
		}
		rows[i] = table.Row{
			truncate(r.Name, nameW),
			truncate(r.BusinessType, typeW),
			rating,
			r.Phone,
			truncate(r.Address, addrW),
		}
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	t.SetStyles(m.focusedTableStyles())
	m.table = t
}

func (m ExplorerModel) focusedTableStyles() table.Styles {
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(styles.Muted).
		BorderBottom(true).
		Bold(true).
		Foreground(styles.Secondary)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(styles.Primary).
		Bold(true)
	return s
}

func (m ExplorerModel) unfocusedTableStyles() table.Styles {
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(styles.Muted).
		BorderBottom(true).
		Bold(true).
		Foreground(styles.Muted)
	s.Selected = s.Selected.
		Foreground(styles.Text).
		Background(lipgloss.Color("#333333")).
		Bold(false)
	return s
}

func (m ExplorerModel) panelHeight() int {
	h := m.height/2 - 6
	if h < 6 {
		h = 6
	}
	return h
}

func (m *ExplorerModel) updateLayout() {
	if m.width <= 0 {
		return
	}
	tableH := m.height/2 - 4
	if tableH < 5 {
		tableH = 5
	}
	m.table.SetHeight(tableH)
	m.buildTable(m.filtered)
}

// normalize removes accents/diacritics and lowercases text for fuzzy matching.
func normalize(s string) string {
	t := transform.Chain(norm.NFD, transform.RemoveFunc(func(r rune) bool {
		return unicode.Is(unicode.Mn, r)
	}), norm.NFC)
	result, _, _ := transform.String(t, strings.ToLower(s))
	return result
}

func (m *ExplorerModel) applyFilter() {
	raw := strings.TrimSpace(m.filter.Value())
	if raw == "" {
		m.filtered = m.listings
		m.buildTable(m.filtered)
		if len(m.filtered) > 0 {
			m.selected = 0
			m.cacheDetailContent()
		}
		return
	}

	words := strings.Fields(normalize(raw))
	m.filtered = nil
	for _, r := range m.listings {
		haystack := normalize(strings.Join([]string{
			r.Name, r.BusinessType, r.Address,
			strings.Join(r.Amenities, " "),
			strings.Join(r.DeliveryOptions, " "),
		}, " "))
		match := true
		for _, w := range words {
			if !strings.Contains(haystack, w) {
				match = false
				break
			}
		}
		if match {
			m.filtered = append(m.filtered, r)
		}
	}
	m.buildTable(m.filtered)
	if len(m.filtered) > 0 {
		m.selected = 0
	} else {
		m.selected = -1
	}
	m.cacheDetailContent()
}

func (m ExplorerModel) View() string {
	if m.err != nil {
		return styles.ErrorText.Render(fmt.Sprintf("Error loading file: %v", m.err))
	}

	var b strings.Builder

	b.WriteString(styles.Title.Render(fmt.Sprintf("Explorer: %d listings", m.total)))
	if len(m.filtered) != m.total {
		b.WriteString(lipgloss.NewStyle().Foreground(styles.Muted).
			Render(fmt.Sprintf(" (showing %d)", len(m.filtered))))
	}
	b.WriteString("\n\n")

	// Filter
	filterStyle := lipgloss.NewStyle().Foreground(styles.Muted)
	if m.focus == focusFilter {
		filterStyle = lipgloss.NewStyle().Foreground(styles.Primary)
	}
	b.WriteString(filterStyle.Render("Filter: "))
	b.WriteString(m.filter.View())
	b.WriteString("\n")

	// Table
	b.WriteString(m.table.View())
	b.WriteString("\n\n")

	// Detail panels
	detailW := m.width - 2
	if detailW < 40 {
		detailW = 40
	}

	// Panel height for viewports
	panelH := m.height/2 - 6
	if panelH < 6 {
		panelH = 6
	}

	cardOuterW := detailW * 2 / 5
	jsonOuterW := detailW - cardOuterW - 1

	// Card panel
	cardBorderColor := styles.Muted
	if m.focus == focusCard {
		cardBorderColor = styles.Primary
	}
	cardInnerW := cardOuterW - 4
	if cardInnerW < 20 {
		cardInnerW = 20
	}
	cardContent := m.viewCardPanel(cardInnerW, panelH)
	cardBox := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(cardBorderColor).
		Padding(0, 1).
		Width(cardOuterW - 2).
		Height(panelH).
		Render(cardContent)
	cardLabel := lipgloss.NewStyle().Bold(true).Foreground(cardBorderColor).Render("[1] Details")
	cardBox = cardLabel + "\n" + cardBox

	// JSON panel
	jsonBorderColor := styles.Muted
	if m.focus == focusJSON {
		jsonBorderColor = styles.Primary
	}
	jsonInnerW := jsonOuterW - 4
	if jsonInnerW < 20 {
		jsonInnerW = 20
	}
	jsonContent := m.viewJSONPanel(jsonInnerW, panelH)
	jsonBox := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(jsonBorderColor).
		Padding(0, 1).
		Width(jsonOuterW - 2).
		Height(panelH).
		Render(jsonContent)
	jsonLabel := lipgloss.NewStyle().Bold(true).Foreground(jsonBorderColor).Render("[2] JSON")
	jsonBox = jsonLabel + "\n" + jsonBox

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cardBox, " ", jsonBox))
	b.WriteString("\n\n")

	// Export message
	if m.exportMsg != "" {
		b.WriteString(lipgloss.NewStyle().Foreground(styles.Success).Render(m.exportMsg))
		b.WriteString("\n")
	}

	// Status bar changes by focus
	var statusText string
	switch m.focus {
	case focusTable:
		statusText = "↑↓ navigate • 1 details • 2 json • / filter • e export csv • esc back"
	case focusFilter:
		statusText = "type to filter • esc back"
	case focusCard:
		statusText = "↑↓ scroll • esc back to table"
	case focusJSON:
		statusText = "↑↓ scroll • ←→ pan • c copy json • esc back to table"
	}
	b.WriteString(styles.StatusBar.Render(statusText))

	return b.String()
}

func (m ExplorerModel) viewCardPanel(w, h int) string {
	if m.selected < 0 || m.selected >= len(m.filtered) || len(m.cardLines) == 0 {
		return lipgloss.NewStyle().Foreground(styles.Muted).Italic(true).
			Render("Select a listing\nto view details")
	}

	lines := m.cardLines

	// Clamp scroll
	scrollY := m.cardScrollY
	if scrollY > len(lines)-h {
		scrollY = len(lines) - h
	}
	if scrollY < 0 {
		scrollY = 0
	}

	// Window
	end := scrollY + h
	if end > len(lines) {
		end = len(lines)
	}
	visible := lines[scrollY:end]

	var sb strings.Builder
	label := lipgloss.NewStyle().Foreground(styles.Muted)
	valStyle := lipgloss.NewStyle().Foreground(styles.Text)

	for i, line := range visible {
		// First line (name) is bold
		if scrollY+i == 0 {
			sb.WriteString(lipgloss.NewStyle().Bold(true).Foreground(styles.Text).
				Render(truncate(line, w)))
		} else if scrollY+i == 1 && strings.Contains(line, "review") {
			// Rating line
			sb.WriteString(lipgloss.NewStyle().Foreground(styles.Warning).
				Render(truncate(line, w)))
		} else if strings.HasPrefix(line, "Website:") || strings.HasPrefix(line, "Maps:") {
			parts := strings.SplitN(line, " ", 2)
			lbl := parts[0]
			val := ""
			if len(parts) > 1 {
				val = strings.TrimSpace(parts[1])
			}
			sb.WriteString(label.Render(fmt.Sprintf("%-10s ", lbl)))
			sb.WriteString(lipgloss.NewStyle().Foreground(styles.Primary).
				Render(truncate(val, w-11)))
		} else {
			sb.WriteString(valStyle.Render(truncate(line, w)))
		}
		if i < len(visible)-1 {
			sb.WriteString("\n")
		}
	}

	// Scroll indicators
	if scrollY > 0 {
		sb.WriteString("\n")
		sb.WriteString(label.Render("  ▲ more above"))
	}
	if end < len(lines) {
		sb.WriteString("\n")
		sb.WriteString(label.Render("  ▼ more below"))
	}

	return sb.String()
}

func (m ExplorerModel) viewJSONPanel(w, h int) string {
	if m.selected < 0 || m.selected >= len(m.filtered) || len(m.jsonLines) == 0 {
		return lipgloss.NewStyle().Foreground(styles.Muted).Italic(true).
			Render("Select a listing\nto view JSON")
	}

	lines := m.jsonLines
	jsonStyle := lipgloss.NewStyle().Foreground(styles.Muted)
	keyStyle := lipgloss.NewStyle().Foreground(styles.Secondary)
	strStyle := lipgloss.NewStyle().Foreground(styles.Success)

	// Clamp scroll
	scrollY := m.jsonScrollY
	if scrollY > len(lines)-h {
		scrollY = len(lines) - h
	}
	if scrollY < 0 {
		scrollY = 0
	}

	end := scrollY + h
	if end > len(lines) {
		end = len(lines)
	}
	visible := lines[scrollY:end]

	var sb strings.Builder
	for i, line := range visible {
		// Apply horizontal scroll
		display := line
		if m.jsonScrollX > 0 {
			if m.jsonScrollX < len(display) {
				display = display[m.jsonScrollX:]
			} else {
				display = ""
			}
		}
		if len(display) > w {
			display = display[:w-1] + "…"
		}

		// Simple JSON syntax coloring
		trimmed := strings.TrimSpace(display)
		if strings.HasPrefix(trimmed, "\"") && strings.Contains(trimmed, "\":") {
			// Key line: color the key part
			colonIdx := strings.Index(display, "\":")
			if colonIdx > 0 {
				keyPart := display[:colonIdx+1]
				valPart := display[colonIdx+1:]
				sb.WriteString(keyStyle.Render(keyPart))
				sb.WriteString(strStyle.Render(valPart))
			} else {
				sb.WriteString(jsonStyle.Render(display))
			}
		} else {
			sb.WriteString(jsonStyle.Render(display))
		}

		if i < len(visible)-1 {
			sb.WriteString("\n")
		}
	}

	// Scroll indicators
	if scrollY > 0 || end < len(lines) {
		sb.WriteString("\n")
		indicator := fmt.Sprintf("  [%d/%d]", scrollY+1, len(lines))
		if m.jsonScrollX > 0 {
			indicator += fmt.Sprintf(" ←%d", m.jsonScrollX)
		}
		sb.WriteString(lipgloss.NewStyle().Foreground(styles.Muted).Render(indicator))
	}

	return sb.String()
}

func (m *ExplorerModel) copyToClipboard() {
	if m.jsonRaw == "" {
		return
	}
	cmd := exec.Command("pbcopy")
	cmd.Stdin = strings.NewReader(m.jsonRaw)
	if err := cmd.Run(); err != nil {
		m.exportMsg = fmt.Sprintf("Copy failed: %v", err)
		return
	}
	m.exportMsg = "JSON copied to clipboard"
}

func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}

func (m *ExplorerModel) exportCSV() {
	dir := filepath.Dir(m.path)
	base := strings.TrimSuffix(filepath.Base(m.path), filepath.Ext(m.path))
	csvPath := filepath.Join(dir, base+".csv")

	data := m.filtered
	if len(data) == 0 {
		data = m.listings
	}

	if err := codec.Save(data, csvPath); err != nil {
		m.exportMsg = fmt.Sprintf("Export error: %v", err)
		return
	}

	m.exportMsg = fmt.Sprintf("Exported %d rows to %s", len(data), csvPath)
}

func loadListings(path string) ([]model.BusinessRecord, error) {
	if strings.EqualFold(filepath.Ext(path), ".db") {
		store, err := storage.NewStore(path)
		if err != nil {
			return nil, err
		}
		defer store.Close()
		return store.LoadAll()
	}
	records, _, err := codec.Load(path)
	return records, err
}
