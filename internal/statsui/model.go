// Package statsui provides the Bubble Tea results browser.
package statsui

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mikexyl/mesa/internal/model"
	"github.com/mikexyl/mesa/internal/stats"
	"github.com/mikexyl/mesa/internal/store"
)

const (
	tabOverview = iota
	tabResults
	tabCharts
)

const plotHeight = 10

var (
	activeNavStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	inactiveNavStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B0B0B0")).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	cardStyle   = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	cardTitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cardValueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
)

// Model implements the Bubble Tea results browser.
type Model struct {
	store   *store.Store
	display map[model.AlgorithmID]model.DisplayAttrs

	filter  store.Filter
	results []model.ExperimentResult
	errMsg  string

	tabs         []string
	activeTab    int
	viewports    []viewport.Model
	resultsTable table.Model

	width  int
	height int

	filterMode  bool
	filterInput textinput.Model
	filterError string
}

// NewModel constructs a results browser.
func NewModel(st *store.Store, display map[model.AlgorithmID]model.DisplayAttrs, filter store.Filter) *Model {
	m := &Model{
		store:   st,
		display: display,
		filter:  filter,
		tabs:    []string{"Overview", "Results", "Charts"},
	}
	m.filterInput = textinput.New()
	m.filterInput.Prompt = "Algorithm: "
	m.filterInput.Cursor.SetMode(cursor.CursorBlink)
	m.viewports = make([]viewport.Model, len(m.tabs))
	for i := range m.viewports {
		m.viewports[i] = viewport.New(0, 0)
	}
	m.resultsTable = table.New(table.WithColumns(resultColumns()), table.WithHeight(1))
	m.resultsTable.SetStyles(resultsTableStyles())
	m.refresh()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		m.renderTabContents()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.String() == "q" {
			return m, tea.Quit
		}
		if m.filterMode {
			return m.updateFilter(msg)
		}
		switch msg.String() {
		case "left", "h":
			m.moveTab(-1)
			return m, tea.ClearScreen
		case "right", "l":
			m.moveTab(1)
			return m, tea.ClearScreen
		case "/":
			m.filterMode = true
			m.filterError = ""
			m.filterInput.SetValue(m.filter.Algorithm)
			return m, m.filterInput.Focus()
		case "r":
			m.refresh()
			return m, nil
		case "g", "home":
			if m.activeTab == tabResults {
				m.resultsTable.GotoTop()
			} else {
				m.viewports[m.activeTab].GotoTop()
			}
			return m, nil
		case "G", "end":
			if m.activeTab == tabResults {
				m.resultsTable.GotoBottom()
			} else {
				m.viewports[m.activeTab].GotoBottom()
			}
			return m, nil
		default:
			if m.activeTab == tabResults {
				var cmd tea.Cmd
				m.resultsTable, cmd = m.resultsTable.Update(msg)
				return m, cmd
			}
			vp := m.viewports[m.activeTab]
			var cmd tea.Cmd
			vp, cmd = vp.Update(msg)
			m.viewports[m.activeTab] = vp
			return m, cmd
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(m.renderHeader(), m.width, headerHeight)
	body := fitLines(m.renderBody(bodyHeight), m.width, bodyHeight)
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

func (m *Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEscape:
		m.filterMode = false
		m.filterInput.Blur()
		return m, nil
	case tea.KeyEnter:
		value := strings.ToLower(strings.TrimSpace(m.filterInput.Value()))
		if value != "" && model.ParseAlgorithmID(value) == model.AlgorithmUnknown {
			m.filterError = fmt.Sprintf("unknown algorithm %q", value)
			return m, nil
		}
		m.filter.Algorithm = value
		m.filterMode = false
		m.filterInput.Blur()
		m.refresh()
		return m, tea.ClearScreen
	default:
		var cmd tea.Cmd
		m.filterInput, cmd = m.filterInput.Update(msg)
		return m, cmd
	}
}

func (m *Model) refresh() {
	results, err := m.store.ListResults(context.Background(), m.filter)
	if err != nil {
		m.errMsg = err.Error()
		for i := range m.viewports {
			m.viewports[i].SetContent("Failed to load results.")
		}
		return
	}
	m.errMsg = ""
	m.results = results
	m.resultsTable.SetRows(resultRows(results))
	m.updateLayout()
	m.renderTabContents()
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	tabsHeight := lipgloss.Height(activeNavStyle.Render("X"))
	if tabsHeight < 1 {
		tabsHeight = 1
	}
	headerHeight = tabsHeight + 1
	footerHeight = 1
	if !m.filterMode && m.errMsg != "" {
		footerHeight++
	}
	bodyHeight = m.height - headerHeight - footerHeight
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	return headerHeight, bodyHeight, footerHeight
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, bodyHeight, _ := m.layoutHeights()
	for i := range m.viewports {
		m.viewports[i].Width = m.width
		m.viewports[i].Height = bodyHeight
	}
	m.resultsTable.SetWidth(m.width)
	m.resultsTable.SetHeight(maxInt(1, bodyHeight-1))
	promptWidth := lipgloss.Width(m.filterInput.Prompt)
	m.filterInput.Width = maxInt(10, m.width-promptWidth-2)
}

func (m *Model) moveTab(delta int) {
	count := len(m.tabs)
	if count == 0 {
		return
	}
	next := m.activeTab + delta
	if next < 0 {
		next = count - 1
	}
	if next >= count {
		next = 0
	}
	m.activeTab = next
	if m.activeTab == tabResults {
		m.resultsTable.Focus()
	} else {
		m.resultsTable.Blur()
	}
}

func (m *Model) renderHeader() string {
	parts := make([]string, 0, len(m.tabs))
	for i, tab := range m.tabs {
		if i == m.activeTab {
			parts = append(parts, activeNavStyle.Render(tab))
		} else {
			parts = append(parts, inactiveNavStyle.Render(tab))
		}
	}
	tabs := padLines(lipgloss.JoinHorizontal(lipgloss.Top, parts...), m.width)
	algorithm := m.filter.Algorithm
	if algorithm == "" {
		algorithm = "any"
	}
	summary := truncateLine(fmt.Sprintf("Filter: algorithm=%s  experiments=%d", algorithm, len(m.results)), m.width)
	return tabs + "\n" + padLines(headerStyle.Render(summary), m.width)
}

func (m *Model) renderFooter() string {
	if m.filterMode {
		return headerStyle.Render("enter: apply  esc: cancel")
	}
	help := headerStyle.Render("Nav: left/right  Scroll: up/down/pgup/pgdn  Filter: /  Reload: r  Quit: q")
	if m.errMsg != "" {
		return help + "\n" + errorStyle.Render(m.errMsg)
	}
	return help
}

func (m *Model) renderBody(height int) string {
	if m.filterMode {
		lines := []string{"Filter (enter to apply, esc to cancel)", m.filterInput.View()}
		if m.filterError != "" {
			lines = append(lines, errorStyle.Render(m.filterError))
		}
		return fitLines(strings.Join(lines, "\n"), m.width, height)
	}
	if m.activeTab == tabResults {
		return fitLines(m.resultsTable.View(), m.width, height)
	}
	return m.viewports[m.activeTab].View()
}

func (m *Model) renderTabContents() {
	if len(m.viewports) == 0 || m.errMsg != "" {
		return
	}
	width := m.width
	if width <= 0 {
		width = 80
	}
	m.viewports[tabOverview].SetContent(renderOverview(m.results, width))
	m.viewports[tabCharts].SetContent(renderCharts(m.results, m.display, width))
}

func renderOverview(results []model.ExperimentResult, width int) string {
	if len(results) == 0 {
		return "No results found. Run: mesa batch"
	}
	summaries := stats.SummarizeByAlgorithm(results)
	cards := make([]string, 0, len(summaries)+1)
	cards = append(cards, metricCard("Experiments", strconv.Itoa(len(results))))
	for _, s := range summaries {
		value := fmt.Sprintf("%d runs\npos %.1f%%", s.Experiments, s.MeanPositionRatio*100)
		cards = append(cards, metricCard(s.Algorithm.String(), value))
	}
	var header string
	if width < 80 {
		header = strings.Join(cards, "\n")
	} else {
		header = lipgloss.JoinHorizontal(lipgloss.Top, cards...)
	}
	var buf bytes.Buffer
	if err := stats.RenderSummary(&buf, results); err != nil {
		return fmt.Sprintf("Failed to render summary: %v", err)
	}
	return strings.TrimRight(header+"\n\n"+buf.String(), "\n")
}

func renderCharts(results []model.ExperimentResult, display map[model.AlgorithmID]model.DisplayAttrs, width int) string {
	if len(results) == 0 {
		return "No results found. Run: mesa batch"
	}
	var buf bytes.Buffer
	if err := stats.RenderConvergencePlots(&buf, results, display, width, plotHeight, true); err != nil {
		return fmt.Sprintf("Failed to render charts: %v", err)
	}
	return strings.TrimRight(buf.String(), "\n")
}

func metricCard(label, value string) string {
	content := fmt.Sprintf("%s\n%s", cardTitleStyle.Render(label), cardValueStyle.Render(value))
	return cardStyle.Render(content)
}

func resultColumns() []table.Column {
	return []table.Column{
		{Title: "Experiment", Width: 34},
		{Title: "Algorithm", Width: 13},
		{Title: "Robots", Width: 6},
		{Title: "Total Comm", Width: 10},
		{Title: "Pos Conv", Width: 10},
		{Title: "Pos Ratio", Width: 9},
		{Title: "Pos Iter", Width: 8},
		{Title: "Pos Time", Width: 8},
	}
}

func resultRows(results []model.ExperimentResult) []table.Row {
	rows := make([]table.Row, 0, len(results))
	for _, res := range results {
		iteration := "-"
		if res.Position.Iteration != nil {
			iteration = strconv.FormatUint(*res.Position.Iteration, 10)
		}
		elapsed := "-"
		if res.Position.ElapsedSeconds != nil {
			elapsed = fmt.Sprintf("%.1fs", *res.Position.ElapsedSeconds)
		}
		rows = append(rows, table.Row{
			res.Experiment,
			res.Algorithm.String(),
			strconv.Itoa(res.RobotCount),
			strconv.FormatUint(res.TotalCommunications, 10),
			strconv.FormatUint(res.Position.CrossingCounter, 10),
			fmt.Sprintf("%.1f%%", res.Position.RatioOfFinal*100),
			iteration,
			elapsed,
		})
	}
	return rows
}

func resultsTableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	return styles
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func padLines(s string, width int) string {
	if width <= 0 || s == "" {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	return strings.Join(lines, "\n")
}

func padLine(line string, width int) string {
	lineWidth := lipgloss.Width(line)
	if lineWidth >= width {
		return line
	}
	return line + strings.Repeat(" ", width-lineWidth)
}

func fitLines(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}

func truncateLine(s string, width int) string {
	if width <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= 3 {
		return string(runes[:width])
	}
	return string(runes[:width-3]) + "..."
}
