package cli

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/piercedata/acsdash/pkg/census"
	"github.com/piercedata/acsdash/pkg/pipeline"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// newTUICmd creates the tui command, an interactive indicator picker that
// runs pulls in place.
func newTUICmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Interactive dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, *cfgPath)
			if err != nil {
				return err
			}
			defer a.close()

			model := NewDashboardModel(ctx, a.runner)
			final, err := tea.NewProgram(model, tea.WithContext(ctx)).Run()
			if err != nil {
				return err
			}

			// Render the last result after the program exits so it stays in
			// the scrollback.
			if m, ok := final.(DashboardModel); ok && m.Result != nil {
				fmt.Println(renderTable(m.Result.Table))
				printRunStats(m.Result.Stats.Requests, m.Result.Stats.CacheHits, len(m.Result.Table.Rows))
			}
			return nil
		},
	}
}

// =============================================================================
// DashboardModel - Indicator selection and pull execution
// =============================================================================

// axisCount is the number of toggle rows below the indicator list: age, sex,
// race, and the geography level cycler.
const axisCount = 4

// resultMsg delivers a finished pull back into the update loop.
type resultMsg struct {
	result *pipeline.Result
	err    error
}

// DashboardModel is the bubbletea model for the interactive dashboard.
type DashboardModel struct {
	ctx    context.Context
	runner *pipeline.Runner

	Indicators []census.Indicator
	Selected   map[int]bool
	Cursor     int

	Level census.Level
	ZCTAs string
	Age   bool
	Sex   bool
	Race  bool

	Fetching bool
	Err      error
	Result   *pipeline.Result
}

// NewDashboardModel creates a dashboard with the default selection checked.
func NewDashboardModel(ctx context.Context, runner *pipeline.Runner) DashboardModel {
	catalog := census.Catalog()
	selected := make(map[int]bool)
	for i, ind := range catalog {
		for _, name := range census.DefaultSelection {
			if ind.Name == name {
				selected[i] = true
			}
		}
	}
	return DashboardModel{
		ctx:        ctx,
		runner:     runner,
		Indicators: catalog,
		Selected:   selected,
		Level:      census.LevelCounty,
	}
}

func (m DashboardModel) Init() tea.Cmd {
	return nil
}

func (m DashboardModel) pull() tea.Cmd {
	var names []string
	for i, ind := range m.Indicators {
		if m.Selected[i] {
			names = append(names, ind.Name)
		}
	}
	opts := pipeline.Options{
		Level:      m.Level,
		ZCTAs:      m.ZCTAs,
		Indicators: names,
		Age:        m.Age,
		Sex:        m.Sex,
		Race:       m.Race,
	}
	return func() tea.Msg {
		res, err := m.runner.Execute(m.ctx, opts)
		return resultMsg{result: res, err: err}
	}
}

func (m DashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case resultMsg:
		m.Fetching = false
		m.Err = msg.err
		m.Result = msg.result
		if msg.err == nil {
			return m, tea.Quit
		}
		return m, nil

	case tea.KeyMsg:
		if m.Fetching {
			if msg.String() == "ctrl+c" {
				return m, tea.Quit
			}
			return m, nil
		}
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
			}
		case "down", "j":
			if m.Cursor < m.maxCursor() {
				m.Cursor++
			}
		case " ", "x":
			m.toggle()
		case "backspace":
			if m.Cursor == m.zctaRow() && len(m.ZCTAs) > 0 {
				m.ZCTAs = m.ZCTAs[:len(m.ZCTAs)-1]
			}
		case "enter":
			if len(m.selectedNames()) == 0 {
				return m, nil
			}
			m.Fetching = true
			m.Err = nil
			return m, m.pull()
		default:
			if m.Cursor == m.zctaRow() && msg.Type == tea.KeyRunes {
				for _, r := range msg.Runes {
					if (r >= '0' && r <= '9') || r == ',' {
						m.ZCTAs += string(r)
					}
				}
			}
		}
	}
	return m, nil
}

// toggle flips whatever the cursor points at: an indicator checkbox, an axis
// flag, or the geography level.
func (m *DashboardModel) toggle() {
	switch {
	case m.Cursor < len(m.Indicators):
		m.Selected[m.Cursor] = !m.Selected[m.Cursor]
	case m.Cursor == len(m.Indicators):
		m.Age = !m.Age
	case m.Cursor == len(m.Indicators)+1:
		m.Sex = !m.Sex
	case m.Cursor == len(m.Indicators)+2:
		m.Race = !m.Race
	case m.Cursor == len(m.Indicators)+3:
		switch m.Level {
		case census.LevelCounty:
			m.Level = census.LevelTract
		case census.LevelTract:
			m.Level = census.LevelZCTA
		default:
			m.Level = census.LevelCounty
		}
	}
}

// zctaRow returns the index of the ZCTA entry row, or -1 when the current
// level does not take a ZCTA list.
func (m DashboardModel) zctaRow() int {
	if m.Level != census.LevelZCTA {
		return -1
	}
	return len(m.Indicators) + axisCount
}

func (m DashboardModel) maxCursor() int {
	max := len(m.Indicators) + axisCount - 1
	if m.Level == census.LevelZCTA {
		max++
	}
	return max
}

func (m DashboardModel) selectedNames() []string {
	var names []string
	for i, ind := range m.Indicators {
		if m.Selected[i] {
			names = append(names, ind.Name)
		}
	}
	return names
}

func (m DashboardModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Pierce County ACS Dashboard"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  space toggle  ⏎ pull  q quit"))
	b.WriteString("\n\n")

	if m.Fetching {
		b.WriteString(StyleHighlight.Render("Fetching ACS data..."))
		b.WriteString("\n")
		return b.String()
	}

	for i, ind := range m.Indicators {
		check := "[ ]"
		if m.Selected[i] {
			check = "[x]"
		}
		line := fmt.Sprintf("%s %s", check, ind.Name)
		b.WriteString(m.renderLine(i, line))
	}

	b.WriteString("\n")
	b.WriteString(m.renderLine(len(m.Indicators), flagLine("Age breakdown", m.Age)))
	b.WriteString(m.renderLine(len(m.Indicators)+1, flagLine("Sex breakdown", m.Sex)))
	b.WriteString(m.renderLine(len(m.Indicators)+2, flagLine("Race breakdown", m.Race)))
	b.WriteString(m.renderLine(len(m.Indicators)+3, fmt.Sprintf("(·) Level: %s", m.Level)))
	if m.Level == census.LevelZCTA {
		entry := m.ZCTAs
		if entry == "" {
			entry = "type comma-separated codes"
		}
		b.WriteString(m.renderLine(m.zctaRow(), fmt.Sprintf("    ZCTAs: %s", entry)))
	}

	if m.Err != nil {
		b.WriteString("\n")
		b.WriteString(StyleWarning.Render(iconWarning + " " + m.Err.Error()))
		b.WriteString("\n")
	}

	return b.String()
}

func (m DashboardModel) renderLine(idx int, line string) string {
	cursor := "  "
	if idx == m.Cursor {
		cursor = "▸ "
		return cursor + listSelectedStyle.Render(line) + "\n"
	}
	return cursor + listNormalStyle.Render(line) + "\n"
}

func flagLine(name string, on bool) string {
	check := "( )"
	if on {
		check = "(•)"
	}
	return check + " " + name
}
