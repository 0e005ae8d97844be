package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"wiresift/internal/analysis"
)

// TickMsg triggers a refresh from the shared Stats.
type TickMsg time.Time

// DoneMsg tells the dashboard the capture ended. Err is nil on a clean end.
type DoneMsg struct{ Err error }

type AnalysisModel struct {
	stats    *analysis.Stats
	detector *analysis.AnomalyDetector

	bps       float64
	pps       float64
	counters  analysis.Counters
	protocols []analysis.ProtocolStat
	unique    int64
	table     table.Model
	source    string

	domainLog []analysis.DomainEntry
	alerts    []analysis.Alert

	done    bool
	doneErr error
}

// NewAnalysisModel builds the live dashboard. source names the interface
// or file being read and is shown in the header.
func NewAnalysisModel(stats *analysis.Stats, detector *analysis.AnomalyDetector, source string) AnalysisModel {
	columns := []table.Column{
		{Title: "Time", Width: 10},
		{Title: "Source", Width: 18},
		{Title: "Type", Width: 8},
		{Title: "Name", Width: 40},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(false),
		table.WithHeight(10),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	return AnalysisModel{
		stats:    stats,
		detector: detector,
		source:   source,
		table:    t,
	}
}

func (m AnalysisModel) Init() tea.Cmd {
	return tickCmd()
}

func tickCmd() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}
