package tui

import (
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
)

const maxQueryRows = 10

func (m AnalysisModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case DoneMsg:
		m.done = true
		m.doneErr = msg.Err
		m.refresh()
		return m, nil

	case TickMsg:
		m.refresh()
		if m.done {
			return m, nil
		}
		return m, tickCmd()
	}

	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m *AnalysisModel) refresh() {
	m.bps, m.pps = m.stats.GetRates()
	m.counters = m.stats.GetCounters()
	m.protocols = m.stats.GetProtocolStats()
	m.unique = m.stats.GetUniqueDomains()
	m.domainLog = m.stats.GetDomainLog()
	if m.detector != nil {
		m.alerts = m.detector.GetRecentAlerts(5)
	}

	// newest first
	n := len(m.domainLog)
	if n > maxQueryRows {
		n = maxQueryRows
	}
	rows := make([]table.Row, 0, n)
	for i := len(m.domainLog) - 1; i >= len(m.domainLog)-n; i-- {
		d := m.domainLog[i]
		rows = append(rows, table.Row{d.Timestamp.Format("15:04:05"), d.Source, d.Type, d.Hostname})
	}
	m.table.SetRows(rows)
}
