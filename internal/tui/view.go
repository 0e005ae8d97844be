package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFF7DB")).
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1).
			Margin(0, 1)

	alertStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F5F")).
			Bold(true)
)

func (m AnalysisModel) View() string {
	headerText := fmt.Sprintf("wiresift - Analyzing: %s", m.source)
	if m.done {
		headerText += " [capture ended]"
	}
	title := titleStyle.Render(headerText)

	c := m.counters
	rates := fmt.Sprintf("Bandwidth: %s\nPacket Rate: %.2f PPS\nFrames: %d\nUnique names: ~%d",
		formatBps(m.bps), m.pps, c.Total, m.unique)
	ratesBox := infoStyle.Render(rates)

	counts := fmt.Sprintf("Known: %d (%.1f%%)\nAnalyzed: %d\nNot decoded: %d\nUnknown: %d\nParse failed: %d\nErrored: %d\nEmpty: %d",
		c.Known, c.PercentKnown(), c.Analyzed, c.NotDecoded, c.Unknown, c.ParseFailed, c.Errored, c.Empty)
	countsBox := infoStyle.Render(counts)

	var protoStrs []string
	limit := 5
	if len(m.protocols) < limit {
		limit = len(m.protocols)
	}
	for i := 0; i < limit; i++ {
		p := m.protocols[i]
		protoStrs = append(protoStrs, fmt.Sprintf("%s: %d", p.Protocol, p.Count))
	}
	if len(protoStrs) == 0 {
		protoStrs = append(protoStrs, "Waiting for data...")
	}
	protoBox := infoStyle.Render("Protocols:\n" + strings.Join(protoStrs, "\n"))

	queriesBox := infoStyle.Render("Recent Queries\n" + m.table.View())

	var alertLines []string
	for _, a := range m.alerts {
		alertLines = append(alertLines, alertStyle.Render(fmt.Sprintf("%s [%s] %s", a.Timestamp.Format("15:04:05"), a.Type, a.Message)))
	}
	if len(alertLines) == 0 {
		alertLines = append(alertLines, "None")
	}
	alertsBox := infoStyle.Render("Alerts:\n" + strings.Join(alertLines, "\n"))

	row1 := lipgloss.JoinHorizontal(lipgloss.Top, ratesBox, countsBox, protoBox)
	body := lipgloss.JoinVertical(lipgloss.Left, title, row1, queriesBox, alertsBox)

	footer := "\nPress q to quit."
	if m.doneErr != nil {
		footer = fmt.Sprintf("\nCapture error: %v\nPress q to quit.", m.doneErr)
	}
	return body + footer
}

func formatBps(bps float64) string {
	if bps >= 1e6 {
		return fmt.Sprintf("%.2f Mbps", bps/1e6)
	}
	if bps >= 1e3 {
		return fmt.Sprintf("%.2f Kbps", bps/1e3)
	}
	return fmt.Sprintf("%.2f bps", bps)
}
