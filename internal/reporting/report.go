package reporting

import (
	"fmt"
	"html"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"wiresift/internal/analysis"
)

// WriteSummary prints the end-of-run statistics as plain text.
func WriteSummary(w io.Writer, stats *analysis.Stats, detector *analysis.AnomalyDetector) error {
	var b strings.Builder

	b.WriteString("pcap processing complete.\n")
	b.WriteString(stats.GetCounters().String())
	b.WriteString("\n")
	fmt.Fprintf(&b, "Data: %s\n", formatBytes(stats.GetTotalDataTransferred()))
	if first, last := stats.GetCaptureSpan(); !first.IsZero() {
		fmt.Fprintf(&b, "Span: %s - %s (%s)\n",
			first.Format(time.RFC3339), last.Format(time.RFC3339), last.Sub(first).Round(time.Millisecond))
	}

	if protos := stats.GetProtocolStats(); len(protos) > 0 {
		b.WriteString("\nProtocols:\n")
		for _, p := range protos {
			fmt.Fprintf(&b, "  %-14s %d\n", p.Protocol, p.Count)
		}
	}

	fmt.Fprintf(&b, "\nUnique query names: ~%d\n", stats.GetUniqueDomains())
	if top := stats.GetTopSources(5); len(top) > 0 {
		b.WriteString("Top querying sources:\n")
		for _, s := range top {
			fmt.Fprintf(&b, "  %-40s %d\n", s.IP, s.Queries)
		}
	}

	if detector != nil {
		alerts := detector.GetAllAlerts()
		fmt.Fprintf(&b, "\nAlerts: %d\n", detector.TotalAlerts())
		for _, a := range alerts {
			fmt.Fprintf(&b, "  %s [%s] %s: %s\n", a.Timestamp.Format("15:04:05"), a.Type, a.Source, a.Message)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// GenerateSessionReport writes a report of the session's activity into dir
// and returns the file name. Currently supports "html" format.
func GenerateSessionReport(stats *analysis.Stats, detector *analysis.AnomalyDetector, format, dir string) (string, error) {
	if format != "html" {
		return "", fmt.Errorf("unsupported format: %s", format)
	}

	timestamp := time.Now().Format("20060102_150405")
	filename := filepath.Join(dir, fmt.Sprintf("report_%s.html", timestamp))

	file, err := os.Create(filename)
	if err != nil {
		return "", err
	}
	defer file.Close()

	counters := stats.GetCounters()
	domains := stats.GetDomainLog()
	protocols := stats.GetProtocolStats()
	topSources := stats.GetTopSources(10)
	var alerts []analysis.Alert
	if detector != nil {
		alerts = detector.GetAllAlerts()
	}

	var b strings.Builder
	fmt.Fprintf(&b, `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>wiresift Session Report - %s</title>
    <style>
        body { font-family: sans-serif; margin: 20px; color: #333; }
        h1, h2 { color: #2c3e50; }
        table { width: 100%%; border-collapse: collapse; margin-bottom: 20px; }
        th, td { border: 1px solid #ddd; padding: 8px; text-align: left; }
        th { background-color: #f2f2f2; }
        tr:nth-child(even) { background-color: #f9f9f9; }
        .summary { background: #eef; padding: 15px; border-radius: 5px; margin-bottom: 20px; }
        .alert { color: #d9534f; font-weight: bold; }
    </style>
</head>
<body>
    <h1>wiresift Session Report</h1>
    <div class="summary">
        <p><strong>Date:</strong> %s</p>
        <p><strong>Total Data:</strong> %s</p>
        <p><strong>Frames:</strong> %d (known %d, analyzed %d, not decoded %d, unknown %d, parse failed %d, errored %d, empty %d)</p>
        <p><strong>Unique query names:</strong> ~%d</p>
    </div>
`, timestamp, time.Now().Format(time.RFC1123), formatBytes(stats.GetTotalDataTransferred()),
		counters.Total, counters.Known, counters.Analyzed, counters.NotDecoded, counters.Unknown,
		counters.ParseFailed, counters.Errored, counters.Empty, stats.GetUniqueDomains())

	b.WriteString(tableOpen("Protocols", "Classification", "Payloads"))
	if len(protocols) == 0 {
		b.WriteString(emptyRow(2, "No payloads classified."))
	}
	for _, p := range protocols {
		fmt.Fprintf(&b, "            <tr><td>%s</td><td>%d</td></tr>\n", html.EscapeString(p.Protocol), p.Count)
	}
	b.WriteString(tableClose)

	b.WriteString(tableOpen("Top Querying Sources", "IP Address", "Queries"))
	if len(topSources) == 0 {
		b.WriteString(emptyRow(2, "No queries decoded."))
	}
	for _, s := range topSources {
		fmt.Fprintf(&b, "            <tr><td>%s</td><td>%d</td></tr>\n", html.EscapeString(s.IP), s.Queries)
	}
	b.WriteString(tableClose)

	b.WriteString(tableOpen("Alerts", "Time", "Type", "Source", "Message"))
	if len(alerts) == 0 {
		b.WriteString(emptyRow(4, "No alerts triggered during this session."))
	}
	for _, a := range alerts {
		fmt.Fprintf(&b, "            <tr><td>%s</td><td class=\"alert\">%s</td><td>%s</td><td>%s</td></tr>\n",
			a.Timestamp.Format("15:04:05"), a.Type, html.EscapeString(a.Source), html.EscapeString(a.Message))
	}
	b.WriteString(tableClose)

	b.WriteString(tableOpen("Recent Queries", "Time", "Name", "Type", "ID", "Source"))
	if len(domains) == 0 {
		b.WriteString(emptyRow(5, "No domains captured."))
	}
	for _, d := range domains {
		fmt.Fprintf(&b, "            <tr><td>%s</td><td>%s</td><td>%s</td><td>0x%04x</td><td>%s</td></tr>\n",
			d.Timestamp.Format("15:04:05"), html.EscapeString(d.Hostname), d.Type, d.TransactionID, html.EscapeString(d.Source))
	}
	b.WriteString(tableClose)

	b.WriteString("</body>\n</html>\n")

	if _, err := file.WriteString(b.String()); err != nil {
		return "", err
	}
	return filename, nil
}

const tableClose = `        </tbody>
    </table>
`

func tableOpen(title string, columns ...string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "\n    <h2>%s</h2>\n    <table>\n        <thead>\n            <tr>\n", title)
	for _, c := range columns {
		fmt.Fprintf(&b, "                <th>%s</th>\n", c)
	}
	b.WriteString("            </tr>\n        </thead>\n        <tbody>\n")
	return b.String()
}

func emptyRow(cols int, msg string) string {
	return fmt.Sprintf("            <tr><td colspan=\"%d\">%s</td></tr>\n", cols, msg)
}

func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
