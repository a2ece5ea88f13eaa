package ui

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#005FAF"))

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Italic(true)

	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#00AA00"))
	activeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFA500"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#A40000"))
	queueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
)

// renderBatchView renders the in-flight batch view
func renderBatchView(m Model) string {
	var b strings.Builder

	b.WriteString(renderHeader(m))
	b.WriteString("\n\n")

	for i := range m.Files {
		b.WriteString(renderFileEntry(m.Files[i]))
		b.WriteString("\n")
	}

	return b.String()
}

// renderHeader renders the application header
func renderHeader(m Model) string {
	title := headerStyle.Render("Beatgrid 🥁 - Beat Grid Analyzer")
	subtitle := subtitleStyle.Render(fmt.Sprintf("Analyzing %d file(s)", m.TotalFiles))
	return title + "\n" + subtitle
}

// renderFileEntry renders a single file entry in the queue
func renderFileEntry(file FileProgress) string {
	fileName := filepath.Base(file.InputPath)

	switch file.Status {
	case StatusComplete:
		icon := okStyle.Render("✓")
		return fmt.Sprintf(" %s %s\n   %s", icon, fileName, renderGridSummary(file))

	case StatusAnalyzing:
		icon := activeStyle.Render("⚙")
		return fmt.Sprintf(" %s %s\n   Analyzing... (%s)", icon, fileName,
			time.Since(file.StartTime).Round(time.Second))

	case StatusError:
		icon := errStyle.Render("✗")
		return fmt.Sprintf(" %s %s\n   Error: %v", icon, fileName, file.Error)

	default:
		icon := queueStyle.Render("○")
		return fmt.Sprintf(" %s %s\n   Queued...", icon, fileName)
	}
}

// renderGridSummary renders the one-line result for a completed file
func renderGridSummary(file FileProgress) string {
	bpm := "no tempo"
	if file.BPM != nil {
		bpm = fmt.Sprintf("%.1f BPM", *file.BPM)
	}
	confidence := "confidence n/a"
	if file.Confidence != nil {
		confidence = fmt.Sprintf("confidence %.2f", *file.Confidence)
	}

	summary := fmt.Sprintf("%s | %d beats | %s", bpm, file.Beats, confidence)
	if file.Downbeats > 0 {
		summary += fmt.Sprintf(" | %d downbeats", file.Downbeats)
	}
	return summary
}

// renderCompletionSummary renders the final view after all files finish
func renderCompletionSummary(m Model) string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("Beatgrid 🥁 - Analysis Complete"))
	b.WriteString("\n")
	b.WriteString(subtitleStyle.Render(fmt.Sprintf("%d analyzed, %d failed in %s",
		m.CompletedFiles, m.FailedFiles, time.Since(m.StartTime).Round(time.Second))))
	b.WriteString("\n\n")

	for i := range m.Files {
		b.WriteString(renderFileEntry(m.Files[i]))
		b.WriteString("\n")
	}

	return b.String()
}
