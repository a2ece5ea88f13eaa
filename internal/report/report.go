// Package report generates analysis reports for computed beat grids.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/tempolab/beatgrid/internal/pipeline"
)

var (
	headingStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#005FAF"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))

	valueStyle = lipgloss.NewStyle().
			Bold(true)
)

// Data bundles everything the report needs about one analysis run.
type Data struct {
	Result    *pipeline.Result
	StartTime time.Time
	EndTime   time.Time
}

// interpretConfidence turns the stability score into a human-readable verdict.
// Thresholds are rough guides for DJs eyeballing a grid, not hard science.
func interpretConfidence(confidence *float64) string {
	if confidence == nil {
		return "insufficient beats to score"
	}
	switch {
	case *confidence >= 0.95:
		return "metronomic, grid-ready"
	case *confidence >= 0.85:
		return "steady, minor drift"
	case *confidence >= 0.6:
		return "usable, expect manual nudges"
	default:
		return "unstable, verify by ear"
	}
}

// rows builds the label/value pairs for one result.
func rows(d Data) [][2]string {
	g := d.Result.Grid

	bpm := "not detected"
	if g.BPM != nil {
		bpm = fmt.Sprintf("%.1f BPM", *g.BPM)
	}
	confidence := "null"
	if g.Confidence != nil {
		confidence = fmt.Sprintf("%.3f", *g.Confidence)
	}

	out := [][2]string{
		{"Input", d.Result.InputPath},
		{"Analyzer", g.Analyzer},
		{"Tempo", bpm},
		{"Grid offset", fmt.Sprintf("%.3f s", g.GridOffsetSec)},
		{"Beats", fmt.Sprintf("%d", len(g.BeatTimesSec))},
	}
	if g.DownbeatTimesSec != nil {
		out = append(out, [2]string{"Downbeats", fmt.Sprintf("%d (every %d beats)", len(g.DownbeatTimesSec), g.BeatsPerBar)})
	}
	out = append(out,
		[2]string{"Confidence", fmt.Sprintf("%s (%s)", confidence, interpretConfidence(g.Confidence))},
		[2]string{"Audio", fmt.Sprintf("%.1f s @ %d Hz", d.Result.ClipSeconds, d.Result.SampleRate)},
		[2]string{"Decode time", d.Result.DecodeTime.Round(time.Millisecond).String()},
		[2]string{"Analysis time", d.Result.AnalyzeTime.Round(time.Millisecond).String()},
	)
	return out
}

// RenderSummary renders a styled terminal summary of one beat grid.
func RenderSummary(d Data) string {
	var sb strings.Builder
	sb.WriteString(headingStyle.Render("Beat Grid Analysis"))
	sb.WriteString("\n")

	pairs := rows(d)
	width := 0
	for _, p := range pairs {
		if len(p[0]) > width {
			width = len(p[0])
		}
	}
	for _, p := range pairs {
		sb.WriteString(fmt.Sprintf("  %s  %s\n",
			labelStyle.Render(fmt.Sprintf("%-*s", width, p[0])),
			valueStyle.Render(p[1])))
	}
	return sb.String()
}

// Generate writes a plain-text report next to the input file, named
// <input>-beatgrid.log. Returns the report path.
func Generate(d Data) (string, error) {
	ext := filepath.Ext(d.Result.InputPath)
	path := strings.TrimSuffix(d.Result.InputPath, ext) + "-beatgrid.log"

	var sb strings.Builder
	sb.WriteString("BEATGRID ANALYSIS REPORT\n")
	sb.WriteString(strings.Repeat("=", 40) + "\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n", d.EndTime.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Elapsed:   %s\n\n", d.EndTime.Sub(d.StartTime).Round(time.Millisecond)))

	for _, p := range rows(d) {
		sb.WriteString(fmt.Sprintf("%-14s %s\n", p[0]+":", p[1]))
	}

	// Beat times are the bulk of the payload; keep them out of the summary
	// block and dump them at the end for grepping
	g := d.Result.Grid
	if len(g.BeatTimesSec) > 0 {
		sb.WriteString("\nBeat times (s):\n")
		for i, t := range g.BeatTimesSec {
			sb.WriteString(fmt.Sprintf("%9.3f", t))
			if (i+1)%8 == 0 {
				sb.WriteString("\n")
			}
		}
		sb.WriteString("\n")
	}

	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}
