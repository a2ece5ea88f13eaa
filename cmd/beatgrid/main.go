package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"

	"github.com/tempolab/beatgrid/internal/cli"
	"github.com/tempolab/beatgrid/internal/config"
	"github.com/tempolab/beatgrid/internal/decode"
	"github.com/tempolab/beatgrid/internal/grid"
	"github.com/tempolab/beatgrid/internal/pipeline"
	"github.com/tempolab/beatgrid/internal/report"
	"github.com/tempolab/beatgrid/internal/ui"
)

var (
	version = "0.1.0"
)

// CLI defines the command-line interface
type CLI struct {
	Version    bool     `short:"v" help:"Show version information"`
	Config     string   `short:"c" type:"path" help:"Path to TOML config file (optional)"`
	Analyzer   string   `help:"Pipeline variant" enum:"v1,v2" default:"v2"`
	PreferStem string   `help:"Stem preference hint (reserved, no effect)" enum:"none,drums,instrumental" default:"none"`
	Logs       bool     `help:"Save detailed analysis reports"`
	Plain      bool     `help:"Disable the batch TUI even on a terminal"`
	Files      []string `arg:"" name:"files" help:"Audio files to analyze" type:"existingfile" optional:""`
}

func main() {
	cliArgs := &CLI{}
	ctx := kong.Parse(cliArgs,
		kong.Name("beatgrid"),
		kong.Description("Beat grid and tempo analyzer for audio files"),
		kong.UsageOnError(),
		kong.Vars{
			"version": version,
		},
		kong.Help(cli.StyledHelpPrinter(kong.HelpOptions{Compact: true})),
	)

	// Handle version flag
	if cliArgs.Version {
		cli.PrintVersion(version)
		os.Exit(0)
	}

	// Validate input
	if len(cliArgs.Files) == 0 {
		cli.PrintError("No input files specified")
		ctx.PrintUsage(false)
		os.Exit(1)
	}

	cfg, err := config.Load(cliArgs.Config)
	if err != nil {
		cli.PrintError(err.Error())
		os.Exit(1)
	}

	// Fail fast on a missing decoder rather than partway into a batch.
	// Canonical WAV inputs never touch the decoder, so only check when
	// something actually needs decoding.
	if needsDecoder(cliArgs.Files) {
		if err := decode.LookupDecoder(decode.Binary(cfg.Decoder.Binary)); err != nil {
			emitError(err)
			os.Exit(1)
		}
	}

	opts := pipeline.Options{
		Variant:    variantFor(cliArgs.Analyzer),
		PreferStem: cliArgs.PreferStem,
		Config:     cfg,
	}

	var failed bool
	if useTUI(cliArgs) {
		failed = runBatchTUI(cliArgs, opts)
	} else {
		failed = runPlain(cliArgs, opts)
	}

	if failed {
		os.Exit(1)
	}
}

// runPlain analyzes each file synchronously, one JSON record per line on
// stdout. Returns true if any file failed.
func runPlain(cliArgs *CLI, opts pipeline.Options) bool {
	out := json.NewEncoder(os.Stdout)
	failed := false

	for _, inputPath := range cliArgs.Files {
		start := time.Now()
		res, err := pipeline.Analyze(context.Background(), inputPath, opts)
		if err != nil {
			emitError(err)
			failed = true
			continue
		}

		if err := out.Encode(res.Grid); err != nil {
			emitError(fmt.Errorf("encode result: %w", err))
			failed = true
			continue
		}

		if cliArgs.Logs {
			writeReport(res, start)
		}
	}
	return failed
}

// runBatchTUI analyzes the files behind a Bubbletea progress screen. JSON
// output still lands on stdout after the UI closes.
func runBatchTUI(cliArgs *CLI, opts pipeline.Options) bool {
	model := ui.NewModel(cliArgs.Files)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithOutput(os.Stderr))

	type outcome struct {
		grid grid.Grid
		err  error
	}
	outcomes := make([]outcome, len(cliArgs.Files))

	go func() {
		for i, inputPath := range cliArgs.Files {
			p.Send(ui.FileStartMsg{FileIndex: i, FileName: inputPath})

			start := time.Now()
			res, err := pipeline.Analyze(context.Background(), inputPath, opts)
			if err != nil {
				outcomes[i] = outcome{err: err}
				p.Send(ui.FileCompleteMsg{FileIndex: i, Error: err})
				continue
			}
			outcomes[i] = outcome{grid: res.Grid}

			if cliArgs.Logs {
				writeReport(res, start)
			}

			p.Send(ui.FileCompleteMsg{
				FileIndex:  i,
				BPM:        res.Grid.BPM,
				Confidence: res.Grid.Confidence,
				Beats:      len(res.Grid.BeatTimesSec),
				Downbeats:  len(res.Grid.DownbeatTimesSec),
			})
		}
		p.Send(ui.AllCompleteMsg{})
	}()

	if _, err := p.Run(); err != nil {
		cli.PrintError(fmt.Sprintf("UI error: %v", err))
		return true
	}

	out := json.NewEncoder(os.Stdout)
	failed := false
	for _, o := range outcomes {
		if o.err != nil {
			emitError(o.err)
			failed = true
			continue
		}
		if err := out.Encode(o.grid); err != nil {
			emitError(fmt.Errorf("encode result: %w", err))
			failed = true
		}
	}
	return failed
}

// emitError writes the structured error record to stderr
func emitError(err error) {
	payload, marshalErr := json.Marshal(grid.ErrorResult{Error: err.Error()})
	if marshalErr != nil {
		cli.PrintError(err.Error())
		return
	}
	fmt.Fprintln(os.Stderr, string(payload))
}

func writeReport(res *pipeline.Result, start time.Time) {
	data := report.Data{Result: res, StartTime: start, EndTime: time.Now()}
	if _, err := report.Generate(data); err != nil {
		cli.PrintError(fmt.Sprintf("report: %v", err))
		return
	}
	fmt.Fprint(os.Stderr, report.RenderSummary(data))
}

func variantFor(analyzer string) pipeline.Variant {
	if analyzer == "v1" {
		return pipeline.V1
	}
	return pipeline.V2
}

// useTUI enables the batch screen only for multi-file runs on a real
// terminal; single-file and piped invocations keep the plain contract.
func useTUI(cliArgs *CLI) bool {
	return len(cliArgs.Files) > 1 && !cliArgs.Plain && isatty.IsTerminal(os.Stderr.Fd())
}

// needsDecoder reports whether any input requires the external decoder.
func needsDecoder(files []string) bool {
	for _, f := range files {
		if !strings.EqualFold(filepath.Ext(f), ".wav") {
			return true
		}
	}
	return false
}
