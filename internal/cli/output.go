package cli

import (
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/raphaelgruber/briefcast/internal/metrics"
	"github.com/raphaelgruber/briefcast/internal/pipeline"
	"golang.org/x/term"
)

// Theme holds the color scheme for terminal output.
type Theme struct {
	Heading lipgloss.Color
	Success lipgloss.Color
	Warn    lipgloss.Color
	Error   lipgloss.Color
	Hint    lipgloss.Color
}

var defaultTheme = Theme{
	Heading: lipgloss.Color("#5FAFD7"), // light blue
	Success: lipgloss.Color("#00D787"), // green
	Warn:    lipgloss.Color("#FFAF00"), // amber
	Error:   lipgloss.Color("#FF005F"), // red
	Hint:    lipgloss.Color("#6C6C6C"), // dim gray
}

// printer writes plain text, styled only when stdout is a terminal.
type printer struct {
	w     io.Writer
	color bool
	theme Theme
}

func newPrinter() *printer {
	return &printer{
		w:     os.Stdout,
		color: term.IsTerminal(int(os.Stdout.Fd())),
		theme: defaultTheme,
	}
}

func (p *printer) style(c lipgloss.Color, bold bool, s string) string {
	if !p.color {
		return s
	}
	return lipgloss.NewStyle().Foreground(c).Bold(bold).Render(s)
}

func (p *printer) heading(s string) string { return p.style(p.theme.Heading, true, s) }
func (p *printer) hint(s string) string    { return p.style(p.theme.Hint, false, s) }

func (p *printer) status(s pipeline.Status) string {
	switch s {
	case pipeline.StatusPublished, pipeline.StatusIngested, pipeline.StatusDryRun:
		return p.style(p.theme.Success, true, string(s))
	case pipeline.StatusFailed:
		return p.style(p.theme.Error, true, string(s))
	default:
		return p.style(p.theme.Warn, true, string(s))
	}
}

func (p *printer) printf(format string, args ...any) {
	fmt.Fprintf(p.w, format, args...)
}

// printResult summarises a pipeline run.
func (p *printer) printResult(res *pipeline.Result) {
	if res == nil {
		return
	}
	p.printf("%s %s\n", p.heading("Run"), p.hint(res.RunID))
	p.printf("  Status:     %s\n", p.status(res.Status))
	p.printf("  Ingested:   %d", res.Ingested)
	if res.FailedSources > 0 {
		p.printf(" %s", p.hint(fmt.Sprintf("(%d sources failed)", res.FailedSources)))
	}
	p.printf("\n")
	p.printf("  Unique:     %d\n", res.Unique)
	p.printf("  Duplicates: %d\n", res.Duplicates)
	if res.Dropped > 0 {
		p.printf("  Dropped:    %d\n", res.Dropped)
	}

	if verbose || res.Status == pipeline.StatusDryRun {
		for i, seg := range res.Segments {
			p.printf("\n%s\n%s\n", p.heading(fmt.Sprintf("%d. %s", i+1, seg.Type)), seg.Text)
		}
	}

	if res.EpisodePath != "" {
		p.printf("\n  Episode:    %s (%s)\n", res.EpisodePath, res.Duration.Round(time.Second))
	}
	if res.FeedURL != "" {
		p.printf("  Feed:       %s\n", res.FeedURL)
	}
}

// printMetrics displays per-operation timing and token statistics.
func (p *printer) printMetrics(snap metrics.Snapshot) {
	if len(snap.Ops) == 0 {
		return
	}
	p.printf("\n%s %s\n", p.heading("Statistics"), p.hint(fmt.Sprintf("(%.1fs)", snap.UptimeSeconds)))

	names := make([]string, 0, len(snap.Ops))
	for _, op := range metrics.Operations {
		if _, ok := snap.Ops[op]; ok {
			names = append(names, op)
		}
	}
	for name := range snap.Ops {
		if !slices.Contains(names, name) {
			names = append(names, name)
		}
	}

	for _, name := range names {
		op := snap.Ops[name]
		p.printf("  %-14s calls %-4d avg %7.1fms  min %5dms  max %5dms\n",
			name, op.Count, op.AvgTimeMs, op.MinTimeMs, op.MaxTimeMs)
		if op.TotalInputTokens != nil && op.TotalOutputTokens != nil {
			p.printf("  %-14s tokens in %d, out %d\n", "", *op.TotalInputTokens, *op.TotalOutputTokens)
		}
	}
}
