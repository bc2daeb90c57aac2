// Package ui renders download progress and command output on a terminal.
package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/ytget/ytfetch/types"
)

// Progress styles, matching output.progress_style in the config file.
const (
	StyleBar   = "bar"
	StylePlain = "plain"
	StyleNone  = "none"
)

const (
	barWidth        = 40
	defaultInterval = 100 * time.Millisecond
)

var (
	labelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170"))
	statsStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
	successStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("42"))
	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196"))
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))
)

// Progress draws a single progress line. Update has the signature of
// transport.ProgressFunc and returns quickly: redraws are throttled.
type Progress struct {
	mu       sync.Mutex
	w        io.Writer
	style    string
	label    string
	bar      progress.Model
	interval time.Duration
	now      func() time.Time
	start    time.Time
	last     time.Time
	drawn    bool
}

// NewProgress creates a renderer writing to w. Unknown styles fall back to plain.
func NewProgress(w io.Writer, style, label string) *Progress {
	switch style {
	case StyleBar, StylePlain, StyleNone:
	default:
		style = StylePlain
	}
	return &Progress{
		w:     w,
		style: style,
		label: label,
		bar: progress.New(
			progress.WithDefaultGradient(),
			progress.WithWidth(barWidth),
			progress.WithoutPercentage(),
		),
		interval: defaultInterval,
		now:      time.Now,
	}
}

// Update records downloaded of total bytes and redraws when due.
func (p *Progress) Update(downloaded, total int64) {
	if p == nil || p.style == StyleNone || total <= 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	if p.start.IsZero() {
		p.start = now
	}
	if downloaded < total && p.drawn && now.Sub(p.last) < p.interval {
		return
	}
	p.last = now
	p.drawn = true

	line := p.render(downloaded, total, now.Sub(p.start))
	if p.style == StyleBar {
		fmt.Fprintf(p.w, "\r%s", line)
		if downloaded >= total {
			fmt.Fprintln(p.w)
		}
		return
	}
	fmt.Fprintln(p.w, line)
}

func (p *Progress) render(downloaded, total int64, elapsed time.Duration) string {
	ratio := float64(downloaded) / float64(total)
	if ratio > 1 {
		ratio = 1
	}
	stats := fmt.Sprintf("%5.1f%% %s / %s", ratio*100, humanize.Bytes(uint64(downloaded)), humanize.Bytes(uint64(total)))
	if secs := elapsed.Seconds(); secs > 0 {
		stats += fmt.Sprintf(" %s/s", humanize.Bytes(uint64(float64(downloaded)/secs)))
	}

	if p.style == StylePlain {
		return p.label + " " + stats
	}
	return labelStyle.Render(p.label) + " " + p.bar.ViewAs(ratio) + " " + statsStyle.Render(stats)
}

// Success formats a completion line.
func Success(msg string) string {
	return successStyle.Render("✓") + " " + msg
}

// Error formats a failure line.
func Error(err error) string {
	return errorStyle.Render("✗") + " " + err.Error()
}

// Saved describes a finished download.
func Saved(path string, size int64) string {
	return Success(fmt.Sprintf("saved %s (%s)", path, humanize.Bytes(uint64(size))))
}

// FormatTable renders the format listing, one row per format in list order.
func FormatTable(list []types.FormatSummary) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("%-6s %-10s %s", "itag", "quality", "type")))
	b.WriteString("\n")
	for _, f := range list {
		fmt.Fprintf(&b, "%-6s %-10s %s\n", f.Itag, f.Quality, f.MimeType)
	}
	return b.String()
}
