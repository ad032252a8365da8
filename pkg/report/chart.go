package report

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

const (
	ChartTitle  = "User Counts per Country"
	LabelAxis   = "Country"
	ValueAxis   = "Number of Users"
	defaultWide = 80
	minBarWidth = 10
	barGlyph    = "█"
)

// ChartOptions controls chart rendering
type ChartOptions struct {
	// Width is the total line width; 0 uses the terminal width
	Width int
	Color bool
}

var (
	titleColor = lipgloss.Color("#00FFFF")
	barColor   = lipgloss.Color("#39FF14")
	axisColor  = lipgloss.Color("#B0B0B0")
)

// RenderChart draws a horizontal bar chart of counts
func RenderChart(w io.Writer, counts map[string]int, opts ChartOptions) error {
	width := opts.Width
	if width <= 0 {
		width = TerminalWidth()
	}

	style := func(c lipgloss.Color, bold bool) func(string) string {
		if !opts.Color {
			return func(s string) string { return s }
		}
		st := lipgloss.NewRenderer(w).NewStyle().Foreground(c).Bold(bold)
		return func(s string) string { return st.Render(s) }
	}
	title := style(titleColor, true)
	bar := style(barColor, false)
	axis := style(axisColor, false)

	var b strings.Builder
	b.WriteString(title(ChartTitle) + "\n")

	entries := Sorted(counts)
	if len(entries) == 0 {
		b.WriteString(axis("(no data)") + "\n")
		_, err := io.WriteString(w, b.String())
		return err
	}

	labelWidth := lipgloss.Width(LabelAxis)
	maxCount := 0
	for _, e := range entries {
		if lw := lipgloss.Width(e.Label); lw > labelWidth {
			labelWidth = lw
		}
		if e.Count > maxCount {
			maxCount = e.Count
		}
	}
	countWidth := len(strconv.Itoa(maxCount))

	barWidth := width - labelWidth - countWidth - 3
	if barWidth < minBarWidth {
		barWidth = minBarWidth
	}

	b.WriteString(axis(pad(LabelAxis, labelWidth)+" │ "+ValueAxis) + "\n")
	b.WriteString(axis(strings.Repeat("─", labelWidth)+"─┼─"+strings.Repeat("─", barWidth)) + "\n")

	for _, e := range entries {
		n := BarLength(e.Count, maxCount, barWidth)
		fmt.Fprintf(&b, "%s │ %s %*d\n", pad(e.Label, labelWidth), bar(strings.Repeat(barGlyph, n)), countWidth, e.Count)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// BarLength scales count against max into [1, width]; zero counts get no bar
func BarLength(count, max, width int) int {
	if count <= 0 || max <= 0 {
		return 0
	}
	n := count * width / max
	if n < 1 {
		n = 1
	}
	return n
}

// TerminalWidth returns the stdout width, or 80 when stdout is not a terminal
func TerminalWidth() int {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return defaultWide
	}
	w, _, err := term.GetSize(fd)
	if err != nil || w <= 0 {
		return defaultWide
	}
	return w
}

func pad(s string, width int) string {
	if gap := width - lipgloss.Width(s); gap > 0 {
		return s + strings.Repeat(" ", gap)
	}
	return s
}
