package tui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// StatItem is one key/value line of a stats block.
type StatItem struct {
	Key   string
	Value string
}

// renderStats renders aligned key/value lines.
func renderStats(items []StatItem) string {
	maxKeyLen := 0
	for _, item := range items {
		maxKeyLen = max(maxKeyLen, lipgloss.Width(item.Key))
	}
	maxKeyLen += 2

	keyStyle := lipgloss.NewStyle().Foreground(ColorWhite).Width(maxKeyLen)
	valStyle := lipgloss.NewStyle().Foreground(ColorBlue).Bold(true)

	lines := make([]string, 0, len(items))
	for _, item := range items {
		lines = append(lines, keyStyle.Render(item.Key+":")+" "+valStyle.Render(item.Value))
	}
	return strings.Join(lines, "\n")
}

// renderTable renders rows under headers in fixed columns. Columns shrink
// from the right to fit width. selected < 0 highlights nothing.
func renderTable(headers []string, rows [][]string, width, selected int) string {
	if len(rows) == 0 {
		return helpStyle.Render("No data available")
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i := range min(len(row), len(widths)) {
			widths[i] = max(widths[i], lipgloss.Width(row[i]))
		}
	}
	fitColumns(widths, width)

	format := func(cells []string) string {
		parts := make([]string, len(widths))
		for i, w := range widths {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			parts[i] = padRight(truncate(cell, w), w)
		}
		return strings.Join(parts, " ")
	}

	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, headerStyle.Render(format(headers)))
	for i, row := range rows {
		line := format(row)
		if i == selected {
			line = selectedStyle.Render("> " + line)
		} else {
			line = "  " + line
		}
		lines = append(lines, line)
	}
	// Keep the header aligned with the selection gutter.
	lines[0] = "  " + lines[0]
	return strings.Join(lines, "\n")
}

// fitColumns trims the widest columns until the row fits width.
func fitColumns(widths []int, width int) {
	total := func() int {
		t := 2 + len(widths) - 1
		for _, w := range widths {
			t += w
		}
		return t
	}
	for total() > width {
		widest := 0
		for i, w := range widths {
			if w > widths[widest] {
				widest = i
			}
		}
		if widths[widest] <= 3 {
			return
		}
		widths[widest]--
	}
}

// windowRows returns the slice of n rows to show so that selected stays
// visible in height lines.
func windowRows(n, selected, height int) (start, end int) {
	if height <= 0 || n <= height {
		return 0, n
	}
	start = max(0, selected-height/2)
	end = start + height
	if end > n {
		end = n
		start = end - height
	}
	return start, end
}

func truncate(s string, w int) string {
	if w <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= w {
		return s
	}
	if w == 1 {
		return "~"
	}
	return string(r[:w-1]) + "~"
}

func padRight(s string, w int) string {
	if n := lipgloss.Width(s); n < w {
		return s + strings.Repeat(" ", w-n)
	}
	return s
}

func fmtFloat(v float64, prec int) string {
	return strconv.FormatFloat(v, 'f', prec, 64)
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	return min(max(v, lo), hi)
}
