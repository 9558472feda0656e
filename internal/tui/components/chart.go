package components

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/cashpulse/internal/tui/theme"
)

// Sparkline renders a unicode sparkline scaled between the series minimum
// and maximum, so negative values are drawn too.
func Sparkline(values []float64, color lipgloss.Color) string {
	if len(values) == 0 {
		return ""
	}
	t := theme.Active

	blocks := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	span := hi - lo
	if span == 0 {
		span = 1
	}

	var buf strings.Builder
	buf.Grow(len(values) * 3)
	for _, v := range values {
		idx := int((v - lo) / span * float64(len(blocks)-1))
		buf.WriteRune(blocks[max(0, min(idx, len(blocks)-1))])
	}

	return lipgloss.NewStyle().Foreground(color).Background(t.Surface).Render(buf.String())
}

// BarChart renders a vertical bar chart. Negative values hang below a zero
// axis in the theme's red. labels, when given, must match values.
func BarChart(values []float64, labels []string, color lipgloss.Color, width, height int) string {
	if len(values) == 0 {
		return ""
	}
	if width < 15 || height < 3 {
		return Sparkline(values, color)
	}

	t := theme.Active

	hi, lo := 0.0, 0.0
	for _, v := range values {
		hi = max(hi, v)
		lo = min(lo, v)
	}
	if hi == 0 && lo == 0 {
		hi = 1
	}

	// Split the rows between the positive and negative ranges.
	posRows := int(math.Round(float64(height) * hi / (hi - lo)))
	if hi > 0 {
		posRows = max(posRows, 1)
	}
	if lo < 0 {
		posRows = min(posRows, height-1)
	}
	negRows := height - posRows

	yLabelW := max(len(formatChartLabel(hi)), len(formatChartLabel(lo)), 3) + 1

	n := len(values)
	chartW := max(width-yLabelW-1, 5)
	gap := 1
	if n == 1 {
		gap = 0
	}
	barW := max(1, min((chartW-(n-1)*gap)/n, 6))
	axisLen := n*barW + (n-1)*gap

	blocks := []rune{' ', '▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	axisStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	posStyle := lipgloss.NewStyle().Foreground(color).Background(t.Surface)
	negStyle := lipgloss.NewStyle().Foreground(t.Red).Background(t.Surface)
	blank := lipgloss.NewStyle().Background(t.Surface)

	var lines []string
	row := func(label string, cell func(v float64) (string, lipgloss.Style)) string {
		var b strings.Builder
		b.WriteString(axisStyle.Render(fmt.Sprintf("%*s", yLabelW, label)))
		b.WriteString(axisStyle.Render("│"))
		for i, v := range values {
			if i > 0 && gap > 0 {
				b.WriteString(blank.Render(strings.Repeat(" ", gap)))
			}
			s, st := cell(v)
			b.WriteString(st.Render(strings.Repeat(s, barW)))
		}
		return b.String()
	}

	for r := posRows; r >= 1; r-- {
		rowTop := hi * float64(r) / float64(posRows)
		rowBottom := hi * float64(r-1) / float64(posRows)
		label := ""
		if r == posRows {
			label = formatChartLabel(hi)
		}
		lines = append(lines, row(label, func(v float64) (string, lipgloss.Style) {
			switch {
			case v >= rowTop:
				return "█", posStyle
			case v > rowBottom:
				idx := int((v - rowBottom) / (rowTop - rowBottom) * 8)
				return string(blocks[max(1, min(idx, 8))]), posStyle
			default:
				return " ", blank
			}
		}))
	}

	corner := "└"
	if negRows > 0 {
		corner = "┼"
	}
	lines = append(lines, axisStyle.Render(fmt.Sprintf("%*s", yLabelW, "0"))+
		axisStyle.Render(corner+strings.Repeat("─", axisLen)))

	for r := 1; r <= negRows; r++ {
		mid := lo * (float64(r) - 0.5) / float64(negRows)
		label := ""
		if r == negRows {
			label = formatChartLabel(lo)
		}
		lines = append(lines, row(label, func(v float64) (string, lipgloss.Style) {
			if v <= mid {
				return "█", negStyle
			}
			return " ", blank
		}))
	}

	if len(labels) == n {
		lines = append(lines, blank.Render(strings.Repeat(" ", yLabelW+1))+
			axisStyle.Render(strings.TrimRight(placeLabels(labels, barW, gap, axisLen), " ")))
	}

	return strings.Join(lines, "\n")
}

// placeLabels lays out x-axis labels under their bars, skipping any that
// would collide with the previous one.
func placeLabels(labels []string, barW, gap, axisLen int) string {
	buf := []rune(strings.Repeat(" ", axisLen))
	lastEnd := -1
	for i, lbl := range labels {
		pos := i * (barW + gap)
		r := []rune(lbl)
		if pos <= lastEnd || pos >= axisLen {
			continue
		}
		end := min(pos+len(r), axisLen)
		copy(buf[pos:end], r[:end-pos])
		lastEnd = end
	}
	return string(buf)
}

func formatChartLabel(v float64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	var s string
	switch {
	case v >= 1e6:
		s = fmt.Sprintf("%.1fM", v/1e6)
	case v >= 1e3:
		if v == math.Trunc(v/1e3)*1e3 {
			s = fmt.Sprintf("%.0fk", v/1e3)
		} else {
			s = fmt.Sprintf("%.1fk", v/1e3)
		}
	default:
		s = fmt.Sprintf("%.0f", v)
	}
	return sign + s
}
