package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Row is one line of a [Table]; the first cell is painted by the table's key style.
type Row []string

// Table renders aligned columns for terminal output.
type Table struct {
	title   string
	headers Row
	rows    []Row
	key     func(string) string
}

// NewTable creates a table with the given column headers.
func NewTable(title string, headers ...string) *Table {
	return &Table{title: title, headers: headers}
}

// KeyStyle sets the painter applied to the first column of every row.
func (t *Table) KeyStyle(fn func(string) string) *Table {
	t.key = fn
	return t
}

// Add appends a row. Missing cells render empty.
func (t *Table) Add(cells ...string) *Table {
	t.rows = append(t.rows, cells)
	return t
}

// Len reports the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Render lays out the table. Widths are measured before styling so ANSI sequences never skew alignment.
func (t *Table) Render() string {
	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.rows {
		for i := 0; i < len(row) && i < len(widths); i++ {
			widths[i] = max(widths[i], lipgloss.Width(row[i]))
		}
	}

	var b strings.Builder
	if t.title != "" {
		b.WriteString(styles.Title(t.title))
		b.WriteString("\n")
	}

	b.WriteString(t.line(t.headers, widths, styles.Help))
	for _, row := range t.rows {
		b.WriteString(t.line(row, widths, nil))
	}
	return b.String()
}

func (t *Table) line(row Row, widths []int, paint func(string) string) string {
	cells := make([]string, len(widths))
	for i := range widths {
		var cell string
		if i < len(row) {
			cell = row[i]
		}
		padded := cell + strings.Repeat(" ", widths[i]-lipgloss.Width(cell))
		switch {
		case paint != nil:
			padded = paint(padded)
		case i == 0 && t.key != nil:
			padded = t.key(cell) + strings.Repeat(" ", widths[i]-lipgloss.Width(cell))
		}
		cells[i] = padded
	}
	return strings.TrimRight(strings.Join(cells, "  "), " ") + "\n"
}
