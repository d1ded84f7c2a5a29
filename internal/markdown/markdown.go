package markdown

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
)

// CreateMarkdownTable renders rows as a GitHub flavoured markdown table. The
// first row is the header. Each column is padded to its widest cell (at least
// three characters) and short rows are filled with empty cells.
func CreateMarkdownTable(contents [][]string) string {
	columns := 0
	for _, row := range contents {
		columns = max(columns, len(row))
	}

	widths := make([]int, columns)
	for i := range widths {
		widths[i] = 3
	}
	for _, row := range contents {
		for i, cell := range row {
			widths[i] = max(widths[i], len(escapeCell(cell)))
		}
	}

	var table strings.Builder
	writeRow := func(cells func(i int) string) {
		for i := 0; i < columns; i++ {
			fmt.Fprintf(&table, "| %-*s ", widths[i], cells(i))
		}
		table.WriteString("|\n")
	}

	for r, row := range contents {
		writeRow(func(i int) string {
			if i < len(row) {
				return escapeCell(row[i])
			}
			return ""
		})

		if r == 0 {
			writeRow(func(i int) string {
				return strings.Repeat("-", widths[i])
			})
		}
	}

	return strings.TrimRight(table.String(), "\n")
}

// Render formats markdown for a terminal of the given width.
func Render(md string, width int) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create markdown renderer: %w", err)
	}

	out, err := r.Render(md)
	if err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}

	return out, nil
}

func escapeCell(cell string) string {
	return strings.ReplaceAll(cell, "|", "\\|")
}
