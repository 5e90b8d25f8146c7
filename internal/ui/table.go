package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var cell = lipgloss.NewStyle().Padding(0, 1)

// Table renders rows under headers with a rounded border.
//
// Rows shorter than headers are padded with empty cells so a sparse record never shifts columns.
func (p *Palette) Table(headers []string, rows [][]string) string {
	padded := make([][]string, len(rows))
	for i, row := range rows {
		if len(row) < len(headers) {
			row = append(append([]string{}, row...), make([]string, len(headers)-len(row))...)
		}
		padded[i] = row
	}

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(p.border).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return p.header
			}
			return cell
		}).
		Headers(headers...).
		Rows(padded...).
		Render()
}
