package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/muurk/webosctl/internal/discovery"
)

// RenderTable renders rows under headers in a rounded table.
func RenderTable(headers []string, rows [][]string) string {
	cell := lipgloss.NewStyle().Foreground(TextColor).Padding(0, 1)
	head := TableHeaderStyle.Padding(0, 1)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(PrimaryColor)).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return head
			}
			return cell
		})

	for _, r := range rows {
		t.Row(r...)
	}
	return t.String()
}

// RenderDevices renders discovery results as a table.
func RenderDevices(devices []discovery.DiscoveredDevice) string {
	rows := make([][]string, 0, len(devices))
	for _, d := range devices {
		rows = append(rows, []string{orDash(d.Name), orDash(d.Address), orDash(d.MAC), orDash(d.UUID)})
	}
	return RenderTable([]string{"NAME", "ADDRESS", "MAC", "UUID"}, rows)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
