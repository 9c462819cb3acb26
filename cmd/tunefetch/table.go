package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// column describes one table column. A zero Max leaves the width unbounded;
// otherwise longer cells are cut with an ellipsis.
type column struct {
	Header string
	Right  bool
	Max    int
}

var (
	toolColumns = []column{
		{Header: "Tool"},
		{Header: "Path", Max: 48},
		{Header: "Found"},
		{Header: "Optional"},
		{Header: "Detail"},
	}
	historyColumns = []column{
		{Header: "Item"},
		{Header: "Finished"},
		{Header: "Status"},
		{Header: "Source", Max: 48},
		{Header: "Took", Right: true},
		{Header: "Result", Max: 60},
	}
	stepColumns = []column{
		{Header: "#", Right: true},
		{Header: "Step"},
		{Header: "Status"},
		{Header: "Took", Right: true},
		{Header: "Summary", Max: 60},
	}
)

func renderTable(columns []column, rows [][]string) string {
	if len(columns) == 0 {
		return ""
	}
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(columns))
	configs := make([]table.ColumnConfig, len(columns))
	for i, col := range columns {
		header[i] = col.Header
		cfg := table.ColumnConfig{Number: i + 1, Align: text.AlignLeft, AlignHeader: text.AlignLeft}
		if col.Right {
			cfg.Align = text.AlignRight
		}
		if col.Max > 0 {
			cfg.WidthMax = col.Max
			cfg.WidthMaxEnforcer = truncate
		}
		configs[i] = cfg
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs(configs)

	for _, cells := range rows {
		row := make(table.Row, len(columns))
		for i := range row {
			row[i] = ""
			if i < len(cells) {
				row[i] = cells[i]
			}
		}
		tw.AppendRow(row)
	}
	return tw.Render()
}

func truncate(value string, limit int) string {
	runes := []rune(value)
	if limit <= 0 || len(runes) <= limit {
		return value
	}
	return string(runes[:limit-1]) + "…"
}
