package main

import (
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
)

func renderTable(w io.Writer, headers []string, rows [][]string) error {
	table := tablewriter.NewWriter(w)
	table.Header(headers)
	if err := table.Bulk(rows); err != nil {
		return err
	}
	return table.Render()
}

func formatScore(s float64) string {
	return strconv.FormatFloat(s, 'f', 4, 64)
}
