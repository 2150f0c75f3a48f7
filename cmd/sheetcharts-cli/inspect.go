package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"sheetcharts/internal/tabular"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

func newInspectCmd() *cobra.Command {
	var rows int
	cmd := &cobra.Command{
		Use:   "inspect FILE",
		Short: "Show sheets, headers and the first rows of a workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := loadTable(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), renderInspect(t, rows))
			return nil
		},
	}
	cmd.Flags().IntVarP(&rows, "rows", "n", 10, "Number of data rows to preview")
	return cmd
}

func renderInspect(t *tabular.Table, limit int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Sheets: "), strings.Join(t.SheetNames, ", "))
	fmt.Fprintf(&b, "%s %d\n", labelStyle.Render("Columns:"), len(t.Headers))
	fmt.Fprintf(&b, "%s %d\n\n", labelStyle.Render("Rows:   "), len(t.Rows))
	writePreview(&b, t, limit)
	return b.String()
}

func writePreview(w io.Writer, t *tabular.Table, limit int) {
	width := t.Width()
	headers := make([]string, width)
	for i := range headers {
		if i < len(t.Headers) {
			headers[i] = t.Headers[i]
		}
	}

	n := len(t.Rows)
	if limit >= 0 && n > limit {
		n = limit
	}
	rows := make([][]string, 0, n)
	for r := 0; r < n; r++ {
		row := make([]string, width)
		for c := 0; c < width; c++ {
			row[c] = tabular.FormatCell(t.Cell(r, c))
		}
		rows = append(rows, row)
	}

	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(labelStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		Headers(headers...).
		Rows(rows...)
	fmt.Fprintln(w, tbl.String())
	if n < len(t.Rows) {
		fmt.Fprintln(w, labelStyle.Render(fmt.Sprintf("... %d more rows", len(t.Rows)-n)))
	}
}
