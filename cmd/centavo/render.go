package main

import (
	"fmt"
	"io"

	"github.com/Urientropy/centavo/resources"
	"github.com/jedib0t/go-pretty/v6/table"
)

func newTable(out io.Writer, header ...any) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row(header))
	return t
}

// renderPage prints one page of items with a pagination footer.
func renderPage[T any](out io.Writer, state resources.ListState[T], header []any, row func(T) table.Row) {
	t := newTable(out, header...)
	for _, item := range state.Items {
		t.AppendRow(row(item))
	}
	footer := make(table.Row, len(header))
	footer[0] = fmt.Sprintf("page %d of %d", state.Pagination.Page, state.Pagination.TotalPages)
	if len(footer) > 1 {
		footer[len(footer)-1] = fmt.Sprintf("%d total", state.Pagination.Count)
	}
	t.AppendFooter(footer)
	t.Render()
}

func renderList(out io.Writer, title string, values []string) {
	t := newTable(out, title)
	for _, v := range values {
		t.AppendRow(table.Row{v})
	}
	t.Render()
}
