package main

import (
	"strings"
	"unicode/utf8"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// maxPathWidth bounds path cells so a deep library tree does not push the
// size and status columns off screen.
const maxPathWidth = 56

type columnKind int

const (
	colText columnKind = iota
	colNumber
	colPath
)

type column struct {
	header string
	kind   columnKind
}

func textCol(header string) column { return column{header: header, kind: colText} }
func numberCol(header string) column { return column{header: header, kind: colNumber} }
func pathCol(header string) column { return column{header: header, kind: colPath} }

// renderTable draws rows under cols. Number columns align right and path
// columns are shortened from the left so the file name stays visible. A
// non-empty footer becomes a single summary row.
func renderTable(cols []column, rows [][]string, footer ...string) string {
	if len(cols) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.Style().Format.Footer = text.FormatDefault

	header := make(table.Row, len(cols))
	for i, c := range cols {
		header[i] = c.header
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, len(cols))
		for i, c := range cols {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			if c.kind == colPath {
				cell = shortenPath(cell, maxPathWidth)
			}
			r[i] = cell
		}
		tw.AppendRow(r)
	}

	if len(footer) > 0 {
		f := make(table.Row, len(cols))
		for i := range cols {
			if i < len(footer) {
				f[i] = footer[i]
			}
		}
		tw.AppendFooter(f)
	}

	configs := make([]table.ColumnConfig, 0, len(cols))
	for i, c := range cols {
		align := text.AlignLeft
		if c.kind == colNumber {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignFooter: align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

// shortenPath drops leading path elements until p fits in width runes,
// marking the cut with "...". The final element is kept whole even when it
// alone exceeds width.
func shortenPath(p string, width int) string {
	if utf8.RuneCountInString(p) <= width {
		return p
	}
	parts := strings.Split(p, "/")
	last := parts[len(parts)-1]
	kept := []string{last}
	used := utf8.RuneCountInString(".../" + last)
	for i := len(parts) - 2; i >= 0; i-- {
		n := utf8.RuneCountInString(parts[i]) + 1
		if used+n > width {
			break
		}
		kept = append([]string{parts[i]}, kept...)
		used += n
	}
	return ".../" + strings.Join(kept, "/")
}
