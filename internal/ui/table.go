package ui

import (
	"io"
	"strings"
	"unicode/utf8"
)

type Align int

const (
	AlignLeft Align = iota
	AlignRight
)

type TruncateMode int

const (
	TruncateNone   TruncateMode = iota
	TruncateEnd                 // "assemble-fi…"
	TruncateMiddle              // "/home/u…/entrypoint"
	TruncateStart               // "…/entrypoint"
)

const ellipsis = "…"

// Column configures one column of a Table.
type Column struct {
	Header   string
	Align    Align
	MaxWidth int // 0 = unlimited
	Truncate TruncateMode
}

// Table renders rows as space-aligned plain text columns. Widths count
// runes, not terminal cells.
type Table struct {
	columns []Column
	rows    [][]string

	// Indent is written before every line.
	Indent        string
	Padding       int
	ShowHeader    bool
	ShowSeparator bool
}

func NewTable(columns ...Column) *Table {
	for i := range columns {
		if columns[i].MaxWidth > 0 && columns[i].Truncate == TruncateNone {
			columns[i].Truncate = TruncateEnd
		}
	}
	return &Table{
		columns:    columns,
		Padding:    2,
		ShowHeader: true,
	}
}

// AddRow appends a row. Missing cells are blank, extra cells are dropped.
func (t *Table) AddRow(cells ...string) {
	row := make([]string, len(t.columns))
	for i := range row {
		if i < len(cells) {
			row[i] = t.columns[i].truncate(cells[i])
		}
	}
	t.rows = append(t.rows, row)
}

func (t *Table) Len() int {
	return len(t.rows)
}

func (t *Table) Render(w io.Writer) error {
	if len(t.columns) == 0 {
		return nil
	}

	widths := t.widths()
	if t.ShowHeader {
		headers := make([]string, len(t.columns))
		for i, c := range t.columns {
			headers[i] = c.truncate(c.Header)
		}
		if err := t.writeLine(w, headers, widths); err != nil {
			return err
		}
		if t.ShowSeparator {
			dashes := make([]string, len(widths))
			for i, n := range widths {
				dashes[i] = strings.Repeat("-", n)
			}
			if err := t.writeLine(w, dashes, widths); err != nil {
				return err
			}
		}
	}

	for _, row := range t.rows {
		if err := t.writeLine(w, row, widths); err != nil {
			return err
		}
	}
	return nil
}

func (t *Table) widths() []int {
	widths := make([]int, len(t.columns))
	if t.ShowHeader {
		for i, c := range t.columns {
			widths[i] = runeLen(c.truncate(c.Header))
		}
	}
	for _, row := range t.rows {
		for i, cell := range row {
			widths[i] = max(widths[i], runeLen(cell))
		}
	}
	return widths
}

// writeLine pads every cell but the last, so lines carry no trailing blanks.
func (t *Table) writeLine(w io.Writer, cells []string, widths []int) error {
	var sb strings.Builder
	sb.WriteString(t.Indent)
	last := len(cells) - 1
	for i, cell := range cells {
		if i == last && t.columns[i].Align == AlignLeft {
			sb.WriteString(cell)
			break
		}
		sb.WriteString(align(cell, widths[i], t.columns[i].Align))
		if i != last {
			sb.WriteString(strings.Repeat(" ", t.Padding))
		}
	}
	sb.WriteByte('\n')
	_, err := io.WriteString(w, sb.String())
	return err
}

func (c Column) truncate(s string) string {
	if c.MaxWidth <= 0 || c.Truncate == TruncateNone || runeLen(s) <= c.MaxWidth {
		return s
	}

	ell := runeLen(ellipsis)
	if c.MaxWidth <= ell {
		return takeRunes(s, c.MaxWidth)
	}
	avail := c.MaxWidth - ell

	switch c.Truncate {
	case TruncateStart:
		return ellipsis + takeRunesFromEnd(s, avail)
	case TruncateMiddle:
		left := avail / 2
		return takeRunes(s, left) + ellipsis + takeRunesFromEnd(s, avail-left)
	default:
		return takeRunes(s, avail) + ellipsis
	}
}

func align(s string, width int, a Align) string {
	n := runeLen(s)
	if n >= width {
		return s
	}
	pad := strings.Repeat(" ", width-n)
	if a == AlignRight {
		return pad + s
	}
	return s + pad
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

func takeRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

func takeRunesFromEnd(s string, n int) string {
	if n <= 0 {
		return ""
	}
	skip := runeLen(s) - n
	if skip <= 0 {
		return s
	}
	i := 0
	for pos := range s {
		if i == skip {
			return s[pos:]
		}
		i++
	}
	return s
}
