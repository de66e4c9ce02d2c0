// Package report renders datasets and aggregates as quoted CSV tables.
// Every cell is quoted, including numbers, so downstream spreadsheet
// imports never re-type a column.
package report

import (
	"strconv"
	"strings"
)

func q(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func qf(v float64) string {
	return q(strconv.FormatFloat(v, 'f', -1, 64))
}

func qi(v int) string {
	return q(strconv.Itoa(v))
}

func row(b *strings.Builder, cells ...string) {
	b.WriteString(strings.Join(cells, ","))
	b.WriteString("\n")
}
