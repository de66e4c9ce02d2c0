/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */

package report

import (
	"strconv"
	"strings"

	"github.com/hidetak/trello-csv/internal/query"
)

// GroupCSV renders a group aggregate, one row per group value in sorted
// order. The done column appears only when asked for, so plain reports
// stay compatible with older sheets.
func GroupCSV(rep *query.GroupReport, withDone bool) string {
	var b strings.Builder
	header := []string{q(rep.GroupBy), q("totalPoint"), q("totalTime"), q("totalResult"), q("totalReview")}
	if withDone { header = append(header, q("done")) }
	row(&b, header...)
	for _, key := range rep.Keys {
		g := rep.Groups[key]
		cells := []string{q(key), qf(g.Point), qf(g.Total), qf(g.Result), qf(g.Review)}
		if withDone { cells = append(cells, q(strconv.FormatBool(g.Done))) }
		row(&b, cells...)
	}
	return b.String()
}

// GroupTotalsCSV renders the grand total lines printed after a group table.
func GroupTotalsCSV(rep *query.GroupReport) string {
	var b strings.Builder
	row(&b, q("totalPoint"), qf(rep.TotalPoint))
	row(&b, q("totalTime"), qf(rep.TotalTime))
	row(&b, q("totalResult"), qf(rep.TotalResult))
	row(&b, q("totalReview"), qf(rep.TotalReview))
	return b.String()
}
