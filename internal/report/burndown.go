/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */

package report

import (
	"strings"
	"time"

	"github.com/hidetak/trello-csv/internal/burndown"
)

const burndownDateLayout = "2006-01-02 15:04"

// IssueCountCSV renders the burndown series counting cards.
func IssueCountCSV(s *burndown.Series, loc *time.Location) string {
	return burndownCSV(s, loc, "issues", func(snap burndown.Snapshot) (string, string, func(string) string) {
		return qi(snap.AllCards), qi(snap.DoneCards), func(g string) string {
			if n, ok := snap.RemainCards[g]; ok { return qi(n) }
			return q("0")
		}
	})
}

// PointCountCSV renders the burndown series summing points.
func PointCountCSV(s *burndown.Series, loc *time.Location) string {
	return burndownCSV(s, loc, "points", func(snap burndown.Snapshot) (string, string, func(string) string) {
		return qf(snap.AllPoints), qf(snap.DonePoints), func(g string) string {
			if p, ok := snap.RemainPoints[g]; ok { return qf(p) }
			return q("0")
		}
	})
}

func burndownCSV(s *burndown.Series, loc *time.Location, unit string, pick func(burndown.Snapshot) (string, string, func(string) string)) string {
	if loc == nil { loc = time.UTC }
	var b strings.Builder
	header := []string{q("datetime"), q("all " + unit), q("done " + unit), q("remaining " + unit)}
	for _, g := range s.GroupValues { header = append(header, q(g)) }
	row(&b, header...)
	for _, snap := range s.Snapshots {
		all, done, remain := pick(snap)
		cells := []string{q(snap.Time.In(loc).Format(burndownDateLayout)), all, done, remain("all")}
		for _, g := range s.GroupValues { cells = append(cells, remain(g)) }
		row(&b, cells...)
	}
	return b.String()
}
