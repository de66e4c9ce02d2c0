/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */

package query

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/hidetak/trello-csv/internal/domain"
)

// GroupKey renders the value of one record field as a grouping key.
func GroupKey(r domain.Record, field string, loc *time.Location) (string, error) {
	if !ValidField(field) { return "", fmt.Errorf("unknown field %q", field) }
	v := fieldValue(r, field)
	switch v.kind {
	case kindStr:
		return v.str, nil
	case kindNum:
		return strconv.FormatFloat(v.num, 'f', -1, 64), nil
	default:
		if loc == nil { loc = time.UTC }
		return v.t.In(loc).Format("2006/01/02 15:04:05"), nil
	}
}

// GroupTotals accumulates one group column of the statistics report.
type GroupTotals struct {
	Point  float64
	Result float64
	Review float64
	Total  float64

	// Done reports whether every card contributing to the group currently
	// sits in one of the done lists.
	Done bool

	cards     map[string]bool
	doneCards int
}

// GroupReport is the aggregate over a record set, keyed by one field.
type GroupReport struct {
	GroupBy string
	Groups  map[string]*GroupTotals
	Keys    []string

	TotalPoint  float64
	TotalResult float64
	TotalReview float64
	TotalTime   float64
}

// Aggregate sums points and annotated hours per group value. A card's point
// counts once per group it appears in, and once in the grand total, no matter
// how many intervals it produced. A group is marked done when every one of
// its cards currently sits in a done list. An empty groupBy skips grouping
// and yields only the grand totals.
func Aggregate(records []domain.Record, groupBy string, currentList map[string]string, doneLists []string, loc *time.Location) (*GroupReport, error) {
	if groupBy != "" && !ValidField(groupBy) { return nil, fmt.Errorf("unknown group field %q", groupBy) }
	done := make(map[string]bool, len(doneLists))
	for _, l := range doneLists { done[l] = true }

	rep := &GroupReport{GroupBy: groupBy, Groups: map[string]*GroupTotals{}}
	cardPoint := map[string]float64{}
	for _, r := range records {
		if groupBy != "" {
			key, err := GroupKey(r, groupBy, loc)
			if err != nil { return nil, err }
			g := rep.Groups[key]
			if g == nil {
				g = &GroupTotals{cards: map[string]bool{}}
				rep.Groups[key] = g
			}
			if !g.cards[r.CardID] {
				g.cards[r.CardID] = true
				g.Point += r.Point
				if done[currentList[r.CardID]] { g.doneCards++ }
			}
			g.Result += r.ResultTime
			g.Review += r.ReviewTime
			g.Total += r.Time()
		}

		cardPoint[r.CardID] = r.Point
		rep.TotalResult += r.ResultTime
		rep.TotalReview += r.ReviewTime
		rep.TotalTime += r.Time()
	}

	for _, p := range cardPoint { rep.TotalPoint += p }
	rep.Keys = make([]string, 0, len(rep.Groups))
	for k, g := range rep.Groups {
		rep.Keys = append(rep.Keys, k)
		g.Done = len(g.cards) > 0 && g.doneCards == len(g.cards)
	}
	sort.Strings(rep.Keys)
	return rep, nil
}
