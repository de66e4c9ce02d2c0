/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */

package report

import (
	"strings"
	"time"

	"github.com/hidetak/trello-csv/internal/domain"
	"github.com/hidetak/trello-csv/internal/query"
)

const recordDateLayout = "2006/01/02 15:04:05"

// RecordsCSV renders the interval record list, dates in loc.
func RecordsCSV(records []domain.Record, loc *time.Location) string {
	if loc == nil { loc = time.UTC }
	var b strings.Builder
	header := make([]string, 0, len(query.Fields))
	for _, f := range query.Fields { header = append(header, q(f)) }
	row(&b, header...)
	for _, r := range records {
		row(&b,
			q(r.CardID),
			q(r.Number),
			q(r.Title),
			qf(r.Point),
			q(r.ListName),
			q(r.InDate.In(loc).Format(recordDateLayout)),
			q(r.OutDate.In(loc).Format(recordDateLayout)),
			qf(r.ResultTime),
			qf(r.ReviewTime),
			q(r.LabelPink),
			q(r.LabelGreen),
			q(r.Member),
		)
	}
	return b.String()
}

// TotalsCSV renders the grand total lines printed after a record list.
// Points count once per card; annotated hours sum over every record.
func TotalsCSV(records []domain.Record) string {
	cardPoint := map[string]float64{}
	var result, review float64
	for _, r := range records {
		cardPoint[r.CardID] = r.Point
		result += r.ResultTime
		review += r.ReviewTime
	}
	var point float64
	for _, p := range cardPoint { point += p }
	var b strings.Builder
	row(&b, q("totalPoint"), qf(point))
	row(&b, q("totalTime"), qf(result+review))
	row(&b, q("totalResult"), qf(result))
	row(&b, q("totalReview"), qf(review))
	return b.String()
}
