/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package burndown

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hidetak/trello-csv/internal/domain"
)

func d(s string) time.Time {
	t, err := time.Parse("2006/01/02 15:04", s)
	if err != nil { panic(err) }
	return t
}

func boardRecords() []domain.Record {
	return []domain.Record{
		{CardID: "c1", Point: 5, ListName: "Doing", InDate: d("2024/02/28 00:00"), OutDate: d("2024/03/02 12:00")},
		{CardID: "c1", Point: 5, ListName: "Done", InDate: d("2024/03/02 12:00"), OutDate: d("2024/03/04 00:00")},
		{CardID: "c2", Point: 2, ListName: "Icebox", InDate: d("2024/02/28 00:00"), OutDate: d("2024/03/04 00:00")},
		{CardID: "c3", Point: 3, ListName: "Doing", InDate: d("2024/03/01 12:00"), OutDate: d("2024/03/04 00:00")},
	}
}

func TestComputeGrid(t *testing.T) {
	series, err := Compute(boardRecords(), "listName", Config{
		Start:       d("2024/03/01 00:00"),
		Interval:    24 * time.Hour,
		Now:         d("2024/03/03 00:00"),
		ExceptLists: []string{"Icebox"},
		DoneLists:   []string{"Done"},
	})
	require.NoError(t, err)
	require.Len(t, series.Snapshots, 3)

	s0 := series.Snapshots[0]
	assert.Equal(t, d("2024/03/01 00:00"), s0.Time)
	assert.Equal(t, 1, s0.AllCards)
	assert.Equal(t, 5.0, s0.AllPoints)
	assert.Equal(t, 0, s0.DoneCards)
	assert.Equal(t, 1, s0.RemainCards["all"])
	assert.Equal(t, 1, s0.RemainCards["Doing"])

	s1 := series.Snapshots[1]
	assert.Equal(t, 2, s1.AllCards)
	assert.Equal(t, 8.0, s1.AllPoints)
	assert.Equal(t, 2, s1.RemainCards["all"])

	s2 := series.Snapshots[2]
	assert.Equal(t, d("2024/03/03 00:00"), s2.Time)
	assert.Equal(t, 2, s2.AllCards)
	assert.Equal(t, 1, s2.DoneCards)
	assert.Equal(t, 5.0, s2.DonePoints)
	assert.Equal(t, 1, s2.RemainCards["all"])
	assert.Equal(t, 3.0, s2.RemainPoints["all"])

	// the excluded list never shows up, and done cards leave the buckets
	assert.Equal(t, []string{"Doing"}, series.GroupValues)
}

func TestComputeClampsToNow(t *testing.T) {
	now := d("2024/03/01 00:00").Add(47 * time.Hour)
	series, err := Compute(nil, "", Config{
		Start:    d("2024/03/01 00:00"),
		Interval: 24 * time.Hour,
		Now:      now,
	})
	require.NoError(t, err)
	require.Len(t, series.Snapshots, 3)
	assert.Equal(t, d("2024/03/01 00:00"), series.Snapshots[0].Time)
	assert.Equal(t, d("2024/03/02 00:00"), series.Snapshots[1].Time)
	assert.Equal(t, now, series.Snapshots[2].Time, "last grid point clamps to now")
}

func TestComputeDedupsCards(t *testing.T) {
	records := []domain.Record{
		{CardID: "c1", Point: 5, ListName: "Doing", InDate: d("2024/02/28 00:00"), OutDate: d("2024/03/05 00:00")},
		{CardID: "c1", Point: 5, ListName: "Review", InDate: d("2024/02/29 00:00"), OutDate: d("2024/03/05 00:00")},
	}
	series, err := Compute(records, "", Config{
		Start:    d("2024/03/01 00:00"),
		Interval: 24 * time.Hour,
		Now:      d("2024/03/01 00:00"),
	})
	require.NoError(t, err)
	require.Len(t, series.Snapshots, 1)
	assert.Equal(t, 1, series.Snapshots[0].AllCards, "overlapping records count the card once")
	assert.Equal(t, 5.0, series.Snapshots[0].AllPoints)
}

func TestComputeUnknownGroupField(t *testing.T) {
	_, err := Compute(nil, "bogus", Config{Start: d("2024/03/01 00:00"), Interval: time.Hour, Now: d("2024/03/01 01:00")})
	assert.ErrorContains(t, err, "unknown group field")
}
