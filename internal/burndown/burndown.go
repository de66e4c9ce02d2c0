/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */

// Package burndown turns interval records into a time-gridded series of
// board snapshots suitable for burndown charts.
package burndown

import (
	"fmt"
	"sort"
	"time"

	"github.com/hidetak/trello-csv/internal/domain"
	"github.com/hidetak/trello-csv/internal/query"
)

// Config controls the snapshot grid and which lists count where.
type Config struct {
	Start       time.Time
	Interval    time.Duration
	Now         time.Time
	ExceptLists []string
	DoneLists   []string
}

// Snapshot is the state of the board at one grid point. Remaining work is
// bucketed under "all" and, when grouping, under each group value.
type Snapshot struct {
	Time         time.Time
	AllCards     int
	AllPoints    float64
	DoneCards    int
	DonePoints   float64
	RemainCards  map[string]int
	RemainPoints map[string]float64
}

// Series is the full snapshot grid plus the distinct group values seen
// anywhere in it, sorted, so report columns stay stable across rows.
type Series struct {
	Snapshots   []Snapshot
	GroupValues []string
}

// Compute walks the grid from cfg.Start in cfg.Interval steps, clamping the
// final point to exactly cfg.Now. At each point a card counts once, through
// the interval covering that instant; cards sitting in an excluded list are
// skipped and cards in a done list are split out of the remaining buckets.
func Compute(records []domain.Record, groupBy string, cfg Config) (*Series, error) {
	if groupBy != "" && !query.ValidField(groupBy) {
		return nil, fmt.Errorf("unknown group field %q", groupBy)
	}
	if cfg.Interval <= 0 { cfg.Interval = 24 * time.Hour }
	except := make(map[string]bool, len(cfg.ExceptLists))
	for _, l := range cfg.ExceptLists { except[l] = true }
	done := make(map[string]bool, len(cfg.DoneLists))
	for _, l := range cfg.DoneLists { done[l] = true }

	series := &Series{}
	groups := map[string]bool{}
	loc := cfg.Now.Location()

	for t := cfg.Start; ; t = t.Add(cfg.Interval) {
		if t.After(cfg.Now) { t = cfg.Now }
		snap := Snapshot{
			Time:         t,
			RemainCards:  map[string]int{},
			RemainPoints: map[string]float64{},
		}
		counted := map[string]bool{}
		for _, r := range records {
			if except[r.ListName] { continue }
			if !r.InDate.Before(t) || !t.Before(r.OutDate) { continue }
			if counted[r.CardID] { continue }
			counted[r.CardID] = true
			snap.AllCards++
			snap.AllPoints += r.Point
			if done[r.ListName] {
				snap.DoneCards++
				snap.DonePoints += r.Point
				continue
			}
			snap.RemainCards["all"]++
			snap.RemainPoints["all"] += r.Point
			if groupBy != "" {
				key, err := query.GroupKey(r, groupBy, loc)
				if err != nil { return nil, err }
				groups[key] = true
				snap.RemainCards[key]++
				snap.RemainPoints[key] += r.Point
			}
		}
		series.Snapshots = append(series.Snapshots, snap)
		if !t.Before(cfg.Now) { break }
	}

	series.GroupValues = make([]string, 0, len(groups))
	for k := range groups { series.GroupValues = append(series.GroupValues, k) }
	sort.Strings(series.GroupValues)
	return series, nil
}
