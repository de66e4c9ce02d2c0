/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package timeline

import (
	"testing"
	"time"

	"github.com/hidetak/trello-csv/internal/domain"
)

func TestParseCardName(t *testing.T) {
	cases := []struct {
		name   string
		number string
		title  string
	}{
		{"#12 Fix login", "12", "Fix login"},
		{"#3:Add search", "3", "Add search"},
		{"no convention here", "-", "no convention here"},
		{"#x broken number", "-", "#x broken number"},
	}
	for _, c := range cases {
		number, title := ParseCardName(c.name)
		if number != c.number || title != c.title {
			t.Errorf("ParseCardName(%q) = (%q, %q), want (%q, %q)", c.name, number, title, c.number, c.title)
		}
	}
}

func TestResolveLabels(t *testing.T) {
	pink, green := ResolveLabels(nil)
	if pink != "-" || green != "-" {
		t.Fatalf("no labels: got (%q, %q)", pink, green)
	}
	pink, green = ResolveLabels([]domain.Label{
		{Color: "pink", Name: "urgent"},
		{Color: "lime", Name: "spike"},
		{Color: "green", Name: "feature"},
	})
	if pink != "urgent" { t.Errorf("pink = %q", pink) }
	if green != "feature" { t.Errorf("green should win over lime, got %q", green) }
	_, green = ResolveLabels([]domain.Label{{Color: "lime", Name: "spike"}})
	if green != "spike" { t.Errorf("lime fallback, got %q", green) }
}

func date(s string) time.Time {
	d, err := time.Parse(time.RFC3339, s)
	if err != nil { panic(err) }
	return d
}

func TestReconstructEmpty(t *testing.T) {
	meta := CardMeta{ID: "c1"}
	records, current := Reconstruct(meta, nil, time.Now())
	if len(records) != 0 { t.Fatalf("want no records, got %d", len(records)) }
	if current != "" { t.Fatalf("want no current list, got %q", current) }
}

func TestReconstructSingleCreate(t *testing.T) {
	now := date("2024-03-10T12:00:00Z")
	t0 := date("2024-03-01T09:00:00Z")
	meta := CardMeta{ID: "c1", Point: 5}
	actions := []domain.Action{
		{Date: t0, List: &domain.ListRef{Name: "ToDo"}},
	}
	records, current := Reconstruct(meta, actions, now)
	if len(records) != 1 { t.Fatalf("want 1 record, got %d", len(records)) }
	r := records[0]
	if r.ListName != "ToDo" || !r.InDate.Equal(t0) || !r.OutDate.Equal(now) {
		t.Errorf("open interval wrong: %+v", r)
	}
	if r.Point != 5 { t.Errorf("point = %v", r.Point) }
	if current != "ToDo" { t.Errorf("current = %q", current) }
}

func TestReconstructMove(t *testing.T) {
	now := date("2024-03-10T12:00:00Z")
	t0 := date("2024-03-01T09:00:00Z")
	t1 := date("2024-03-03T15:00:00Z")
	meta := CardMeta{ID: "c1"}
	// newest first, as the activity log delivers them
	actions := []domain.Action{
		{Date: t1, ListBefore: &domain.ListRef{Name: "Doing"}, ListAfter: &domain.ListRef{Name: "Done"}},
		{Date: t0, List: &domain.ListRef{Name: "Doing"}},
	}
	records, current := Reconstruct(meta, actions, now)
	if len(records) != 2 { t.Fatalf("want 2 records, got %d", len(records)) }
	if records[0].ListName != "Doing" || !records[0].InDate.Equal(t0) || !records[0].OutDate.Equal(t1) {
		t.Errorf("closed interval wrong: %+v", records[0])
	}
	if records[1].ListName != "Done" || !records[1].InDate.Equal(t1) || !records[1].OutDate.Equal(now) {
		t.Errorf("trailing interval wrong: %+v", records[1])
	}
	if current != "Done" { t.Errorf("current = %q", current) }
}

func TestReconstructComment(t *testing.T) {
	now := date("2024-03-10T12:00:00Z")
	t0 := date("2024-03-01T09:00:00Z")
	t1 := date("2024-03-02T10:00:00Z")
	meta := CardMeta{ID: "c1", Point: 8, Member: "owner"}
	actions := []domain.Action{
		{Date: t1, Text: "fixed the parser Result: 2 Review: 1", List: &domain.ListRef{Name: "Doing"}, Creator: "alice"},
		{Date: t0, List: &domain.ListRef{Name: "Doing"}},
	}
	records, current := Reconstruct(meta, actions, now)
	if len(records) != 2 { t.Fatalf("want 2 records, got %d", len(records)) }
	// comment record comes out first on the reverse walk
	c := records[0]
	if c.Point != 0 { t.Errorf("comment record point = %v, want 0", c.Point) }
	if c.ResultTime != 2 || c.ReviewTime != 1 { t.Errorf("annotations = %v/%v", c.ResultTime, c.ReviewTime) }
	if c.Member != "alice" { t.Errorf("comment member = %q", c.Member) }
	if !c.InDate.Equal(t1) || !c.OutDate.Equal(t1) { t.Errorf("comment dates: %+v", c) }
	// the open interval is untouched by the comment
	if records[1].ListName != "Doing" || !records[1].OutDate.Equal(now) {
		t.Errorf("interval record: %+v", records[1])
	}
	if current != "Doing" { t.Errorf("current = %q", current) }
}

func TestBuildDataset(t *testing.T) {
	now := date("2024-03-10T12:00:00Z")
	cards := []domain.Card{
		{ID: "c1", Name: "#1 First", Desc: "Point: 3", IDMembers: []string{"m1"}},
		{ID: "c2", Name: "#2 Second"},
	}
	actions := map[string][]domain.Action{
		"c1": {
			{Date: date("2024-03-02T00:00:00Z"), ListBefore: &domain.ListRef{Name: "Doing"}, ListAfter: &domain.ListRef{Name: "Done"}},
			{Date: date("2024-03-01T00:00:00Z"), List: &domain.ListRef{Name: "Doing"}},
		},
	}
	members := map[string]domain.Member{"m1": {ID: "m1", FullName: "Alice"}}
	ds := BuildDataset(cards, actions, members, now)
	if len(ds.Records) != 2 { t.Fatalf("want 2 records, got %d", len(ds.Records)) }
	if ds.CurrentList["c1"] != "Done" { t.Errorf("current list = %q", ds.CurrentList["c1"]) }
	if _, ok := ds.CurrentList["c2"]; ok { t.Errorf("card without actions should have no current list") }
	if ds.Records[0].Member != "Alice" { t.Errorf("member = %q", ds.Records[0].Member) }
	if ds.Records[0].Point != 3 { t.Errorf("point = %v", ds.Records[0].Point) }
	if ds.Records[0].Number != "1" || ds.Records[0].Title != "First" {
		t.Errorf("card name parse: %+v", ds.Records[0])
	}
}
