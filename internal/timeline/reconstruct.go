/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package timeline

import (
	"regexp"
	"strings"
	"time"

	"github.com/hidetak/trello-csv/internal/domain"
)

var cardNameRe = regexp.MustCompile(`^#([0-9]+)[ |:](.+)`)

// CardMeta carries the per-card fields shared by every record the
// reconstructor emits for that card.
type CardMeta struct {
	ID         string
	Number     string
	Title      string
	Point      float64
	LabelPink  string
	LabelGreen string
	Member     string
}

// ParseCardName splits names like "#12 Fix login" or "#12:Fix login" into
// sequence number and title. Names without the convention keep "-" as the
// number and the raw name as the title.
func ParseCardName(name string) (number, title string) {
	m := cardNameRe.FindStringSubmatch(name)
	if m == nil { return "-", name }
	return strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
}

// ResolveLabels picks the pink and green label texts off a card. A "lime"
// label stands in for green, but green wins when both are present.
func ResolveLabels(labels []domain.Label) (pink, green string) {
	pink, green = "-", "-"
	lime := ""
	for _, l := range labels {
		switch l.Color {
		case "pink":
			pink = l.Name
		case "green":
			green = l.Name
		case "lime":
			lime = l.Name
		}
	}
	if green == "-" && lime != "" { green = lime }
	return pink, green
}

// NewCardMeta resolves a card's derived fields once. Member ids with no
// matching member record degrade to the raw id.
func NewCardMeta(c domain.Card, members map[string]domain.Member) CardMeta {
	number, title := ParseCardName(c.Name)
	pink, green := ResolveLabels(c.Labels)
	var names []string
	for _, id := range c.IDMembers {
		if m, ok := members[id]; ok && m.FullName != "" {
			names = append(names, m.FullName)
		} else {
			names = append(names, id)
		}
	}
	member := "-"
	if len(names) > 0 { member = strings.Join(names, ",") }
	return CardMeta{
		ID:         c.ID,
		Number:     number,
		Title:      title,
		Point:      Annotation(c.Desc, "Point"),
		LabelPink:  pink,
		LabelGreen: green,
		Member:     member,
	}
}

func (m CardMeta) open(listName string, at time.Time) domain.Record {
	return domain.Record{
		CardID:     m.ID,
		Number:     m.Number,
		Title:      m.Title,
		Point:      m.Point,
		ListName:   listName,
		InDate:     at,
		LabelPink:  m.LabelPink,
		LabelGreen: m.LabelGreen,
		Member:     m.Member,
	}
}

func listNameOf(a domain.Action) string {
	if a.List != nil && a.List.Name != "" { return a.List.Name }
	return "-"
}

// Reconstruct rebuilds one card's ordered interval records from its action
// log. Actions arrive newest-first and are walked in reverse. Comment actions
// emit an immediate effort record without touching the open interval; move
// actions close on listBefore and open on listAfter; a trailing open interval
// is closed at now. The second return value is the list the card currently
// occupies ("" when the log never left an interval open).
func Reconstruct(meta CardMeta, actions []domain.Action, now time.Time) ([]domain.Record, string) {
	var out []domain.Record
	var cur *domain.Record
	for i := len(actions) - 1; i >= 0; i-- {
		a := actions[i]
		if a.Text != "" {
			r := meta.open(listNameOf(a), a.Date)
			r.Point = 0 // effort entries never carry the card estimate
			r.OutDate = a.Date
			r.ResultTime = Annotation(a.Text, "Result")
			r.ReviewTime = Annotation(a.Text, "Review")
			r.Member = a.Creator
			out = append(out, r)
			continue
		}
		if cur == nil {
			r := meta.open(listNameOf(a), a.Date)
			cur = &r
		}
		if a.ListBefore != nil {
			cur.ListName = a.ListBefore.Name
			cur.OutDate = a.Date
			out = append(out, *cur)
			cur = nil
		}
		if a.ListAfter != nil {
			r := meta.open(a.ListAfter.Name, a.Date)
			cur = &r
		}
	}
	if cur == nil { return out, "" }
	cur.OutDate = now
	out = append(out, *cur)
	return out, cur.ListName
}
