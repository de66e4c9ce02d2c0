package timeline

import (
	"time"

	"github.com/hidetak/trello-csv/internal/domain"
)

// Dataset is the flat record table every report pass reads, plus the
// read-only card-to-current-list index the group engine needs for its done
// check. It is rebuilt wholesale on every refresh, never patched.
type Dataset struct {
	Records     []domain.Record
	CurrentList map[string]string
	BuiltAt     time.Time
}

// BuildDataset resolves every card's metadata once, reconstructs its
// timeline, and concatenates the results. Cards with empty action logs
// contribute nothing; that is normal, not an error.
func BuildDataset(cards []domain.Card, actions map[string][]domain.Action, members map[string]domain.Member, now time.Time) *Dataset {
	ds := &Dataset{CurrentList: map[string]string{}, BuiltAt: now}
	for _, c := range cards {
		meta := NewCardMeta(c, members)
		recs, current := Reconstruct(meta, actions[c.ID], now)
		ds.Records = append(ds.Records, recs...)
		if current != "" { ds.CurrentList[c.ID] = current }
	}
	return ds
}
