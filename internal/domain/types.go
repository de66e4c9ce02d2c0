package domain

import "time"

// ListRef identifies a board list referenced by an action payload.
type ListRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Label struct {
	Color string `json:"color"`
	Name  string `json:"name"`
}

type Board struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	MemberIDs []string `json:"memberIds"`
}

type List struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Card struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Desc      string   `json:"desc"`
	IDMembers []string `json:"idMembers"`
	Labels    []Label  `json:"labels"`
}

type Member struct {
	ID       string `json:"id"`
	FullName string `json:"fullName"`
	Username string `json:"username"`
}

// Action is one entry from a card's activity log: either a move between
// lists (List/ListBefore/ListAfter references) or a comment (Text set).
// Trello delivers action logs newest-first.
type Action struct {
	Date       time.Time `json:"date"`
	List       *ListRef  `json:"list,omitempty"`
	ListBefore *ListRef  `json:"listBefore,omitempty"`
	ListAfter  *ListRef  `json:"listAfter,omitempty"`
	Text       string    `json:"text,omitempty"`
	Creator    string    `json:"creator,omitempty"`
}

// Record is the unit every report consumes: one reconstructed span of list
// occupancy, or a comment-derived effort entry (InDate == OutDate). Comment
// records carry Point 0; move records carry ResultTime and ReviewTime 0.
type Record struct {
	CardID     string    `json:"cardId"`
	Number     string    `json:"number"`
	Title      string    `json:"title"`
	Point      float64   `json:"point"`
	ListName   string    `json:"listName"`
	InDate     time.Time `json:"inDate"`
	OutDate    time.Time `json:"outDate"`
	ResultTime float64   `json:"resultTime"`
	ReviewTime float64   `json:"reviewTime"`
	LabelPink  string    `json:"labelPink"`
	LabelGreen string    `json:"labelGreen"`
	Member     string    `json:"member"`
}

// Time reports the record's total logged effort in hours.
func (r Record) Time() float64 { return r.ResultTime + r.ReviewTime }
