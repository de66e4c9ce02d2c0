/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */

// Package trello is a thin client for the Trello REST API. It fetches
// boards, lists, cards and card action logs and decodes them into domain
// types; actions come back newest first, which is what the timeline
// reconstruction expects.
package trello

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hidetak/trello-csv/internal/config"
	"github.com/hidetak/trello-csv/internal/domain"
	"github.com/rs/zerolog"
)

const actionsPageLimit = 1000

type Client struct {
	baseURL string
	key     string
	token   string
	http    *http.Client
	log     zerolog.Logger
}

func NewClient(cfg config.Config, log zerolog.Logger) *Client {
	return &Client{
		baseURL: cfg.TrelloBaseURL,
		key:     cfg.TrelloKey,
		token:   cfg.TrelloToken,
		http:    &http.Client{Timeout: cfg.HTTPTimeout},
		log:     log,
	}
}

func (c *Client) apiURL(path string, q url.Values) string {
	base := strings.TrimRight(c.baseURL, "/")
	if !strings.HasPrefix(path, "/") { path = "/" + path }
	if q == nil { q = url.Values{} }
	q.Set("key", c.key)
	q.Set("token", c.token)
	return base + path + "?" + q.Encode()
}

func (c *Client) doJSON(ctx context.Context, u string, out any) error {
	if c.baseURL == "" { return errors.New("trello: empty baseURL") }
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil { return err }
		resp, err := c.http.Do(req)
		if err != nil { lastErr = err } else {
			b, rerr := io.ReadAll(resp.Body)
			resp.Body.Close()
			if rerr != nil { lastErr = rerr } else if resp.StatusCode >= 300 {
				apiErr := fmt.Errorf("trello api status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(b)))
				// retry on 429/5xx
				if resp.StatusCode == 429 || resp.StatusCode >= 500 { lastErr = apiErr } else { return apiErr }
			} else {
				return json.Unmarshal(b, out)
			}
		}
		// backoff
		time.Sleep(time.Duration(300*(1<<attempt)) * time.Millisecond)
	}
	return lastErr
}

// ---- wire types ----

type wireBoard struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Memberships []struct {
		IDMember string `json:"idMember"`
	} `json:"memberships"`
}

type wireMember struct {
	ID       string `json:"id"`
	FullName string `json:"fullName"`
	Username string `json:"username"`
}

type wireList struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type wireCard struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Desc      string   `json:"desc"`
	IDMembers []string `json:"idMembers"`
	Labels    []struct {
		Name  string `json:"name"`
		Color string `json:"color"`
	} `json:"labels"`
}

type wireAction struct {
	ID   string `json:"id"`
	Date string `json:"date"`
	Data struct {
		Text       string          `json:"text"`
		List       *domain.ListRef `json:"list"`
		ListBefore *domain.ListRef `json:"listBefore"`
		ListAfter  *domain.ListRef `json:"listAfter"`
	} `json:"data"`
	MemberCreator struct {
		FullName string `json:"fullName"`
	} `json:"memberCreator"`
}

// MemberBoards lists the boards the configured user belongs to.
func (c *Client) MemberBoards(ctx context.Context, username string) ([]domain.Board, error) {
	if username == "" { return nil, errors.New("trello: empty username") }
	var raw []wireBoard
	u := c.apiURL("/members/"+url.PathEscape(username)+"/boards", nil)
	if err := c.doJSON(ctx, u, &raw); err != nil { return nil, err }
	out := make([]domain.Board, 0, len(raw))
	for _, b := range raw {
		ids := make([]string, 0, len(b.Memberships))
		for _, m := range b.Memberships { ids = append(ids, m.IDMember) }
		out = append(out, domain.Board{ID: b.ID, Name: b.Name, MemberIDs: ids})
	}
	return out, nil
}

// Member fetches one member by id.
func (c *Client) Member(ctx context.Context, id string) (domain.Member, error) {
	if id == "" { return domain.Member{}, errors.New("trello: empty member id") }
	var raw wireMember
	u := c.apiURL("/members/"+url.PathEscape(id), nil)
	if err := c.doJSON(ctx, u, &raw); err != nil { return domain.Member{}, err }
	return domain.Member{ID: raw.ID, FullName: raw.FullName, Username: raw.Username}, nil
}

// BoardLists lists the open lists on a board.
func (c *Client) BoardLists(ctx context.Context, boardID string) ([]domain.List, error) {
	if boardID == "" { return nil, errors.New("trello: empty board id") }
	var raw []wireList
	u := c.apiURL("/boards/"+url.PathEscape(boardID)+"/lists", nil)
	if err := c.doJSON(ctx, u, &raw); err != nil { return nil, err }
	out := make([]domain.List, 0, len(raw))
	for _, l := range raw { out = append(out, domain.List{ID: l.ID, Name: l.Name}) }
	return out, nil
}

// ListCards lists the cards in a list.
func (c *Client) ListCards(ctx context.Context, listID string) ([]domain.Card, error) {
	if listID == "" { return nil, errors.New("trello: empty list id") }
	var raw []wireCard
	u := c.apiURL("/lists/"+url.PathEscape(listID)+"/cards", nil)
	if err := c.doJSON(ctx, u, &raw); err != nil { return nil, err }
	out := make([]domain.Card, 0, len(raw))
	for _, cd := range raw {
		labels := make([]domain.Label, 0, len(cd.Labels))
		for _, l := range cd.Labels { labels = append(labels, domain.Label{Name: l.Name, Color: l.Color}) }
		out = append(out, domain.Card{ID: cd.ID, Name: cd.Name, Desc: cd.Desc, IDMembers: cd.IDMembers, Labels: labels})
	}
	return out, nil
}

// CardActions fetches a card's move and comment actions, newest first.
// An action whose timestamp does not parse fails the whole card so the
// caller can decide whether to drop it.
func (c *Client) CardActions(ctx context.Context, cardID string) ([]domain.Action, error) {
	if cardID == "" { return nil, errors.New("trello: empty card id") }
	q := url.Values{}
	q.Set("filter", "updateCard:idList,commentCard,createCard")
	q.Set("limit", fmt.Sprint(actionsPageLimit))
	var raw []wireAction
	u := c.apiURL("/cards/"+url.PathEscape(cardID)+"/actions", q)
	if err := c.doJSON(ctx, u, &raw); err != nil { return nil, err }
	out := make([]domain.Action, 0, len(raw))
	for _, a := range raw {
		at, err := time.Parse(time.RFC3339, a.Date)
		if err != nil {
			return nil, fmt.Errorf("trello: card %s action %s: bad date %q: %w", cardID, a.ID, a.Date, err)
		}
		out = append(out, domain.Action{
			Date:       at,
			Text:       a.Data.Text,
			List:       a.Data.List,
			ListBefore: a.Data.ListBefore,
			ListAfter:  a.Data.ListAfter,
			Creator:    a.MemberCreator.FullName,
		})
	}
	return out, nil
}
