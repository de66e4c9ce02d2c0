/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hidetak/trello-csv/internal/burndown"
	"github.com/hidetak/trello-csv/internal/config"
	"github.com/hidetak/trello-csv/internal/domain"
	"github.com/hidetak/trello-csv/internal/query"
	"github.com/hidetak/trello-csv/internal/repo"
	"github.com/hidetak/trello-csv/internal/report"
	"github.com/hidetak/trello-csv/internal/timeline"
	"github.com/rs/zerolog"
)

type TrelloClient interface {
	MemberBoards(ctx context.Context, username string) ([]domain.Board, error)
	Member(ctx context.Context, id string) (domain.Member, error)
	BoardLists(ctx context.Context, boardID string) ([]domain.List, error)
	ListCards(ctx context.Context, listID string) ([]domain.Card, error)
	CardActions(ctx context.Context, cardID string) ([]domain.Action, error)
}

type LLM interface {
	Summarize(ctx context.Context, kpis map[string]float64) (string, error)
}

type Notifier interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
	SendMessagePlain(ctx context.Context, chatID int64, text string) error
}

// SnapshotStore is the optional raw-payload cache; nil disables caching.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, boardID string, payload []byte) error
	LatestSnapshot(ctx context.Context, boardID string) ([]byte, time.Time, error)
	PruneSnapshots(ctx context.Context, boardID string, keep int) error
	StartJobRun(ctx context.Context, board string) (int64, error)
	FinishJobRun(ctx context.Context, id int64, cardsScanned, recordsBuilt int, success bool, errStr string) error
	GetLastRun(ctx context.Context) (*repo.LastRun, error)
}

// boardSnapshot is the raw fetched state of one board, exactly what the
// cache stores and the timeline rebuild consumes.
type boardSnapshot struct {
	Board   domain.Board               `json:"board"`
	Members map[string]domain.Member   `json:"members"`
	Cards   []domain.Card              `json:"cards"`
	Actions map[string][]domain.Action `json:"actions"`
}

type Service struct {
	cfg    config.Config
	log    zerolog.Logger
	repo   SnapshotStore
	trello TrelloClient
	llm    LLM
	tg     Notifier

	mu       sync.RWMutex
	datasets map[string]*timeline.Dataset
}

func New(cfg config.Config, log zerolog.Logger, store SnapshotStore, trello TrelloClient, llm LLM, tg Notifier) *Service {
	return &Service{cfg: cfg, log: log, repo: store, trello: trello, llm: llm, tg: tg, datasets: map[string]*timeline.Dataset{}}
}

// Boards lists the boards visible to the configured Trello user.
func (s *Service) Boards(ctx context.Context) ([]domain.Board, error) {
	return s.trello.MemberBoards(ctx, s.cfg.TrelloUsername)
}

// RefreshBoard refetches one board, caches the raw payload and rebuilds the
// in-memory dataset. Runs are tracked in job_runs when a store is wired.
func (s *Service) RefreshBoard(ctx context.Context, boardID string) error {
	var runID int64
	if s.repo != nil {
		id, err := s.repo.StartJobRun(ctx, boardID)
		if err != nil { s.log.Error().Err(err).Msg("start job run failed") } else { runID = id }
	}
	var cardsScanned, recordsBuilt int
	var runErr error
	defer func() {
		if runID != 0 {
			errStr := ""
			if runErr != nil { errStr = runErr.Error() }
			_ = s.repo.FinishJobRun(ctx, runID, cardsScanned, recordsBuilt, runErr == nil, errStr)
		}
	}()

	snap, err := s.fetchBoard(ctx, boardID)
	if err != nil { runErr = err; return err }
	cardsScanned = len(snap.Cards)

	if s.repo != nil {
		if payload, err := json.Marshal(snap); err == nil {
			if err := s.repo.SaveSnapshot(ctx, boardID, payload); err != nil {
				s.log.Error().Err(err).Str("board", boardID).Msg("snapshot save failed")
			}
			_ = s.repo.PruneSnapshots(ctx, boardID, 5)
		}
	}

	ds := timeline.BuildDataset(snap.Cards, snap.Actions, snap.Members, time.Now())
	recordsBuilt = len(ds.Records)
	s.mu.Lock()
	s.datasets[boardID] = ds
	s.mu.Unlock()
	s.log.Info().Str("board", boardID).Int("cards", cardsScanned).Int("records", recordsBuilt).Msg("board refreshed")
	return nil
}

// fetchBoard pulls lists, cards, members and per-card action logs. Card
// actions are fetched by a bounded worker pool; a card whose log cannot be
// fetched or parsed is dropped with an error log, not fatal for the board.
func (s *Service) fetchBoard(ctx context.Context, boardID string) (*boardSnapshot, error) {
	boards, err := s.trello.MemberBoards(ctx, s.cfg.TrelloUsername)
	if err != nil { return nil, err }
	var board domain.Board
	for _, b := range boards {
		if b.ID == boardID { board = b; break }
	}
	if board.ID == "" { return nil, fmt.Errorf("board %s not found for user %s", boardID, s.cfg.TrelloUsername) }

	lists, err := s.trello.BoardLists(ctx, boardID)
	if err != nil { return nil, err }
	var cards []domain.Card
	for _, l := range lists {
		cs, err := s.trello.ListCards(ctx, l.ID)
		if err != nil { return nil, err }
		cards = append(cards, cs...)
	}

	members := map[string]domain.Member{}
	for _, id := range board.MemberIDs {
		m, err := s.trello.Member(ctx, id)
		if err != nil {
			s.log.Error().Err(err).Str("member", id).Msg("member fetch failed")
			continue
		}
		members[m.ID] = m
	}

	type result struct {
		cardID  string
		actions []domain.Action
		err     error
	}
	jobs := make(chan string)
	results := make(chan result)
	workerCount := s.cfg.WorkersTrello
	if workerCount <= 0 { workerCount = 6 }
	var wg sync.WaitGroup
	for w := 0; w < workerCount; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range jobs {
				acts, err := s.trello.CardActions(ctx, id)
				results <- result{cardID: id, actions: acts, err: err}
			}
		}()
	}
	go func() {
		for _, c := range cards { jobs <- c.ID }
		close(jobs)
		wg.Wait()
		close(results)
	}()

	actions := map[string][]domain.Action{}
	failed := map[string]bool{}
	for r := range results {
		if r.err != nil {
			s.log.Error().Err(r.err).Str("card", r.cardID).Msg("card actions fetch failed, card dropped")
			failed[r.cardID] = true
			continue
		}
		actions[r.cardID] = r.actions
	}
	if len(failed) > 0 {
		kept := cards[:0]
		for _, c := range cards {
			if !failed[c.ID] { kept = append(kept, c) }
		}
		cards = kept
	}

	return &boardSnapshot{Board: board, Members: members, Cards: cards, Actions: actions}, nil
}

// ErrNoDataset is returned when reports are requested before any refresh
// and no cached snapshot exists.
var ErrNoDataset = errors.New("no dataset for board, refresh first")

// dataset returns the board's dataset, falling back to the cached snapshot.
func (s *Service) dataset(ctx context.Context, boardID string) (*timeline.Dataset, error) {
	s.mu.RLock()
	ds := s.datasets[boardID]
	s.mu.RUnlock()
	if ds != nil { return ds, nil }
	if s.repo == nil { return nil, ErrNoDataset }
	payload, _, err := s.repo.LatestSnapshot(ctx, boardID)
	if err != nil { return nil, err }
	if payload == nil { return nil, ErrNoDataset }
	var snap boardSnapshot
	if err := json.Unmarshal(payload, &snap); err != nil { return nil, err }
	ds = timeline.BuildDataset(snap.Cards, snap.Actions, snap.Members, time.Now())
	s.mu.Lock()
	s.datasets[boardID] = ds
	s.mu.Unlock()
	s.log.Info().Str("board", boardID).Int("records", len(ds.Records)).Msg("dataset rebuilt from cached snapshot")
	return ds, nil
}

func (s *Service) filtered(ctx context.Context, boardID, filter string) (*timeline.Dataset, []domain.Record, error) {
	ds, err := s.dataset(ctx, boardID)
	if err != nil { return nil, nil, err }
	if strings.TrimSpace(filter) == "" { filter = "all" }
	records, err := query.Filter(ds.Records, filter, s.cfg.ReportLocation())
	if err != nil { return nil, nil, err }
	return ds, records, nil
}

// RecordsReport renders the interval record list plus grand total lines.
func (s *Service) RecordsReport(ctx context.Context, boardID, filter string) (string, error) {
	_, records, err := s.filtered(ctx, boardID, filter)
	if err != nil { return "", err }
	loc := s.cfg.ReportLocation()
	return report.RecordsCSV(records, loc) + report.TotalsCSV(records), nil
}

// StatsReport renders the per-group aggregate table followed by grand total
// lines. An empty groupBy skips the table and emits only the totals.
func (s *Service) StatsReport(ctx context.Context, boardID, filter, groupBy string, withDone bool) (string, error) {
	ds, records, err := s.filtered(ctx, boardID, filter)
	if err != nil { return "", err }
	groupBy = strings.TrimSpace(groupBy)
	rep, err := query.Aggregate(records, groupBy, ds.CurrentList, s.cfg.DoneLists, s.cfg.ReportLocation())
	if err != nil { return "", err }
	if groupBy == "" { return report.GroupTotalsCSV(rep), nil }
	return report.GroupCSV(rep, withDone) + report.GroupTotalsCSV(rep), nil
}

// BurndownReport renders the snapshot series, metric is "issues" or "points".
func (s *Service) BurndownReport(ctx context.Context, boardID, filter, groupBy, metric string) (string, error) {
	_, records, err := s.filtered(ctx, boardID, filter)
	if err != nil { return "", err }
	series, err := s.burndownSeries(records, groupBy)
	if err != nil { return "", err }
	loc := s.cfg.ReportLocation()
	switch metric {
	case "", "issues":
		return report.IssueCountCSV(series, loc), nil
	case "points":
		return report.PointCountCSV(series, loc), nil
	default:
		return "", fmt.Errorf("unknown burndown metric %q", metric)
	}
}

func (s *Service) burndownSeries(records []domain.Record, groupBy string) (*burndown.Series, error) {
	return burndown.Compute(records, groupBy, burndown.Config{
		Start:       s.cfg.FirstDateTime,
		Interval:    s.cfg.Interval(),
		Now:         time.Now().In(s.cfg.ReportLocation()),
		ExceptLists: s.cfg.ExceptLists,
		DoneLists:   s.cfg.DoneLists,
	})
}

// GetLastRun exposes the most recent refresh bookkeeping row.
func (s *Service) GetLastRun(ctx context.Context) (*repo.LastRun, error) {
	if s.repo == nil { return nil, errors.New("no snapshot store configured") }
	return s.repo.GetLastRun(ctx)
}

// RunDigest refreshes the configured board and delivers a short burndown
// summary to the Telegram chats. The board is matched by name, substring
// match, so BOARD_NAME does not have to be exact.
func (s *Service) RunDigest(ctx context.Context) error {
	if strings.TrimSpace(s.cfg.BoardName) == "" { return errors.New("BOARD_NAME is not set") }
	boards, err := s.Boards(ctx)
	if err != nil { return err }
	var board domain.Board
	for _, b := range boards {
		if strings.Contains(b.Name, s.cfg.BoardName) { board = b; break }
	}
	if board.ID == "" { return fmt.Errorf("no board matching %q", s.cfg.BoardName) }

	if err := s.RefreshBoard(ctx, board.ID); err != nil { return err }
	ds, err := s.dataset(ctx, board.ID)
	if err != nil { return err }
	series, err := s.burndownSeries(ds.Records, "")
	if err != nil { return err }
	if len(series.Snapshots) == 0 { return errors.New("empty burndown series") }
	last := series.Snapshots[len(series.Snapshots)-1]

	kpis := map[string]float64{
		"all_cards":        float64(last.AllCards),
		"all_points":       last.AllPoints,
		"done_cards":       float64(last.DoneCards),
		"done_points":      last.DonePoints,
		"remaining_cards":  float64(last.RemainCards["all"]),
		"remaining_points": last.RemainPoints["all"],
	}
	summary := fmt.Sprintf("*%s*\nCards: %d (done %d)\nPoints: %s (done %s)\nRemaining: %d cards / %s points",
		board.Name, last.AllCards, last.DoneCards,
		trimFloat(last.AllPoints), trimFloat(last.DonePoints),
		last.RemainCards["all"], trimFloat(last.RemainPoints["all"]))
	if s.llm != nil && strings.TrimSpace(s.cfg.OpenAIKey) != "" {
		if comment, err := s.llm.Summarize(ctx, kpis); err == nil && comment != "" {
			summary = summary + "\n\n" + comment
		} else if err != nil {
			s.log.Error().Err(err).Msg("digest commentary failed")
		}
	}
	for _, chat := range s.cfg.TelegramChatIDs {
		if err := s.tg.SendMessage(ctx, chat, summary); err != nil {
			s.log.Error().Err(err).Int64("chat", chat).Msg("telegram send failed")
			_ = s.tg.SendMessagePlain(ctx, chat, summary)
		}
	}
	s.log.Info().Str("board", board.Name).Msg("digest delivered")
	return nil
}

func trimFloat(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
