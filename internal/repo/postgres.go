package repo

import (
	"context"
	"errors"
	"time"

	"github.com/hidetak/trello-csv/internal/config"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

type DB struct {
	Pool *pgxpool.Pool
	log  zerolog.Logger
}

func MustOpen(ctx context.Context, cfg config.Config, log zerolog.Logger) *DB {
	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil { log.Fatal().Err(err).Msg("db connect failed") }
	ctx2, cancel := context.WithTimeout(ctx, 10*time.Second); defer cancel()
	if err := pool.Ping(ctx2); err != nil { log.Fatal().Err(err).Msg("db ping failed") }
	return &DB{Pool: pool, log: log}
}

func (d *DB) Close() { d.Pool.Close() }

// Repository caches raw board snapshots and tracks refresh runs. The cache
// lets the service come back after a restart without refetching the whole
// board; reports are always computed from the in-memory dataset.
type Repository struct {
	db  *DB
	log zerolog.Logger
}

func NewRepository(d *DB, log zerolog.Logger) *Repository { return &Repository{db: d, log: log} }

// EnsureSchema creates the two tables if they are missing.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	const q = `
		CREATE TABLE IF NOT EXISTS board_snapshots(
			id bigserial PRIMARY KEY,
			board_id text NOT NULL,
			fetched_at timestamptz NOT NULL DEFAULT now(),
			payload jsonb NOT NULL
		);
		CREATE INDEX IF NOT EXISTS board_snapshots_board_idx ON board_snapshots(board_id, fetched_at DESC);
		CREATE TABLE IF NOT EXISTS job_runs(
			id bigserial PRIMARY KEY,
			started_at timestamptz NOT NULL,
			finished_at timestamptz,
			board text,
			cards_scanned int,
			records_built int,
			success boolean,
			error text
		);`
	_, err := r.db.Pool.Exec(ctx, q)
	return err
}

func (r *Repository) TryAdvisoryLock(ctx context.Context, key int64) (bool, error) {
	var ok bool
	err := r.db.Pool.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", key).Scan(&ok)
	return ok, err
}

func (r *Repository) AdvisoryUnlock(ctx context.Context, key int64) error {
	var ok bool
	err := r.db.Pool.QueryRow(ctx, "SELECT pg_advisory_unlock($1)", key).Scan(&ok)
	if !ok && err == nil { return errors.New("advisory unlock returned false") }
	return err
}

// SaveSnapshot stores one raw fetched board payload.
func (r *Repository) SaveSnapshot(ctx context.Context, boardID string, payload []byte) error {
	const q = `INSERT INTO board_snapshots(board_id, payload) VALUES($1, $2)`
	_, err := r.db.Pool.Exec(ctx, q, boardID, payload)
	return err
}

// LatestSnapshot loads the newest payload for a board. Missing is not an
// error; the caller gets nil bytes and a zero time.
func (r *Repository) LatestSnapshot(ctx context.Context, boardID string) ([]byte, time.Time, error) {
	const q = `SELECT payload, fetched_at FROM board_snapshots
		WHERE board_id=$1 ORDER BY fetched_at DESC LIMIT 1`
	var payload []byte
	var at time.Time
	err := r.db.Pool.QueryRow(ctx, q, boardID).Scan(&payload, &at)
	if errors.Is(err, pgx.ErrNoRows) { return nil, time.Time{}, nil }
	if err != nil { return nil, time.Time{}, err }
	return payload, at, nil
}

// PruneSnapshots keeps the newest keep rows per board.
func (r *Repository) PruneSnapshots(ctx context.Context, boardID string, keep int) error {
	if keep <= 0 { keep = 5 }
	const q = `DELETE FROM board_snapshots WHERE board_id=$1 AND id NOT IN (
		SELECT id FROM board_snapshots WHERE board_id=$1 ORDER BY fetched_at DESC LIMIT $2)`
	_, err := r.db.Pool.Exec(ctx, q, boardID, keep)
	return err
}

// Job runs
func (r *Repository) StartJobRun(ctx context.Context, board string) (int64, error) {
	const q = `INSERT INTO job_runs(started_at, board, success) VALUES(now(), $1, false) RETURNING id`
	var id int64
	if err := r.db.Pool.QueryRow(ctx, q, board).Scan(&id); err != nil { return 0, err }
	return id, nil
}

func (r *Repository) FinishJobRun(ctx context.Context, id int64, cardsScanned, recordsBuilt int, success bool, errStr string) error {
	const q = `UPDATE job_runs SET finished_at=now(), cards_scanned=$2, records_built=$3, success=$4, error=$5 WHERE id=$1`
	_, err := r.db.Pool.Exec(ctx, q, id, cardsScanned, recordsBuilt, success, errStr)
	return err
}

type LastRun struct {
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at"`
	Board        string     `json:"board"`
	CardsScanned int        `json:"cards_scanned"`
	RecordsBuilt int        `json:"records_built"`
	Success      bool       `json:"success"`
	Error        string     `json:"error"`
}

func (r *Repository) GetLastRun(ctx context.Context) (*LastRun, error) {
	const q = `SELECT started_at, finished_at, coalesce(board,''),
		coalesce(cards_scanned,0), coalesce(records_built,0),
		coalesce(success,false), coalesce(error,'')
		FROM job_runs ORDER BY id DESC LIMIT 1`
	row := r.db.Pool.QueryRow(ctx, q)
	lr := &LastRun{}
	if err := row.Scan(&lr.StartedAt, &lr.FinishedAt, &lr.Board, &lr.CardsScanned, &lr.RecordsBuilt, &lr.Success, &lr.Error); err != nil {
		return nil, err
	}
	return lr, nil
}
