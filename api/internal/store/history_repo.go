package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"genecross/api/internal/cross"
)

type HistoryRepo struct {
	DB      *sql.DB
	Dialect Dialect
}

func NewHistoryRepo(db *sql.DB, d Dialect) *HistoryRepo { return &HistoryRepo{DB: db, Dialect: d} }

// Submission is one finished cross request as kept in history.
type Submission struct {
	ID          int64
	CreatedAt   time.Time
	ChatID      int64
	Mode        string
	RequestHash string // sha256 of the request JSON
	Request     cross.Request
	Outcome     string // "success" | "failed"
	ErrorText   string
	BestSum     string // sum of the top ranked entry, as received
	ResultCount int
	Results     []cross.Result
	Elapsed     time.Duration
}

// rebind turns $N placeholders into ?N for sqlite.
func (r *HistoryRepo) rebind(q string) string {
	if r.Dialect == SQLite {
		return strings.ReplaceAll(q, "$", "?")
	}
	return q
}

// EnsureSchema creates the history table when missing.
func (r *HistoryRepo) EnsureSchema(ctx context.Context) error {
	id := "id bigserial primary key"
	ts := "timestamptz"
	if r.Dialect == SQLite {
		id = "id integer primary key autoincrement"
		ts = "timestamp"
	}
	stmts := []string{
		`create table if not exists cross_submissions (
  ` + id + `,
  created_at ` + ts + ` not null,
  chat_id bigint not null,
  mode text not null,
  request_hash text not null,
  request_json text not null,
  outcome text not null,
  error_text text not null default '',
  best_sum text not null default '',
  result_count integer not null default 0,
  results_json text not null default '[]',
  elapsed_ms bigint not null default 0
)`,
		`create index if not exists cross_submissions_chat_idx on cross_submissions (chat_id, created_at)`,
	}
	for _, s := range stmts {
		if _, err := r.DB.ExecContext(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

// Record appends one submission and returns its id.
func (r *HistoryRepo) Record(ctx context.Context, s Submission) (int64, error) {
	reqJS, err := json.Marshal(s.Request)
	if err != nil {
		return 0, err
	}
	results := s.Results
	if results == nil {
		results = []cross.Result{}
	}
	resJS, err := json.Marshal(results)
	if err != nil {
		return 0, err
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	const q = `
insert into cross_submissions (
  created_at, chat_id, mode, request_hash, request_json,
  outcome, error_text, best_sum, result_count, results_json, elapsed_ms
) values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
returning id`
	var id int64
	err = r.DB.QueryRowContext(ctx, r.rebind(q),
		s.CreatedAt.UTC(), s.ChatID, s.Mode, s.RequestHash, string(reqJS),
		s.Outcome, s.ErrorText, s.BestSum, s.ResultCount, string(resJS), s.Elapsed.Milliseconds(),
	).Scan(&id)
	return id, err
}

// Recent returns the latest submissions of a chat, newest first.
func (r *HistoryRepo) Recent(ctx context.Context, chatID int64, limit int) ([]Submission, error) {
	if limit <= 0 {
		limit = 10
	}
	const q = `
select id, created_at, chat_id, mode, request_hash, request_json,
       outcome, error_text, best_sum, result_count, results_json, elapsed_ms
from cross_submissions
where chat_id = $1
order by created_at desc, id desc
limit $2`
	rows, err := r.DB.QueryContext(ctx, r.rebind(q), chatID, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Submission
	for rows.Next() {
		var (
			s            Submission
			reqJS, resJS string
			elapsedMS    int64
		)
		if err := rows.Scan(&s.ID, &s.CreatedAt, &s.ChatID, &s.Mode, &s.RequestHash, &reqJS,
			&s.Outcome, &s.ErrorText, &s.BestSum, &s.ResultCount, &resJS, &elapsedMS); err != nil {
			return nil, err
		}
		// a broken JSON column still leaves the summary fields usable
		_ = json.Unmarshal([]byte(reqJS), &s.Request)
		_ = json.Unmarshal([]byte(resJS), &s.Results)
		s.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		out = append(out, s)
	}
	return out, rows.Err()
}

// PurgeOlderThan removes old history rows.
func (r *HistoryRepo) PurgeOlderThan(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, errors.New("olderThan must be > 0")
	}
	cutoff := time.Now().Add(-olderThan).UTC()
	res, err := r.DB.ExecContext(ctx, r.rebind(`delete from cross_submissions where created_at < $1`), cutoff)
	if err != nil {
		return 0, err
	}
	aff, _ := res.RowsAffected()
	return aff, nil
}
