package store

import (
	"context"
	"database/sql"
	"time"
)

// Outcomes stored in generation_log.outcome.
const (
	OutcomeOK              = "ok"
	OutcomeValidationError = "validation_error"
	OutcomeMalformedOutput = "malformed_output"
	OutcomeUnexpectedShape = "unexpected_shape"
	OutcomeUpstreamError   = "upstream_error"
)

// GenerationLog is one handled operation. Prompts and outputs are not stored.
type GenerationLog struct {
	RequestID  string
	Operation  string
	Engine     string
	Model      string
	Outcome    string
	DurationMs int64
	CreatedAt  time.Time
}

type GenerationRepo struct{ DB *sql.DB }

func NewGenerationRepo(db *sql.DB) *GenerationRepo { return &GenerationRepo{DB: db} }

// EnsureSchema creates generation_log if it is missing.
func (r *GenerationRepo) EnsureSchema(ctx context.Context) error {
	const q = `
create table if not exists generation_log (
    id          bigserial primary key,
    request_id  text        not null,
    operation   text        not null,
    engine      text        not null default '',
    model       text        not null default '',
    outcome     text        not null,
    duration_ms bigint      not null default 0,
    created_at  timestamptz not null default now()
);
create index if not exists generation_log_created_at_idx on generation_log (created_at);`
	_, err := r.DB.ExecContext(ctx, q)
	return err
}

// Insert appends one row.
func (r *GenerationRepo) Insert(ctx context.Context, l GenerationLog) error {
	const q = `
insert into generation_log(request_id, operation, engine, model, outcome, duration_ms)
values ($1,$2,$3,$4,$5,$6)`
	_, err := r.DB.ExecContext(ctx, q, l.RequestID, l.Operation, l.Engine, l.Model, l.Outcome, l.DurationMs)
	return err
}

// OutcomeCounts returns the number of rows per outcome created after since.
func (r *GenerationRepo) OutcomeCounts(ctx context.Context, since time.Time) (map[string]int, error) {
	const q = `
select outcome, count(*)
from generation_log
where created_at >= $1
group by outcome`
	rows, err := r.DB.QueryContext(ctx, q, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var (
			outcome string
			n       int
		)
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, err
		}
		out[outcome] = n
	}
	return out, rows.Err()
}
