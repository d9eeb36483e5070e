package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"uml-architect/api/internal/uml/types"
)

var ErrNotFound = sql.ErrNoRows

const schema = `
create table if not exists uml_sessions (
  chat_id      bigint primary key,
  prompt       text        not null,
  diagram_json jsonb       not null,
  updated_at   timestamptz not null default now()
)`

// SessionRepo keeps the last diagram per chat in Postgres. It satisfies
// session.Store.
type SessionRepo struct{ DB *sql.DB }

func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{DB: db} }

func (r *SessionRepo) EnsureSchema(ctx context.Context) error {
	_, err := r.DB.ExecContext(ctx, schema)
	return err
}

func (r *SessionRepo) Get(ctx context.Context, chatID int64) (types.LastDiagram, bool, error) {
	const q = `select prompt, diagram_json from uml_sessions where chat_id = $1`
	var (
		prompt string
		js     []byte
	)
	err := r.DB.QueryRowContext(ctx, q, chatID).Scan(&prompt, &js)
	if errors.Is(err, ErrNotFound) {
		return types.LastDiagram{}, false, nil
	}
	if err != nil {
		return types.LastDiagram{}, false, err
	}
	var res types.DiagramResult
	if err := json.Unmarshal(js, &res); err != nil {
		// broken row counts as no diagram
		return types.LastDiagram{}, false, nil
	}
	return types.LastDiagram{Prompt: prompt, Result: res}, true, nil
}

// Put replaces the chat's diagram in one statement.
func (r *SessionRepo) Put(ctx context.Context, chatID int64, d types.LastDiagram) error {
	js, err := json.Marshal(d.Result)
	if err != nil {
		return err
	}
	const q = `
insert into uml_sessions (chat_id, prompt, diagram_json)
values ($1,$2,$3)
on conflict (chat_id) do update
set prompt = excluded.prompt,
    diagram_json = excluded.diagram_json,
    updated_at = now()`
	_, err = r.DB.ExecContext(ctx, q, chatID, d.Prompt, js)
	return err
}

func (r *SessionRepo) Reset(ctx context.Context, chatID int64) error {
	_, err := r.DB.ExecContext(ctx, `delete from uml_sessions where chat_id = $1`, chatID)
	return err
}

// PurgeOlderThan drops sessions idle for longer than olderThan.
func (r *SessionRepo) PurgeOlderThan(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, errors.New("olderThan must be > 0")
	}
	cutoff := time.Now().Add(-olderThan)
	res, err := r.DB.ExecContext(ctx, `delete from uml_sessions where updated_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	aff, _ := res.RowsAffected()
	return aff, nil
}
