// Package postgres implements the console's document store on Postgres,
// keeping each collection as a table of JSONB documents.
package postgres

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/formconsole/internal/config"
	"github.com/JonMunkholm/formconsole/internal/core"
)

//go:embed schema.sql
var schemaSQL string

const submittedAtExpr = "(doc->>'submittedAt')::timestamptz"

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

// Store is a core.Store backed by Postgres.
type Store struct {
	pool *pgxpool.Pool
	db   DBTX
}

var _ core.Store = (*Store)(nil)

// Open connects using cfg, verifies the connection and ensures the schema.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*Store, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	poolConfig.ConnConfig.ConnectTimeout = cfg.ConnectTimeout

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &Store{pool: pool, db: pool}
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// EnsureSchema creates missing tables and indexes.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Close(ctx context.Context) error {
	s.pool.Close()
	return nil
}

// ----------------------------------------------------------------------------
// Users
// ----------------------------------------------------------------------------

func (s *Store) GetUser(ctx context.Context, uid string) (*core.User, error) {
	var u core.User
	if err := s.getDoc(ctx, "users", "user", uid, &u); err != nil {
		return nil, err
	}
	u.UID = uid
	return &u, nil
}

func (s *Store) ListUsers(ctx context.Context, statuses ...core.UserStatus) ([]core.User, error) {
	wb := newWhereBuilder()
	wb.AddIn("doc->>'status'", stringsOf(statuses))
	clause, args := wb.Build()

	users, err := queryDocs[core.User](ctx, s.db, "SELECT id, doc FROM users"+clause+" ORDER BY id", args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	for i := range users {
		users[i].doc.UID = users[i].id
	}
	return docsOf(users), nil
}

func (s *Store) SetUserStatus(ctx context.Context, uid string, change core.StatusChange) error {
	return s.patchDoc(ctx, "users", "user", uid, change)
}

func (s *Store) DeleteUser(ctx context.Context, uid string) error {
	tag, err := s.db.Exec(ctx, "DELETE FROM users WHERE id = $1", uid)
	if err != nil {
		return fmt.Errorf("delete user %s: %w", uid, err)
	}
	if tag.RowsAffected() == 0 {
		return core.NewNotFound("user", uid)
	}
	return nil
}

// ----------------------------------------------------------------------------
// Templates
// ----------------------------------------------------------------------------

func (s *Store) GetTemplate(ctx context.Context, id string) (*core.Template, error) {
	var t core.Template
	if err := s.getDoc(ctx, "templates", "template", id, &t); err != nil {
		return nil, err
	}
	t.TemplateID = id
	return &t, nil
}

func (s *Store) GetTemplates(ctx context.Context, ids []string) (map[string]*core.Template, error) {
	out := make(map[string]*core.Template, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	tmpls, err := queryDocs[core.Template](ctx, s.db, "SELECT id, doc FROM templates WHERE id = ANY($1)", ids)
	if err != nil {
		return nil, fmt.Errorf("get templates: %w", err)
	}
	for i := range tmpls {
		t := tmpls[i].doc
		t.TemplateID = tmpls[i].id
		out[t.TemplateID] = &t
	}
	return out, nil
}

func (s *Store) ListTemplates(ctx context.Context, statuses ...core.TemplateStatus) ([]core.Template, error) {
	wb := newWhereBuilder()
	wb.AddIn("doc->>'status'", stringsOf(statuses))
	clause, args := wb.Build()

	tmpls, err := queryDocs[core.Template](ctx, s.db, "SELECT id, doc FROM templates"+clause+" ORDER BY id", args...)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	for i := range tmpls {
		tmpls[i].doc.TemplateID = tmpls[i].id
	}
	return docsOf(tmpls), nil
}

func (s *Store) SetTemplateStatus(ctx context.Context, id string, change core.StatusChange) error {
	return s.patchDoc(ctx, "templates", "template", id, change)
}

// ----------------------------------------------------------------------------
// Submissions
// ----------------------------------------------------------------------------

func (s *Store) GetSubmission(ctx context.Context, id string) (*core.Submission, error) {
	var sub core.Submission
	if err := s.getDoc(ctx, "form_submissions", "submission", id, &sub); err != nil {
		return nil, err
	}
	sub.ID = id
	return &sub, nil
}

func (s *Store) ListSubmissions(ctx context.Context, q core.SubmissionQuery) ([]core.Submission, error) {
	wb := newWhereBuilder()
	wb.Add("doc->>'templateId'", q.TemplateID)
	wb.AddTimestampRange(submittedAtExpr, q.SubmittedFrom, q.SubmittedTo)
	clause, args := wb.Build()

	query := "SELECT id, doc FROM form_submissions" + clause +
		" ORDER BY " + submittedAtExpr + " DESC NULLS LAST, id"
	subs, err := queryDocs[core.Submission](ctx, s.db, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	for i := range subs {
		subs[i].doc.ID = subs[i].id
	}
	return docsOf(subs), nil
}

// ----------------------------------------------------------------------------
// Activity
// ----------------------------------------------------------------------------

func (s *Store) InsertActivity(ctx context.Context, a *core.Activity) error {
	doc, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode activity: %w", err)
	}
	if _, err := s.db.Exec(ctx,
		"INSERT INTO activity (id, ts, doc) VALUES ($1, $2, $3)",
		a.ID, a.Timestamp.UTC(), doc,
	); err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

func (s *Store) ListActivity(ctx context.Context, limit int) ([]core.Activity, error) {
	query := "SELECT id, doc FROM activity ORDER BY ts DESC, seq DESC"
	var args []any
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}
	recs, err := queryDocs[core.Activity](ctx, s.db, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	return docsOf(recs), nil
}

// ----------------------------------------------------------------------------
// Helpers
// ----------------------------------------------------------------------------

type row[T any] struct {
	id  string
	doc T
}

func (s *Store) getDoc(ctx context.Context, table, resource, id string, dst any) error {
	var raw []byte
	err := s.db.QueryRow(ctx, "SELECT doc FROM "+table+" WHERE id = $1", id).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.NewNotFound(resource, id)
	}
	if err != nil {
		return fmt.Errorf("get %s %s: %w", resource, id, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode %s %s: %w", resource, id, err)
	}
	return nil
}

func (s *Store) patchDoc(ctx context.Context, table, resource, id string, change core.StatusChange) error {
	patch, err := json.Marshal(change.Fields())
	if err != nil {
		return fmt.Errorf("encode %s update: %w", resource, err)
	}
	tag, err := s.db.Exec(ctx, "UPDATE "+table+" SET doc = doc || $2::jsonb WHERE id = $1", id, patch)
	if err != nil {
		return fmt.Errorf("update %s %s: %w", resource, id, err)
	}
	if tag.RowsAffected() == 0 {
		return core.NewNotFound(resource, id)
	}
	return nil
}

func queryDocs[T any](ctx context.Context, db DBTX, query string, args ...any) ([]row[T], error) {
	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []row[T]
	for rows.Next() {
		var (
			r   row[T]
			raw []byte
		)
		if err := rows.Scan(&r.id, &raw); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &r.doc); err != nil {
			return nil, fmt.Errorf("decode %s: %w", r.id, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func docsOf[T any](rows []row[T]) []T {
	out := make([]T, len(rows))
	for i := range rows {
		out[i] = rows[i].doc
	}
	return out
}

func stringsOf[S ~string](vals []S) []string {
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = string(v)
	}
	return out
}
