package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hubenschmidt/go-reviewgraph/config"
	"github.com/hubenschmidt/go-reviewgraph/engine"
)

// dialect captures the SQL differences between the supported backends.
// Queries are written with ? placeholders and rebound per dialect.
type dialect struct {
	name           string
	numbered       bool
	returning      bool
	appendProgress string
}

var sqliteDialect = dialect{
	name:           "sqlite",
	appendProgress: `UPDATE runs SET progress = json_insert(progress, '$[#]', json(?)), updated_at = ? WHERE id = ?`,
}

var postgresDialect = dialect{
	name:           "postgres",
	numbered:       true,
	returning:      true,
	appendProgress: `UPDATE runs SET progress = progress || jsonb_build_array(?::jsonb), updated_at = ? WHERE id = ?`,
}

func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r != '?' {
			b.WriteRune(r)
			continue
		}
		n++
		b.WriteByte('$')
		b.WriteString(strconv.Itoa(n))
	}
	return b.String()
}

func (d dialect) insert(ctx context.Context, db *sql.DB, query string, args ...any) (int64, error) {
	if d.returning {
		var id int64
		err := db.QueryRowContext(ctx, d.rebind(query+" RETURNING id"), args...).Scan(&id)
		return id, err
	}
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func newSQLStores(db *sql.DB, d dialect) *Stores {
	return &Stores{
		Reviews: &sqlReviewStore{db: db, d: d},
		Graphs:  &sqlGraphStore{db: db, d: d},
		Runs:    &sqlRunStore{db: db, d: d},
		close:   db.Close,
	}
}

func millis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// ReviewStore implementation

type sqlReviewStore struct {
	db *sql.DB
	d  dialect
}

func (s *sqlReviewStore) Create(ctx context.Context, r ReviewInfo) (ReviewInfo, error) {
	if r.Findings == nil {
		r.Findings = []any{}
	}
	if r.Suggestions == nil {
		r.Suggestions = []string{}
	}
	findings, err := encodeJSON(r.Findings)
	if err != nil {
		return r, fmt.Errorf("marshal findings: %w", err)
	}
	suggestions, err := encodeJSON(r.Suggestions)
	if err != nil {
		return r, fmt.Errorf("marshal suggestions: %w", err)
	}

	r.CreatedAt = now()
	r.ID, err = s.d.insert(ctx, s.db, `
		INSERT INTO reviews (source_hash, summary, findings, suggestions, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		r.SourceHash, r.Summary, findings, suggestions, millis(r.CreatedAt),
	)
	if err != nil {
		return r, fmt.Errorf("insert review: %w", err)
	}
	return r, nil
}

const reviewColumns = `id, source_hash, summary, findings, suggestions, created_at`

func scanReview(row interface{ Scan(...any) error }) (ReviewInfo, error) {
	var r ReviewInfo
	var findings, suggestions string
	var created int64
	if err := row.Scan(&r.ID, &r.SourceHash, &r.Summary, &findings, &suggestions, &created); err != nil {
		return r, err
	}
	if err := decodeJSON(findings, &r.Findings); err != nil {
		return r, fmt.Errorf("unmarshal findings: %w", err)
	}
	if err := decodeJSON(suggestions, &r.Suggestions); err != nil {
		return r, fmt.Errorf("unmarshal suggestions: %w", err)
	}
	r.CreatedAt = fromMillis(created)
	return r, nil
}

func (s *sqlReviewStore) Get(ctx context.Context, id int64) (ReviewInfo, error) {
	r, err := scanReview(s.db.QueryRowContext(ctx,
		s.d.rebind(`SELECT `+reviewColumns+` FROM reviews WHERE id = ?`), id))
	if errors.Is(err, sql.ErrNoRows) {
		return r, notFound("review", id)
	}
	if err != nil {
		return r, fmt.Errorf("query review: %w", err)
	}
	return r, nil
}

func (s *sqlReviewStore) List(ctx context.Context) ([]ReviewInfo, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+reviewColumns+` FROM reviews ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("query reviews: %w", err)
	}
	defer rows.Close()

	reviews := make([]ReviewInfo, 0)
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		reviews = append(reviews, r)
	}
	return reviews, rows.Err()
}

// GraphStore implementation

type sqlGraphStore struct {
	db *sql.DB
	d  dialect
}

func (s *sqlGraphStore) Create(ctx context.Context, g GraphInfo) (GraphInfo, error) {
	def, err := encodeJSON(g.Graph)
	if err != nil {
		return g, fmt.Errorf("marshal graph: %w", err)
	}

	g.CreatedAt = now()
	g.ID, err = s.d.insert(ctx, s.db, `
		INSERT INTO graphs (name, definition, created_at) VALUES (?, ?, ?)`,
		g.Name, def, millis(g.CreatedAt),
	)
	if err != nil {
		return g, fmt.Errorf("insert graph: %w", err)
	}
	return g, nil
}

func scanGraph(row interface{ Scan(...any) error }) (GraphInfo, error) {
	var g GraphInfo
	var def string
	var created int64
	if err := row.Scan(&g.ID, &g.Name, &def, &created); err != nil {
		return g, err
	}
	parsed, err := config.ParseGraph([]byte(def))
	if err != nil {
		return g, err
	}
	g.Graph = *parsed
	g.CreatedAt = fromMillis(created)
	return g, nil
}

func (s *sqlGraphStore) Get(ctx context.Context, id int64) (GraphInfo, error) {
	g, err := scanGraph(s.db.QueryRowContext(ctx,
		s.d.rebind(`SELECT id, name, definition, created_at FROM graphs WHERE id = ?`), id))
	if errors.Is(err, sql.ErrNoRows) {
		return g, notFound("graph", id)
	}
	if err != nil {
		return g, fmt.Errorf("query graph: %w", err)
	}
	return g, nil
}

func (s *sqlGraphStore) List(ctx context.Context) ([]GraphInfo, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, definition, created_at FROM graphs ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("query graphs: %w", err)
	}
	defer rows.Close()

	graphs := make([]GraphInfo, 0)
	for rows.Next() {
		g, err := scanGraph(rows)
		if err != nil {
			return nil, fmt.Errorf("scan graph: %w", err)
		}
		graphs = append(graphs, g)
	}
	return graphs, rows.Err()
}

// RunStore implementation

type sqlRunStore struct {
	db *sql.DB
	d  dialect
}

const runColumns = `id, graph_id, status, state, log, progress, iterations, stop_reason, created_at, updated_at`

func (s *sqlRunStore) Create(ctx context.Context, r RunInfo) (RunInfo, error) {
	if r.Status == "" {
		r.Status = RunCreated
	}
	r.State = r.State.Clone()
	r.Log = nonNilLog(r.Log)
	r.Progress = nonNilProgress(r.Progress)

	state, err := encodeJSON(r.State)
	if err != nil {
		return r, fmt.Errorf("marshal state: %w", err)
	}
	log, err := encodeJSON(r.Log)
	if err != nil {
		return r, fmt.Errorf("marshal log: %w", err)
	}
	progress, err := encodeJSON(r.Progress)
	if err != nil {
		return r, fmt.Errorf("marshal progress: %w", err)
	}

	r.CreatedAt = now()
	r.UpdatedAt = r.CreatedAt
	r.ID, err = s.d.insert(ctx, s.db, `
		INSERT INTO runs (graph_id, status, state, log, progress, iterations, stop_reason, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.GraphID, string(r.Status), state, log, progress, r.Iterations, r.StopReason,
		millis(r.CreatedAt), millis(r.UpdatedAt),
	)
	if err != nil {
		return r, fmt.Errorf("insert run: %w", err)
	}
	return r, nil
}

func scanRun(row interface{ Scan(...any) error }) (RunInfo, error) {
	var r RunInfo
	var status, state, log, progress string
	var created, updated int64
	if err := row.Scan(&r.ID, &r.GraphID, &status, &state, &log, &progress,
		&r.Iterations, &r.StopReason, &created, &updated); err != nil {
		return r, err
	}
	r.Status = RunStatus(status)
	if err := decodeJSON(state, &r.State); err != nil {
		return r, fmt.Errorf("unmarshal state: %w", err)
	}
	if err := decodeJSON(log, &r.Log); err != nil {
		return r, fmt.Errorf("unmarshal log: %w", err)
	}
	if err := decodeJSON(progress, &r.Progress); err != nil {
		return r, fmt.Errorf("unmarshal progress: %w", err)
	}
	r.Log = nonNilLog(r.Log)
	r.Progress = nonNilProgress(r.Progress)
	r.CreatedAt = fromMillis(created)
	r.UpdatedAt = fromMillis(updated)
	return r, nil
}

func (s *sqlRunStore) Get(ctx context.Context, id int64) (RunInfo, error) {
	r, err := scanRun(s.db.QueryRowContext(ctx,
		s.d.rebind(`SELECT `+runColumns+` FROM runs WHERE id = ?`), id))
	if errors.Is(err, sql.ErrNoRows) {
		return r, notFound("run", id)
	}
	if err != nil {
		return r, fmt.Errorf("query run: %w", err)
	}
	return r, nil
}

func (s *sqlRunStore) List(ctx context.Context, graphID int64) ([]RunInfo, error) {
	query := `SELECT ` + runColumns + ` FROM runs`
	var args []any
	if graphID != 0 {
		query += ` WHERE graph_id = ?`
		args = append(args, graphID)
	}
	query += ` ORDER BY id DESC`

	rows, err := s.db.QueryContext(ctx, s.d.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := make([]RunInfo, 0)
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func (s *sqlRunStore) exec(ctx context.Context, id int64, op, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, s.d.rebind(query), args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return notFound("run", id)
	}
	return nil
}

func (s *sqlRunStore) SetStatus(ctx context.Context, id int64, status RunStatus) error {
	return s.exec(ctx, id, "update run status",
		`UPDATE runs SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), millis(now()), id)
}

func (s *sqlRunStore) AppendProgress(ctx context.Context, id int64, p ProgressEntry) error {
	entry, err := encodeJSON(p)
	if err != nil {
		return fmt.Errorf("marshal progress: %w", err)
	}
	return s.exec(ctx, id, "append progress", s.d.appendProgress, entry, millis(now()), id)
}

func (s *sqlRunStore) Finish(ctx context.Context, id int64, status RunStatus, res engine.Result) error {
	state, err := encodeJSON(res.State)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	log, err := encodeJSON(nonNilLog(res.Logs))
	if err != nil {
		return fmt.Errorf("marshal log: %w", err)
	}
	return s.exec(ctx, id, "finish run", `
		UPDATE runs SET status = ?, state = ?, log = ?, iterations = ?, stop_reason = ?, updated_at = ?
		WHERE id = ?`,
		string(status), state, log, res.Iterations, string(res.StopReason), millis(now()), id)
}
