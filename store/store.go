// Package store is the SQLite catalog of analysis runs.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hazyhaar/designscore/analyzer"
	"github.com/hazyhaar/designscore/dbopen"
)

// ErrNotFound is returned by Get for an unknown run id.
var ErrNotFound = errors.New("store: analysis not found")

const defaultListLimit = 50

// Store is the catalog database handle. It implements analyzer.Catalog.
type Store struct {
	DB *sql.DB
}

var _ analyzer.Catalog = (*Store)(nil)

// Open opens (or creates) the catalog at path and applies the schema.
// Extra schemas (rate limits, observability) can be queued through opts.
func Open(path string, opts ...dbopen.Option) (*Store, error) {
	allOpts := append([]dbopen.Option{
		dbopen.WithMkdirAll(),
		dbopen.WithSchema(Schema),
	}, opts...)

	db, err := dbopen.Open(path, allOpts...)
	if err != nil {
		return nil, err
	}
	return &Store{DB: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.DB.Close()
}

// Entry is one catalog row.
type Entry struct {
	ID          string                  `json:"id"`
	URL         string                  `json:"url"`
	Title       string                  `json:"title,omitempty"`
	CreatedAt   time.Time               `json:"createdAt"`
	Scores      analyzer.ScoreBreakdown `json:"scores"`
	ResultPath  string                  `json:"resultPath"`
	Report      analyzer.RenderedReport `json:"report"`
	ReportError string                  `json:"reportError,omitempty"`
}

// Insert records a finished analysis and the path of its result.json.
func (s *Store) Insert(ctx context.Context, res *analyzer.AnalysisResult, resultPath string) error {
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("store: encode result: %w", err)
	}
	return dbopen.RunTx(ctx, s.DB, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO analyses
				(id, url, title, created_at, total, typography, color, layout, result_path, result_json)
			VALUES (?,?,?,?,?,?,?,?,?,?)`,
			res.ID, res.URL, res.Title, res.CreatedAt.UnixMilli(),
			res.Breakdown.Total, res.Breakdown.Typography, res.Breakdown.Color, res.Breakdown.Layout,
			resultPath, string(data),
		)
		if err != nil {
			return fmt.Errorf("store: insert %s: %w", res.ID, err)
		}
		return nil
	})
}

// SetReport records the outcome of rendering. renderErr non-nil stores
// its message and clears the artifact paths.
func (s *Store) SetReport(ctx context.Context, id string, rep analyzer.RenderedReport, renderErr error) error {
	var msg string
	if renderErr != nil {
		msg = renderErr.Error()
		rep = analyzer.RenderedReport{}
	}
	return dbopen.RunTx(ctx, s.DB, func(tx *sql.Tx) error {
		r, err := tx.ExecContext(ctx, `
			UPDATE analyses SET html_path = ?, pdf_path = ?, md_path = ?, report_error = ?
			WHERE id = ?`,
			rep.HTMLPath, rep.PDFPath, rep.MarkdownPath, msg, id)
		if err != nil {
			return fmt.Errorf("store: set report %s: %w", id, err)
		}
		if n, _ := r.RowsAffected(); n == 0 {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil
	})
}

const entryColumns = `id, url, title, created_at, total, typography, color, layout,
	result_path, html_path, pdf_path, md_path, report_error`

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (*Entry, error) {
	e := &Entry{}
	var created int64
	err := row.Scan(&e.ID, &e.URL, &e.Title, &created,
		&e.Scores.Total, &e.Scores.Typography, &e.Scores.Color, &e.Scores.Layout,
		&e.ResultPath, &e.Report.HTMLPath, &e.Report.PDFPath, &e.Report.MarkdownPath, &e.ReportError)
	if err != nil {
		return nil, err
	}
	e.CreatedAt = time.UnixMilli(created).UTC()
	return e, nil
}

// Get returns the catalog entry of a run.
func (s *Store) Get(ctx context.Context, id string) (*Entry, error) {
	e, err := scanEntry(s.DB.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM analyses WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get %s: %w", id, err)
	}
	return e, nil
}

// Result returns the full analysis record stored with a run.
func (s *Store) Result(ctx context.Context, id string) (*analyzer.AnalysisResult, error) {
	var data string
	err := s.DB.QueryRowContext(ctx, `SELECT result_json FROM analyses WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("store: result %s: %w", id, err)
	}
	res := &analyzer.AnalysisResult{}
	if err := json.Unmarshal([]byte(data), res); err != nil {
		return nil, fmt.Errorf("store: decode result %s: %w", id, err)
	}
	return res, nil
}

// List returns the most recent runs first. limit <= 0 means 50.
func (s *Store) List(ctx context.Context, limit int) ([]*Entry, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM analyses ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	defer rows.Close()

	var out []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("store: list scan: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Load reads a result.json written by an earlier run.
func Load(path string) (*analyzer.AnalysisResult, error) {
	return analyzer.ReadResult(path)
}
