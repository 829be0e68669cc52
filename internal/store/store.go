// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists verification runs in a SQLite database so results
// can be listed and re-read without re-running extraction.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/cv-verify/pkg/types"
)

// ErrNotFound is returned by Get when no run has the requested id.
var ErrNotFound = errors.New("run not found")

const defaultListLimit = 20

// timeLayout has fixed-width fractional seconds so created_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store manages the run database.
type Store struct {
	db *sql.DB
}

// RunSummary is one row of List.
type RunSummary struct {
	ID                string    `json:"id" yaml:"id"`
	CandidateName     string    `json:"candidateName" yaml:"candidate_name"`
	Document          string    `json:"document" yaml:"document"`
	CreatedAt         time.Time `json:"createdAt" yaml:"created_at"`
	TotalPublications int       `json:"totalPublications" yaml:"total_publications"`
	VerifiedCount     int       `json:"verifiedCount" yaml:"verified_count"`
	Partial           bool      `json:"partial" yaml:"partial"`
}

// Open opens or creates the database at cfg.Path, creating its directory
// and schema when missing.
func Open(cfg types.StoreConfig) (*Store, error) {
	path := cfg.Path
	if path == "" {
		path = types.DefaultStorePath
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			candidate_name TEXT NOT NULL,
			document TEXT,
			created_at TEXT NOT NULL,
			total_publications INTEGER NOT NULL,
			verified_count INTEGER NOT NULL,
			verified_author_match INTEGER NOT NULL,
			verified_different_author INTEGER NOT NULL,
			batches_total INTEGER NOT NULL,
			batches_failed INTEGER NOT NULL,
			partial INTEGER NOT NULL,
			profile_json TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS publications (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			idx INTEGER NOT NULL,
			title TEXT NOT NULL,
			authors TEXT,
			year TEXT,
			venue TEXT,
			type TEXT,
			doi TEXT,
			full_text TEXT,
			status TEXT NOT NULL,
			is_online INTEGER NOT NULL,
			has_author_match INTEGER NOT NULL,
			link TEXT,
			citation_count INTEGER NOT NULL,
			PRIMARY KEY (run_id, idx)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_publications_status ON publications(status)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Save writes result, replacing any earlier run with the same id.
func (s *Store) Save(ctx context.Context, result *types.VerificationResult) error {
	if result == nil || result.RunID == "" {
		return errors.New("saving run: missing run id")
	}

	var profileJSON sql.NullString
	if result.AuthorProfile != nil {
		data, err := json.Marshal(result.AuthorProfile)
		if err != nil {
			return fmt.Errorf("encoding author profile: %w", err)
		}
		profileJSON = sql.NullString{String: string(data), Valid: true}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, candidate_name, document, created_at, total_publications, verified_count,
			verified_author_match, verified_different_author, batches_total, batches_failed, partial, profile_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			candidate_name=excluded.candidate_name, document=excluded.document, created_at=excluded.created_at,
			total_publications=excluded.total_publications, verified_count=excluded.verified_count,
			verified_author_match=excluded.verified_author_match,
			verified_different_author=excluded.verified_different_author,
			batches_total=excluded.batches_total, batches_failed=excluded.batches_failed,
			partial=excluded.partial, profile_json=excluded.profile_json`,
		result.RunID, result.CandidateName, result.Document, result.CreatedAt.UTC().Format(timeLayout),
		result.TotalPublications, result.VerifiedCount, result.VerifiedWithAuthorMatchCount,
		result.VerifiedDifferentAuthorCount, result.BatchesTotal, result.BatchesFailed,
		boolInt(result.Partial), profileJSON,
	)
	if err != nil {
		return fmt.Errorf("upserting run: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM publications WHERE run_id = ?`, result.RunID); err != nil {
		return fmt.Errorf("deleting old publications: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO publications (run_id, idx, title, authors, year, venue, type, doi, full_text,
			status, is_online, has_author_match, link, citation_count)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, p := range result.Publications {
		authorsJSON, _ := json.Marshal(p.Authors)
		_, err := stmt.ExecContext(ctx,
			result.RunID, i, p.Title, string(authorsJSON), p.Year, p.Venue, p.Type, p.DOI, p.FullText,
			string(p.Status()), boolInt(p.Verification.IsOnline), boolInt(p.Verification.HasAuthorMatch),
			p.Verification.Link, p.Verification.CitationCount,
		)
		if err != nil {
			return fmt.Errorf("inserting publication %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// Get loads the run with id, including its publications and profile.
func (s *Store) Get(ctx context.Context, id string) (*types.VerificationResult, error) {
	var (
		r           types.VerificationResult
		document    sql.NullString
		createdAt   string
		partial     int
		profileJSON sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, candidate_name, document, created_at, total_publications, verified_count,
			verified_author_match, verified_different_author, batches_total, batches_failed, partial, profile_json
		 FROM runs WHERE id = ?`, id,
	).Scan(&r.RunID, &r.CandidateName, &document, &createdAt, &r.TotalPublications, &r.VerifiedCount,
		&r.VerifiedWithAuthorMatchCount, &r.VerifiedDifferentAuthorCount, &r.BatchesTotal, &r.BatchesFailed,
		&partial, &profileJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying run: %w", err)
	}

	r.Document = document.String
	r.Partial = partial != 0
	r.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	if profileJSON.Valid {
		var p types.AuthorProfile
		if err := json.Unmarshal([]byte(profileJSON.String), &p); err != nil {
			return nil, fmt.Errorf("decoding author profile: %w", err)
		}
		r.AuthorProfile = &p
	}

	pubs, err := s.publications(ctx, id)
	if err != nil {
		return nil, err
	}
	r.Publications = pubs
	return &r, nil
}

func (s *Store) publications(ctx context.Context, runID string) ([]types.PublicationRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT title, authors, year, venue, type, doi, full_text, is_online, has_author_match, link, citation_count
		 FROM publications WHERE run_id = ? ORDER BY idx`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying publications: %w", err)
	}
	defer rows.Close()

	pubs := []types.PublicationRecord{}
	for rows.Next() {
		var (
			p                                            types.PublicationRecord
			authorsJSON, year, venue, typ, doi, fullText sql.NullString
			link                                         sql.NullString
			online, match                                int
		)
		if err := rows.Scan(&p.Title, &authorsJSON, &year, &venue, &typ, &doi, &fullText,
			&online, &match, &link, &p.Verification.CitationCount); err != nil {
			return nil, fmt.Errorf("scanning publication: %w", err)
		}
		if authorsJSON.Valid {
			_ = json.Unmarshal([]byte(authorsJSON.String), &p.Authors)
		}
		p.Year, p.Venue, p.Type, p.DOI, p.FullText = year.String, venue.String, typ.String, doi.String, fullText.String
		p.Verification.IsOnline = online != 0
		p.Verification.HasAuthorMatch = match != 0
		p.Verification.Link = link.String
		pubs = append(pubs, p)
	}
	return pubs, rows.Err()
}

// List returns the most recent runs, newest first. A non-positive limit
// uses a default of 20.
func (s *Store) List(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, candidate_name, document, created_at, total_publications, verified_count, partial
		 FROM runs ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var (
			r         RunSummary
			document  sql.NullString
			createdAt string
			partial   int
		)
		if err := rows.Scan(&r.ID, &r.CandidateName, &document, &createdAt,
			&r.TotalPublications, &r.VerifiedCount, &partial); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.Document = document.String
		r.Partial = partial != 0
		r.CreatedAt, _ = time.Parse(timeLayout, createdAt)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Delete removes the run with id and its publications.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
