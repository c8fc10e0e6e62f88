package dedup

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/dshills/sieve/internal/analyzer"
	"github.com/dshills/sieve/internal/chunker"
	"github.com/dshills/sieve/internal/lang"
)

// Store persists an Index and scan savings in a SQLite database.
type Store struct {
	conn   *sql.DB
	logger *slog.Logger
	path   string
}

const schema = `
CREATE TABLE IF NOT EXISTS code_chunks (
	content_hash TEXT PRIMARY KEY,
	entity_type TEXT NOT NULL,
	entity_name TEXT NOT NULL,
	language TEXT NOT NULL,
	issue_count INTEGER NOT NULL DEFAULT 0,
	embedding TEXT,
	analysis TEXT,
	last_analyzed TEXT,
	created_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS chunk_locations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	content_hash TEXT NOT NULL REFERENCES code_chunks(content_hash) ON DELETE CASCADE,
	repo_id TEXT NOT NULL,
	file_path TEXT NOT NULL,
	start_line INTEGER NOT NULL,
	end_line INTEGER NOT NULL,
	entity_name TEXT NOT NULL DEFAULT '',
	UNIQUE(content_hash, repo_id, file_path)
);
CREATE INDEX IF NOT EXISTS idx_chunk_loc_hash ON chunk_locations(content_hash);
CREATE INDEX IF NOT EXISTS idx_chunk_loc_repo ON chunk_locations(repo_id);

CREATE TABLE IF NOT EXISTS scan_savings (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	scan_session_id TEXT NOT NULL,
	repo_id TEXT NOT NULL,
	file_path TEXT NOT NULL,
	recommendation TEXT NOT NULL,
	skip_reason TEXT,
	static_issue_count INTEGER NOT NULL DEFAULT 0,
	estimated_llm_value REAL NOT NULL DEFAULT 0.0,
	created_at TEXT NOT NULL DEFAULT (datetime('now'))
);
CREATE INDEX IF NOT EXISTS idx_savings_session ON scan_savings(scan_session_id);
`

// OpenStore opens or creates the database at path. A nil logger selects
// slog.Default().
func OpenStore(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := conn.ExecContext(ctx, p); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}
	if _, err := conn.ExecContext(ctx, schema); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	logger.Debug("dedup store opened", "path", path)
	return &Store{conn: conn, logger: logger, path: path}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

// Save writes every entry of ix. Existing chunks, locations and payloads
// are left untouched; it returns the number of new chunks written.
func (s *Store) Save(ctx context.Context, ix *Index) (n int, err error) {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning save: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, e := range ix.Entries() {
		res, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO code_chunks (content_hash, entity_type, entity_name, language) VALUES (?, ?, ?, ?)`,
			e.ContentHash, string(e.Kind), e.Name, e.Language.String())
		if err != nil {
			return 0, fmt.Errorf("saving chunk %s: %w", e.ContentHash, err)
		}
		if added, _ := res.RowsAffected(); added > 0 {
			n++
		}
		for _, l := range e.Locations {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO chunk_locations (content_hash, repo_id, file_path, start_line, end_line, entity_name) VALUES (?, ?, ?, ?, ?, ?)`,
				e.ContentHash, l.RepoID, l.Path, l.StartLine, l.EndLine, l.Name); err != nil {
				return 0, fmt.Errorf("saving location %s:%s: %w", l.RepoID, l.Path, err)
			}
		}
		if e.Payload == nil {
			continue
		}
		vec, err := json.Marshal(e.Payload.Vector)
		if err != nil {
			return 0, fmt.Errorf("encoding vector: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE code_chunks SET embedding = ?, analysis = ?, issue_count = ?, last_analyzed = ?
			 WHERE content_hash = ? AND last_analyzed IS NULL`,
			string(vec), nullString(string(e.Payload.Analysis)), e.Payload.IssueCount,
			e.Payload.AnalyzedAt.UTC().Format(time.RFC3339Nano), e.ContentHash); err != nil {
			return 0, fmt.Errorf("saving payload %s: %w", e.ContentHash, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing save: %w", err)
	}
	return n, nil
}

// Load merges every persisted entry into ix and returns how many chunks
// were read.
func (s *Store) Load(ctx context.Context, ix *Index) (int, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT content_hash, entity_type, entity_name, language, issue_count, embedding, analysis, last_analyzed
		 FROM code_chunks ORDER BY content_hash`)
	if err != nil {
		return 0, fmt.Errorf("querying chunks: %w", err)
	}
	entries := make(map[string]*Entry)
	var order []string
	for rows.Next() {
		var (
			e                          Entry
			kind, language             string
			issues                     int
			embedding, analysis, stamp sql.NullString
		)
		if err := rows.Scan(&e.ContentHash, &kind, &e.Name, &language, &issues, &embedding, &analysis, &stamp); err != nil {
			_ = rows.Close()
			return 0, fmt.Errorf("scanning chunk: %w", err)
		}
		e.Kind = chunker.Kind(kind)
		e.Language, _ = lang.Parse(language)
		if stamp.Valid {
			p, err := decodePayload(issues, embedding, analysis, stamp.String)
			if err != nil {
				_ = rows.Close()
				return 0, fmt.Errorf("chunk %s: %w", e.ContentHash, err)
			}
			e.Payload = p
		}
		entries[e.ContentHash] = &e
		order = append(order, e.ContentHash)
	}
	if err := errors.Join(rows.Err(), rows.Close()); err != nil {
		return 0, fmt.Errorf("reading chunks: %w", err)
	}

	locs, err := s.conn.QueryContext(ctx,
		`SELECT content_hash, repo_id, file_path, start_line, end_line, entity_name FROM chunk_locations ORDER BY id`)
	if err != nil {
		return 0, fmt.Errorf("querying locations: %w", err)
	}
	defer locs.Close()
	for locs.Next() {
		var (
			hash string
			l    Location
		)
		if err := locs.Scan(&hash, &l.RepoID, &l.Path, &l.StartLine, &l.EndLine, &l.Name); err != nil {
			return 0, fmt.Errorf("scanning location: %w", err)
		}
		if e, ok := entries[hash]; ok {
			e.Locations = append(e.Locations, l)
		}
	}
	if err := locs.Err(); err != nil {
		return 0, fmt.Errorf("reading locations: %w", err)
	}

	for _, h := range order {
		ix.restore(*entries[h])
	}
	return len(order), nil
}

func decodePayload(issues int, embedding, analysis sql.NullString, stamp string) (*Payload, error) {
	p := &Payload{IssueCount: issues}
	if embedding.Valid && embedding.String != "" && embedding.String != "null" {
		if err := json.Unmarshal([]byte(embedding.String), &p.Vector); err != nil {
			return nil, fmt.Errorf("decoding vector: %w", err)
		}
	}
	if analysis.Valid {
		p.Analysis = json.RawMessage(analysis.String)
	}
	t, err := time.Parse(time.RFC3339Nano, stamp)
	if err != nil {
		return nil, fmt.Errorf("parsing analyzed time: %w", err)
	}
	p.AnalyzedAt = t
	return p, nil
}

// RecordSavings stores one row per analysis result for a scan session.
func (s *Store) RecordSavings(ctx context.Context, sessionID, repoID string, results []analyzer.Result) (err error) {
	if len(results) == 0 {
		return nil
	}
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning savings: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO scan_savings (scan_session_id, repo_id, file_path, recommendation, skip_reason, static_issue_count, estimated_llm_value)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing savings: %w", err)
	}
	defer stmt.Close()
	for _, r := range results {
		if _, err := stmt.ExecContext(ctx, sessionID, repoID, r.Path, r.Recommendation.String(),
			nullString(string(r.SkipReason)), r.StaticIssueCount, r.EstimatedLLMValue); err != nil {
			return fmt.Errorf("recording %s: %w", r.Path, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing savings: %w", err)
	}
	return nil
}

// SessionCounts returns the number of recorded files per recommendation
// for a scan session.
func (s *Store) SessionCounts(ctx context.Context, sessionID string) (map[analyzer.Recommendation]int, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT recommendation, COUNT(*) FROM scan_savings WHERE scan_session_id = ? GROUP BY recommendation`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying savings: %w", err)
	}
	defer rows.Close()
	out := make(map[analyzer.Recommendation]int)
	for rows.Next() {
		var (
			name string
			n    int
		)
		if err := rows.Scan(&name, &n); err != nil {
			return nil, fmt.Errorf("scanning savings: %w", err)
		}
		rec, err := analyzer.ParseRecommendation(name)
		if err != nil {
			return nil, err
		}
		out[rec] = n
	}
	return out, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
