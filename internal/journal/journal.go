package journal

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/starford/herald/internal/apperr"
	"github.com/starford/herald/internal/models"
)

// Store defines the journal operations consumed by the runner, the API and
// the MCP server.
type Store interface {
	RecordPass(r *models.PassReport) (int64, error)
	RecentPasses(limit int) ([]models.PassSummary, error)
	PassEvents(id int64) ([]models.Event, error)
	Documents() ([]models.PublishedDocument, error)
	Search(query string, limit int) ([]SearchResult, error)
	Prune(keep int) error
	Ping() error
	Close() error
}

// Verify *DB satisfies Store at compile time.
var _ Store = (*DB)(nil)

// SearchResult represents one search hit among published documents.
type SearchResult struct {
	Name    string `json:"name"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// RecordPass stores a pass with its events. For a pass that completed
// (r.Error empty) the documents table is replaced by r.Published. The new
// pass id is returned and assigned to r.ID.
func (db *DB) RecordPass(r *models.PassReport) (int64, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return 0, fmt.Errorf("journal: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	s := r.Summary()
	res, err := tx.Exec(`
		INSERT INTO passes (started_at, finished_at, published, written, unchanged, deleted, failed, missing, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, s.StartedAt, s.FinishedAt, s.Published, s.Written, s.Unchanged, s.Deleted, s.Failed, s.Missing, s.Error)
	if err != nil {
		return 0, fmt.Errorf("journal: insert pass: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("journal: pass id: %w", err)
	}

	if len(r.Events) > 0 {
		stmt, err := tx.Prepare(`INSERT INTO events (pass_id, seq, kind, name, source, detail, at) VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return 0, fmt.Errorf("journal: prepare event insert: %w", err)
		}
		defer stmt.Close()
		for i, e := range r.Events {
			if _, err := stmt.Exec(id, i, string(e.Kind), e.Name, e.Source, e.Detail, e.At); err != nil {
				return 0, fmt.Errorf("journal: insert event: %w", err)
			}
		}
	}

	if r.Error == "" {
		if err := replaceDocuments(tx, id, r); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("journal: commit: %w", err)
	}
	r.ID = id
	return id, nil
}

// replaceDocuments makes the documents table equal to the active set of r.
// updated_at only moves when a document's checksum changes.
func replaceDocuments(tx *sql.Tx, passID int64, r *models.PassReport) error {
	active := r.PublishedNames()

	rows, err := tx.Query(`SELECT name FROM documents`)
	if err != nil {
		return fmt.Errorf("journal: list documents: %w", err)
	}
	var stale []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return err
		}
		if _, ok := active[name]; !ok {
			stale = append(stale, name)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	for _, name := range stale {
		ftsDelete(tx, name)
		if _, err := tx.Exec(`DELETE FROM documents WHERE name = ?`, name); err != nil {
			return fmt.Errorf("journal: delete document: %w", err)
		}
	}

	for _, d := range r.Published {
		tagsJSON, _ := json.Marshal(d.Tags)
		_, err := tx.Exec(`
			INSERT INTO documents (name, source, title, tags, checksum, body, pass_id, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(name) DO UPDATE SET
				source     = excluded.source,
				title      = excluded.title,
				tags       = excluded.tags,
				body       = excluded.body,
				pass_id    = excluded.pass_id,
				updated_at = CASE WHEN documents.checksum = excluded.checksum
				             THEN documents.updated_at ELSE excluded.updated_at END,
				checksum   = excluded.checksum
		`, d.Name, d.Source, d.Title, string(tagsJSON), d.Checksum, d.Body, passID, r.FinishedAt)
		if err != nil {
			return fmt.Errorf("journal: upsert document: %w", err)
		}
		if err := ftsUpsert(tx, d.Name, d.Title, d.Body, d.Tags); err != nil {
			return err
		}
	}
	return nil
}

// RecentPasses returns up to limit passes, newest first.
func (db *DB) RecentPasses(limit int) ([]models.PassSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT id, started_at, finished_at, published, written, unchanged, deleted, failed, missing, error
		FROM passes
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("journal: recent passes: %w", err)
	}
	defer rows.Close()

	out := []models.PassSummary{}
	for rows.Next() {
		var s models.PassSummary
		if err := rows.Scan(&s.ID, &s.StartedAt, &s.FinishedAt, &s.Published, &s.Written,
			&s.Unchanged, &s.Deleted, &s.Failed, &s.Missing, &s.Error); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// PassEvents returns the events of a pass in emission order. It returns
// apperr.ErrNotFound when the pass does not exist.
func (db *DB) PassEvents(id int64) ([]models.Event, error) {
	var one int
	err := db.conn.QueryRow(`SELECT 1 FROM passes WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("pass %d: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("journal: get pass: %w", err)
	}

	rows, err := db.conn.Query(`
		SELECT kind, name, source, detail, at
		FROM events
		WHERE pass_id = ?
		ORDER BY seq
	`, id)
	if err != nil {
		return nil, fmt.Errorf("journal: pass events: %w", err)
	}
	defer rows.Close()

	out := []models.Event{}
	for rows.Next() {
		var e models.Event
		var kind string
		if err := rows.Scan(&kind, &e.Name, &e.Source, &e.Detail, &e.At); err != nil {
			return nil, err
		}
		e.Kind = models.EventKind(kind)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Documents returns the currently published documents ordered by name.
func (db *DB) Documents() ([]models.PublishedDocument, error) {
	rows, err := db.conn.Query(`SELECT name, source, title, tags, checksum FROM documents ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("journal: documents: %w", err)
	}
	defer rows.Close()

	out := []models.PublishedDocument{}
	for rows.Next() {
		var d models.PublishedDocument
		var tagsJSON string
		if err := rows.Scan(&d.Name, &d.Source, &d.Title, &tagsJSON, &d.Checksum); err != nil {
			return nil, err
		}
		_ = json.Unmarshal([]byte(tagsJSON), &d.Tags)
		if d.Tags == nil {
			d.Tags = []string{}
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Prune deletes all but the newest keep passes and their events.
func (db *DB) Prune(keep int) error {
	if keep <= 0 {
		return nil
	}
	_, err := db.conn.Exec(`
		DELETE FROM passes
		WHERE id NOT IN (SELECT id FROM passes ORDER BY id DESC LIMIT ?)
	`, keep)
	if err != nil {
		return fmt.Errorf("journal: prune: %w", err)
	}
	return nil
}
