// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists content items and their audit trails. It is
// the single source of truth for pipeline state: every stage transition
// is durably written here before the next stage runs, so a restart
// resumes from the last committed stage.
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

	"github.com/mattn/go-sqlite3"

	"github.com/pdiddy/content-pipeline/pkg/types"
)

const (
	indexDir = "index"
	dbFile   = "pipeline.db"
)

// ErrNotFound reports that no item matches the given id.
var ErrNotFound = errors.New("item not found")

// ErrStageConflict reports that a conditional transition found the item
// in a different stage than expected. The caller's result is stale and
// must be discarded.
var ErrStageConflict = errors.New("item stage changed concurrently")

// ErrDuplicateFingerprint reports that an insert would create a second
// non-terminal item for a fingerprint. The database enforces this with
// a partial unique index, so the guarantee holds across processes, not
// just within one Checker.
var ErrDuplicateFingerprint = errors.New("an active item already exists for this fingerprint")

// Store manages the pipeline SQLite database.
type Store struct {
	db      *sql.DB
	dataDir string
}

// New opens or creates the pipeline database at dataDir/index/pipeline.db,
// creating the schema if it does not exist.
func New(cfg types.StoreConfig) (*Store, error) {
	dbDir := filepath.Join(cfg.DataDir, indexDir)
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	dbPath := filepath.Join(dbDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, dataDir: cfg.DataDir}
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
		`CREATE TABLE IF NOT EXISTS content_items (
			id TEXT PRIMARY KEY,
			topic TEXT NOT NULL,
			fingerprint TEXT NOT NULL,
			stage TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			content TEXT NOT NULL DEFAULT '',
			meta_description TEXT NOT NULL DEFAULT '',
			research_summary TEXT NOT NULL DEFAULT '',
			source_urls TEXT NOT NULL DEFAULT '[]',
			revision_count INTEGER NOT NULL DEFAULT 0,
			issues TEXT NOT NULL DEFAULT '[]',
			quality_incomplete INTEGER NOT NULL DEFAULT 0,
			metrics TEXT,
			cost_accumulated REAL NOT NULL DEFAULT 0,
			post_url TEXT NOT NULL DEFAULT '',
			social_post_id TEXT NOT NULL DEFAULT '',
			fail_reason TEXT NOT NULL DEFAULT '',
			options TEXT NOT NULL DEFAULT '{}',
			advancing INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_items_fingerprint ON content_items(fingerprint)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_items_active_fingerprint
			ON content_items(fingerprint)
			WHERE stage NOT IN ('published', 'failed')`,
		`CREATE INDEX IF NOT EXISTS idx_items_stage ON content_items(stage)`,
		`CREATE TABLE IF NOT EXISTS audit_trail (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			item_id TEXT NOT NULL REFERENCES content_items(id),
			at TEXT NOT NULL,
			from_stage TEXT NOT NULL,
			to_stage TEXT NOT NULL,
			actor TEXT NOT NULL,
			cost_delta REAL NOT NULL DEFAULT 0,
			note TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_item ON audit_trail(item_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Create inserts a new content item and its creation audit record.
func (s *Store) Create(ctx context.Context, item *types.ContentItem) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	urls, issues, metrics, opts, err := marshalFields(item)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO content_items
			(id, topic, fingerprint, stage, title, content, meta_description,
			 research_summary, source_urls, revision_count, issues,
			 quality_incomplete, metrics, cost_accumulated, post_url,
			 social_post_id, fail_reason, options, advancing, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		item.ID, item.Topic, item.Fingerprint, string(item.Stage),
		item.Title, item.Content, item.MetaDescription,
		item.ResearchSummary, urls, item.RevisionCount, issues,
		boolInt(item.QualityIncomplete), metrics, item.CostAccumulated,
		item.PostURL, item.SocialPostID, item.FailReason, opts,
		item.CreatedAt.UTC().Format(time.RFC3339Nano),
		item.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		var serr sqlite3.Error
		if errors.As(err, &serr) && serr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return fmt.Errorf("fingerprint %s: %w", item.Fingerprint, ErrDuplicateFingerprint)
		}
		return fmt.Errorf("inserting item: %w", err)
	}

	if err := appendAuditTx(ctx, tx, item.ID, types.AuditEntry{
		At:    item.CreatedAt,
		To:    item.Stage,
		Actor: "system",
		Note:  "created",
	}); err != nil {
		return err
	}

	return tx.Commit()
}

// Get returns the item with the given id, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (*types.ContentItem, error) {
	row := s.db.QueryRowContext(ctx, selectItems+` WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("item %s: %w", id, ErrNotFound)
	}
	return item, err
}

// FindActiveByFingerprint returns the one non-terminal item carrying
// the fingerprint, or nil if every match is Published or Failed.
func (s *Store) FindActiveByFingerprint(ctx context.Context, fingerprint string) (*types.ContentItem, error) {
	row := s.db.QueryRowContext(ctx,
		selectItems+` WHERE fingerprint = ? AND stage NOT IN (?, ?) LIMIT 1`,
		fingerprint, string(types.StagePublished), string(types.StageFailed))
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return item, err
}

// ListByStage returns all items in the given stage, oldest first.
func (s *Store) ListByStage(ctx context.Context, stage types.Stage) ([]*types.ContentItem, error) {
	rows, err := s.db.QueryContext(ctx,
		selectItems+` WHERE stage = ? ORDER BY created_at`, string(stage))
	if err != nil {
		return nil, fmt.Errorf("querying stage %s: %w", stage, err)
	}
	defer rows.Close()
	return scanItems(rows)
}

// ListResumable returns non-terminal items that are not waiting at the
// review gate, oldest first. These are the items a restarted process
// should re-advance.
func (s *Store) ListResumable(ctx context.Context) ([]*types.ContentItem, error) {
	rows, err := s.db.QueryContext(ctx,
		selectItems+` WHERE stage NOT IN (?, ?, ?) ORDER BY created_at`,
		string(types.StagePublished), string(types.StageFailed),
		string(types.StageAwaitingReview))
	if err != nil {
		return nil, fmt.Errorf("querying resumable items: %w", err)
	}
	defer rows.Close()
	return scanItems(rows)
}

// Update persists the item's mutable fields. The stage is not written
// here; stage changes go through Transition so the audit trail stays
// complete.
func (s *Store) Update(ctx context.Context, item *types.ContentItem) error {
	urls, issues, metrics, opts, err := marshalFields(item)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE content_items SET
			title = ?, content = ?, meta_description = ?,
			research_summary = ?, source_urls = ?, revision_count = ?,
			issues = ?, quality_incomplete = ?, metrics = ?,
			cost_accumulated = ?, post_url = ?, social_post_id = ?,
			fail_reason = ?, options = ?, updated_at = ?
		 WHERE id = ?`,
		item.Title, item.Content, item.MetaDescription,
		item.ResearchSummary, urls, item.RevisionCount,
		issues, boolInt(item.QualityIncomplete), metrics,
		item.CostAccumulated, item.PostURL, item.SocialPostID,
		item.FailReason, opts, time.Now().UTC().Format(time.RFC3339Nano),
		item.ID,
	)
	if err != nil {
		return fmt.Errorf("updating item %s: %w", item.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating item %s: %w", item.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("item %s: %w", item.ID, ErrNotFound)
	}
	return nil
}

// Transition atomically moves the item from one stage to another and
// appends the audit record, accumulating the entry's cost delta. It
// fails with ErrStageConflict when the item is no longer in the from
// stage, which is how results of superseded work get discarded.
func (s *Store) Transition(ctx context.Context, id string, from, to types.Stage, entry types.AuditEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx,
		`UPDATE content_items
		 SET stage = ?, cost_accumulated = cost_accumulated + ?, updated_at = ?
		 WHERE id = ? AND stage = ?`,
		string(to), entry.CostDelta, now.Format(time.RFC3339Nano),
		id, string(from))
	if err != nil {
		return fmt.Errorf("transitioning item %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("transitioning item %s: %w", id, err)
	}
	if n == 0 {
		// Distinguish a missing item from a concurrent stage change.
		var cur string
		err := tx.QueryRowContext(ctx,
			`SELECT stage FROM content_items WHERE id = ?`, id).Scan(&cur)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("item %s: %w", id, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("transitioning item %s: %w", id, err)
		}
		return fmt.Errorf("item %s is in stage %s, expected %s: %w", id, cur, from, ErrStageConflict)
	}

	entry.At = now
	entry.From = from
	entry.To = to
	if err := appendAuditTx(ctx, tx, id, entry); err != nil {
		return err
	}

	return tx.Commit()
}

// Claim marks the item as having an advancement in progress. It returns
// false when another advancement already holds the claim, which is the
// at-most-one-advancer guarantee.
func (s *Store) Claim(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE content_items SET advancing = 1, updated_at = ?
		 WHERE id = ? AND advancing = 0`,
		time.Now().UTC().Format(time.RFC3339Nano), id)
	if err != nil {
		return false, fmt.Errorf("claiming item %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claiming item %s: %w", id, err)
	}
	if n == 1 {
		return true, nil
	}

	// Either claimed elsewhere or missing.
	var advancing int
	err = s.db.QueryRowContext(ctx,
		`SELECT advancing FROM content_items WHERE id = ?`, id).Scan(&advancing)
	if errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("item %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return false, fmt.Errorf("claiming item %s: %w", id, err)
	}
	return false, nil
}

// Release clears the advancement claim.
func (s *Store) Release(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE content_items SET advancing = 0, updated_at = ?
		 WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339Nano), id)
	if err != nil {
		return fmt.Errorf("releasing item %s: %w", id, err)
	}
	return nil
}

// ReleaseStale clears advancement claims left behind by a crashed
// process so a restart can resume those items.
func (s *Store) ReleaseStale(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `UPDATE content_items SET advancing = 0 WHERE advancing = 1`)
	if err != nil {
		return fmt.Errorf("releasing stale claims: %w", err)
	}
	return nil
}

// AuditTrail returns the item's audit records in append order.
func (s *Store) AuditTrail(ctx context.Context, id string) ([]types.AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT at, from_stage, to_stage, actor, cost_delta, note
		 FROM audit_trail WHERE item_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("querying audit trail for %s: %w", id, err)
	}
	defer rows.Close()

	var trail []types.AuditEntry
	for rows.Next() {
		var e types.AuditEntry
		var at, from, to string
		if err := rows.Scan(&at, &from, &to, &e.Actor, &e.CostDelta, &e.Note); err != nil {
			return nil, fmt.Errorf("scanning audit entry: %w", err)
		}
		e.At, _ = time.Parse(time.RFC3339Nano, at)
		e.From = types.Stage(from)
		e.To = types.Stage(to)
		trail = append(trail, e)
	}
	return trail, rows.Err()
}

// AppendAudit writes a standalone audit record, used for model calls
// that happen within a stage rather than at a transition. The cost
// delta is accumulated on the item.
func (s *Store) AppendAudit(ctx context.Context, id string, entry types.AuditEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if entry.CostDelta != 0 {
		if _, err := tx.ExecContext(ctx,
			`UPDATE content_items SET cost_accumulated = cost_accumulated + ?, updated_at = ?
			 WHERE id = ?`,
			entry.CostDelta, time.Now().UTC().Format(time.RFC3339Nano), id); err != nil {
			return fmt.Errorf("accumulating cost for %s: %w", id, err)
		}
	}
	if entry.At.IsZero() {
		entry.At = time.Now().UTC()
	}
	if err := appendAuditTx(ctx, tx, id, entry); err != nil {
		return err
	}
	return tx.Commit()
}

const selectItems = `SELECT id, topic, fingerprint, stage, title, content,
	meta_description, research_summary, source_urls, revision_count, issues,
	quality_incomplete, metrics, cost_accumulated, post_url, social_post_id,
	fail_reason, options, created_at, updated_at
	FROM content_items`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*types.ContentItem, error) {
	var (
		item               types.ContentItem
		stage              string
		urls, issues, opts string
		metrics            sql.NullString
		qualityIncomplete  int
		created, updated   string
	)
	err := row.Scan(&item.ID, &item.Topic, &item.Fingerprint, &stage,
		&item.Title, &item.Content, &item.MetaDescription,
		&item.ResearchSummary, &urls, &item.RevisionCount, &issues,
		&qualityIncomplete, &metrics, &item.CostAccumulated,
		&item.PostURL, &item.SocialPostID, &item.FailReason,
		&opts, &created, &updated)
	if err != nil {
		return nil, err
	}

	item.Stage = types.Stage(stage)
	item.QualityIncomplete = qualityIncomplete != 0
	if err := json.Unmarshal([]byte(urls), &item.SourceURLs); err != nil {
		return nil, fmt.Errorf("parsing source_urls for %s: %w", item.ID, err)
	}
	if err := json.Unmarshal([]byte(issues), &item.Issues); err != nil {
		return nil, fmt.Errorf("parsing issues for %s: %w", item.ID, err)
	}
	if err := json.Unmarshal([]byte(opts), &item.Options); err != nil {
		return nil, fmt.Errorf("parsing options for %s: %w", item.ID, err)
	}
	if metrics.Valid && metrics.String != "" {
		var m types.QualityMetrics
		if err := json.Unmarshal([]byte(metrics.String), &m); err != nil {
			return nil, fmt.Errorf("parsing metrics for %s: %w", item.ID, err)
		}
		item.Metrics = &m
	}
	item.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	item.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
	return &item, nil
}

func scanItems(rows *sql.Rows) ([]*types.ContentItem, error) {
	var items []*types.ContentItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func marshalFields(item *types.ContentItem) (urls, issues string, metrics sql.NullString, opts string, err error) {
	u, err := json.Marshal(urlsOrEmpty(item.SourceURLs))
	if err != nil {
		return "", "", sql.NullString{}, "", fmt.Errorf("marshaling source_urls: %w", err)
	}
	i, err := json.Marshal(urlsOrEmpty(item.Issues))
	if err != nil {
		return "", "", sql.NullString{}, "", fmt.Errorf("marshaling issues: %w", err)
	}
	if item.Metrics != nil {
		m, err := json.Marshal(item.Metrics)
		if err != nil {
			return "", "", sql.NullString{}, "", fmt.Errorf("marshaling metrics: %w", err)
		}
		metrics = sql.NullString{String: string(m), Valid: true}
	}
	o, err := json.Marshal(item.Options)
	if err != nil {
		return "", "", sql.NullString{}, "", fmt.Errorf("marshaling options: %w", err)
	}
	return string(u), string(i), metrics, string(o), nil
}

// urlsOrEmpty keeps nil slices serializing as [] rather than null.
func urlsOrEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func appendAuditTx(ctx context.Context, tx *sql.Tx, id string, entry types.AuditEntry) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO audit_trail (item_id, at, from_stage, to_stage, actor, cost_delta, note)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, entry.At.UTC().Format(time.RFC3339Nano),
		string(entry.From), string(entry.To), entry.Actor,
		entry.CostDelta, entry.Note)
	if err != nil {
		return fmt.Errorf("appending audit entry for %s: %w", id, err)
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
