// Package memory is the fact-retrieval collaborator: a SQLite-backed
// store of atomic facts per user, searched with full-text matching when
// a live message references something from the past.
package memory

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/auralabs/aura/internal/errors"
)

// Fact is one stored atomic fact about a user.
type Fact struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Content   string `json:"content"`
	CreatedAt int64  `json:"created_at"`
}

// Store is a SQLite-backed fact store. Safe for concurrent use; SQLite
// serializes writers and WAL keeps readers unblocked.
type Store struct {
	db *sql.DB
}

// Open initializes the store at baseDir/memory.db, creating the
// directory and schema as needed. The baseDir parameter allows tests to
// use t.TempDir().
func Open(baseDir string) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	_ = os.Chmod(baseDir, 0700)

	dbPath := filepath.Join(baseDir, "memory.db")
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	_ = os.Chmod(dbPath, 0600)

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func migrate(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS facts (
	  id         TEXT PRIMARY KEY,
	  user_id    TEXT NOT NULL,
	  content    TEXT NOT NULL,
	  created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_facts_user_created
	ON facts(user_id, created_at DESC);

	CREATE VIRTUAL TABLE IF NOT EXISTS facts_fts USING fts5(
	  content,
	  content='facts',
	  content_rowid='rowid'
	);

	CREATE TRIGGER IF NOT EXISTS facts_ai AFTER INSERT ON facts BEGIN
	  INSERT INTO facts_fts(rowid, content) VALUES (new.rowid, new.content);
	END;

	CREATE TRIGGER IF NOT EXISTS facts_ad AFTER DELETE ON facts BEGIN
	  INSERT INTO facts_fts(facts_fts, rowid, content) VALUES ('delete', old.rowid, old.content);
	END;
	`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// Remember stores a new fact for a user and returns it.
func (s *Store) Remember(ctx context.Context, userID, content string) (*Fact, error) {
	userID = strings.TrimSpace(userID)
	content = strings.TrimSpace(content)
	if userID == "" {
		return nil, errors.NewInvalidRequest("user_id is required")
	}
	if content == "" {
		return nil, errors.NewInvalidRequest("content is required")
	}

	fact := &Fact{
		ID:        newULID(),
		UserID:    userID,
		Content:   content,
		CreatedAt: time.Now().Unix(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO facts (id, user_id, content, created_at) VALUES (?, ?, ?, ?)`,
		fact.ID, fact.UserID, fact.Content, fact.CreatedAt)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return fact, nil
}

// Search returns up to limit facts for the user ranked by relevance to
// the free-text query. A query with no indexable words returns no facts.
func (s *Store) Search(ctx context.Context, userID, query string, limit int) ([]Fact, error) {
	if limit <= 0 {
		limit = 3
	}
	match := ftsQuery(query)
	if match == "" {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT f.id, f.user_id, f.content, f.created_at
		FROM facts_fts
		JOIN facts f ON f.rowid = facts_fts.rowid
		WHERE facts_fts MATCH ? AND f.user_id = ?
		ORDER BY bm25(facts_fts)
		LIMIT ?`,
		match, userID, limit)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	return scanFacts(rows)
}

// Recent returns the user's most recently stored facts, newest first.
func (s *Store) Recent(ctx context.Context, userID string, limit int) ([]Fact, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, content, created_at
		FROM facts
		WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`,
		userID, limit)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	return scanFacts(rows)
}

// SearchContents returns only the content strings of matching facts, in
// the shape the trigger processor consumes.
func (s *Store) SearchContents(ctx context.Context, userID, query string, limit int) ([]string, error) {
	facts, err := s.Search(ctx, userID, query, limit)
	if err != nil {
		return nil, err
	}
	contents := make([]string, len(facts))
	for i, f := range facts {
		contents[i] = f.Content
	}
	return contents, nil
}

func scanFacts(rows *sql.Rows) ([]Fact, error) {
	var facts []Fact
	for rows.Next() {
		var f Fact
		if err := rows.Scan(&f.ID, &f.UserID, &f.Content, &f.CreatedAt); err != nil {
			return nil, errors.NewInternal(err)
		}
		facts = append(facts, f)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return facts, nil
}

var wordPattern = regexp.MustCompile(`[a-zA-Z0-9]+`)

// ftsQuery converts free text (punctuation, question marks, apostrophes)
// into a safe FTS5 MATCH expression: each word quoted, joined with OR.
func ftsQuery(query string) string {
	words := wordPattern.FindAllString(query, -1)
	if len(words) == 0 {
		return ""
	}
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = `"` + w + `"`
	}
	return strings.Join(quoted, " OR ")
}

func newULID() string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
