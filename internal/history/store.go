// Package history persists a record of published posts in SQLite. The
// summaries of past posts feed back into content generation so new posts
// avoid repeating topics and can interlink.
package history

import (
	"bufio"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// Entry is one published post.
type Entry struct {
	Slug        string
	Title       string
	Summary     string
	URL         string
	Provider    string
	RemoteID    string
	PublishedAt time.Time
}

// Store is the SQLite-backed history of published posts.
type Store struct {
	db *sql.DB
}

// Open initializes the history database at the given path, creating the
// directory and schema as needed.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS published_posts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		slug TEXT NOT NULL UNIQUE,
		title TEXT,
		summary TEXT,
		url TEXT NOT NULL,
		provider TEXT,
		remote_id TEXT,
		published_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_published_at ON published_posts(published_at);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create history schema: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores a published post, replacing any previous record for the same
// slug.
func (s *Store) Record(e Entry) error {
	if e.PublishedAt.IsZero() {
		e.PublishedAt = time.Now().UTC()
	}

	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO published_posts
			(slug, title, summary, url, provider, remote_id, published_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.Slug, e.Title, e.Summary, e.URL, e.Provider, e.RemoteID,
		e.PublishedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to record published post: %w", err)
	}
	return nil
}

// Summaries returns every recorded summary with its URL, oldest first, for
// use as topic-avoidance context during generation.
func (s *Store) Summaries() ([]Entry, error) {
	rows, err := s.db.Query(`
		SELECT slug, summary, url FROM published_posts
		WHERE summary != '' ORDER BY published_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to load summaries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Slug, &e.Summary, &e.URL); err != nil {
			return nil, fmt.Errorf("failed to scan summary row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Recent returns up to limit published posts, newest first.
func (s *Store) Recent(limit int) ([]Entry, error) {
	rows, err := s.db.Query(`
		SELECT slug, title, summary, url, provider, remote_id, published_at
		FROM published_posts ORDER BY published_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var publishedAt string
		if err := rows.Scan(&e.Slug, &e.Title, &e.Summary, &e.URL, &e.Provider, &e.RemoteID, &publishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		if t, err := time.Parse(time.RFC3339, publishedAt); err == nil {
			e.PublishedAt = t
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ImportSummaries loads a legacy summaries file of "summary::url" lines into
// the store, skipping malformed lines and slugs already present. Returns the
// number of imported entries. A missing file is not an error.
func (s *Store) ImportSummaries(path string, logger *zap.Logger) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to open summaries file: %w", err)
	}
	defer f.Close()

	imported := 0
	lineNum := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.SplitN(line, "::", 2)
		if len(parts) != 2 || strings.TrimSpace(parts[0]) == "" || strings.TrimSpace(parts[1]) == "" {
			logger.Warn("skipping malformed summaries line",
				zap.String("file", path), zap.Int("line", lineNum))
			continue
		}
		summary := strings.TrimSpace(parts[0])
		url := strings.TrimSpace(parts[1])

		res, err := s.db.Exec(`
			INSERT OR IGNORE INTO published_posts (slug, summary, url, published_at)
			VALUES (?, ?, ?, ?)`,
			slugFromURL(url), summary, url, time.Now().UTC().Format(time.RFC3339))
		if err != nil {
			return imported, fmt.Errorf("failed to import summary: %w", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			imported++
		}
	}
	if err := scanner.Err(); err != nil {
		return imported, fmt.Errorf("failed to read summaries file: %w", err)
	}
	return imported, nil
}

// slugFromURL takes the last path segment of a post URL.
func slugFromURL(url string) string {
	url = strings.TrimRight(url, "/")
	if i := strings.LastIndex(url, "/"); i >= 0 {
		return url[i+1:]
	}
	return url
}
