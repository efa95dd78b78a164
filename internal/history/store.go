// Package history persists commit messages accepted through the engine so
// recent-message context survives slow or log-less backends. It backs the
// provider log with a local sqlite store: provider results and stored history
// are merged newest-first and de-duplicated.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/littleCareless/dish-ai-commit-sub004/internal/config"
	"github.com/littleCareless/dish-ai-commit-sub004/internal/logging"
	"github.com/littleCareless/dish-ai-commit-sub004/internal/repository"
)

// Store is the sqlite-backed commit-message history.
type Store struct {
	db     *sql.DB
	logger logging.Logger
}

// Open opens the history database and runs migrations.
func Open(cfg *config.Config, logger logging.Logger) (*Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	dbPath := cfg.History.DatabasePath
	if dbPath == "" {
		return nil, fmt.Errorf("history database path not configured")
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create history database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping history database: %w", err)
	}

	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Store{
		db:     db,
		logger: logger.With("component", "history_store"),
	}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordCommit stores one accepted commit message for a repository. author
// may be empty when the backend exposes no identity.
func (s *Store) RecordCommit(ctx context.Context, repositoryPath, author, message string) error {
	if message == "" {
		return fmt.Errorf("message cannot be empty")
	}

	key := repository.NormalizePath(repositoryPath)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO commit_messages (repository_path, author, message, created_at)
		VALUES (?, ?, ?, ?)
	`, key, author, message, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to record commit message: %w", err)
	}

	s.logger.Debug("recorded commit message", "repository", key)
	return nil
}

// RecentMessages returns the newest stored messages for a repository.
func (s *Store) RecentMessages(ctx context.Context, repositoryPath string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 10
	}

	key := repository.NormalizePath(repositoryPath)
	rows, err := s.db.QueryContext(ctx, `
		SELECT message FROM commit_messages
		WHERE repository_path = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, key, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query commit messages: %w", err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

// RecentMessagesByAuthor returns the newest stored messages for one author.
func (s *Store) RecentMessagesByAuthor(ctx context.Context, repositoryPath, author string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 10
	}

	key := repository.NormalizePath(repositoryPath)
	rows, err := s.db.QueryContext(ctx, `
		SELECT message FROM commit_messages
		WHERE repository_path = ? AND author = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, key, author, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query commit messages: %w", err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

// scanMessages reads message rows into a slice.
func scanMessages(rows *sql.Rows) ([]string, error) {
	var messages []string
	for rows.Next() {
		var message string
		if err := rows.Scan(&message); err != nil {
			return nil, fmt.Errorf("failed to scan commit message: %w", err)
		}
		messages = append(messages, message)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate commit messages: %w", err)
	}
	return messages, nil
}

// MergeMessages combines provider-sourced and stored messages, preserving
// order, dropping duplicates, and trimming to limit.
func MergeMessages(primary, secondary []string, limit int) []string {
	if limit <= 0 {
		limit = 10
	}

	seen := make(map[string]bool)
	var merged []string
	for _, group := range [][]string{primary, secondary} {
		for _, message := range group {
			if message == "" || seen[message] {
				continue
			}
			seen[message] = true
			merged = append(merged, message)
			if len(merged) >= limit {
				return merged
			}
		}
	}
	return merged
}
