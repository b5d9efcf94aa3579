package metrics

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Mode represents the surface a tool invocation came through.
type Mode string

const (
	ModeMCP Mode = "mcp"
	ModeCLI Mode = "cli"
)

// Store manages SQLite persistence for tool invocation counts.
type Store struct {
	db *sql.DB
}

// NewStore creates a new Store with the database at ~/.chatbridge/stats.db.
// The directory and database file are created if they don't exist.
func NewStore() (*Store, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}

	stateDir := filepath.Join(homeDir, ".chatbridge")
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create .chatbridge directory: %w", err)
	}

	return NewStoreWithPath(filepath.Join(stateDir, "stats.db"))
}

// NewStoreWithPath creates a new Store with a custom database path.
// This is useful for testing.
func NewStoreWithPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	createTableSQL := `
		CREATE TABLE IF NOT EXISTS tool_invocations (
			mode TEXT NOT NULL,
			tool TEXT NOT NULL,
			date TEXT NOT NULL,
			count INTEGER DEFAULT 0,
			PRIMARY KEY (mode, tool, date)
		);
	`
	if _, err := db.Exec(createTableSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &Store{db: db}, nil
}

// Increment increments the count for the given mode and tool for today's date.
func (s *Store) Increment(mode Mode, tool string) error {
	today := time.Now().Format("2006-01-02")

	upsertSQL := `
		INSERT INTO tool_invocations (mode, tool, date, count)
		VALUES (?, ?, ?, 1)
		ON CONFLICT(mode, tool, date) DO UPDATE SET count = count + 1;
	`
	if _, err := s.db.Exec(upsertSQL, string(mode), tool, today); err != nil {
		return fmt.Errorf("failed to increment count: %w", err)
	}

	return nil
}

// GetTotalByMode returns the cumulative count for a mode across all tools
// and dates.
func (s *Store) GetTotalByMode(mode Mode) (int64, error) {
	var total int64
	row := s.db.QueryRow(
		"SELECT COALESCE(SUM(count), 0) FROM tool_invocations WHERE mode = ?",
		string(mode),
	)
	if err := row.Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to get total for mode %s: %w", mode, err)
	}
	return total, nil
}

// GetAllTotals returns a map of cumulative counts for all modes.
func (s *Store) GetAllTotals() (map[Mode]int64, error) {
	result := map[Mode]int64{
		ModeMCP: 0,
		ModeCLI: 0,
	}

	rows, err := s.db.Query(
		"SELECT mode, COALESCE(SUM(count), 0) FROM tool_invocations GROUP BY mode",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query totals: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var modeStr string
		var total int64
		if err := rows.Scan(&modeStr, &total); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result[Mode(modeStr)] = total
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return result, nil
}

// GetToolTotals returns a map of cumulative counts per tool across all
// modes and dates.
func (s *Store) GetToolTotals() (map[string]int64, error) {
	result := make(map[string]int64)

	rows, err := s.db.Query(
		"SELECT tool, COALESCE(SUM(count), 0) FROM tool_invocations GROUP BY tool",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query tool totals: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var tool string
		var total int64
		if err := rows.Scan(&tool, &total); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result[tool] = total
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return result, nil
}

// GetCountByDate returns the count for a mode and tool on a specific date.
func (s *Store) GetCountByDate(mode Mode, tool, date string) (int64, error) {
	var count int64
	row := s.db.QueryRow(
		"SELECT COALESCE(count, 0) FROM tool_invocations WHERE mode = ? AND tool = ? AND date = ?",
		string(mode), tool, date,
	)
	if err := row.Scan(&count); err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get count: %w", err)
	}
	return count, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
