package db

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const (
	stateDir = ".taskflow"
	dbFile   = "taskflow.db"
)

// pragmas applied to every connection in the pool.
var pragmas = []string{"foreign_keys(1)", "busy_timeout(5000)", "journal_mode(WAL)"}

type Config struct {
	Workspace string
}

func (c Config) root() string {
	if c.Workspace == "" {
		return "."
	}
	return c.Workspace
}

// EnsureWorkspace creates <workspace>/.taskflow and returns its path.
func EnsureWorkspace(workspace string) (string, error) {
	dir := filepath.Join(Config{Workspace: workspace}.root(), stateDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create state dir: %w", err)
	}
	return dir, nil
}

// DSN builds the modernc sqlite connection string for a database file.
func DSN(file string) string {
	q := url.Values{}
	for _, p := range pragmas {
		q.Add("_pragma", p)
	}
	return "file:" + file + "?" + q.Encode()
}

// Open opens the workspace database, creating the state directory first.
// The webhook poller and request handlers share the file, hence the busy
// timeout and WAL journal.
func Open(cfg Config) (*sql.DB, error) {
	if _, err := EnsureWorkspace(cfg.Workspace); err != nil {
		return nil, err
	}
	conn, err := sql.Open("sqlite", DSN(Path(cfg.Workspace)))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", Path(cfg.Workspace), err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping %s: %w", Path(cfg.Workspace), err)
	}
	return conn, nil
}

// Path returns <workspace>/.taskflow/taskflow.db.
func Path(workspace string) string {
	return filepath.Join(Config{Workspace: workspace}.root(), stateDir, dbFile)
}
