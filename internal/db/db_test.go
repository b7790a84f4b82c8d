package db

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestOpenCreatesStateDirAndEnablesForeignKeys(t *testing.T) {
	dir := t.TempDir()
	conn, err := Open(Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer conn.Close()

	if _, err := os.Stat(filepath.Join(dir, ".taskflow")); err != nil {
		t.Fatalf("state dir missing: %v", err)
	}
	var fk int
	if err := conn.QueryRow(`PRAGMA foreign_keys`).Scan(&fk); err != nil || fk != 1 {
		t.Fatalf("foreign keys not enabled: %d (%v)", fk, err)
	}
	if _, err := os.Stat(Path(dir)); err != nil {
		t.Fatalf("database file missing: %v", err)
	}
}

func TestPathAndDSN(t *testing.T) {
	if got := Path(""); got != filepath.Join(".", ".taskflow", "taskflow.db") {
		t.Fatalf("unexpected default path %q", got)
	}
	dsn := DSN("/tmp/x.db")
	if !strings.HasPrefix(dsn, "file:/tmp/x.db?") || strings.Count(dsn, "_pragma=") != 3 {
		t.Fatalf("unexpected dsn %q", dsn)
	}
}
