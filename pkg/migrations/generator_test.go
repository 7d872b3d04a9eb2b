package migrations

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kengine/migrate/source"
)

func TestCreate_FirstMigration(t *testing.T) {
	tmpDir := t.TempDir()

	path, err := Create(Config{Dir: tmpDir, Name: "init_schema"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if filepath.Base(path) != "000_init_schema.sql" {
		t.Errorf("unexpected filename: %s", filepath.Base(path))
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read generated file: %v", err)
	}
	if strings.Contains(string(content), source.NoTxMarker) {
		t.Error("transactional stub must not contain the no-transaction marker")
	}
}

func TestCreate_NumbersAfterExisting(t *testing.T) {
	tmpDir := t.TempDir()

	for _, name := range []string{"000_a.sql", "001_b.sql", "007_gap.sql"} {
		if err := os.WriteFile(filepath.Join(tmpDir, name), []byte("SELECT 1;"), 0o600); err != nil {
			t.Fatalf("seed file: %v", err)
		}
	}

	path, err := Create(Config{Dir: tmpDir, Name: "next"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if filepath.Base(path) != "008_next.sql" {
		t.Errorf("expected 008_next.sql, got %s", filepath.Base(path))
	}
}

func TestCreate_NoTransactionStub(t *testing.T) {
	tmpDir := t.TempDir()

	path, err := Create(Config{Dir: tmpDir, Name: "add_index", NoTransaction: true})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read generated file: %v", err)
	}

	// The marker must sit within the scan window of the discovery parser.
	lines := strings.Split(string(content), "\n")
	found := false
	for i := 0; i < 5 && i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == source.NoTxMarker {
			found = true
		}
	}
	if !found {
		t.Error("no-transaction stub missing the marker in the first 5 lines")
	}
}

func TestCreate_RefusesPrefixOverflow(t *testing.T) {
	tmpDir := t.TempDir()

	// A fourth digit would sort lexically before 999, so this must fail
	// rather than produce 1000_*.sql.
	if err := os.WriteFile(filepath.Join(tmpDir, "999_last.sql"), []byte("SELECT 1;"), 0o600); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	if _, err := Create(Config{Dir: tmpDir, Name: "overflow"}); err == nil {
		t.Error("expected error once the prefix space is exhausted")
	}
}

func TestCreate_ValidatesName(t *testing.T) {
	for _, name := range []string{"", "Has Spaces", "1_leading_digit", "mixed-dash", "UPPER"} {
		if _, err := Create(Config{Dir: t.TempDir(), Name: name}); err == nil {
			t.Errorf("expected error for name %q", name)
		}
	}
}

func TestCreate_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "db", "migrations")

	path, err := Create(Config{Dir: dir, Name: "init"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("generated file missing: %v", err)
	}
}
