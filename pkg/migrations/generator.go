package migrations

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/kengine/migrate/source"
)

var nameRegex = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

var prefixRegex = regexp.MustCompile(`^(\d+)_.*\.sql$`)

// maxPrefix is the highest prefix the 3-digit zero-padded scheme can
// represent. Beyond it a new filename would sort lexically before the
// existing set, so Create refuses rather than break the ordering.
const maxPrefix = 999

// Config configures stub generation.
type Config struct {
	// Dir is the migration directory the stub is written into.
	Dir string

	// Name is a snake_case description appended to the numeric prefix,
	// e.g. "add_embeddings" yields 004_add_embeddings.sql.
	Name string

	// NoTransaction includes the no-transaction marker so the migration
	// runs as raw statements outside a transaction.
	NoTransaction bool
}

// validateName ensures the description is usable in a filename and keeps
// generated names lexically well behaved.
func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("migration name cannot be empty")
	}
	if !nameRegex.MatchString(name) {
		return fmt.Errorf("migration name must be snake_case starting with a letter (got: %s)", name)
	}
	return nil
}

// Create writes a new migration stub and returns its path. The directory
// is created if it does not exist.
func Create(cfg Config) (string, error) {
	if err := validateName(cfg.Name); err != nil {
		return "", err
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create migration directory: %w", err)
	}

	next, err := nextPrefix(cfg.Dir)
	if err != nil {
		return "", err
	}
	if next > maxPrefix {
		return "", fmt.Errorf("migration prefix %d does not fit the 3-digit naming scheme; renumber the directory first", next)
	}

	filename := fmt.Sprintf("%03d_%s.sql", next, cfg.Name)
	path := filepath.Join(cfg.Dir, filename)
	if err := os.WriteFile(path, []byte(stub(filename, cfg.NoTransaction)), 0o600); err != nil {
		return "", fmt.Errorf("write migration stub: %w", err)
	}
	return path, nil
}

// nextPrefix returns one past the highest numeric prefix in the directory,
// starting at 0 for an empty directory.
func nextPrefix(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read migration directory: %w", err)
	}

	next := 0
	for _, entry := range entries {
		m := prefixRegex.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if n+1 > next {
			next = n + 1
		}
	}
	return next, nil
}

func stub(filename string, noTransaction bool) string {
	if noTransaction {
		return fmt.Sprintf(`-- %s
%s
--
-- Runs as raw statements with no enclosing transaction. A partial failure
-- leaves this migration unrecorded and it will be retried, so every
-- statement must be safe to rerun (use IF NOT EXISTS style guards).

`, filename, source.NoTxMarker)
	}
	return fmt.Sprintf(`-- %s
--
-- Statements below run inside a single transaction and are rolled back
-- together on failure.

`, filename)
}
