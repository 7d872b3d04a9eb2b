// Package source discovers ordered migration scripts from a directory.
//
// One file per migration. The filename must sort lexically into the desired
// execution order; the convention is a zero-padded numeric prefix followed
// by a description, e.g. 003_add_embeddings.sql. A marker comment within
// the first five lines switches the migration to non-transactional
// execution.
package source

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kengine/migrate"
	"github.com/kengine/migrate/fingerprint"
)

// NoTxMarker is the comment that marks a migration as non-transactional
// when it appears within the first five lines of the file.
const NoTxMarker = "-- migrate:no-transaction"

// markerScanLines is how far into the file the marker is looked for.
const markerScanLines = 5

// Dir is a migrate.Source backed by a filesystem directory of .sql files.
type Dir struct {
	path string
}

// New creates a Dir source for the given directory path.
func New(path string) *Dir {
	return &Dir{path: path}
}

// Discover reads every .sql file in the directory and returns the
// migrations sorted by filename using plain byte-wise comparison.
// Subdirectories and non-.sql files are ignored. A missing or unreadable
// directory is a fatal error.
func (d *Dir) Discover() ([]migrate.Migration, error) {
	entries, err := os.ReadDir(d.path)
	if err != nil {
		return nil, fmt.Errorf("read migration directory %s: %w", d.path, err)
	}

	var migrations []migrate.Migration
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		content, err := os.ReadFile(filepath.Join(d.path, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}

		migrations = append(migrations, migrate.Migration{
			Name:     entry.Name(),
			Content:  content,
			Checksum: fingerprint.Sum(content),
			TxMode:   txMode(content),
		})
	}

	// os.ReadDir sorts by filename already; sort again so the ordering
	// contract does not depend on that.
	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Name < migrations[j].Name
	})

	return migrations, nil
}

// txMode scans the first few lines of a script for the no-transaction
// marker. Leading and trailing whitespace around a line is ignored; the
// marker must otherwise match exactly.
func txMode(content []byte) migrate.TxMode {
	scanner := bufio.NewScanner(bytes.NewReader(content))
	for line := 0; line < markerScanLines && scanner.Scan(); line++ {
		if strings.TrimSpace(scanner.Text()) == NoTxMarker {
			return migrate.TxModeNone
		}
	}
	return migrate.TxModeWrapped
}
