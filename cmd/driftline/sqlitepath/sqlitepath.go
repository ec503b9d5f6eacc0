// Package sqlitepath resolves the location of the driftline SQLite database.
package sqlitepath

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/driftline/driftline/pkg/dotdir"
)

const dbFile = "driftline.db"

// Resolve returns the SQLite database path. Order of precedence:
//  1. Provided override (flag or config value)
//  2. DRIFTLINE_SQLITE environment variable
//  3. An existing candidate file (./driftline.db, .driftline/driftline.db, ~/.driftline/driftline.db)
//  4. A fresh ~/.driftline/driftline.db (directory created if needed)
func Resolve(override string) (string, error) {
	if override != "" {
		return override, nil
	}

	if envPath := strings.TrimSpace(os.Getenv("DRIFTLINE_SQLITE")); envPath != "" {
		return envPath, nil
	}

	for _, candidate := range candidates() {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	target, err := dotdir.NewManager().Target("")
	if err != nil {
		return "", err
	}
	return filepath.Join(target, dbFile), nil
}

func candidates() []string {
	paths := []string{
		dbFile,
		filepath.Join(".driftline", dbFile),
	}

	home, err := os.UserHomeDir()
	if err == nil {
		paths = append(paths, filepath.Join(home, ".driftline", dbFile))
	}

	if xdgHome := strings.TrimSpace(os.Getenv("XDG_DATA_HOME")); xdgHome != "" {
		paths = append([]string{filepath.Join(xdgHome, "driftline", dbFile)}, paths...)
	}

	return paths
}
