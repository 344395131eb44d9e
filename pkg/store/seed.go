package store

import (
	"fmt"
	"os"
	"strings"
)

// CachedIDsFromDir collects the structure identifiers named by the files in
// dir. The filename stem becomes the identifier, uppercased except for the
// AlphaFold version marker; duplicates and single-character stems are
// dropped.
func CachedIDsFromDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read structure directory: %w", err)
	}

	seen := make(map[string]struct{})
	var ids []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		dot := strings.Index(name, ".")
		if dot <= 1 {
			continue
		}
		id := strings.ReplaceAll(strings.ToUpper(name[:dot]), "-MODEL_V", "-model_v")
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}
