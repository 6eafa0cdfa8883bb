package restore

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// dumpSuffixes are the file names picked up when a directory is given.
var dumpSuffixes = []string{".sql", ".sql.gz", ".sql.zst", ".dump", ".dump.gz", ".dump.zst"}

// ExpandInputs replaces every directory in paths by the dump files below
// it, in lexical order. Hidden directories are skipped. Plain file
// arguments are kept as given, whatever their name.
func ExpandInputs(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("open dump: %w", err)
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}

		found, skipped := 0, 0
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != p && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if !isDumpFile(d.Name()) {
				skipped++
				return nil
			}
			files = append(files, path)
			found++
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", p, err)
		}
		slog.Debug("dump directory expanded", "path", p, "files", found, "skipped", skipped)
	}
	return files, nil
}

func isDumpFile(name string) bool {
	lower := strings.ToLower(name)
	for _, suffix := range dumpSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}
