// Package discover lists local work items by file name.
package discover

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrNotFound is returned when a source directory is missing or holds no
// matching entries.
var ErrNotFound = errors.New("not found")

// Pattern selects directory entries by name. Empty fields match anything.
type Pattern struct {
	Prefix   string
	Suffix   string
	Contains string
}

// Match reports whether name satisfies every non-empty field of p.
func (p Pattern) Match(name string) bool {
	if p.Prefix != "" && !strings.HasPrefix(name, p.Prefix) {
		return false
	}
	if p.Suffix != "" && !strings.HasSuffix(name, p.Suffix) {
		return false
	}
	if p.Contains != "" && !strings.Contains(name, p.Contains) {
		return false
	}
	return true
}

func (p Pattern) String() string {
	s := p.Prefix + "*"
	if p.Contains != "" {
		s += p.Contains + "*"
	}
	return s + p.Suffix
}

// Dir checks that path exists and is a directory.
func Dir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("directory %s: %w", path, ErrNotFound)
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory: %w", path, ErrNotFound)
	}
	return nil
}

// Files returns the sorted full paths of the regular files in dir whose base
// names match p. A missing directory or an empty result is ErrNotFound.
func Files(dir string, p Pattern) ([]string, error) {
	if err := Dir(dir); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read directory %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if !e.Type().IsRegular() || !p.Match(e.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("no %s files in %s: %w", p, dir, ErrNotFound)
	}

	// ReadDir already sorts by name; keep the guarantee explicit.
	sort.Strings(files)
	return files, nil
}
