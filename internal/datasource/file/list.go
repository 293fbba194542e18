package file

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// ReadList reads a source list: one location per line, blank lines and
// lines starting with '#' ignored. Relative file paths are resolved against
// the directory of the list; URLs and absolute paths are kept as written.
func ReadList(ctx context.Context, path string) ([]string, error) {
	rc, err := NewLocal(path).Open(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	out, err := ParseList(rc, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return out, nil
}

// ParseList parses a source list from r, resolving relative paths against
// base. An empty base keeps them relative.
func ParseList(r io.Reader, base string) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if base != "" && !strings.Contains(line, "://") && !filepath.IsAbs(line) {
			line = filepath.Join(base, line)
		}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
