package credentials

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// LoadFile reads a credentials file of `username:password` lines.
// Whitespace around each field is stripped; lines without a separator
// are skipped with a warning. A later entry for the same username
// replaces an earlier one.
func LoadFile(path string) (*Static, error) {
	f, err := os.Open(path) //nolint:gosec // path from server config
	if err != nil {
		return nil, fmt.Errorf("credentials: open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	store, err := ParseReader(f)
	if err != nil {
		return nil, fmt.Errorf("credentials: parse %s: %w", path, err)
	}
	return store, nil
}

// ParseReader parses `username:password` lines from a reader.
func ParseReader(r io.Reader) (*Static, error) {
	users := make(map[string]string)
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		sep := strings.IndexByte(line, ':')
		if sep < 0 {
			if strings.TrimSpace(line) != "" {
				slog.Warn("skipping malformed credentials line", "line", lineNo)
			}
			continue
		}
		username := strings.TrimSpace(line[:sep])
		password := strings.TrimSpace(line[sep+1:])
		if username == "" {
			slog.Warn("skipping credentials line with empty username", "line", lineNo)
			continue
		}
		users[username] = password
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	return &Static{users: users}, nil
}
