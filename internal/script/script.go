package script

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Extension is appended when a script is looked up by name.
const Extension = ".txt"

// FilterSugar is rewritten to FilterCall before lines are split, so that
// `playlist("x") filtered by (year=1999)` reads as a filter call.
const (
	FilterSugar = " filtered by "
	FilterCall  = ".filter"
)

// Script is a loaded script: an immutable sequence of raw lines.
type Script struct {
	// Name identifies the script in diagnostics.
	Name string

	// Path is the file the script was read from; empty for inline sources.
	Path string

	lines []string
}

// Parse preprocesses text and splits it into lines.
func Parse(name, text string) *Script {
	text = strings.ReplaceAll(text, FilterSugar, FilterCall)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.TrimSuffix(text, "\n")
	var lines []string
	if text != "" {
		lines = strings.Split(text, "\n")
	}
	return &Script{Name: name, lines: lines}
}

// Load reads and parses a script file.
func Load(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	s := Parse(strings.TrimSuffix(filepath.Base(path), Extension), string(data))
	s.Path = path
	return s, nil
}

// Find resolves a script argument. An existing path is used as is;
// otherwise the argument is treated as a name under dir with Extension.
func Find(arg, dir string) (string, error) {
	if info, err := os.Stat(arg); err == nil && !info.IsDir() {
		return arg, nil
	}
	candidate := filepath.Join(dir, arg+Extension)
	if _, err := os.Stat(candidate); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("script %q not found (looked for %s)", arg, candidate)
		}
		return "", err
	}
	return candidate, nil
}

// Len returns the number of lines.
func (s *Script) Len() int { return len(s.lines) }

// Line returns the 1-indexed line n, or "" when out of range.
func (s *Script) Line(n int) string {
	if n < 1 || n > len(s.lines) {
		return ""
	}
	return s.lines[n-1]
}
