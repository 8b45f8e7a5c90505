package scanner

import (
	"bufio"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// IgnorePattern is one gitignore-style line.
type IgnorePattern struct {
	negate   bool
	dirOnly  bool
	anchored bool
	segments []string
}

// ParseIgnorePattern parses a gitignore-style pattern. A pattern containing a
// slash, or starting with one, is anchored to the directory of its ignore
// file; otherwise it matches at any depth.
func ParseIgnorePattern(line string) IgnorePattern {
	var p IgnorePattern
	if strings.HasPrefix(line, "!") {
		p.negate = true
		line = line[1:]
	}
	if strings.HasSuffix(line, "/") {
		p.dirOnly = true
		line = strings.TrimSuffix(line, "/")
	}
	if strings.HasPrefix(line, "/") {
		p.anchored = true
		line = line[1:]
	} else if strings.Contains(line, "/") {
		p.anchored = true
	}
	p.segments = strings.Split(line, "/")
	return p
}

// IsNegation reports whether the pattern re-includes what it matches.
func (p IgnorePattern) IsNegation() bool {
	return p.negate
}

// Match reports whether rel, a slash-separated path relative to the ignore
// file's directory, is matched. Directory patterns also match everything
// below the directory.
func (p IgnorePattern) Match(rel string, isDir bool) bool {
	parts := strings.Split(filepath.ToSlash(rel), "/")

	starts := []int{0}
	if !p.anchored {
		starts = starts[:0]
		for i := range parts {
			starts = append(starts, i)
		}
	}
	for _, s := range starts {
		n, ok := matchPrefix(p.segments, parts[s:])
		if !ok {
			continue
		}
		// A match that stops short of the end names a parent directory.
		if p.dirOnly && s+n == len(parts) && !isDir {
			continue
		}
		return true
	}
	return false
}

// matchPrefix matches pattern segments against a prefix of parts and returns
// how many parts were consumed.
func matchPrefix(pattern, parts []string) (int, bool) {
	if len(pattern) == 0 {
		return 0, true
	}
	if pattern[0] == "**" {
		for i := len(parts); i >= 0; i-- {
			if n, ok := matchPrefix(pattern[1:], parts[i:]); ok {
				return i + n, true
			}
		}
		return 0, false
	}
	if len(parts) == 0 {
		return 0, false
	}
	ok, err := path.Match(pattern[0], parts[0])
	if err != nil || !ok {
		return 0, false
	}
	n, ok := matchPrefix(pattern[1:], parts[1:])
	return n + 1, ok
}

// ignoreSet is the patterns of one ignore file and the directory holding it.
type ignoreSet struct {
	base     string
	patterns []IgnorePattern
}

// ignored evaluates sets in order; later sets and later lines win.
func ignored(sets []ignoreSet, rel string, isDir bool) bool {
	out := false
	for _, set := range sets {
		sub := rel
		if set.base != "" {
			if !strings.HasPrefix(rel, set.base+"/") {
				continue
			}
			sub = strings.TrimPrefix(rel, set.base+"/")
		}
		for _, p := range set.patterns {
			if p.Match(sub, isDir) {
				out = !p.negate
			}
		}
	}
	return out
}

func readIgnoreFile(file string) ([]IgnorePattern, error) {
	f, err := os.Open(file)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var patterns []IgnorePattern
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, ParseIgnorePattern(line))
	}
	return patterns, sc.Err()
}
