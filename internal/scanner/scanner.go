// Package scanner walks a directory tree for Go sources and graph files.
// It honors .reloopignore files with gitignore-style patterns.
package scanner

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/l3aro/go-relooper/pkg/graphfile"
)

// Kind is the role a discovered file plays.
type Kind string

const (
	KindGo    Kind = "go"
	KindGraph Kind = "graph"
)

// FileInfo represents information about a discovered file.
type FileInfo struct {
	Path     string // Relative path from root, slash separated
	FullPath string // Absolute path
	Kind     Kind
	Size     int64
}

// Options configures the scanner behavior.
type Options struct {
	Kinds           []Kind   // Kinds to report; empty means all
	SkipHidden      bool     // Skip hidden files and directories (starting with .)
	SkipTests       bool     // Skip Go _test.go files
	DefaultExcludes []string // Directory names never entered
	IgnoreFileName  string   // Name of the ignore file (default: .reloopignore)
}

// DefaultOptions returns scanner options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		SkipHidden:     true,
		SkipTests:      true,
		IgnoreFileName: ".reloopignore",
		DefaultExcludes: []string{
			".git",
			".hg",
			".svn",
			"node_modules",
			"vendor",
			"bin",
			"dist",
			"build",
		},
	}
}

// Scanner provides file tree scanning capabilities.
type Scanner struct {
	opts Options
}

// New creates a new Scanner with the given options.
func New(opts Options) *Scanner {
	if opts.IgnoreFileName == "" {
		opts.IgnoreFileName = ".reloopignore"
	}
	return &Scanner{opts: opts}
}

// KindOf classifies a path by name alone. It returns "" for files the
// scanner does not report.
func KindOf(path string) Kind {
	if strings.EqualFold(filepath.Ext(path), ".go") {
		return KindGo
	}
	if graphfile.IsGraphFile(path) {
		return KindGraph
	}
	return ""
}

// Scan walks root and returns matching files sorted by path. Unreadable
// entries are skipped.
func (s *Scanner) Scan(root string) ([]FileInfo, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("getting absolute path: %w", err)
	}

	var sets []ignoreSet
	var files []FileInfo

	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == absRoot {
				return err
			}
			return nil
		}
		rel, err := filepath.Rel(absRoot, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if rel != "." {
				if s.skipDir(d.Name()) || ignored(sets, rel, true) {
					return filepath.SkipDir
				}
			}
			patterns, err := readIgnoreFile(filepath.Join(path, s.opts.IgnoreFileName))
			if err != nil {
				return fmt.Errorf("loading ignore patterns: %w", err)
			}
			if len(patterns) > 0 {
				base := rel
				if base == "." {
					base = ""
				}
				sets = append(sets, ignoreSet{base: base, patterns: patterns})
			}
			return nil
		}

		if s.opts.SkipHidden && strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		kind := KindOf(path)
		if kind == "" || !s.wants(kind) {
			return nil
		}
		if kind == KindGo && s.opts.SkipTests && strings.HasSuffix(d.Name(), "_test.go") {
			return nil
		}
		if ignored(sets, rel, false) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		files = append(files, FileInfo{Path: rel, FullPath: path, Kind: kind, Size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking directory: %w", err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

func (s *Scanner) skipDir(name string) bool {
	if s.opts.SkipHidden && strings.HasPrefix(name, ".") {
		return true
	}
	for _, ex := range s.opts.DefaultExcludes {
		if strings.EqualFold(name, ex) {
			return true
		}
	}
	return false
}

func (s *Scanner) wants(k Kind) bool {
	if len(s.opts.Kinds) == 0 {
		return true
	}
	for _, want := range s.opts.Kinds {
		if want == k {
			return true
		}
	}
	return false
}

// Scan is a convenience function that scans a directory with default options.
func Scan(root string) ([]FileInfo, error) {
	return New(DefaultOptions()).Scan(root)
}

// GraphFiles returns the full paths of every graph file under root.
func GraphFiles(root string) ([]string, error) {
	opts := DefaultOptions()
	opts.Kinds = []Kind{KindGraph}
	files, err := New(opts).Scan(root)
	if err != nil {
		return nil, err
	}
	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.FullPath
	}
	return paths, nil
}

// GoFiles returns the full paths of every non-test Go file under root.
func GoFiles(root string) ([]string, error) {
	opts := DefaultOptions()
	opts.Kinds = []Kind{KindGo}
	files, err := New(opts).Scan(root)
	if err != nil {
		return nil, err
	}
	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.FullPath
	}
	return paths, nil
}
