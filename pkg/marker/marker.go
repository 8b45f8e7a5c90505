// Package marker finds Go functions that opt in to relooping with a
// directive comment directly above their declaration:
//
//	//reloop:enable
//	func parse(s string) int { ... }
//
// "//reloop:debug" opts in and asks for the classification trace as well.
package marker

import (
	"fmt"
	"os"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
)

// DefaultPrefix is the directive prefix used when none is configured.
const DefaultPrefix = "reloop"

var parserPool = sync.Pool{
	New: func() interface{} {
		parser := sitter.NewParser()
		parser.SetLanguage(golang.GetLanguage())
		return parser
	},
}

// Mark is one marked function.
type Mark struct {
	// Func is the function name as go/ssa prints it relative to its
	// package: "F", "(T).M" or "(*T).M".
	Func  string
	File  string
	Line  int
	Debug bool
}

// Scanner detects directives with a given prefix.
type Scanner struct {
	enable string
	debug  string
}

// New returns a Scanner for "//<prefix>:enable" and "//<prefix>:debug".
// An empty prefix means DefaultPrefix.
func New(prefix string) *Scanner {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Scanner{
		enable: "//" + prefix + ":enable",
		debug:  "//" + prefix + ":debug",
	}
}

// ScanFile reads and scans one Go file.
func (s *Scanner) ScanFile(path string) ([]Mark, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file %s: %w", path, err)
	}
	return s.Scan(content, path)
}

// Scan finds marked top-level functions and methods in content.
func (s *Scanner) Scan(content []byte, path string) ([]Mark, error) {
	parser := parserPool.Get().(*sitter.Parser)
	defer parserPool.Put(parser)

	tree := parser.Parse(nil, content)
	if tree == nil {
		return nil, fmt.Errorf("parsing file %s failed", path)
	}
	defer tree.Close()

	root := tree.RootNode()
	var marks []Mark
	var comments []*sitter.Node

	for i := 0; i < int(root.ChildCount()); i++ {
		child := root.Child(i)
		if child == nil {
			continue
		}
		switch child.Type() {
		case "comment":
			if len(comments) > 0 && comments[len(comments)-1].EndPoint().Row+1 < child.StartPoint().Row {
				comments = comments[:0]
			}
			comments = append(comments, child)
			continue
		case "function_declaration", "method_declaration":
			if enabled, debug := s.directives(comments, child, content); enabled {
				name := funcName(child, content)
				if name != "" {
					marks = append(marks, Mark{
						Func:  name,
						File:  path,
						Line:  int(child.StartPoint().Row) + 1,
						Debug: debug,
					})
				}
			}
		}
		comments = comments[:0]
	}
	return marks, nil
}

// directives checks the comment block that ends on the line above decl.
func (s *Scanner) directives(comments []*sitter.Node, decl *sitter.Node, content []byte) (enabled, debug bool) {
	if len(comments) == 0 || comments[len(comments)-1].EndPoint().Row+1 != decl.StartPoint().Row {
		return false, false
	}
	for _, c := range comments {
		text := strings.TrimSpace(nodeText(c, content))
		switch {
		case text == s.debug || strings.HasPrefix(text, s.debug+" "):
			enabled, debug = true, true
		case text == s.enable || strings.HasPrefix(text, s.enable+" "):
			enabled = true
		}
	}
	return enabled, debug
}

func funcName(decl *sitter.Node, content []byte) string {
	name := nodeText(decl.ChildByFieldName("name"), content)
	if name == "" || decl.Type() == "function_declaration" {
		return name
	}

	recv := decl.ChildByFieldName("receiver")
	if recv == nil {
		return name
	}
	for i := 0; i < int(recv.NamedChildCount()); i++ {
		param := recv.NamedChild(i)
		if param == nil || param.Type() != "parameter_declaration" {
			continue
		}
		typ := receiverType(param.ChildByFieldName("type"), content)
		if typ != "" {
			return "(" + typ + ")." + name
		}
	}
	return name
}

// receiverType prints T or *T, dropping type arguments.
func receiverType(node *sitter.Node, content []byte) string {
	if node == nil {
		return ""
	}
	switch node.Type() {
	case "pointer_type":
		for i := 0; i < int(node.NamedChildCount()); i++ {
			if inner := receiverType(node.NamedChild(i), content); inner != "" {
				return "*" + inner
			}
		}
		return ""
	case "generic_type":
		return receiverType(node.ChildByFieldName("type"), content)
	case "parenthesized_type":
		if node.NamedChildCount() > 0 {
			return receiverType(node.NamedChild(0), content)
		}
		return ""
	default:
		return nodeText(node, content)
	}
}

func nodeText(node *sitter.Node, content []byte) string {
	if node == nil {
		return ""
	}
	start := node.StartByte()
	end := node.EndByte()
	if start >= uint32(len(content)) || end > uint32(len(content)) {
		return ""
	}
	return string(content[start:end])
}
