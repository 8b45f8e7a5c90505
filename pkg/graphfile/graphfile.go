// Package graphfile reads and writes control-flow graphs and relooped
// results as YAML, JSON or msgpack documents.
//
// A graph file looks like:
//
//	name: isDigit
//	entry: 0
//	blocks:
//	  - id: 0
//	    if: {cond: "c >= '0'", then: 1, else: 3}
//	  - id: 1
//	    if: {cond: "c <= '9'", then: 2, else: 3}
//	  - id: 2
//	    return: "true"
//	  - id: 3
//	    return: "false"
//
// Every block carries exactly one of return, jump, if or switch.
package graphfile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/l3aro/go-relooper/pkg/reloop"
)

// Format is a document encoding.
type Format string

const (
	YAML Format = "yaml"
	JSON Format = "json"
)

// ErrUnknownFormat is returned for file extensions with no codec.
var ErrUnknownFormat = errors.New("unknown graph file format")

// FormatOf picks the format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAML, nil
	case ".json":
		return JSON, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownFormat, path)
}

// IsGraphFile reports whether path has a graph file extension.
func IsGraphFile(path string) bool {
	_, err := FormatOf(path)
	return err == nil
}

// GraphDoc is the on-disk form of a reloop.Graph.
type GraphDoc struct {
	Name   string     `yaml:"name,omitempty" json:"name,omitempty"`
	Entry  int        `yaml:"entry" json:"entry"`
	Blocks []BlockDoc `yaml:"blocks" json:"blocks"`
}

// BlockDoc is one block. Exactly one terminator field is set.
type BlockDoc struct {
	ID      int        `yaml:"id" json:"id"`
	Effects []string   `yaml:"effects,omitempty" json:"effects,omitempty"`
	Return  *string    `yaml:"return,omitempty" json:"return,omitempty"`
	Jump    *int       `yaml:"jump,omitempty" json:"jump,omitempty"`
	If      *IfDoc     `yaml:"if,omitempty" json:"if,omitempty"`
	Switch  *SwitchDoc `yaml:"switch,omitempty" json:"switch,omitempty"`
}

// IfDoc is a two-way branch.
type IfDoc struct {
	Cond string `yaml:"cond" json:"cond"`
	Then int    `yaml:"then" json:"then"`
	Else int    `yaml:"else" json:"else"`
}

// SwitchDoc is a multi-way branch.
type SwitchDoc struct {
	On      string        `yaml:"on" json:"on"`
	Cases   []reloop.Case `yaml:"cases" json:"cases"`
	Default int           `yaml:"default" json:"default"`
}

// Load reads a graph file. The format follows the extension.
func Load(path string) (*reloop.Graph, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read graph file %s: %w", path, err)
	}
	g, err := Decode(data, format)
	if err != nil {
		return nil, fmt.Errorf("failed to parse graph file %s: %w", path, err)
	}
	if g.Name == "" {
		g.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return g, nil
}

// Decode parses a graph document. The graph is not validated.
func Decode(data []byte, format Format) (*reloop.Graph, error) {
	var doc GraphDoc
	switch format {
	case YAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
	case JSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&doc); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	return doc.Graph()
}

// Graph converts the document into a reloop.Graph.
func (d *GraphDoc) Graph() (*reloop.Graph, error) {
	g := &reloop.Graph{Name: d.Name, Entry: reloop.BlockID(d.Entry)}
	for _, bd := range d.Blocks {
		term, err := bd.terminator()
		if err != nil {
			return nil, err
		}
		g.Blocks = append(g.Blocks, &reloop.Block{
			ID:      reloop.BlockID(bd.ID),
			Effects: bd.Effects,
			Term:    term,
		})
	}
	return g, nil
}

func (b *BlockDoc) terminator() (reloop.Terminator, error) {
	var terms []reloop.Terminator
	if b.Return != nil {
		terms = append(terms, reloop.Return(*b.Return))
	}
	if b.Jump != nil {
		terms = append(terms, reloop.Jump(reloop.BlockID(*b.Jump)))
	}
	if b.If != nil {
		terms = append(terms, reloop.Branch(b.If.Cond, reloop.BlockID(b.If.Then), reloop.BlockID(b.If.Else)))
	}
	if b.Switch != nil {
		terms = append(terms, reloop.SwitchOn(b.Switch.On, b.Switch.Cases, reloop.BlockID(b.Switch.Default)))
	}
	switch len(terms) {
	case 0:
		return reloop.Terminator{}, fmt.Errorf("block %d: no terminator (want one of return, jump, if, switch)", b.ID)
	case 1:
		return terms[0], nil
	default:
		return reloop.Terminator{}, fmt.Errorf("block %d: %d terminators, want exactly one", b.ID, len(terms))
	}
}

// NewGraphDoc converts a graph into its document form.
func NewGraphDoc(g *reloop.Graph) *GraphDoc {
	doc := &GraphDoc{Name: g.Name, Entry: int(g.Entry)}
	for _, b := range g.Blocks {
		bd := BlockDoc{ID: int(b.ID), Effects: b.Effects}
		t := b.Term
		switch t.Kind {
		case reloop.TermReturn:
			v := t.Value
			bd.Return = &v
		case reloop.TermJump:
			v := int(t.Target)
			bd.Jump = &v
		case reloop.TermCond:
			bd.If = &IfDoc{Cond: t.Cond, Then: int(t.True), Else: int(t.False)}
		case reloop.TermSwitch:
			bd.Switch = &SwitchDoc{On: t.Selector, Cases: t.Cases, Default: int(t.Default)}
		}
		doc.Blocks = append(doc.Blocks, bd)
	}
	return doc
}

// Encode writes g in the given format.
func Encode(w io.Writer, g *reloop.Graph, format Format) error {
	doc := NewGraphDoc(g)
	switch format {
	case YAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}
