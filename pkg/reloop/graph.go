// Package reloop reconstructs structured control flow from an arbitrary
// control-flow graph of basic blocks.
//
// The input is a Graph with a unique entry block; the output is a tree of
// Shapes (if/else, loops, switches, labeled break/continue) that executes the
// same effects in the same order without unrestricted jumps.
package reloop

import (
	"errors"
	"fmt"
	"sort"
)

// BlockID identifies a block within a Graph.
type BlockID int

// TermKind is the kind of a block terminator.
type TermKind int

const (
	TermReturn TermKind = iota // Return from the function
	TermJump                   // Unconditional jump
	TermCond                   // Two-way conditional branch
	TermSwitch                 // Multi-way branch on an integer selector
)

func (k TermKind) String() string {
	switch k {
	case TermReturn:
		return "return"
	case TermJump:
		return "jump"
	case TermCond:
		return "cond"
	case TermSwitch:
		return "switch"
	default:
		return "unknown"
	}
}

// Case is a single switch case: selector value and branch target.
type Case struct {
	Value  int64   `json:"value" yaml:"value"`
	Target BlockID `json:"target" yaml:"target"`
}

// Terminator ends a block and transfers control.
type Terminator struct {
	Kind TermKind

	// Return
	Value string // optional returned expression

	// Jump
	Target BlockID

	// Cond
	Cond  string
	True  BlockID
	False BlockID

	// Switch
	Selector string
	Cases    []Case
	Default  BlockID
}

// Return builds a return terminator. value may be empty.
func Return(value string) Terminator {
	return Terminator{Kind: TermReturn, Value: value}
}

// Jump builds an unconditional terminator.
func Jump(target BlockID) Terminator {
	return Terminator{Kind: TermJump, Target: target}
}

// Branch builds a conditional terminator.
func Branch(cond string, t, f BlockID) Terminator {
	return Terminator{Kind: TermCond, Cond: cond, True: t, False: f}
}

// SwitchOn builds a switch terminator.
func SwitchOn(selector string, cases []Case, def BlockID) Terminator {
	return Terminator{Kind: TermSwitch, Selector: selector, Cases: cases, Default: def}
}

// Targets returns the branch targets in terminator order. Duplicates are kept.
func (t Terminator) Targets() []BlockID {
	switch t.Kind {
	case TermJump:
		return []BlockID{t.Target}
	case TermCond:
		return []BlockID{t.True, t.False}
	case TermSwitch:
		out := make([]BlockID, 0, len(t.Cases)+1)
		for _, c := range t.Cases {
			out = append(out, c.Target)
		}
		return append(out, t.Default)
	default:
		return nil
	}
}

// Block is a basic block: opaque effects followed by a terminator.
type Block struct {
	ID      BlockID
	Effects []string
	Term    Terminator
}

// EdgeKind classifies a control-flow edge.
type EdgeKind string

const (
	EdgeFallthrough EdgeKind = "fallthrough"
	EdgeTrue        EdgeKind = "branch-true"
	EdgeFalse       EdgeKind = "branch-false"
	EdgeCase        EdgeKind = "case"
	EdgeDefault     EdgeKind = "default"
)

// Edge is a directed edge between two blocks.
type Edge struct {
	From BlockID
	To   BlockID
	Kind EdgeKind
}

// Graph is the relooper input.
type Graph struct {
	Name   string
	Entry  BlockID
	Blocks []*Block
}

// Block returns the block with the given id, or nil.
func (g *Graph) Block(id BlockID) *Block {
	for _, b := range g.Blocks {
		if b.ID == id {
			return b
		}
	}
	return nil
}

// Edges lists every edge of the graph in block order.
func (g *Graph) Edges() []Edge {
	var edges []Edge
	for _, b := range g.Blocks {
		switch b.Term.Kind {
		case TermJump:
			edges = append(edges, Edge{b.ID, b.Term.Target, EdgeFallthrough})
		case TermCond:
			edges = append(edges,
				Edge{b.ID, b.Term.True, EdgeTrue},
				Edge{b.ID, b.Term.False, EdgeFalse})
		case TermSwitch:
			for _, c := range b.Term.Cases {
				edges = append(edges, Edge{b.ID, c.Target, EdgeCase})
			}
			edges = append(edges, Edge{b.ID, b.Term.Default, EdgeDefault})
		}
	}
	return edges
}

// ErrGraphMalformed is matched by every validation failure.
var ErrGraphMalformed = errors.New("graph malformed")

// MalformedError describes why a graph was rejected.
type MalformedError struct {
	Graph  string
	Block  BlockID
	Reason string
}

func (e *MalformedError) Error() string {
	if e.Graph == "" {
		return fmt.Sprintf("graph malformed: block %d: %s", e.Block, e.Reason)
	}
	return fmt.Sprintf("graph %s malformed: block %d: %s", e.Graph, e.Block, e.Reason)
}

func (e *MalformedError) Is(target error) bool {
	return target == ErrGraphMalformed
}

// Validate checks that the graph can be relooped: block ids are unique, the
// entry exists, every branch target exists and switch values are distinct.
func (g *Graph) Validate() error {
	if g == nil || len(g.Blocks) == 0 {
		return &MalformedError{Reason: "no blocks"}
	}
	fail := func(id BlockID, format string, args ...interface{}) error {
		return &MalformedError{Graph: g.Name, Block: id, Reason: fmt.Sprintf(format, args...)}
	}

	ids := make(map[BlockID]bool, len(g.Blocks))
	for _, b := range g.Blocks {
		if b == nil {
			return fail(-1, "nil block")
		}
		if ids[b.ID] {
			return fail(b.ID, "duplicate block id")
		}
		ids[b.ID] = true
	}
	if !ids[g.Entry] {
		return fail(g.Entry, "entry block does not exist")
	}

	for _, b := range g.Blocks {
		for _, t := range b.Term.Targets() {
			if !ids[t] {
				return fail(b.ID, "dangling edge to %d", t)
			}
		}
		if b.Term.Kind == TermSwitch {
			seen := make(map[int64]bool, len(b.Term.Cases))
			for _, c := range b.Term.Cases {
				if seen[c.Value] {
					return fail(b.ID, "duplicate case value %d", c.Value)
				}
				seen[c.Value] = true
			}
		}
	}
	return nil
}

// Reachable returns the ids reachable from the entry in reverse postorder.
func (g *Graph) Reachable() []BlockID {
	byID := make(map[BlockID]*Block, len(g.Blocks))
	for _, b := range g.Blocks {
		byID[b.ID] = b
	}

	visited := make(map[BlockID]bool)
	var post []BlockID
	var visit func(id BlockID)
	// Successors are visited last to first so that, after reversal, earlier
	// targets come first.
	visit = func(id BlockID) {
		visited[id] = true
		targets := byID[id].Term.Targets()
		for i := len(targets) - 1; i >= 0; i-- {
			if t := targets[i]; !visited[t] {
				visit(t)
			}
		}
		post = append(post, id)
	}
	visit(g.Entry)

	for i, j := 0, len(post)-1; i < j; i, j = i+1, j-1 {
		post[i], post[j] = post[j], post[i]
	}
	return post
}

// blockSet is a set of block ids.
type blockSet map[BlockID]bool

func (s blockSet) sorted(rank map[BlockID]int) []BlockID {
	out := make([]BlockID, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sortByRank(out, rank)
	return out
}

func sortByRank(ids []BlockID, rank map[BlockID]int) {
	sort.Slice(ids, func(i, j int) bool { return rank[ids[i]] < rank[ids[j]] })
}
