// Package interp executes control-flow graphs and relooped Shape trees
// against a Machine, so that the two can be compared run for run.
package interp

import (
	"errors"
	"fmt"

	"github.com/l3aro/go-relooper/pkg/reloop"
)

// DefaultMaxSteps bounds a run when no limit is given.
const DefaultMaxSteps = 100000

// ErrStepLimit is returned when a run executes more blocks than allowed.
var ErrStepLimit = errors.New("step limit exceeded")

// Machine gives meaning to the opaque strings of a graph.
type Machine interface {
	// Exec runs one block effect.
	Exec(effect string) error
	// Cond evaluates a branch condition.
	Cond(expr string) (bool, error)
	// Selector evaluates a switch selector.
	Selector(expr string) (int64, error)
	// Return records the function result. expr may be empty.
	Return(expr string) error
}

// RunGraph executes g from its entry until a block returns.
func RunGraph(g *reloop.Graph, m Machine, maxSteps int) error {
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}
	byID := make(map[reloop.BlockID]*reloop.Block, len(g.Blocks))
	for _, b := range g.Blocks {
		byID[b.ID] = b
	}

	cur := byID[g.Entry]
	for steps := 0; ; steps++ {
		if cur == nil {
			return fmt.Errorf("run %s: no such block", g.Name)
		}
		if steps >= maxSteps {
			return ErrStepLimit
		}
		for _, e := range cur.Effects {
			if err := m.Exec(e); err != nil {
				return fmt.Errorf("block %d: %w", cur.ID, err)
			}
		}

		t := cur.Term
		switch t.Kind {
		case reloop.TermReturn:
			return m.Return(t.Value)
		case reloop.TermJump:
			cur = byID[t.Target]
		case reloop.TermCond:
			ok, err := m.Cond(t.Cond)
			if err != nil {
				return fmt.Errorf("block %d: %w", cur.ID, err)
			}
			if ok {
				cur = byID[t.True]
			} else {
				cur = byID[t.False]
			}
		case reloop.TermSwitch:
			v, err := m.Selector(t.Selector)
			if err != nil {
				return fmt.Errorf("block %d: %w", cur.ID, err)
			}
			next := t.Default
			for _, c := range t.Cases {
				if c.Value == v {
					next = c.Target
					break
				}
			}
			cur = byID[next]
		}
	}
}

// RunShape executes a Shape tree until it returns.
func RunShape(root reloop.Shape, m Machine, maxSteps int) error {
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}
	r := &runner{m: m, max: maxSteps}
	f, err := r.run(root)
	if err != nil {
		return err
	}
	switch f.kind {
	case flowReturn:
		return nil
	case flowNormal:
		return errors.New("shape completed without returning")
	default:
		return fmt.Errorf("unhandled %s of L%d", f.kind, f.target)
	}
}

type flowKind int

const (
	flowNormal flowKind = iota
	flowReturn
	flowBreak
	flowContinue
)

func (k flowKind) String() string {
	switch k {
	case flowReturn:
		return "return"
	case flowBreak:
		return "break"
	case flowContinue:
		return "continue"
	default:
		return "normal"
	}
}

type flow struct {
	kind   flowKind
	target reloop.ShapeID
}

func (f flow) breaks(id reloop.ShapeID) bool {
	return id != 0 && f.kind == flowBreak && f.target == id
}

type runner struct {
	m     Machine
	label reloop.BlockID
	steps int
	max   int
}

func (r *runner) step() error {
	r.steps++
	if r.steps > r.max {
		return ErrStepLimit
	}
	return nil
}

func (r *runner) run(s reloop.Shape) (flow, error) {
	switch x := s.(type) {
	case nil:
		return flow{}, nil

	case *reloop.Simple:
		if err := r.step(); err != nil {
			return flow{}, err
		}
		for _, e := range x.Effects {
			if err := r.m.Exec(e); err != nil {
				return flow{}, fmt.Errorf("block %d: %w", x.Block.ID, err)
			}
		}
		if x.Block.Term.Kind == reloop.TermReturn {
			return flow{kind: flowReturn}, r.m.Return(x.Block.Term.Value)
		}
		return r.run(x.Next)

	case *reloop.If:
		ok, err := r.cond(x.Cond)
		if err != nil {
			return flow{}, err
		}
		branch := x.Else
		if ok {
			branch = x.Then
		}
		f, err := r.run(branch)
		if err != nil || (f.kind != flowNormal && !f.breaks(x.ID)) {
			return f, err
		}
		return r.run(x.Next)

	case *reloop.Multiple:
		var body reloop.Shape = x.Else
		for _, h := range x.Handled {
			if h.Label == r.label {
				body = h.Body
				break
			}
		}
		f, err := r.run(body)
		if err != nil || (f.kind != flowNormal && !f.breaks(x.ID)) {
			return f, err
		}
		return r.run(x.Next)

	case *reloop.Switch:
		f, err := r.runSwitch(x)
		if err != nil || (f.kind != flowNormal && !f.breaks(x.ID)) {
			return f, err
		}
		return r.run(x.Next)

	case *reloop.Loop:
		f, err := r.runLoop(x)
		if err != nil || f.kind != flowNormal {
			return f, err
		}
		return r.run(x.Next)

	case *reloop.Break:
		return flow{kind: flowBreak, target: x.Target}, nil

	case *reloop.Continue:
		return flow{kind: flowContinue, target: x.Target}, nil

	case *reloop.SetLabel:
		r.label = x.Label
		return r.run(x.Next)
	}
	return flow{}, fmt.Errorf("unknown shape %T", s)
}

func (r *runner) runSwitch(x *reloop.Switch) (flow, error) {
	v, err := r.m.Selector(x.Selector)
	if err != nil {
		return flow{}, err
	}
	start := -1
	for i, c := range x.Cases {
		for _, cv := range c.Values {
			if cv == v {
				start = i
			}
		}
	}
	if start < 0 {
		for i, c := range x.Cases {
			if c.Default {
				start = i
			}
		}
	}
	if start < 0 {
		return flow{}, nil
	}
	for i := start; i < len(x.Cases); i++ {
		f, err := r.run(x.Cases[i].Body)
		if err != nil || f.kind != flowNormal || !x.Cases[i].FallsThrough {
			return f, err
		}
	}
	return flow{}, nil
}

// runLoop returns a normal flow when the loop exits to its Next.
func (r *runner) runLoop(x *reloop.Loop) (flow, error) {
	if x.Form == reloop.LoopFor {
		if err := r.m.Exec(x.Init); err != nil {
			return flow{}, err
		}
	}
	for {
		if err := r.step(); err != nil {
			return flow{}, err
		}
		if x.Form == reloop.LoopWhile || x.Form == reloop.LoopFor {
			ok, err := r.cond(x.Cond)
			if err != nil || !ok {
				return flow{}, err
			}
		}

		f, err := r.run(x.Body)
		if err != nil {
			return f, err
		}
		switch {
		case f.breaks(x.ID):
			return flow{}, nil
		case f.kind == flowNormal, f.kind == flowContinue && f.target == x.ID:
		default:
			return f, nil
		}

		switch x.Form {
		case reloop.LoopDoWhile:
			ok, err := r.cond(x.Cond)
			if err != nil || !ok {
				return flow{}, err
			}
		case reloop.LoopFor:
			if err := r.m.Exec(x.Step); err != nil {
				return flow{}, err
			}
		}
	}
}

func (r *runner) cond(c *reloop.Cond) (bool, error) {
	switch c.Op {
	case reloop.CondAnd:
		ok, err := r.cond(c.X)
		if err != nil || !ok {
			return false, err
		}
		return r.cond(c.Y)
	case reloop.CondOr:
		ok, err := r.cond(c.X)
		if err != nil || ok {
			return ok, err
		}
		return r.cond(c.Y)
	case reloop.CondNot:
		ok, err := r.cond(c.X)
		return !ok, err
	default:
		return r.m.Cond(c.Expr)
	}
}
