package graphfile

import (
	"fmt"

	"github.com/l3aro/go-relooper/pkg/reloop"
)

// Shape kinds as written in documents.
const (
	KindSimple   = "simple"
	KindLoop     = "loop"
	KindMultiple = "multiple"
	KindIf       = "if"
	KindSwitch   = "switch"
	KindBreak    = "break"
	KindContinue = "continue"
	KindSetLabel = "set_label"
)

// CondDoc is a serialized reloop.Cond.
type CondDoc struct {
	Op   string   `json:"op" yaml:"op" msgpack:"op"`
	Expr string   `json:"expr,omitempty" yaml:"expr,omitempty" msgpack:"expr,omitempty"`
	X    *CondDoc `json:"x,omitempty" yaml:"x,omitempty" msgpack:"x,omitempty"`
	Y    *CondDoc `json:"y,omitempty" yaml:"y,omitempty" msgpack:"y,omitempty"`
}

// HandledDoc is one label-dispatched arm of a Multiple.
type HandledDoc struct {
	Label int       `json:"label" yaml:"label" msgpack:"label"`
	Body  *ShapeDoc `json:"body,omitempty" yaml:"body,omitempty" msgpack:"body,omitempty"`
}

// CaseDoc is one arm of a Switch.
type CaseDoc struct {
	Values       []int64   `json:"values,omitempty" yaml:"values,omitempty" msgpack:"values,omitempty"`
	Default      bool      `json:"default,omitempty" yaml:"default,omitempty" msgpack:"default,omitempty"`
	FallsThrough bool      `json:"falls_through,omitempty" yaml:"falls_through,omitempty" msgpack:"falls_through,omitempty"`
	Body         *ShapeDoc `json:"body,omitempty" yaml:"body,omitempty" msgpack:"body,omitempty"`
}

// ShapeDoc is a serialized reloop.Shape. Blocks are referenced by id.
type ShapeDoc struct {
	Kind string `json:"kind" yaml:"kind" msgpack:"kind"`
	ID   int    `json:"id,omitempty" yaml:"id,omitempty" msgpack:"id,omitempty"`

	Block   *int     `json:"block,omitempty" yaml:"block,omitempty" msgpack:"block,omitempty"`
	Effects []string `json:"effects,omitempty" yaml:"effects,omitempty" msgpack:"effects,omitempty"`

	Form       string   `json:"form,omitempty" yaml:"form,omitempty" msgpack:"form,omitempty"`
	Header     *int     `json:"header,omitempty" yaml:"header,omitempty" msgpack:"header,omitempty"`
	Cond       *CondDoc `json:"cond,omitempty" yaml:"cond,omitempty" msgpack:"cond,omitempty"`
	Init       string   `json:"init,omitempty" yaml:"init,omitempty" msgpack:"init,omitempty"`
	Step       string   `json:"step,omitempty" yaml:"step,omitempty" msgpack:"step,omitempty"`
	CondBlocks []int    `json:"cond_blocks,omitempty" yaml:"cond_blocks,omitempty" msgpack:"cond_blocks,omitempty"`
	Merged     []int    `json:"merged,omitempty" yaml:"merged,omitempty" msgpack:"merged,omitempty"`

	Body *ShapeDoc `json:"body,omitempty" yaml:"body,omitempty" msgpack:"body,omitempty"`
	Then *ShapeDoc `json:"then,omitempty" yaml:"then,omitempty" msgpack:"then,omitempty"`
	Else *ShapeDoc `json:"else,omitempty" yaml:"else,omitempty" msgpack:"else,omitempty"`

	Handled  []HandledDoc `json:"handled,omitempty" yaml:"handled,omitempty" msgpack:"handled,omitempty"`
	Selector string       `json:"selector,omitempty" yaml:"selector,omitempty" msgpack:"selector,omitempty"`
	Cases    []CaseDoc    `json:"cases,omitempty" yaml:"cases,omitempty" msgpack:"cases,omitempty"`

	Target int `json:"target,omitempty" yaml:"target,omitempty" msgpack:"target,omitempty"`
	Label  int `json:"label,omitempty" yaml:"label,omitempty" msgpack:"label,omitempty"`

	Next *ShapeDoc `json:"next,omitempty" yaml:"next,omitempty" msgpack:"next,omitempty"`
}

// LabelDoc is a serialized reloop.LabelVariable.
type LabelDoc struct {
	Name   string `json:"name" yaml:"name" msgpack:"name"`
	Values []int  `json:"values" yaml:"values" msgpack:"values"`
}

// ResultDoc is a serialized reloop.Result.
type ResultDoc struct {
	Graph  string              `json:"graph,omitempty" yaml:"graph,omitempty" msgpack:"graph,omitempty"`
	Root   *ShapeDoc           `json:"root" yaml:"root" msgpack:"root"`
	Labels []LabelDoc          `json:"labels,omitempty" yaml:"labels,omitempty" msgpack:"labels,omitempty"`
	Trace  []reloop.TraceEvent `json:"trace,omitempty" yaml:"-" msgpack:"-"`
}

// NewResultDoc converts a result into its document form.
func NewResultDoc(graph string, res *reloop.Result) *ResultDoc {
	doc := &ResultDoc{Graph: graph, Root: NewShapeDoc(res.Root), Trace: res.Trace}
	for _, lv := range res.Labels {
		ld := LabelDoc{Name: lv.Name}
		for _, v := range lv.Values {
			ld.Values = append(ld.Values, int(v))
		}
		doc.Labels = append(doc.Labels, ld)
	}
	return doc
}

// Result rebuilds the result against g, resolving block references.
func (d *ResultDoc) Result(g *reloop.Graph) (*reloop.Result, error) {
	root, err := d.Root.Shape(g)
	if err != nil {
		return nil, err
	}
	res := &reloop.Result{Root: root, Trace: d.Trace}
	for _, ld := range d.Labels {
		lv := reloop.LabelVariable{Name: ld.Name}
		for _, v := range ld.Values {
			lv.Values = append(lv.Values, reloop.BlockID(v))
		}
		res.Labels = append(res.Labels, lv)
	}
	return res, nil
}

func newCondDoc(c *reloop.Cond) *CondDoc {
	if c == nil {
		return nil
	}
	switch c.Op {
	case reloop.CondAnd:
		return &CondDoc{Op: "and", X: newCondDoc(c.X), Y: newCondDoc(c.Y)}
	case reloop.CondOr:
		return &CondDoc{Op: "or", X: newCondDoc(c.X), Y: newCondDoc(c.Y)}
	case reloop.CondNot:
		return &CondDoc{Op: "not", X: newCondDoc(c.X)}
	default:
		return &CondDoc{Op: "leaf", Expr: c.Expr}
	}
}

// Cond rebuilds the condition tree.
func (d *CondDoc) Cond() (*reloop.Cond, error) {
	if d == nil {
		return nil, nil
	}
	switch d.Op {
	case "leaf":
		return reloop.Leaf(d.Expr), nil
	case "not":
		x, err := d.X.Cond()
		if err != nil {
			return nil, err
		}
		if x == nil {
			return nil, fmt.Errorf("not: missing operand")
		}
		return reloop.Not(x), nil
	case "and", "or":
		x, err := d.X.Cond()
		if err != nil {
			return nil, err
		}
		y, err := d.Y.Cond()
		if err != nil {
			return nil, err
		}
		if x == nil || y == nil {
			return nil, fmt.Errorf("%s: missing operand", d.Op)
		}
		if d.Op == "and" {
			return reloop.And(x, y), nil
		}
		return reloop.Or(x, y), nil
	}
	return nil, fmt.Errorf("unknown condition op %q", d.Op)
}

func blockRef(b *reloop.Block) *int {
	if b == nil {
		return nil
	}
	id := int(b.ID)
	return &id
}

func blockRefs(bs []*reloop.Block) []int {
	var out []int
	for _, b := range bs {
		out = append(out, int(b.ID))
	}
	return out
}

// NewShapeDoc converts a shape tree. A nil shape gives nil.
func NewShapeDoc(s reloop.Shape) *ShapeDoc {
	switch x := s.(type) {
	case *reloop.Simple:
		return &ShapeDoc{Kind: KindSimple, Block: blockRef(x.Block), Effects: x.Effects, Next: NewShapeDoc(x.Next)}
	case *reloop.Loop:
		return &ShapeDoc{
			Kind:       KindLoop,
			ID:         int(x.ID),
			Form:       x.Form.String(),
			Header:     blockRef(x.Header),
			Cond:       newCondDoc(x.Cond),
			Init:       x.Init,
			Step:       x.Step,
			CondBlocks: blockRefs(x.CondBlocks),
			Body:       NewShapeDoc(x.Body),
			Next:       NewShapeDoc(x.Next),
		}
	case *reloop.Multiple:
		d := &ShapeDoc{Kind: KindMultiple, ID: int(x.ID), Else: NewShapeDoc(x.Else), Next: NewShapeDoc(x.Next)}
		for _, h := range x.Handled {
			d.Handled = append(d.Handled, HandledDoc{Label: int(h.Label), Body: NewShapeDoc(h.Body)})
		}
		return d
	case *reloop.If:
		return &ShapeDoc{
			Kind:   KindIf,
			ID:     int(x.ID),
			Cond:   newCondDoc(x.Cond),
			Then:   NewShapeDoc(x.Then),
			Else:   NewShapeDoc(x.Else),
			Merged: blockRefs(x.Merged),
			Next:   NewShapeDoc(x.Next),
		}
	case *reloop.Switch:
		d := &ShapeDoc{Kind: KindSwitch, ID: int(x.ID), Selector: x.Selector, Next: NewShapeDoc(x.Next)}
		for _, c := range x.Cases {
			d.Cases = append(d.Cases, CaseDoc{
				Values:       c.Values,
				Default:      c.Default,
				FallsThrough: c.FallsThrough,
				Body:         NewShapeDoc(c.Body),
			})
		}
		return d
	case *reloop.Break:
		return &ShapeDoc{Kind: KindBreak, Target: int(x.Target)}
	case *reloop.Continue:
		return &ShapeDoc{Kind: KindContinue, Target: int(x.Target)}
	case *reloop.SetLabel:
		return &ShapeDoc{Kind: KindSetLabel, Label: int(x.Label), Next: NewShapeDoc(x.Next)}
	}
	return nil
}

var loopForms = map[string]reloop.LoopForm{}

func init() {
	for _, f := range []reloop.LoopForm{reloop.LoopInfinite, reloop.LoopWhile, reloop.LoopDoWhile, reloop.LoopFor} {
		loopForms[f.String()] = f
	}
}

type resolver struct {
	blocks map[reloop.BlockID]*reloop.Block
}

func (r *resolver) block(ref *int) (*reloop.Block, error) {
	if ref == nil {
		return nil, nil
	}
	b, ok := r.blocks[reloop.BlockID(*ref)]
	if !ok {
		return nil, fmt.Errorf("shape references unknown block %d", *ref)
	}
	return b, nil
}

func (r *resolver) blockList(refs []int) ([]*reloop.Block, error) {
	var out []*reloop.Block
	for _, id := range refs {
		id := id
		b, err := r.block(&id)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

// Shape rebuilds the shape tree against g.
func (d *ShapeDoc) Shape(g *reloop.Graph) (reloop.Shape, error) {
	r := &resolver{blocks: make(map[reloop.BlockID]*reloop.Block, len(g.Blocks))}
	for _, b := range g.Blocks {
		r.blocks[b.ID] = b
	}
	return r.shape(d)
}

func (r *resolver) shape(d *ShapeDoc) (reloop.Shape, error) {
	if d == nil {
		return nil, nil
	}
	next, err := r.shape(d.Next)
	if err != nil {
		return nil, err
	}
	cond, err := d.Cond.Cond()
	if err != nil {
		return nil, err
	}

	switch d.Kind {
	case KindSimple:
		b, err := r.block(d.Block)
		if err != nil {
			return nil, err
		}
		if b == nil {
			return nil, fmt.Errorf("simple shape without block")
		}
		return &reloop.Simple{Block: b, Effects: d.Effects, Next: next}, nil

	case KindLoop:
		form, ok := loopForms[d.Form]
		if !ok {
			return nil, fmt.Errorf("unknown loop form %q", d.Form)
		}
		header, err := r.block(d.Header)
		if err != nil {
			return nil, err
		}
		condBlocks, err := r.blockList(d.CondBlocks)
		if err != nil {
			return nil, err
		}
		body, err := r.shape(d.Body)
		if err != nil {
			return nil, err
		}
		return &reloop.Loop{
			ID: reloop.ShapeID(d.ID), Form: form, Header: header, Cond: cond,
			Init: d.Init, Step: d.Step, CondBlocks: condBlocks, Body: body, Next: next,
		}, nil

	case KindMultiple:
		m := &reloop.Multiple{ID: reloop.ShapeID(d.ID), Next: next}
		for _, h := range d.Handled {
			body, err := r.shape(h.Body)
			if err != nil {
				return nil, err
			}
			m.Handled = append(m.Handled, reloop.Handled{Label: reloop.BlockID(h.Label), Body: body})
		}
		if m.Else, err = r.shape(d.Else); err != nil {
			return nil, err
		}
		return m, nil

	case KindIf:
		if cond == nil {
			return nil, fmt.Errorf("if shape without condition")
		}
		then, err := r.shape(d.Then)
		if err != nil {
			return nil, err
		}
		els, err := r.shape(d.Else)
		if err != nil {
			return nil, err
		}
		merged, err := r.blockList(d.Merged)
		if err != nil {
			return nil, err
		}
		return &reloop.If{ID: reloop.ShapeID(d.ID), Cond: cond, Then: then, Else: els, Merged: merged, Next: next}, nil

	case KindSwitch:
		sw := &reloop.Switch{ID: reloop.ShapeID(d.ID), Selector: d.Selector, Next: next}
		for _, c := range d.Cases {
			body, err := r.shape(c.Body)
			if err != nil {
				return nil, err
			}
			sw.Cases = append(sw.Cases, reloop.SwitchCase{
				Values: c.Values, Default: c.Default, FallsThrough: c.FallsThrough, Body: body,
			})
		}
		return sw, nil

	case KindBreak:
		return &reloop.Break{Target: reloop.ShapeID(d.Target)}, nil
	case KindContinue:
		return &reloop.Continue{Target: reloop.ShapeID(d.Target)}, nil
	case KindSetLabel:
		return &reloop.SetLabel{Label: reloop.BlockID(d.Label), Next: next}, nil
	}
	return nil, fmt.Errorf("unknown shape kind %q", d.Kind)
}
