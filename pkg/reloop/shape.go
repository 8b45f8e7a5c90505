package reloop

import "strings"

// ShapeID names a Loop, Multiple, Switch or fused If so that Break and
// Continue can target it. Zero means the shape is never targeted.
type ShapeID int

// Shape is a node of the structured output tree. The concrete types are
// *Simple, *Loop, *Multiple, *If, *Switch, *Break, *Continue and *SetLabel.
// A nil Shape is the empty statement.
type Shape interface {
	isShape()
}

// Simple executes one block. If the block returns, Next is nil; otherwise
// Next holds the rendered terminator followed by the rest of the region.
type Simple struct {
	Block   *Block
	Effects []string
	Next    Shape
}

// LoopForm is the emission form picked by the loop classifier.
type LoopForm int

const (
	LoopInfinite LoopForm = iota // for { ... }
	LoopWhile                    // while (cond) { ... }
	LoopDoWhile                  // do { ... } while (cond)
	LoopFor                      // for (init; cond; step) { ... }
)

func (f LoopForm) String() string {
	switch f {
	case LoopWhile:
		return "while"
	case LoopDoWhile:
		return "do-while"
	case LoopFor:
		return "for"
	default:
		return "infinite"
	}
}

// Loop repeats Body until a Break targeting ID. Continue targeting ID starts
// the next iteration. For while and for forms Header is the test block that
// was folded into Cond; for do-while the test stays in Body's last block.
type Loop struct {
	ID         ShapeID
	Form       LoopForm
	Header     *Block
	Cond       *Cond
	Init       string
	Step       string
	CondBlocks []*Block
	Body       Shape
	Next       Shape
}

// Handled is one label-checked arm of a Multiple.
type Handled struct {
	Label BlockID
	Body  Shape
}

// Multiple dispatches on the label variable. Else runs when no arm matches.
type Multiple struct {
	ID      ShapeID
	Handled []Handled
	Else    Shape
	Next    Shape
}

// If is a two-way branch. A non-zero ID makes it a break target whose exit
// continues at Next. Merged lists test blocks whose conditions were folded
// into Cond by the condition composer.
type If struct {
	ID     ShapeID
	Cond   *Cond
	Then   Shape
	Else   Shape
	Merged []*Block
	Next   Shape
}

// SwitchCase is a label group of a Switch.
type SwitchCase struct {
	Values       []int64
	Default      bool
	Body         Shape
	FallsThrough bool
}

// Switch dispatches on Selector. Break targeting ID exits to Next.
type Switch struct {
	ID       ShapeID
	Selector string
	Cases    []SwitchCase
	Next     Shape
}

// Break exits the shape named by Target.
type Break struct {
	Target ShapeID
}

// Continue starts the next iteration of the loop named by Target.
type Continue struct {
	Target ShapeID
}

// SetLabel assigns the label variable, then runs Next.
type SetLabel struct {
	Label BlockID
	Next  Shape
}

func (*Simple) isShape()   {}
func (*Loop) isShape()     {}
func (*Multiple) isShape() {}
func (*If) isShape()       {}
func (*Switch) isShape()   {}
func (*Break) isShape()    {}
func (*Continue) isShape() {}
func (*SetLabel) isShape() {}

// CondOp is the operator of a Cond node.
type CondOp int

const (
	CondLeaf CondOp = iota
	CondAnd
	CondOr
	CondNot
)

// Cond is a boolean expression over opaque leaf expressions. And and Or
// evaluate X first and Y only when X does not decide the result.
type Cond struct {
	Op   CondOp
	Expr string
	X, Y *Cond
}

// Leaf wraps an opaque expression.
func Leaf(expr string) *Cond { return &Cond{Op: CondLeaf, Expr: expr} }

// And returns x && y.
func And(x, y *Cond) *Cond { return &Cond{Op: CondAnd, X: x, Y: y} }

// Or returns x || y.
func Or(x, y *Cond) *Cond { return &Cond{Op: CondOr, X: x, Y: y} }

// Not returns !x, collapsing double negation.
func Not(x *Cond) *Cond {
	if x.Op == CondNot {
		return x.X
	}
	return &Cond{Op: CondNot, X: x}
}

func (c *Cond) String() string {
	switch c.Op {
	case CondAnd:
		return c.X.operand(CondAnd) + " && " + c.Y.operand(CondAnd)
	case CondOr:
		return c.X.operand(CondOr) + " || " + c.Y.operand(CondOr)
	case CondNot:
		return "!" + c.X.operand(CondNot)
	default:
		return c.Expr
	}
}

func (c *Cond) operand(parent CondOp) string {
	if c.Op == CondLeaf {
		wrap := strings.ContainsAny(c.Expr, " <>=!&|+-*/%^?:")
		if parent != CondNot {
			wrap = strings.Contains(c.Expr, "&&") || strings.Contains(c.Expr, "||") || strings.Contains(c.Expr, "?")
		}
		if wrap {
			return "(" + c.Expr + ")"
		}
		return c.Expr
	}
	if c.Op == parent || c.Op == CondNot {
		return c.String()
	}
	return "(" + c.String() + ")"
}

// Equal reports whether a and b are structurally identical: same variants,
// same blocks and effects, same conditions and targets, recursively.
func Equal(a, b Shape) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch x := a.(type) {
	case *Simple:
		y, ok := b.(*Simple)
		return ok && blockEqual(x.Block, y.Block) && stringsEqual(x.Effects, y.Effects) && Equal(x.Next, y.Next)
	case *Loop:
		y, ok := b.(*Loop)
		return ok && x.ID == y.ID && x.Form == y.Form && blockEqual(x.Header, y.Header) &&
			condEqual(x.Cond, y.Cond) && x.Init == y.Init && x.Step == y.Step &&
			blocksEqual(x.CondBlocks, y.CondBlocks) && Equal(x.Body, y.Body) && Equal(x.Next, y.Next)
	case *Multiple:
		y, ok := b.(*Multiple)
		if !ok || x.ID != y.ID || len(x.Handled) != len(y.Handled) {
			return false
		}
		for i := range x.Handled {
			if x.Handled[i].Label != y.Handled[i].Label || !Equal(x.Handled[i].Body, y.Handled[i].Body) {
				return false
			}
		}
		return Equal(x.Else, y.Else) && Equal(x.Next, y.Next)
	case *If:
		y, ok := b.(*If)
		return ok && x.ID == y.ID && condEqual(x.Cond, y.Cond) && blocksEqual(x.Merged, y.Merged) &&
			Equal(x.Then, y.Then) && Equal(x.Else, y.Else) && Equal(x.Next, y.Next)
	case *Switch:
		y, ok := b.(*Switch)
		if !ok || x.ID != y.ID || x.Selector != y.Selector || len(x.Cases) != len(y.Cases) {
			return false
		}
		for i := range x.Cases {
			cx, cy := x.Cases[i], y.Cases[i]
			if cx.Default != cy.Default || cx.FallsThrough != cy.FallsThrough ||
				!int64sEqual(cx.Values, cy.Values) || !Equal(cx.Body, cy.Body) {
				return false
			}
		}
		return Equal(x.Next, y.Next)
	case *Break:
		y, ok := b.(*Break)
		return ok && x.Target == y.Target
	case *Continue:
		y, ok := b.(*Continue)
		return ok && x.Target == y.Target
	case *SetLabel:
		y, ok := b.(*SetLabel)
		return ok && x.Label == y.Label && Equal(x.Next, y.Next)
	}
	return false
}

func condEqual(a, b *Cond) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Op == b.Op && a.Expr == b.Expr && condEqual(a.X, b.X) && condEqual(a.Y, b.Y)
}

func blockEqual(a, b *Block) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.ID == b.ID
}

func blocksEqual(a, b []*Block) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !blockEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

func stringsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func int64sEqual(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Walk calls fn for s and every shape nested in it, parents first.
func Walk(s Shape, fn func(Shape)) {
	if s == nil {
		return
	}
	fn(s)
	switch x := s.(type) {
	case *Simple:
		Walk(x.Next, fn)
	case *Loop:
		Walk(x.Body, fn)
		Walk(x.Next, fn)
	case *Multiple:
		for _, h := range x.Handled {
			Walk(h.Body, fn)
		}
		Walk(x.Else, fn)
		Walk(x.Next, fn)
	case *If:
		Walk(x.Then, fn)
		Walk(x.Else, fn)
		Walk(x.Next, fn)
	case *Switch:
		for _, c := range x.Cases {
			Walk(c.Body, fn)
		}
		Walk(x.Next, fn)
	case *SetLabel:
		Walk(x.Next, fn)
	}
}

// Blocks returns every block placed in the tree, in tree order. Loop headers
// and folded condition blocks are included.
func Blocks(s Shape) []*Block {
	var out []*Block
	Walk(s, func(s Shape) {
		switch x := s.(type) {
		case *Simple:
			out = append(out, x.Block)
		case *Loop:
			if x.Header != nil {
				out = append(out, x.Header)
			}
			out = append(out, x.CondBlocks...)
		case *If:
			out = append(out, x.Merged...)
		}
	})
	return out
}

// countJumps counts Break (brk true) or Continue shapes targeting id.
func countJumps(s Shape, id ShapeID, brk bool) int {
	n := 0
	Walk(s, func(s Shape) {
		switch x := s.(type) {
		case *Break:
			if brk && x.Target == id {
				n++
			}
		case *Continue:
			if !brk && x.Target == id {
				n++
			}
		}
	})
	return n
}

// terminal reports whether s always transfers control away, so that nothing
// after it runs.
func terminal(s Shape) bool {
	switch x := s.(type) {
	case *Break, *Continue:
		return true
	case *SetLabel:
		return terminal(x.Next)
	}
	return false
}
