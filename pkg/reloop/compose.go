package reloop

// compose folds test blocks that only branch into && and || conditions.
// Two layouts are recognized. Nested: the inner test sits in a branch of the
// outer If and its other branch leads where the outer's other branch leads.
// Chained: the inner test follows the outer If, whose one non-empty branch
// always leaves. Both have negated variants. compose repeats until nothing
// more folds, so longer chains collapse one link at a time.
func (r *relooper) compose(s *If) Shape {
	if s.ID != 0 {
		exit := &Break{Target: s.ID}
		r.tailLoops(s.Then, exit)
		r.tailLoops(s.Else, exit)
	}
	s.Then, s.Else = stripBreak(s.Then, s.ID), stripBreak(s.Else, s.ID)
	for {
		folded := r.composeNested(s)
		if folded == nil {
			folded = r.composeChained(s)
		}
		if folded == nil {
			break
		}
		s = folded
	}
	s.Then, s.Else = stripBreak(s.Then, s.ID), stripBreak(s.Else, s.ID)
	if s.ID != 0 && countJumps(s, s.ID, true) == 0 {
		s.ID = 0
	}
	return s
}

// testBlock returns the block and inner If of a branch that consists only of
// an effect-free conditional block.
func testBlock(s Shape) (*Block, *If) {
	sim, ok := s.(*Simple)
	if !ok || len(sim.Effects) != 0 || sim.Block.Term.Kind != TermCond {
		return nil, nil
	}
	inner, ok := sim.Next.(*If)
	if !ok || inner.ID != 0 {
		return nil, nil
	}
	return sim.Block, inner
}

// exit describes where a branch ends up: at the If's Next (proceed) or in a
// terminal shape.
type exit struct {
	proceed bool
	shape   Shape
}

func (e exit) same(o exit) bool {
	if e.proceed || o.proceed {
		return e.proceed && o.proceed
	}
	return Equal(e.shape, o.shape)
}

// outerExit classifies a branch of the outer If with the given id.
func outerExit(s Shape, id ShapeID) (exit, bool) {
	if s == nil {
		return exit{proceed: true}, true
	}
	if b, ok := s.(*Break); ok && id != 0 && b.Target == id {
		return exit{proceed: true}, true
	}
	if terminal(s) {
		return exit{shape: s}, true
	}
	return exit{}, false
}

// innerExit classifies a branch of an inner If whose own Next is rest. An
// empty branch only proceeds when nothing follows the inner If.
func innerExit(s, rest Shape, id ShapeID) (exit, bool) {
	if s == nil {
		return exit{proceed: true}, rest == nil
	}
	return outerExit(s, id)
}

// join sequences p before x where one of them is empty.
func join(p, x Shape) (Shape, bool) {
	switch {
	case p == nil:
		return x, true
	case x == nil:
		return p, true
	case terminal(p):
		return p, true
	}
	return nil, false
}

func merged(outer *If, b *Block, inner *If) []*Block {
	out := append([]*Block(nil), outer.Merged...)
	out = append(out, b)
	return append(out, inner.Merged...)
}

func (r *relooper) composeNested(s *If) *If {
	if b, inner := testBlock(s.Then); b != nil {
		e, ok := outerExit(s.Else, s.ID)
		if !ok {
			return nil
		}
		if x, ok := innerExit(inner.Else, inner.Next, s.ID); ok && x.same(e) {
			if then, ok := join(inner.Then, inner.Next); ok {
				return r.folded(s, b, inner, And(s.Cond, inner.Cond), then, s.Else)
			}
		}
		if x, ok := innerExit(inner.Then, inner.Next, s.ID); ok && x.same(e) {
			if then, ok := join(inner.Else, inner.Next); ok {
				return r.folded(s, b, inner, And(s.Cond, Not(inner.Cond)), then, s.Else)
			}
		}
	}
	if b, inner := testBlock(s.Else); b != nil {
		e, ok := outerExit(s.Then, s.ID)
		if !ok {
			return nil
		}
		if x, ok := innerExit(inner.Then, inner.Next, s.ID); ok && x.same(e) {
			if els, ok := join(inner.Else, inner.Next); ok {
				return r.folded(s, b, inner, Or(s.Cond, inner.Cond), s.Then, els)
			}
		}
		if x, ok := innerExit(inner.Else, inner.Next, s.ID); ok && x.same(e) {
			if els, ok := join(inner.Then, inner.Next); ok {
				return r.folded(s, b, inner, Or(s.Cond, Not(inner.Cond)), s.Then, els)
			}
		}
	}
	return nil
}

func (r *relooper) composeChained(s *If) *If {
	if s.ID != 0 {
		return nil
	}
	b, inner := testBlock(s.Next)
	if b == nil {
		return nil
	}
	switch {
	case s.Then == nil && terminal(s.Else):
		if Equal(inner.Else, s.Else) {
			return r.chained(s, b, inner, And(s.Cond, inner.Cond), inner.Then, s.Else)
		}
		if Equal(inner.Then, s.Else) {
			return r.chained(s, b, inner, And(s.Cond, Not(inner.Cond)), inner.Else, s.Else)
		}
	case s.Else == nil && terminal(s.Then):
		if Equal(inner.Then, s.Then) {
			return r.chained(s, b, inner, Or(s.Cond, inner.Cond), s.Then, inner.Else)
		}
		if Equal(inner.Else, s.Then) {
			return r.chained(s, b, inner, Or(s.Cond, Not(inner.Cond)), s.Then, inner.Then)
		}
	}
	return nil
}

func (r *relooper) folded(s *If, b *Block, inner *If, c *Cond, then, els Shape) *If {
	r.trace.note("compose", s.ID, "nested %s", c)
	return &If{ID: s.ID, Cond: c, Then: then, Else: els, Merged: merged(s, b, inner), Next: s.Next}
}

func (r *relooper) chained(s *If, b *Block, inner *If, c *Cond, then, els Shape) *If {
	r.trace.note("compose", 0, "chained %s", c)
	return &If{Cond: c, Then: then, Else: els, Merged: merged(s, b, inner), Next: inner.Next}
}

// stripBreak removes a Break of id that ends the sequence s. Reaching the end
// of a branch leaves the shape the same way the break does.
func stripBreak(s Shape, id ShapeID) Shape {
	if id == 0 || s == nil {
		return s
	}
	switch x := s.(type) {
	case *Break:
		if x.Target == id {
			return nil
		}
	case *Simple:
		x.Next = stripBreak(x.Next, id)
	case *SetLabel:
		x.Next = stripBreak(x.Next, id)
	case *If:
		if x.Next == nil {
			x.Then, x.Else = stripBreak(x.Then, id), stripBreak(x.Else, id)
		} else {
			x.Next = stripBreak(x.Next, id)
		}
	case *Loop:
		x.Next = stripBreak(x.Next, id)
	case *Multiple:
		x.Next = stripBreak(x.Next, id)
	case *Switch:
		x.Next = stripBreak(x.Next, id)
	}
	return s
}
