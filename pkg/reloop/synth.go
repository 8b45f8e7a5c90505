package reloop

// render turns a classified region into its Shape. Branch rendering needs the
// final checked set, so rendering runs only after classification finishes.
func (r *relooper) render(reg *region) Shape {
	if reg == nil {
		return nil
	}
	switch reg.kind {
	case regionSimple:
		return r.renderSimple(reg)
	case regionLoop:
		l := &Loop{ID: reg.id, Body: r.render(reg.inner), Next: r.render(reg.next)}
		r.tailLoops(l.Body, &Continue{Target: l.ID})
		return r.classifyLoop(l)
	default:
		// Fused multiples and switch regions are consumed by the terminator of
		// the simple before them; anything else dispatches on the label.
		return r.renderMultiple(reg)
	}
}

func (r *relooper) renderSimple(reg *region) Shape {
	b := reg.block
	s := &Simple{Block: b, Effects: append([]string(nil), b.Effects...)}
	s.Next = r.renderTerm(b, reg.next)
	return r.classifyFor(s)
}

func (r *relooper) renderTerm(b *Block, next *region) Shape {
	t := b.Term
	switch t.Kind {
	case TermReturn:
		return nil
	case TermJump:
		return r.sequence(r.branchTo(b.ID, t.Target, next), next)
	case TermCond:
		if t.True == t.False {
			return r.sequence(r.branchTo(b.ID, t.True, next), next)
		}
		s := &If{
			Cond: Leaf(t.Cond),
			Then: r.branchTo(b.ID, t.True, next),
			Else: r.branchTo(b.ID, t.False, next),
		}
		after := next
		if next != nil && next.kind == regionMultiple && next.fused {
			s.ID = next.id
			after = next.next
		}
		s.Next = r.render(after)
		return r.compose(s)
	case TermSwitch:
		return r.buildSwitch(b, next)
	}
	return nil
}

func (r *relooper) renderMultiple(reg *region) Shape {
	m := &Multiple{ID: reg.id}
	exit := &Break{Target: reg.id}
	for _, h := range reg.handled {
		body := r.render(h.inner)
		r.tailLoops(body, exit)
		m.Handled = append(m.Handled, Handled{Label: h.entry, Body: stripBreak(body, reg.id)})
	}
	// With every entry handled the label can only name the last arm.
	if len(reg.handled) == len(reg.entries) && len(m.Handled) > 1 {
		last := m.Handled[len(m.Handled)-1]
		m.Handled = m.Handled[:len(m.Handled)-1]
		m.Else = last.Body
	}
	m.Next = r.render(reg.next)
	return m
}

// branchTo renders the transfer from one block to another. next is the
// region that follows the source block's own region.
func (r *relooper) branchTo(from, to BlockID, next *region) Shape {
	br := r.branches[edgeKey{from, to}]
	switch br.kind {
	case flowBreak:
		return r.withLabel(to, &Break{Target: br.ancestor.id})
	case flowContinue:
		return r.withLabel(to, &Continue{Target: br.ancestor.id})
	case flowFallthrough:
		return nil
	}
	if body, ok := next.handledBody(to); ok {
		return r.render(body)
	}
	return r.withLabel(to, nil)
}

func (r *relooper) withLabel(to BlockID, then Shape) Shape {
	if !r.checked[to] {
		return then
	}
	return &SetLabel{Label: to, Next: then}
}

// sequence runs first and then the rendering of next.
func (r *relooper) sequence(first Shape, next *region) Shape {
	rest := r.render(next)
	if first == nil {
		return rest
	}
	if sl, ok := first.(*SetLabel); ok && sl.Next == nil {
		sl.Next = rest
	}
	return first
}
