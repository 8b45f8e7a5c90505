package reloop

import (
	"regexp"
	"strings"
)

// classifyLoop picks the emission form of an infinite loop: while when the
// body starts with an effect-free test that leaves the loop, do-while when
// the body ends with a test that either repeats or leaves. for is decided
// later by classifyFor, once the loop's predecessor is known.
func (r *relooper) classifyLoop(l *Loop) Shape {
	if r.asWhile(l) || r.asDoWhile(l) {
		r.trace.note("loop", l.ID, "form %s cond %s", l.Form, l.Cond)
	}
	return l
}

// tailLoops looks for infinite loops that end the sequence s. Falling out of
// such a loop reaches the same place as exit, so exit jumps inside it are
// turned into breaks of the loop itself and the loop is classified again.
// exit is a Break of the shape s belongs to, or a Continue of the loop whose
// body s is.
func (r *relooper) tailLoops(s Shape, exit Shape) {
	for s != nil {
		switch x := s.(type) {
		case *Simple:
			if l, ok := x.Next.(*Loop); ok && l.Next == nil {
				if r.leaveBy(l, exit) {
					r.classifyFor(x)
				}
				return
			}
			s = x.Next
		case *SetLabel:
			s = x.Next
		case *Loop:
			if x.Next == nil {
				r.leaveBy(x, exit)
				return
			}
			s = x.Next
		case *If:
			if x.Next != nil {
				s = x.Next
				continue
			}
			r.tailLoops(x.Then, exit)
			s = x.Else
		case *Multiple:
			if x.Next != nil {
				s = x.Next
				continue
			}
			for _, h := range x.Handled {
				r.tailLoops(h.Body, exit)
			}
			s = x.Else
		case *Switch:
			if x.Next != nil {
				s = x.Next
				continue
			}
			for _, c := range x.Cases {
				if !c.FallsThrough {
					r.tailLoops(c.Body, exit)
				}
			}
			return
		default:
			return
		}
	}
}

// leaveBy retargets the exit jumps of an infinite loop with nothing after it.
func (r *relooper) leaveBy(l *Loop, exit Shape) bool {
	if l.Form != LoopInfinite {
		return false
	}
	var id ShapeID
	brk := false
	switch x := exit.(type) {
	case *Break:
		id, brk = x.Target, true
	case *Continue:
		id = x.Target
	default:
		return false
	}
	if id == 0 || countJumps(l.Body, id, brk) == 0 {
		return false
	}
	l.Body = retarget(l.Body, id, brk, l.ID)
	r.trace.note("loop", l.ID, "exits of L%d leave through the loop", id)
	r.classifyLoop(l)
	return true
}

// retarget replaces every Break (brk) or Continue of id in s with a Break of
// to.
func retarget(s Shape, id ShapeID, brk bool, to ShapeID) Shape {
	switch x := s.(type) {
	case *Break:
		if brk && x.Target == id {
			return &Break{Target: to}
		}
	case *Continue:
		if !brk && x.Target == id {
			return &Break{Target: to}
		}
	case *Simple:
		x.Next = retarget(x.Next, id, brk, to)
	case *SetLabel:
		x.Next = retarget(x.Next, id, brk, to)
	case *Loop:
		x.Body = retarget(x.Body, id, brk, to)
		x.Next = retarget(x.Next, id, brk, to)
	case *If:
		x.Then = retarget(x.Then, id, brk, to)
		x.Else = retarget(x.Else, id, brk, to)
		x.Next = retarget(x.Next, id, brk, to)
	case *Multiple:
		for i := range x.Handled {
			x.Handled[i].Body = retarget(x.Handled[i].Body, id, brk, to)
		}
		x.Else = retarget(x.Else, id, brk, to)
		x.Next = retarget(x.Next, id, brk, to)
	case *Switch:
		for i := range x.Cases {
			x.Cases[i].Body = retarget(x.Cases[i].Body, id, brk, to)
		}
		x.Next = retarget(x.Next, id, brk, to)
	}
	return s
}

func (r *relooper) asWhile(l *Loop) bool {
	h, ok := l.Body.(*Simple)
	if !ok || len(h.Effects) != 0 || h.Block.Term.Kind != TermCond {
		return false
	}
	test, ok := h.Next.(*If)
	if !ok || test.ID != 0 {
		return false
	}
	exit := &Break{Target: l.ID}
	switch {
	case test.Then == nil && Equal(test.Else, exit):
		l.Cond = test.Cond
	case test.Else == nil && Equal(test.Then, exit):
		l.Cond = Not(test.Cond)
	default:
		return false
	}
	l.Form = LoopWhile
	l.Header = h.Block
	l.CondBlocks = test.Merged
	l.Body = test.Next
	return true
}

func (r *relooper) asDoWhile(l *Loop) bool {
	if countJumps(l.Body, l.ID, false) != 1 {
		return false
	}
	tail, test := lastTest(l.Body)
	if tail == nil {
		return false
	}
	repeat, exit := &Continue{Target: l.ID}, &Break{Target: l.ID}
	switch {
	case Equal(test.Then, repeat) && Equal(test.Else, exit):
		l.Cond = test.Cond
	case Equal(test.Then, exit) && Equal(test.Else, repeat):
		l.Cond = Not(test.Cond)
	default:
		return false
	}
	tail.Next = nil
	l.Form = LoopDoWhile
	l.CondBlocks = test.Merged
	return true
}

// lastTest follows the sequence starting at s to its last statement and
// returns it when it is a conditional block with nothing after its test.
func lastTest(s Shape) (*Simple, *If) {
	for s != nil {
		var next Shape
		switch x := s.(type) {
		case *Simple:
			if test, ok := x.Next.(*If); ok && test.ID == 0 && test.Next == nil && x.Block.Term.Kind == TermCond {
				return x, test
			}
			next = x.Next
		case *If:
			next = x.Next
		case *Loop:
			next = x.Next
		case *Multiple:
			next = x.Next
		case *Switch:
			next = x.Next
		case *SetLabel:
			next = x.Next
		}
		s = next
	}
	return nil, nil
}

var (
	initRe    = regexp.MustCompile(`^\s*([A-Za-z_]\w*)\s*:?=\s*([^=].*)$`)
	incDecRe  = regexp.MustCompile(`^\s*([A-Za-z_]\w*)\s*(\+\+|--)\s*$`)
	opAssign  = regexp.MustCompile(`^\s*([A-Za-z_]\w*)\s*[-+]=\s*\S.*$`)
	selfAddRe = regexp.MustCompile(`^\s*([A-Za-z_]\w*)\s*=\s*([A-Za-z_]\w*)\s*[-+]\s*\S.*$`)
)

// inductionInit returns the variable assigned by an init effect.
func inductionInit(effect string) (string, bool) {
	m := initRe.FindStringSubmatch(effect)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// isStep reports whether effect advances v by a constant-form update.
func isStep(effect, v string) bool {
	if m := incDecRe.FindStringSubmatch(effect); m != nil {
		return m[1] == v
	}
	if m := opAssign.FindStringSubmatch(effect); m != nil {
		return m[1] == v
	}
	if m := selfAddRe.FindStringSubmatch(effect); m != nil {
		return m[1] == v && m[2] == v
	}
	return false
}

// mentions reports whether v occurs in c as a whole identifier.
func mentions(c *Cond, v string) bool {
	s := c.String()
	for i := 0; i+len(v) <= len(s); {
		j := strings.Index(s[i:], v)
		if j < 0 {
			return false
		}
		start, end := i+j, i+j+len(v)
		if (start == 0 || !identByte(s[start-1])) && (end == len(s) || !identByte(s[end])) {
			return true
		}
		i = start + 1
	}
	return false
}

func identByte(c byte) bool {
	return c == '_' || '0' <= c && c <= '9' || 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z'
}

// classifyFor turns "init; while (cond) { ...; step; continue }" into a for
// loop. s is the simple that runs right before the loop.
func (r *relooper) classifyFor(s *Simple) Shape {
	l, ok := s.Next.(*Loop)
	if !ok || l.Form != LoopWhile || len(s.Effects) == 0 {
		return s
	}
	init := s.Effects[len(s.Effects)-1]
	v, ok := inductionInit(init)
	if !ok || !mentions(l.Cond, v) {
		return s
	}
	// The step must run only on the latch's continue.
	if countJumps(l.Body, l.ID, false) != 1 || fallsOff(l.Body) {
		return s
	}
	latch := findLatch(l.Body, l.ID)
	if latch == nil || len(latch.Effects) == 0 {
		return s
	}
	step := latch.Effects[len(latch.Effects)-1]
	if !isStep(step, v) {
		return s
	}

	s.Effects = s.Effects[:len(s.Effects)-1]
	latch.Effects = latch.Effects[:len(latch.Effects)-1]
	l.Init = strings.TrimSpace(init)
	l.Step = strings.TrimSpace(step)
	l.Form = LoopFor
	r.trace.note("loop", l.ID, "form for over %s", v)
	return s
}

// fallsOff reports whether s can complete normally by running off the end of
// its sequence.
func fallsOff(s Shape) bool {
	for {
		switch x := s.(type) {
		case nil:
			return true
		case *Simple:
			if x.Next == nil {
				return x.Block.Term.Kind != TermReturn
			}
			s = x.Next
		case *SetLabel:
			s = x.Next
		case *Break, *Continue:
			return false
		case *If:
			if x.Next != nil {
				s = x.Next
				continue
			}
			return x.ID != 0 || fallsOff(x.Then) || fallsOff(x.Else)
		case *Multiple:
			if x.Next != nil {
				s = x.Next
				continue
			}
			if x.ID != 0 || fallsOff(x.Else) {
				return true
			}
			for _, h := range x.Handled {
				if fallsOff(h.Body) {
					return true
				}
			}
			return false
		case *Loop:
			if x.Next != nil {
				s = x.Next
				continue
			}
			return x.Form != LoopInfinite || countJumps(x.Body, x.ID, true) > 0
		default:
			return true
		}
	}
}

// findLatch returns the simple whose Next is exactly a Continue of the loop.
func findLatch(body Shape, id ShapeID) *Simple {
	var latch *Simple
	Walk(body, func(s Shape) {
		if x, ok := s.(*Simple); ok {
			if c, ok := x.Next.(*Continue); ok && c.Target == id {
				latch = x
			}
		}
	})
	return latch
}
