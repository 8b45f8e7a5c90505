package reloop

// flowKind says how a processed edge is realized in the output.
type flowKind int

const (
	flowDirect      flowKind = iota // reaches the target by falling into the next region
	flowBreak                       // break out of the ancestor
	flowContinue                    // continue the ancestor loop
	flowFallthrough                 // switch case falls into the next case
)

type edgeKey struct {
	from, to BlockID
}

type branch struct {
	kind     flowKind
	ancestor *region
}

type regionKind int

const (
	regionSimple regionKind = iota
	regionLoop
	regionMultiple
	regionSwitch
)

func (k regionKind) String() string {
	switch k {
	case regionSimple:
		return "simple"
	case regionLoop:
		return "loop"
	case regionMultiple:
		return "multiple"
	default:
		return "switch"
	}
}

// region is the classifier's intermediate result. Regions are rendered into
// Shapes once classification of the whole graph is complete, because whether
// a transfer needs a label assignment is only known at the end.
type region struct {
	kind    regionKind
	id      ShapeID
	block   *Block    // simple
	inner   *region   // loop
	entries []BlockID // loop, multiple, switch
	handled []handledRegion
	fused   bool // multiple expressed by the preceding simple's terminator

	// switch: case entry -> the block that falls into the following case
	fallsFrom map[BlockID]BlockID

	next *region
}

type handledRegion struct {
	entry BlockID
	inner *region
}

func (r *region) handledBody(id BlockID) (*region, bool) {
	if r == nil || (r.kind != regionSwitch && !(r.kind == regionMultiple && r.fused)) {
		return nil, false
	}
	for _, h := range r.handled {
		if h.entry == id {
			return h.inner, true
		}
	}
	return nil, false
}

// process classifies blocks reachable from entries. prev is the region that
// precedes this one in its sequence, if any. Every call removes at least one
// block or one edge, so recursion terminates.
func (r *relooper) process(blocks blockSet, entries []BlockID, prev *region) *region {
	if len(entries) == 0 {
		return nil
	}
	if len(entries) == 1 {
		if len(r.predsWithin(entries[0], blocks)) == 0 {
			return r.makeSimple(blocks, entries[0])
		}
		return r.makeLoop(blocks, entries)
	}

	var order []BlockID
	if prev != nil && prev.kind == regionSimple && prev.block.Term.Kind == TermSwitch {
		order = r.caseOrder(prev.block)
	}
	groups, falls := r.independentGroups(blocks, entries, order)
	if len(groups) > 0 {
		return r.makeMultiple(blocks, entries, groups, falls, order, prev)
	}
	// No entry can be split off: the entries sit on a cycle.
	return r.makeLoop(blocks, entries)
}

func (r *relooper) makeSimple(blocks blockSet, id BlockID) *region {
	reg := &region{kind: regionSimple, block: r.byID[id]}
	delete(blocks, id)

	var nextEntries []BlockID
	for _, t := range r.out[id].sorted(r.rank) {
		r.processEdge(id, t, flowDirect, nil)
		if blocks[t] {
			nextEntries = append(nextEntries, t)
		}
	}
	r.trace.add(TraceEvent{Region: "simple", Blocks: []BlockID{id}, Entries: nextEntries})

	reg.next = r.process(blocks, nextEntries, reg)
	return reg
}

func (r *relooper) makeLoop(blocks blockSet, entries []BlockID) *region {
	reg := &region{kind: regionLoop, id: r.newID(), entries: entries}

	// The body is every block that can get back to an entry: the strongly
	// connected component of the entries within this region.
	inner := blockSet{}
	queue := append([]BlockID(nil), entries...)
	for _, e := range entries {
		inner[e] = true
	}
	for len(queue) > 0 {
		b := queue[0]
		queue = queue[1:]
		for p := range r.in[b] {
			if blocks[p] && !inner[p] {
				inner[p] = true
				queue = append(queue, p)
			}
		}
	}
	for b := range inner {
		delete(blocks, b)
	}

	isEntry := blockSet{}
	for _, e := range entries {
		isEntry[e] = true
		if len(entries) > 1 {
			r.checked[e] = true
		}
	}

	next := blockSet{}
	for _, b := range inner.sorted(r.rank) {
		for _, t := range r.out[b].sorted(r.rank) {
			switch {
			case isEntry[t]:
				r.processEdge(b, t, flowContinue, reg)
			case !inner[t]:
				r.processEdge(b, t, flowBreak, reg)
				next[t] = true
			}
		}
	}
	nextEntries := next.sorted(r.rank)
	r.trace.add(TraceEvent{Region: "loop", ID: reg.id, Blocks: inner.sorted(r.rank), Entries: entries, Exits: nextEntries})

	reg.inner = r.process(inner, entries, nil)
	reg.next = r.process(blocks, nextEntries, reg)
	return reg
}

func (r *relooper) makeMultiple(blocks blockSet, entries []BlockID, groups map[BlockID]blockSet, falls map[BlockID]BlockID, order []BlockID, prev *region) *region {
	reg := &region{kind: regionMultiple, id: r.newID(), entries: entries}
	if order != nil {
		reg.kind = regionSwitch
		reg.fallsFrom = falls
	}
	reg.fused = prev != nil && prev.kind == regionSimple

	following := make(map[BlockID]BlockID, len(order))
	for i := 0; i+1 < len(order); i++ {
		following[order[i]] = order[i+1]
	}

	next := blockSet{}
	var handled []BlockID
	for _, e := range entries {
		// Every way into an unfused multiple must assign the label, including
		// entries it passes on to the region after it.
		if !reg.fused {
			r.checked[e] = true
		}
		group, ok := groups[e]
		if !ok {
			next[e] = true
			continue
		}
		handled = append(handled, e)
		for b := range group {
			delete(blocks, b)
		}
		for _, b := range group.sorted(r.rank) {
			for _, t := range r.out[b].sorted(r.rank) {
				if group[t] {
					continue
				}
				if x, ok := falls[e]; ok && x == b && following[e] == t {
					r.processEdge(b, t, flowFallthrough, reg)
					continue
				}
				r.processEdge(b, t, flowBreak, reg)
				next[t] = true
			}
		}
		reg.handled = append(reg.handled, handledRegion{entry: e, inner: r.process(group, []BlockID{e}, nil)})
	}

	// A fallthrough target is reached from its own case entry or from the
	// previous case, never from the region that follows.
	for _, h := range reg.handled {
		delete(next, h.entry)
	}
	nextEntries := next.sorted(r.rank)
	r.trace.add(TraceEvent{Region: reg.kind.String(), ID: reg.id, Entries: entries, Handled: handled, Exits: nextEntries, Fused: reg.fused})

	reg.next = r.process(blocks, nextEntries, reg)
	return reg
}

// independentGroups finds, for each entry, the blocks reachable from that
// entry and no other, closed under predecessors. Entries reached from
// elsewhere in the region get no group. With a case order, an entry may
// also be reached by a straight-line fallthrough from the preceding case;
// falls maps that preceding case entry to the block that falls through.
func (r *relooper) independentGroups(blocks blockSet, entries []BlockID, order []BlockID) (map[BlockID]blockSet, map[BlockID]BlockID) {
	isEntry := blockSet{}
	for _, e := range entries {
		isEntry[e] = true
	}

	owner := make(map[BlockID]BlockID)
	shared := blockSet{}
	for _, e := range entries {
		seen := blockSet{e: true}
		queue := []BlockID{e}
		for len(queue) > 0 {
			b := queue[0]
			queue = queue[1:]
			for _, t := range r.out[b].sorted(r.rank) {
				if !blocks[t] || isEntry[t] || seen[t] {
					continue
				}
				seen[t] = true
				if o, ok := owner[t]; ok && o != e {
					shared[t] = true
				} else {
					owner[t] = e
				}
				queue = append(queue, t)
			}
		}
	}

	groups := make(map[BlockID]blockSet, len(entries))
	for _, e := range entries {
		groups[e] = blockSet{e: true}
	}
	for b, e := range owner {
		if !shared[b] {
			groups[e][b] = true
		}
	}

	// Drop inner blocks that are also reached from outside their group.
	for changed := true; changed; {
		changed = false
		for e, group := range groups {
			for b := range group {
				if b == e {
					continue
				}
				for p := range r.in[b] {
					if blocks[p] && !group[p] {
						delete(group, b)
						changed = true
						break
					}
				}
			}
		}
	}

	falls := make(map[BlockID]BlockID)
	outside := func(e BlockID) []BlockID {
		var ps []BlockID
		for _, p := range r.predsWithin(e, blocks) {
			if !groups[e][p] {
				ps = append(ps, p)
			}
		}
		return ps
	}

	if order == nil {
		for _, e := range entries {
			if len(outside(e)) > 0 {
				delete(groups, e)
			}
		}
		return groups, falls
	}

	// Case entries are decided in case order so that a fallthrough is only
	// accepted from a case that is itself kept.
	for i, e := range order {
		if _, ok := groups[e]; !ok {
			continue
		}
		ps := outside(e)
		if len(ps) == 0 {
			continue
		}
		if i > 0 && len(ps) == 1 {
			prevCase := order[i-1]
			if g, ok := groups[prevCase]; ok && g[ps[0]] && r.isChain(g, prevCase, ps[0], e) {
				falls[prevCase] = ps[0]
				continue
			}
		}
		delete(groups, e)
	}
	return groups, falls
}

// isChain reports whether group is exactly a straight line of jumps from
// start to last, and last jumps to target.
func (r *relooper) isChain(group blockSet, start, last, target BlockID) bool {
	cur := start
	for n := 1; ; n++ {
		b := r.byID[cur]
		if b.Term.Kind != TermJump {
			return false
		}
		if cur == last {
			return b.Term.Target == target && n == len(group)
		}
		nxt := b.Term.Target
		if !group[nxt] || nxt == start || len(r.in[nxt]) != 1 || n > len(group) {
			return false
		}
		cur = nxt
	}
}

// caseOrder lists the distinct switch targets in the order their cases are
// emitted: by first case, then the default if it is not also a case target.
func (r *relooper) caseOrder(b *Block) []BlockID {
	seen := blockSet{}
	var order []BlockID
	for _, t := range b.Term.Targets() {
		if !seen[t] {
			seen[t] = true
			order = append(order, t)
		}
	}
	return order
}

func (r *relooper) predsWithin(id BlockID, blocks blockSet) []BlockID {
	var ps []BlockID
	for p := range r.in[id] {
		if blocks[p] {
			ps = append(ps, p)
		}
	}
	sortByRank(ps, r.rank)
	return ps
}

func (r *relooper) processEdge(from, to BlockID, kind flowKind, ancestor *region) {
	r.branches[edgeKey{from, to}] = branch{kind: kind, ancestor: ancestor}
	delete(r.out[from], to)
	delete(r.in[to], from)
}

func (r *relooper) newID() ShapeID {
	r.lastID++
	return r.lastID
}
