package reloop

// buildSwitch renders a switch terminator. Cases that share a target become
// one label group; the default joins the group of its target when a case
// already branches there. next is the region after the switch block, which
// is a switch region when the cases could be laid out inline.
func (r *relooper) buildSwitch(b *Block, next *region) Shape {
	t := b.Term

	type group struct {
		target BlockID
		values []int64
		def    bool
	}
	var groups []*group
	byTarget := make(map[BlockID]*group)
	for _, c := range t.Cases {
		g, ok := byTarget[c.Target]
		if !ok {
			g = &group{target: c.Target}
			byTarget[c.Target] = g
			groups = append(groups, g)
		}
		g.values = append(g.values, c.Value)
	}
	if g, ok := byTarget[t.Default]; ok {
		g.def = true
	} else {
		groups = append(groups, &group{target: t.Default, def: true})
	}

	if len(groups) == 1 {
		return r.sequence(r.branchTo(b.ID, groups[0].target, next), next)
	}

	s := &Switch{Selector: t.Selector}
	after := next
	var sw *region
	if next != nil && next.kind == regionSwitch {
		sw = next
		s.ID = sw.id
		after = sw.next
	}
	for _, g := range groups {
		c := SwitchCase{
			Values:  g.values,
			Default: g.def,
			Body:    r.branchTo(b.ID, g.target, next),
		}
		if sw != nil {
			_, c.FallsThrough = sw.fallsFrom[g.target]
		}
		s.Cases = append(s.Cases, c)
	}

	// An empty default is the same as no default.
	if last := s.Cases[len(s.Cases)-1]; last.Default && len(last.Values) == 0 && last.Body == nil {
		s.Cases = s.Cases[:len(s.Cases)-1]
	}

	for i := range s.Cases {
		if !s.Cases[i].FallsThrough {
			if s.ID != 0 {
				r.tailLoops(s.Cases[i].Body, &Break{Target: s.ID})
			}
			s.Cases[i].Body = stripBreak(s.Cases[i].Body, s.ID)
		}
	}
	if s.ID != 0 && countJumps(s, s.ID, true) == 0 {
		s.ID = 0
	}
	s.Next = r.render(after)
	return s
}
