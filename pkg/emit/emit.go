// Package emit prints relooped Shape trees as pseudo-source.
package emit

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/l3aro/go-relooper/pkg/reloop"
)

// Dialect selects the surface syntax.
type Dialect string

const (
	// JS prints JavaScript-like code with labeled blocks and do-while.
	JS Dialect = "js"
	// Go prints Go-like code; do-while becomes a for loop with a trailing test.
	Go Dialect = "go"
)

// ParseDialect validates a dialect name.
func ParseDialect(s string) (Dialect, error) {
	switch Dialect(strings.ToLower(s)) {
	case JS, "javascript":
		return JS, nil
	case Go, "golang":
		return Go, nil
	}
	return "", fmt.Errorf("unknown dialect %q (want js or go)", s)
}

// Options configures emission.
type Options struct {
	Dialect Dialect
	// Name is the function name. Empty prints only the body.
	Name string
	// Params are printed in the signature.
	Params []string
	// Indent is one level of indentation. Defaults to a tab.
	Indent string
}

// Emit writes res as pseudo-source.
func Emit(w io.Writer, res *reloop.Result, opts Options) error {
	if opts.Dialect == "" {
		opts.Dialect = JS
	}
	if opts.Indent == "" {
		opts.Indent = "\t"
	}

	implied := trailing(res.Root)
	p := &printer{opts: opts, refs: targets(res.Root, implied), implied: implied}
	if opts.Name != "" {
		if opts.Dialect == Go {
			p.line("func %s(%s) {", opts.Name, strings.Join(opts.Params, ", "))
		} else {
			p.line("function %s(%s) {", opts.Name, strings.Join(opts.Params, ", "))
		}
		p.depth++
	}
	if len(res.Labels) > 0 {
		if opts.Dialect == Go {
			p.line("%s := 0", res.Labels[0].Name)
		} else {
			p.line("var %s = 0;", res.Labels[0].Name)
		}
	}
	p.shape(res.Root)
	if opts.Name != "" {
		p.depth--
		p.line("}")
	}

	_, err := w.Write(p.buf.Bytes())
	return err
}

// String returns Emit's output.
func String(res *reloop.Result, opts Options) string {
	var buf bytes.Buffer
	_ = Emit(&buf, res, opts)
	return buf.String()
}

// targets collects the ids that some printed Break or Continue names.
func targets(root reloop.Shape, implied map[*reloop.Continue]bool) map[reloop.ShapeID]bool {
	refs := make(map[reloop.ShapeID]bool)
	reloop.Walk(root, func(s reloop.Shape) {
		switch x := s.(type) {
		case *reloop.Break:
			refs[x.Target] = true
		case *reloop.Continue:
			if !implied[x] {
				refs[x.Target] = true
			}
		case *reloop.Loop:
			if x.Form == reloop.LoopDoWhile {
				refs[x.ID] = true
			}
		}
	})
	return refs
}

// trailing finds the Continue shapes that end a loop body. Falling off the
// end of the body starts the next iteration anyway, so they are not printed.
func trailing(root reloop.Shape) map[*reloop.Continue]bool {
	implied := make(map[*reloop.Continue]bool)
	// loop is the loop that the end of the sequence s runs into, or zero.
	var seq func(s reloop.Shape, loop reloop.ShapeID)
	seq = func(s reloop.Shape, loop reloop.ShapeID) {
		for s != nil {
			switch x := s.(type) {
			case *reloop.Simple:
				s = x.Next
			case *reloop.SetLabel:
				s = x.Next
			case *reloop.Continue:
				if loop != 0 && x.Target == loop {
					implied[x] = true
				}
				return
			case *reloop.If:
				inner := loop
				if x.Next != nil {
					inner = 0
				}
				seq(x.Then, inner)
				seq(x.Else, inner)
				s = x.Next
			case *reloop.Multiple:
				inner := loop
				if x.Next != nil {
					inner = 0
				}
				for _, h := range x.Handled {
					seq(h.Body, inner)
				}
				seq(x.Else, inner)
				s = x.Next
			case *reloop.Switch:
				for _, c := range x.Cases {
					seq(c.Body, 0)
				}
				s = x.Next
			case *reloop.Loop:
				seq(x.Body, x.ID)
				s = x.Next
			default:
				return
			}
		}
	}
	seq(root, 0)
	return implied
}

type printer struct {
	opts    Options
	refs    map[reloop.ShapeID]bool
	implied map[*reloop.Continue]bool
	buf     bytes.Buffer
	depth   int
}

func (p *printer) line(format string, args ...interface{}) {
	p.buf.WriteString(strings.Repeat(p.opts.Indent, p.depth))
	fmt.Fprintf(&p.buf, format, args...)
	p.buf.WriteByte('\n')
}

func (p *printer) stmt(s string) {
	if p.opts.Dialect == JS {
		s += ";"
	}
	p.line("%s", s)
}

func (p *printer) block(s reloop.Shape) {
	p.depth++
	p.shape(s)
	p.depth--
}

func cond(c *reloop.Cond, js bool) string {
	if js {
		return "(" + c.String() + ")"
	}
	return c.String()
}

func (p *printer) shape(s reloop.Shape) {
	js := p.opts.Dialect == JS
	for s != nil {
		switch x := s.(type) {
		case *reloop.Simple:
			for _, e := range x.Effects {
				p.stmt(e)
			}
			if x.Block.Term.Kind == reloop.TermReturn {
				if v := x.Block.Term.Value; v != "" {
					p.stmt("return " + v)
				} else {
					p.stmt("return")
				}
			}
			s = x.Next

		case *reloop.SetLabel:
			p.stmt(fmt.Sprintf("%s = %d", reloop.LabelName, x.Label))
			s = x.Next

		case *reloop.Break:
			p.stmt(fmt.Sprintf("break L%d", x.Target))
			return

		case *reloop.Continue:
			if !p.implied[x] {
				p.stmt(fmt.Sprintf("continue L%d", x.Target))
			}
			return

		case *reloop.If:
			p.ifShape(x, js)
			s = x.Next

		case *reloop.Loop:
			p.loop(x, js)
			s = x.Next

		case *reloop.Multiple:
			p.multiple(x, js)
			s = x.Next

		case *reloop.Switch:
			p.switchShape(x, js)
			s = x.Next

		default:
			p.line("/* unknown shape %T */", s)
			return
		}
	}
}

func (p *printer) ifShape(x *reloop.If, js bool) {
	labeled := x.ID != 0 && p.refs[x.ID]
	if labeled && !js {
		// Go can only break out of loops, switches and selects.
		p.line("L%d:", x.ID)
		p.line("switch {")
		p.line("default:")
	}
	prefix := ""
	if labeled && js {
		prefix = fmt.Sprintf("L%d: ", x.ID)
	}

	c, then, els := x.Cond, x.Then, x.Else
	if then == nil && els != nil {
		c, then, els = reloop.Not(c), els, nil
	}
	p.line("%sif %s {", prefix, cond(c, js))
	p.block(then)
	if els != nil {
		p.line("} else {")
		p.block(els)
	}
	p.line("}")
	if labeled && !js {
		p.line("}")
	}
}

func (p *printer) loop(x *reloop.Loop, js bool) {
	label := ""
	if p.refs[x.ID] {
		if js {
			label = fmt.Sprintf("L%d: ", x.ID)
		} else {
			p.line("L%d:", x.ID)
		}
	}

	switch x.Form {
	case reloop.LoopWhile:
		if js {
			p.line("%swhile %s {", label, cond(x.Cond, js))
		} else {
			p.line("for %s {", cond(x.Cond, js))
		}
	case reloop.LoopFor:
		if js {
			p.line("%sfor (%s; %s; %s) {", label, x.Init, x.Cond, x.Step)
		} else {
			p.line("for %s; %s; %s {", x.Init, x.Cond, x.Step)
		}
	case reloop.LoopDoWhile:
		if js {
			p.line("%sdo {", label)
			p.block(x.Body)
			p.line("} while %s;", cond(x.Cond, js))
			return
		}
		p.line("for {")
		p.block(x.Body)
		p.depth++
		p.line("if %s {", reloop.Not(x.Cond))
		p.depth++
		p.line("break L%d", x.ID)
		p.depth--
		p.line("}")
		p.depth--
		p.line("}")
		return
	default:
		if js {
			p.line("%swhile (true) {", label)
		} else {
			p.line("for {")
		}
	}
	p.block(x.Body)
	p.line("}")
}

func (p *printer) multiple(x *reloop.Multiple, js bool) {
	name := reloop.LabelName
	if js {
		prefix := ""
		if p.refs[x.ID] {
			prefix = fmt.Sprintf("L%d: ", x.ID)
		}
		p.line("%s{", prefix)
		p.depth++
		for i, h := range x.Handled {
			kw := "if"
			if i > 0 {
				kw = "} else if"
			}
			p.line("%s (%s === %d) {", kw, name, h.Label)
			p.block(h.Body)
		}
		if x.Else != nil {
			p.line("} else {")
			p.block(x.Else)
		}
		p.line("}")
		p.depth--
		p.line("}")
		return
	}

	if p.refs[x.ID] {
		p.line("L%d:", x.ID)
	}
	p.line("switch %s {", name)
	for _, h := range x.Handled {
		p.line("case %d:", h.Label)
		p.block(h.Body)
	}
	if x.Else != nil {
		p.line("default:")
		p.block(x.Else)
	}
	p.line("}")
}

func (p *printer) switchShape(x *reloop.Switch, js bool) {
	label := ""
	if p.refs[x.ID] {
		if js {
			label = fmt.Sprintf("L%d: ", x.ID)
		} else {
			p.line("L%d:", x.ID)
		}
	}
	if js {
		p.line("%sswitch (%s) {", label, x.Selector)
	} else {
		p.line("switch %s {", x.Selector)
	}

	for _, c := range x.Cases {
		vals := make([]string, len(c.Values))
		for i, v := range c.Values {
			vals[i] = fmt.Sprint(v)
		}
		switch {
		case js:
			for _, v := range vals {
				p.line("case %s:", v)
			}
			if c.Default {
				p.line("default:")
			}
		case c.Default:
			p.line("default:")
		default:
			p.line("case %s:", strings.Join(vals, ", "))
		}

		p.depth++
		p.shape(c.Body)
		if c.FallsThrough {
			if !js {
				p.line("fallthrough")
			}
		} else if js && !endsInJump(c.Body) {
			p.stmt("break")
		}
		p.depth--
	}
	p.line("}")
}

// endsInJump reports whether the sequence s always ends by leaving.
func endsInJump(s reloop.Shape) bool {
	for s != nil {
		switch x := s.(type) {
		case *reloop.Break, *reloop.Continue:
			return true
		case *reloop.Simple:
			if x.Next == nil {
				return x.Block.Term.Kind == reloop.TermReturn
			}
			s = x.Next
		case *reloop.SetLabel:
			s = x.Next
		default:
			return false
		}
	}
	return false
}
