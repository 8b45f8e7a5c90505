// Package ssagraph turns Go functions into relooper input by way of their
// SSA form. Each SSA basic block becomes one reloop.Block whose effects are
// the block's instructions printed in SSA syntax.
package ssagraph

import (
	"context"
	"fmt"
	"go/constant"
	"go/token"
	"go/types"
	"sort"
	"strings"

	"golang.org/x/tools/go/packages"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"

	"github.com/l3aro/go-relooper/pkg/reloop"
)

// LoadOptions controls package loading.
type LoadOptions struct {
	// Dir is the directory the patterns are resolved in.
	Dir string
	// Tests includes test files.
	Tests bool
	// Env overrides the environment of the underlying go command.
	Env []string
}

// Func is a loaded function with a built SSA body.
type Func struct {
	Name string
	Pos  token.Position
	Fn   *ssa.Function
}

// Load loads the packages matching patterns and returns every function with
// a body defined in them, closures included, ordered by position.
func Load(ctx context.Context, opts LoadOptions, patterns ...string) ([]*Func, error) {
	if len(patterns) == 0 {
		patterns = []string{"./..."}
	}
	cfg := &packages.Config{
		Context: ctx,
		Dir:     opts.Dir,
		Mode:    packages.LoadAllSyntax,
		Tests:   opts.Tests,
		Env:     opts.Env,
	}
	pkgs, err := packages.Load(cfg, patterns...)
	if err != nil {
		return nil, fmt.Errorf("failed to load packages: %w", err)
	}

	var errs strings.Builder
	packages.Visit(pkgs, nil, func(pkg *packages.Package) {
		for _, e := range pkg.Errors {
			errs.WriteString(e.Error() + "\n")
		}
	})
	if errs.Len() > 0 {
		return nil, fmt.Errorf("packages contain errors:\n%s", errs.String())
	}

	prog, ssaPkgs := ssautil.AllPackages(pkgs, ssa.InstantiateGenerics)
	prog.Build()

	var funcs []*Func
	seen := make(map[*ssa.Function]bool)
	var add func(fn *ssa.Function)
	add = func(fn *ssa.Function) {
		if fn == nil || seen[fn] || len(fn.Blocks) == 0 || fn.Synthetic != "" {
			return
		}
		seen[fn] = true
		funcs = append(funcs, &Func{Name: funcName(fn), Pos: prog.Fset.Position(fn.Pos()), Fn: fn})
		for _, anon := range fn.AnonFuncs {
			add(anon)
		}
	}

	for _, p := range ssaPkgs {
		if p == nil {
			continue
		}
		for _, m := range p.Members {
			switch m := m.(type) {
			case *ssa.Function:
				add(m)
			case *ssa.Type:
				if !concrete(m.Type()) {
					continue
				}
				for _, ptr := range []bool{false, true} {
					t := m.Type()
					if ptr {
						t = types.NewPointer(t)
					}
					mset := prog.MethodSets.MethodSet(t)
					for i := 0; i < mset.Len(); i++ {
						fn := prog.MethodValue(mset.At(i))
						if fn != nil && fn.Pkg == p {
							add(fn)
						}
					}
				}
			}
		}
	}

	sort.SliceStable(funcs, func(i, j int) bool {
		a, b := funcs[i].Pos, funcs[j].Pos
		if a.Filename != b.Filename {
			return a.Filename < b.Filename
		}
		return a.Offset < b.Offset
	})
	return funcs, nil
}

// concrete reports whether methods of t can be materialized.
func concrete(t types.Type) bool {
	if types.IsInterface(t) {
		return false
	}
	if named, ok := t.(*types.Named); ok && named.TypeParams().Len() > 0 {
		return false
	}
	return true
}

func funcName(fn *ssa.Function) string {
	if fn.Pkg != nil {
		return fn.RelString(fn.Pkg.Pkg)
	}
	return fn.String()
}

// BuildOptions controls graph construction.
type BuildOptions struct {
	// Switches folds if/else chains comparing one value against distinct
	// integer constants back into a switch terminator.
	Switches bool
}

// Build converts fn's SSA body into a graph. Block ids are SSA block
// indices; the entry is block 0.
func Build(fn *ssa.Function, opts BuildOptions) (*reloop.Graph, error) {
	if len(fn.Blocks) == 0 {
		return nil, fmt.Errorf("%s: function has no body", funcName(fn))
	}

	g := &reloop.Graph{Name: funcName(fn), Entry: reloop.BlockID(fn.Blocks[0].Index)}
	for _, b := range fn.Blocks {
		blk, err := convert(b)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", g.Name, err)
		}
		g.Blocks = append(g.Blocks, blk)
	}
	if opts.Switches {
		foldSwitches(fn, g)
	}
	return g, nil
}

func convert(b *ssa.BasicBlock) (*reloop.Block, error) {
	blk := &reloop.Block{ID: reloop.BlockID(b.Index)}
	if len(b.Instrs) == 0 {
		return nil, fmt.Errorf("block %d is empty", b.Index)
	}
	for _, instr := range b.Instrs[:len(b.Instrs)-1] {
		if _, ok := instr.(*ssa.DebugRef); ok {
			continue
		}
		blk.Effects = append(blk.Effects, render(instr))
	}

	switch t := b.Instrs[len(b.Instrs)-1].(type) {
	case *ssa.Jump:
		blk.Term = reloop.Jump(reloop.BlockID(b.Succs[0].Index))
	case *ssa.If:
		blk.Term = reloop.Branch(t.Cond.Name(), reloop.BlockID(b.Succs[0].Index), reloop.BlockID(b.Succs[1].Index))
	case *ssa.Return:
		vals := make([]string, len(t.Results))
		for i, r := range t.Results {
			vals[i] = r.Name()
		}
		blk.Term = reloop.Return(strings.Join(vals, ", "))
	case *ssa.Panic:
		blk.Effects = append(blk.Effects, t.String())
		blk.Term = reloop.Return("")
	default:
		return nil, fmt.Errorf("block %d ends in %T", b.Index, t)
	}
	return blk, nil
}

func render(instr ssa.Instruction) string {
	if v, ok := instr.(ssa.Value); ok && v.Name() != "" {
		return v.Name() + " = " + v.String()
	}
	return instr.String()
}

// foldSwitches replaces the head of every integer constant comparison chain
// with a switch terminator. The chain's later compare blocks become
// unreachable and are ignored by the relooper.
func foldSwitches(fn *ssa.Function, g *reloop.Graph) {
	for _, sw := range ssautil.Switches(fn) {
		if len(sw.ConstCases) < 2 || len(sw.TypeCases) > 0 || sw.Default == nil {
			continue
		}
		cases, ok := intCases(sw)
		if !ok {
			continue
		}
		head := g.Block(reloop.BlockID(sw.Start.Index))
		if head == nil {
			continue
		}
		head.Term = reloop.SwitchOn(sw.X.Name(), cases, reloop.BlockID(sw.Default.Index))
	}
}

func intCases(sw ssautil.Switch) ([]reloop.Case, bool) {
	seen := make(map[int64]bool)
	var cases []reloop.Case
	for i, cc := range sw.ConstCases {
		if cc.Value == nil || cc.Value.Value == nil || cc.Value.Value.Kind() != constant.Int {
			return nil, false
		}
		v, exact := constant.Int64Val(cc.Value.Value)
		if !exact || seen[v] {
			return nil, false
		}
		// Later compare blocks must hold nothing but the test.
		if i > 0 && len(cc.Block.Instrs) != 2 {
			return nil, false
		}
		seen[v] = true
		cases = append(cases, reloop.Case{Value: v, Target: reloop.BlockID(cc.Body.Index)})
	}
	return cases, true
}
