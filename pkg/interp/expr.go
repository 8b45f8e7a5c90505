package interp

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"strconv"
	"strings"
)

// Func is a function callable from effects and conditions.
type Func func(args []interface{}) (interface{}, error)

// ExprMachine is a Machine whose effects and conditions are small Go
// statements and expressions over int64, bool, string and []interface{}
// values. Characters are int64.
type ExprMachine struct {
	Vars  map[string]interface{}
	Funcs map[string]Func

	// Output collects what log and print were called with.
	Output []string

	Returned bool
	Result   interface{}

	stmts map[string][]ast.Stmt
}

// NewExprMachine returns a machine with the given variables and the builtins
// len, append, hash, log and print.
func NewExprMachine(vars map[string]interface{}) *ExprMachine {
	m := &ExprMachine{
		Vars:  make(map[string]interface{}, len(vars)),
		stmts: make(map[string][]ast.Stmt),
	}
	for k, v := range vars {
		m.Vars[k] = normalize(v)
	}
	m.Funcs = map[string]Func{
		"len":    builtinLen,
		"append": builtinAppend,
		"hash":   builtinHash,
		"log":    m.print,
		"print":  m.print,
	}
	return m
}

func (m *ExprMachine) print(args []interface{}) (interface{}, error) {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = fmt.Sprint(a)
	}
	m.Output = append(m.Output, strings.Join(parts, " "))
	return nil, nil
}

// Exec implements Machine.
func (m *ExprMachine) Exec(effect string) error {
	stmts, ok := m.stmts[effect]
	if !ok {
		src := "package p\nfunc _() {\n" + effect + "\n}"
		f, err := parser.ParseFile(token.NewFileSet(), "", src, 0)
		if err != nil {
			return fmt.Errorf("parse %q: %w", effect, err)
		}
		stmts = f.Decls[0].(*ast.FuncDecl).Body.List
		m.stmts[effect] = stmts
	}
	for _, s := range stmts {
		if err := m.exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", effect, err)
		}
	}
	return nil
}

// Cond implements Machine.
func (m *ExprMachine) Cond(expr string) (bool, error) {
	v, err := m.Eval(expr)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("condition %q is %T, not bool", expr, v)
	}
	return b, nil
}

// Selector implements Machine.
func (m *ExprMachine) Selector(expr string) (int64, error) {
	v, err := m.Eval(expr)
	if err != nil {
		return 0, err
	}
	n, ok := v.(int64)
	if !ok {
		return 0, fmt.Errorf("selector %q is %T, not int", expr, v)
	}
	return n, nil
}

// Return implements Machine.
func (m *ExprMachine) Return(expr string) error {
	m.Returned = true
	if strings.TrimSpace(expr) == "" {
		return nil
	}
	v, err := m.Eval(expr)
	m.Result = v
	return err
}

// Eval evaluates a single expression.
func (m *ExprMachine) Eval(expr string) (interface{}, error) {
	e, err := parser.ParseExpr(expr)
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", expr, err)
	}
	return m.eval(e)
}

func (m *ExprMachine) exec(s ast.Stmt) error {
	switch x := s.(type) {
	case *ast.ExprStmt:
		_, err := m.eval(x.X)
		return err

	case *ast.IncDecStmt:
		name, ok := x.X.(*ast.Ident)
		if !ok {
			return fmt.Errorf("cannot %s %T", x.Tok, x.X)
		}
		op := token.ADD
		if x.Tok == token.DEC {
			op = token.SUB
		}
		v, err := binary(op, m.Vars[name.Name], int64(1))
		if err != nil {
			return err
		}
		m.Vars[name.Name] = v
		return nil

	case *ast.AssignStmt:
		if len(x.Lhs) != len(x.Rhs) {
			return fmt.Errorf("assignment count mismatch")
		}
		vals := make([]interface{}, len(x.Rhs))
		for i, e := range x.Rhs {
			v, err := m.eval(e)
			if err != nil {
				return err
			}
			vals[i] = v
		}
		for i, l := range x.Lhs {
			name, ok := l.(*ast.Ident)
			if !ok {
				return fmt.Errorf("cannot assign to %T", l)
			}
			v := vals[i]
			if op, ok := compound[x.Tok]; ok {
				var err error
				if v, err = binary(op, m.Vars[name.Name], v); err != nil {
					return err
				}
			}
			if name.Name != "_" {
				m.Vars[name.Name] = v
			}
		}
		return nil

	case *ast.EmptyStmt:
		return nil
	}
	return fmt.Errorf("unsupported statement %T", s)
}

var compound = map[token.Token]token.Token{
	token.ADD_ASSIGN: token.ADD,
	token.SUB_ASSIGN: token.SUB,
	token.MUL_ASSIGN: token.MUL,
	token.QUO_ASSIGN: token.QUO,
	token.REM_ASSIGN: token.REM,
}

func (m *ExprMachine) eval(e ast.Expr) (interface{}, error) {
	switch x := e.(type) {
	case *ast.BasicLit:
		return literal(x)

	case *ast.Ident:
		switch x.Name {
		case "true":
			return true, nil
		case "false":
			return false, nil
		case "nil":
			return nil, nil
		}
		v, ok := m.Vars[x.Name]
		if !ok {
			return nil, fmt.Errorf("undefined: %s", x.Name)
		}
		return v, nil

	case *ast.ParenExpr:
		return m.eval(x.X)

	case *ast.UnaryExpr:
		v, err := m.eval(x.X)
		if err != nil {
			return nil, err
		}
		switch x.Op {
		case token.NOT:
			if b, ok := v.(bool); ok {
				return !b, nil
			}
		case token.SUB:
			if n, ok := v.(int64); ok {
				return -n, nil
			}
		}
		return nil, fmt.Errorf("invalid operation %s%T", x.Op, v)

	case *ast.BinaryExpr:
		l, err := m.eval(x.X)
		if err != nil {
			return nil, err
		}
		if x.Op == token.LAND || x.Op == token.LOR {
			lb, ok := l.(bool)
			if !ok {
				return nil, fmt.Errorf("invalid operation %s on %T", x.Op, l)
			}
			if lb == (x.Op == token.LOR) {
				return lb, nil
			}
			r, err := m.eval(x.Y)
			if err != nil {
				return nil, err
			}
			rb, ok := r.(bool)
			if !ok {
				return nil, fmt.Errorf("invalid operation %s on %T", x.Op, r)
			}
			return rb, nil
		}
		r, err := m.eval(x.Y)
		if err != nil {
			return nil, err
		}
		return binary(x.Op, l, r)

	case *ast.CallExpr:
		name, ok := x.Fun.(*ast.Ident)
		if !ok {
			return nil, fmt.Errorf("unsupported call of %T", x.Fun)
		}
		fn, ok := m.Funcs[name.Name]
		if !ok {
			return nil, fmt.Errorf("undefined function: %s", name.Name)
		}
		args := make([]interface{}, len(x.Args))
		for i, a := range x.Args {
			v, err := m.eval(a)
			if err != nil {
				return nil, err
			}
			args[i] = v
		}
		return fn(args)

	case *ast.IndexExpr:
		base, err := m.eval(x.X)
		if err != nil {
			return nil, err
		}
		i, err := m.evalInt(x.Index)
		if err != nil {
			return nil, err
		}
		switch b := base.(type) {
		case string:
			if i < 0 || i >= int64(len(b)) {
				return nil, fmt.Errorf("index %d out of range [0:%d]", i, len(b))
			}
			return int64(b[i]), nil
		case []interface{}:
			if i < 0 || i >= int64(len(b)) {
				return nil, fmt.Errorf("index %d out of range [0:%d]", i, len(b))
			}
			return b[i], nil
		}
		return nil, fmt.Errorf("cannot index %T", base)

	case *ast.SliceExpr:
		base, err := m.eval(x.X)
		if err != nil {
			return nil, err
		}
		var n int64
		switch b := base.(type) {
		case string:
			n = int64(len(b))
		case []interface{}:
			n = int64(len(b))
		default:
			return nil, fmt.Errorf("cannot slice %T", base)
		}
		lo, hi := int64(0), n
		if x.Low != nil {
			if lo, err = m.evalInt(x.Low); err != nil {
				return nil, err
			}
		}
		if x.High != nil {
			if hi, err = m.evalInt(x.High); err != nil {
				return nil, err
			}
		}
		if lo < 0 || hi < lo || hi > n {
			return nil, fmt.Errorf("slice bounds out of range [%d:%d] with length %d", lo, hi, n)
		}
		if s, ok := base.(string); ok {
			return s[lo:hi], nil
		}
		return append([]interface{}(nil), base.([]interface{})[lo:hi]...), nil
	}
	return nil, fmt.Errorf("unsupported expression %T", e)
}

func (m *ExprMachine) evalInt(e ast.Expr) (int64, error) {
	v, err := m.eval(e)
	if err != nil {
		return 0, err
	}
	n, ok := v.(int64)
	if !ok {
		return 0, fmt.Errorf("%T is not an int", v)
	}
	return n, nil
}

func literal(x *ast.BasicLit) (interface{}, error) {
	switch x.Kind {
	case token.INT:
		return strconv.ParseInt(x.Value, 0, 64)
	case token.STRING:
		return strconv.Unquote(x.Value)
	case token.CHAR:
		r, _, _, err := strconv.UnquoteChar(x.Value[1:len(x.Value)-1], '\'')
		return int64(r), err
	}
	return nil, fmt.Errorf("unsupported literal %s", x.Value)
}

func binary(op token.Token, l, r interface{}) (interface{}, error) {
	if l == nil || r == nil {
		switch op {
		case token.EQL:
			return l == nil && r == nil, nil
		case token.NEQ:
			return !(l == nil && r == nil), nil
		}
		return nil, fmt.Errorf("invalid operation %T %s %T", l, op, r)
	}
	switch a := l.(type) {
	case int64:
		b, ok := r.(int64)
		if !ok {
			break
		}
		switch op {
		case token.ADD:
			return a + b, nil
		case token.SUB:
			return a - b, nil
		case token.MUL:
			return a * b, nil
		case token.QUO, token.REM:
			if b == 0 {
				return nil, fmt.Errorf("integer divide by zero")
			}
			if op == token.QUO {
				return a / b, nil
			}
			return a % b, nil
		case token.EQL:
			return a == b, nil
		case token.NEQ:
			return a != b, nil
		case token.LSS:
			return a < b, nil
		case token.LEQ:
			return a <= b, nil
		case token.GTR:
			return a > b, nil
		case token.GEQ:
			return a >= b, nil
		case token.XOR:
			return a ^ b, nil
		}
	case string:
		b, ok := r.(string)
		if !ok {
			break
		}
		switch op {
		case token.ADD:
			return a + b, nil
		case token.EQL:
			return a == b, nil
		case token.NEQ:
			return a != b, nil
		case token.LSS:
			return a < b, nil
		case token.GTR:
			return a > b, nil
		}
	case bool:
		b, ok := r.(bool)
		if !ok {
			break
		}
		switch op {
		case token.EQL:
			return a == b, nil
		case token.NEQ, token.XOR:
			return a != b, nil
		}
	}
	return nil, fmt.Errorf("invalid operation %T %s %T", l, op, r)
}

func builtinLen(args []interface{}) (interface{}, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("len takes one argument")
	}
	switch v := args[0].(type) {
	case string:
		return int64(len(v)), nil
	case []interface{}:
		return int64(len(v)), nil
	case nil:
		return int64(0), nil
	}
	return nil, fmt.Errorf("invalid argument %T for len", args[0])
}

// builtinHash is the 31-based polynomial string hash, wrapped to 32 bits.
func builtinHash(args []interface{}) (interface{}, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("hash takes one argument")
	}
	s, ok := args[0].(string)
	if !ok {
		return nil, fmt.Errorf("invalid argument %T for hash", args[0])
	}
	var h int32
	for i := 0; i < len(s); i++ {
		h = 31*h + int32(s[i])
	}
	return int64(h), nil
}

func builtinAppend(args []interface{}) (interface{}, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("append needs a slice")
	}
	var out []interface{}
	switch v := args[0].(type) {
	case []interface{}:
		out = append(out, v...)
	case nil:
	default:
		return nil, fmt.Errorf("cannot append to %T", args[0])
	}
	return append(out, args[1:]...), nil
}

// normalize converts Go values given by callers into the machine's types.
func normalize(v interface{}) interface{} {
	switch x := v.(type) {
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case byte:
		return int64(x)
	case []string:
		out := make([]interface{}, len(x))
		for i, s := range x {
			out[i] = s
		}
		return out
	}
	return v
}

// ParseValue reads a command-line argument as a constant expression such as
// 1, -2, true, 'a' or "text". Anything else is taken as a plain string.
func ParseValue(s string) interface{} {
	v, err := NewExprMachine(nil).Eval(s)
	if err != nil {
		return s
	}
	return v
}

// SameOutcome reports whether two runs returned the same value with the same
// output, or both failed. Error texts differ between graph and shape runs.
func SameOutcome(a *ExprMachine, aerr error, b *ExprMachine, berr error) bool {
	if aerr != nil || berr != nil {
		return aerr != nil && berr != nil
	}
	if a.Returned != b.Returned || fmt.Sprint(a.Result) != fmt.Sprint(b.Result) {
		return false
	}
	if len(a.Output) != len(b.Output) {
		return false
	}
	for i := range a.Output {
		if a.Output[i] != b.Output[i] {
			return false
		}
	}
	return true
}
