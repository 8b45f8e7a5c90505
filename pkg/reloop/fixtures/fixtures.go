// Package fixtures holds hand-built control-flow graphs of small functions
// together with sample runs, for exercising the relooper and the tools built
// on it.
package fixtures

import "github.com/l3aro/go-relooper/pkg/reloop"

// Run is one invocation of a fixture: argument values, the expected result
// and the expected log output.
type Run struct {
	Args   map[string]interface{}
	Result interface{}
	Output []string
}

// Fixture is a named graph with sample runs.
type Fixture struct {
	Name  string
	Graph func() *reloop.Graph
	Runs  []Run
}

// All returns every fixture in a fixed order.
func All() []Fixture {
	return []Fixture{
		{Name: "simpleIf", Graph: SimpleIf, Runs: []Run{
			{Args: args("a", 0, "b", 1), Result: int64(-1)},
			{Args: args("a", 1, "b", 0), Result: int64(1)},
			{Args: args("a", 0, "b", 0), Result: int64(1)},
		}},
		{Name: "composedIfAnd", Graph: ComposedIfAnd, Runs: []Run{
			{Args: args("a", 0, "b", 1), Result: int64(-1)},
			{Args: args("a", 1, "b", 0), Result: int64(1)},
			{Args: args("a", 0, "b", 0), Result: int64(1)},
			{Args: args("a", -2, "b", -1), Result: int64(1)},
		}},
		{Name: "composedIfOr", Graph: ComposedIfOr, Runs: []Run{
			{Args: args("a", 0, "b", 1), Result: int64(-1)},
			{Args: args("a", 1, "b", 0), Result: int64(-1)},
			{Args: args("a", 0, "b", 0), Result: int64(-1)},
			{Args: args("a", -2, "b", -3), Result: int64(1)},
		}},
		{Name: "simpleDoWhile", Graph: SimpleDoWhile, Runs: []Run{
			{Args: args("a", 0, "b", 5), Result: int64(6), Output: []string{"0", "1", "2", "3", "4", "5"}},
			{Args: args("a", 1, "b", 5), Result: int64(6), Output: []string{"2", "3", "4", "5"}},
			{Args: args("a", 7, "b", 2), Result: int64(3)},
		}},
		{Name: "simpleWhile", Graph: SimpleWhile, Runs: []Run{
			{Args: args("a", 0, "b", 5), Result: int64(6), Output: []string{"0", "1", "2", "3", "4", "5", "6", "6"}},
			{Args: args("a", 3, "b", 1), Result: int64(2), Output: []string{"3", "2"}},
		}},
		{Name: "simpleFor", Graph: SimpleFor, Runs: []Run{
			{Args: args("a", 2, "b", 5), Result: int64(5), Output: []string{"3", "4", "5", "6"}},
			{Args: args("a", 0, "b", 1), Result: int64(1)},
		}},
		{Name: "split", Graph: Split, Runs: []Run{
			{Args: args("str", "hello world test", "ch", int64(' '), "limit", 2), Result: []interface{}{"hello", "world test"}},
			{Args: args("str", "a b c", "ch", int64(' '), "limit", 10), Result: []interface{}{"a", "b", "c"}},
			{Args: args("str", "ab ", "ch", int64(' '), "limit", 5), Result: []interface{}{"ab"}},
		}},
		{Name: "bufferEquals", Graph: BufferEquals, Runs: []Run{
			{Args: args("t", "abc", "other", "abc"), Result: true},
			{Args: args("t", "abc", "other", "abd"), Result: false},
			{Args: args("t", "abc", "other", nil), Result: false},
			{Args: args("t", "ab", "other", "abc"), Result: false},
		}},
		{Name: "demo", Graph: Demo, Runs: []Run{
			{Args: args("a", true, "b", true, "c", false), Result: false},
			{Args: args("a", false, "b", true, "c", true), Result: true},
			{Args: args("a", true, "b", false, "c", false), Result: true},
		}},
		{Name: "isDigit", Graph: IsDigit, Runs: []Run{
			{Args: args("c", int64('5')), Result: true},
			{Args: args("c", int64('f')), Result: true},
			{Args: args("c", int64('G')), Result: true},
			{Args: args("c", int64('-')), Result: false},
		}},
		{Name: "sequals", Graph: Sequals, Runs: []Run{
			{Args: args("l", "a", "r", "a"), Result: true},
			{Args: args("l", "a", "r", "b"), Result: false},
			{Args: args("l", "hello", "r", "help!"), Result: false},
			{Args: args("l", "hi", "r", "hello"), Result: false},
			{Args: args("l", "abc", "r", nil), Result: false},
			{Args: args("l", "Aa", "r", "BB"), Result: false},
		}},
		{Name: "myswitch", Graph: MySwitch, Runs: []Run{
			{Args: args("a", 0), Result: true, Output: []string{"0"}},
			{Args: args("a", 1), Result: true, Output: []string{"1", "2"}},
			{Args: args("a", 2), Result: true, Output: []string{"2"}},
			{Args: args("a", 3), Result: false},
			{Args: args("a", 4), Result: true},
		}},
		{Name: "irreducible", Graph: Irreducible, Runs: []Run{
			{Args: args("a", 0), Result: int64(-2), Output: []string{"B"}},
			{Args: args("a", 6), Result: int64(0), Output: []string{"A", "B", "A", "B"}},
			{Args: args("a", 3), Result: int64(0), Output: []string{"B", "A"}},
		}},
	}
}

// Get returns the fixture with the given name.
func Get(name string) (Fixture, bool) {
	for _, f := range All() {
		if f.Name == name {
			return f, true
		}
	}
	return Fixture{}, false
}

func args(kv ...interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		v := kv[i+1]
		if n, ok := v.(int); ok {
			v = int64(n)
		}
		m[kv[i].(string)] = v
	}
	return m
}

func block(id reloop.BlockID, term reloop.Terminator, effects ...string) *reloop.Block {
	return &reloop.Block{ID: id, Effects: effects, Term: term}
}

// SimpleIf: if a < b { return -1 }; return 1
func SimpleIf() *reloop.Graph {
	return &reloop.Graph{Name: "simpleIf", Entry: 0, Blocks: []*reloop.Block{
		block(0, reloop.Branch("a < b", 1, 2)),
		block(1, reloop.Return("-1")),
		block(2, reloop.Return("1")),
	}}
}

// ComposedIfAnd: if a < b && a >= 0 { return -1 }; return 1
func ComposedIfAnd() *reloop.Graph {
	return &reloop.Graph{Name: "composedIfAnd", Entry: 0, Blocks: []*reloop.Block{
		block(0, reloop.Branch("a < b", 1, 3)),
		block(1, reloop.Branch("a >= 0", 2, 3)),
		block(2, reloop.Return("-1")),
		block(3, reloop.Return("1")),
	}}
}

// ComposedIfOr: if a < b || a >= 0 { return -1 }; return 1
func ComposedIfOr() *reloop.Graph {
	return &reloop.Graph{Name: "composedIfOr", Entry: 0, Blocks: []*reloop.Block{
		block(0, reloop.Branch("a < b", 2, 1)),
		block(1, reloop.Branch("a >= 0", 2, 3)),
		block(2, reloop.Return("-1")),
		block(3, reloop.Return("1")),
	}}
}

// SimpleDoWhile nests a do-while inside the branch of another:
//
//	b++
//	do {
//		if a%2 == 0 {
//			do { log(a); a++ } while a < b
//		}
//		a++
//	} while a < b
//	return b
func SimpleDoWhile() *reloop.Graph {
	return &reloop.Graph{Name: "simpleDoWhile", Entry: 0, Blocks: []*reloop.Block{
		block(0, reloop.Jump(1), "b++"),
		block(1, reloop.Branch("a % 2 == 0", 2, 3)),
		block(2, reloop.Branch("a < b", 2, 3), "log(a)", "a++"),
		block(3, reloop.Branch("a < b", 1, 4), "a++"),
		block(4, reloop.Return("b")),
	}}
}

// SimpleWhile: b++; while a < b { log(a); a++ }; log(a); log(b); return b
func SimpleWhile() *reloop.Graph {
	return &reloop.Graph{Name: "simpleWhile", Entry: 0, Blocks: []*reloop.Block{
		block(0, reloop.Jump(2), "b++"),
		block(1, reloop.Jump(2), "log(a)", "a++"),
		block(2, reloop.Branch("a < b", 1, 3)),
		block(3, reloop.Return("b"), "log(a)", "log(b)"),
	}}
}

// SimpleFor: for n := 1; n < b; n++ { log(a + n) }; return b
func SimpleFor() *reloop.Graph {
	return &reloop.Graph{Name: "simpleFor", Entry: 0, Blocks: []*reloop.Block{
		block(0, reloop.Jump(2), "n := 1"),
		block(1, reloop.Jump(2), "log(a + n)", "n++"),
		block(2, reloop.Branch("n < b", 1, 3)),
		block(3, reloop.Return("b")),
	}}
}

// Split cuts str at ch into at most limit parts. An empty tail is dropped.
func Split() *reloop.Graph {
	return &reloop.Graph{Name: "split", Entry: 0, Blocks: []*reloop.Block{
		block(0, reloop.Jump(1), "out := nil", "n := 0", "start := 0"),
		block(1, reloop.Branch("n < len(str)", 2, 5)),
		block(2, reloop.Branch("str[n] == ch", 3, 4)),
		block(3, reloop.Branch("len(out) >= limit-1", 5, 4), "out = append(out, str[start:n])", "start = n + 1"),
		block(4, reloop.Jump(1), "n++"),
		block(5, reloop.Branch("start < len(str)", 6, 7)),
		block(6, reloop.Jump(7), "out = append(out, str[start:])"),
		block(7, reloop.Return("out")),
	}}
}

// BufferEquals compares t with other byte by byte, stopping at the first
// difference.
func BufferEquals() *reloop.Graph {
	return &reloop.Graph{Name: "bufferEquals", Entry: 0, Blocks: []*reloop.Block{
		block(0, reloop.Branch("other == nil", 1, 2)),
		block(1, reloop.Return("false")),
		block(2, reloop.Branch("len(t) != len(other)", 3, 4)),
		block(3, reloop.Return("false")),
		block(4, reloop.Jump(5), "i := 0", "j := 0", "equalSoFar := true"),
		block(5, reloop.Branch("equalSoFar", 6, 8)),
		block(6, reloop.Branch("i < len(t)", 7, 8)),
		block(7, reloop.Jump(5), "equalSoFar = t[i] == other[j]", "i++", "j++"),
		block(8, reloop.Return("equalSoFar")),
	}}
}

// Demo: result := true; while a && b != c { a = !b; result = (a ^ c) == b }; return result
func Demo() *reloop.Graph {
	return &reloop.Graph{Name: "demo", Entry: 0, Blocks: []*reloop.Block{
		block(0, reloop.Jump(1), "result := true"),
		block(1, reloop.Branch("a", 2, 4)),
		block(2, reloop.Branch("b != c", 3, 4)),
		block(3, reloop.Jump(1), "a = !b", "result = (a ^ c) == b"),
		block(4, reloop.Return("result")),
	}}
}

// Irreducible enters a two-block cycle at either block, which no single loop
// header can express.
func Irreducible() *reloop.Graph {
	return &reloop.Graph{Name: "irreducible", Entry: 0, Blocks: []*reloop.Block{
		block(0, reloop.Branch("a > 5", 1, 2), "n := a"),
		block(1, reloop.Branch("n > 0", 2, 3), `log("A")`, "n = n - 1"),
		block(2, reloop.Branch("n > 0", 1, 3), `log("B")`, "n = n - 2"),
		block(3, reloop.Return("n")),
	}}
}

// IsDigit reports whether c is a decimal digit or an ASCII letter:
//
//	return c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
func IsDigit() *reloop.Graph {
	return &reloop.Graph{Name: "isDigit", Entry: 0, Blocks: []*reloop.Block{
		block(0, reloop.Branch("c >= '0'", 1, 2)),
		block(1, reloop.Branch("c <= '9'", 6, 2)),
		block(2, reloop.Branch("c >= 'a'", 3, 4)),
		block(3, reloop.Branch("c <= 'z'", 6, 4)),
		block(4, reloop.Branch("c >= 'A'", 5, 7)),
		block(5, reloop.Branch("c <= 'Z'", 6, 7)),
		block(6, reloop.Return("true")),
		block(7, reloop.Return("false")),
	}}
}

// Sequals compares two strings, trying cheap checks before the byte loop.
func Sequals() *reloop.Graph {
	return &reloop.Graph{Name: "sequals", Entry: 0, Blocks: []*reloop.Block{
		block(0, reloop.Branch("l == r", 1, 2)),
		block(1, reloop.Return("true")),
		block(2, reloop.Branch("l == nil", 3, 4)),
		block(3, reloop.Return("false")),
		block(4, reloop.Branch("r == nil", 5, 6)),
		block(5, reloop.Return("false")),
		block(6, reloop.Branch("len(l) != len(r)", 7, 8)),
		block(7, reloop.Return("false")),
		block(8, reloop.Branch("hash(l) != hash(r)", 9, 10)),
		block(9, reloop.Return("false")),
		block(10, reloop.Jump(11), "length := len(l)", "n := 0"),
		block(11, reloop.Branch("n < length", 12, 15)),
		block(12, reloop.Branch("l[n] != r[n]", 13, 14)),
		block(13, reloop.Return("false")),
		block(14, reloop.Jump(11), "n++"),
		block(15, reloop.Return("true")),
	}}
}

// MySwitch: case 0 logs; case 1 logs and falls into case 2, which logs;
// case 3 returns false; everything else returns true.
func MySwitch() *reloop.Graph {
	return &reloop.Graph{Name: "myswitch", Entry: 0, Blocks: []*reloop.Block{
		block(0, reloop.SwitchOn("a", []reloop.Case{{Value: 0, Target: 1}, {Value: 1, Target: 2}, {Value: 2, Target: 3}, {Value: 3, Target: 4}}, 5)),
		block(1, reloop.Jump(5), `log("0")`),
		block(2, reloop.Jump(3), `log("1")`),
		block(3, reloop.Jump(5), `log("2")`),
		block(4, reloop.Return("false")),
		block(5, reloop.Return("true")),
	}}
}
