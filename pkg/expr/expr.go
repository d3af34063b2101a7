// Package expr implements the expression language used by condition,
// branch, and loop nodes.
//
// The language is a small Python-style expression subset: arithmetic,
// comparison, and boolean operators, string/list/dict/set literals,
// subscripting, conditional expressions, and a fixed set of built-in
// functions (len, min, max, sum, any, all, abs, round, int, float,
// str, bool, range, value). Expressions are compiled once and can be
// evaluated many times against different environments.
//
// Evaluation is sandboxed. There is no attribute access into Go
// values, no reflection, and no way to call anything outside the
// built-in list; names and attributes beginning with two underscores
// are rejected at compile time. The semantics follow Python where the
// two disagree with Go: / is float division, // floors, % takes the
// divisor's sign, comparisons chain, and `or` and `and` return their
// deciding operand rather than a bool.
//
// The value domain is nil, bool, int64, float64, string, []any,
// map[any]any, and an opaque set type. Values entering through an Env
// are normalised into that domain, so callers may pass plain ints and
// map[string]any.
package expr

import "fmt"

// Error describes a compile-time or evaluation failure. Offset is the
// byte offset into the source where the problem was detected and
// Construct names the offending token or operator.
type Error struct {
	Offset    int
	Construct string
	Reason    string
}

func (e *Error) Error() string {
	if e.Construct == "" {
		return fmt.Sprintf("expression error at offset %d: %s", e.Offset, e.Reason)
	}
	return fmt.Sprintf("expression error at offset %d: %s: %s", e.Offset, e.Construct, e.Reason)
}

// Env supplies the bindings an expression evaluates against. Vars maps
// bare names to values; Value resolves the value("...") built-in, which
// workflow code wires to recorded node results. Either field may be nil.
type Env struct {
	Vars  map[string]any
	Value func(name string) (any, bool)
}

// Program is a compiled expression, safe for reuse across evaluations
// and goroutines.
type Program struct {
	src  string
	root node
}

// Compile parses and checks src. The returned program is immutable.
func Compile(src string) (*Program, error) {
	root, err := parseSource(src)
	if err != nil {
		return nil, err
	}
	if err := check(root); err != nil {
		return nil, err
	}
	return &Program{src: src, root: root}, nil
}

// Source returns the text the program was compiled from.
func (p *Program) Source() string { return p.src }

// Eval evaluates the program against env.
func (p *Program) Eval(env Env) (any, error) {
	ev := &evaluator{env: env}
	return ev.eval(p.root)
}

// Eval compiles and evaluates src in one step. Prefer Compile when the
// same expression runs repeatedly.
func Eval(src string, env Env) (any, error) {
	p, err := Compile(src)
	if err != nil {
		return nil, err
	}
	return p.Eval(env)
}

// Equal reports deep structural equality under the language's rules:
// ints and floats compare by value, containers element-wise, values of
// different kinds are unequal.
func Equal(a, b any) bool {
	return equalValues(normalizeValue(a), normalizeValue(b))
}

// Number extracts a numeric value as a float64. It accepts the int and
// float widths normalizeValue accepts; bools are not numbers.
func Number(v any) (float64, bool) {
	switch v := normalizeValue(v).(type) {
	case int64:
		return float64(v), true
	case float64:
		return v, true
	}
	return 0, false
}

// Contains reports membership under the language's `in` operator:
// substring for strings, element for lists, key for dicts and sets.
func Contains(container, item any) (bool, error) {
	return contains(normalizeValue(container), normalizeValue(item), 0)
}

// Truth reports the truthiness of a value under the language's rules:
// nil, False, numeric zero, and empty strings and containers are
// false; everything else is true.
func Truth(v any) bool {
	switch v := v.(type) {
	case nil:
		return false
	case bool:
		return v
	case int64:
		return v != 0
	case float64:
		return v != 0
	case string:
		return v != ""
	case []any:
		return len(v) > 0
	case map[any]any:
		return len(v) > 0
	case setValue:
		return len(v) > 0
	case int:
		return v != 0
	}
	return true
}
