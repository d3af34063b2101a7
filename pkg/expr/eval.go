package expr

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

// maxRangeLen bounds the number of elements range may materialise so a
// stray range(10**9) cannot exhaust memory.
const maxRangeLen = 1_000_000

// setValue is the runtime representation of a set display. Keys are
// normalised hashable primitives.
type setValue map[any]struct{}

type evaluator struct {
	env Env
}

func (ev *evaluator) eval(n node) (any, error) {
	switch n := n.(type) {
	case *literalNode:
		return n.value, nil

	case *nameNode:
		if ev.env.Vars != nil {
			if v, ok := ev.env.Vars[n.name]; ok {
				return normalizeValue(v), nil
			}
		}
		return nil, &Error{Offset: n.pos, Construct: n.name, Reason: fmt.Sprintf("name %q is not defined", n.name)}

	case *listNode:
		return ev.evalItems(n.items)

	case *tupleNode:
		return ev.evalItems(n.items)

	case *setNode:
		set := make(setValue, len(n.items))
		for _, item := range n.items {
			v, err := ev.eval(item)
			if err != nil {
				return nil, err
			}
			key, err := hashableKey(v, item.offset())
			if err != nil {
				return nil, err
			}
			set[key] = struct{}{}
		}
		return set, nil

	case *dictNode:
		dict := make(map[any]any, len(n.keys))
		for i, kn := range n.keys {
			kv, err := ev.eval(kn)
			if err != nil {
				return nil, err
			}
			key, err := hashableKey(kv, kn.offset())
			if err != nil {
				return nil, err
			}
			v, err := ev.eval(n.values[i])
			if err != nil {
				return nil, err
			}
			dict[key] = v
		}
		return dict, nil

	case *unaryNode:
		return ev.evalUnary(n)

	case *binaryNode:
		return ev.evalBinary(n)

	case *boolNode:
		// or yields the first truthy operand, and the first falsy one;
		// either way the deciding operand itself is the result.
		var last any
		for i, vn := range n.values {
			v, err := ev.eval(vn)
			if err != nil {
				return nil, err
			}
			last = v
			if i == len(n.values)-1 {
				break
			}
			if t := Truth(v); (n.op == "or") == t {
				return v, nil
			}
		}
		return last, nil

	case *compareNode:
		left, err := ev.eval(n.left)
		if err != nil {
			return nil, err
		}
		for i, op := range n.ops {
			right, err := ev.eval(n.operands[i])
			if err != nil {
				return nil, err
			}
			ok, err := applyCompare(op, left, right, n.operands[i].offset())
			if err != nil {
				return nil, err
			}
			if !ok {
				return false, nil
			}
			left = right
		}
		return true, nil

	case *condNode:
		test, err := ev.eval(n.test)
		if err != nil {
			return nil, err
		}
		if Truth(test) {
			return ev.eval(n.body)
		}
		return ev.eval(n.orelse)

	case *attrNode:
		v, err := ev.eval(n.value)
		if err != nil {
			return nil, err
		}
		dict, ok := v.(map[any]any)
		if !ok {
			return nil, &Error{Offset: n.pos, Construct: n.attr, Reason: fmt.Sprintf("%s value has no attribute %q", typeName(v), n.attr)}
		}
		got, ok := dict[n.attr]
		if !ok {
			return nil, &Error{Offset: n.pos, Construct: n.attr, Reason: fmt.Sprintf("no attribute %q", n.attr)}
		}
		return got, nil

	case *indexNode:
		return ev.evalIndex(n)

	case *callNode:
		return ev.evalCall(n)
	}
	return nil, &Error{Construct: "expression", Reason: "unsupported construct"}
}

func (ev *evaluator) evalItems(items []node) ([]any, error) {
	out := make([]any, len(items))
	for i, item := range items {
		v, err := ev.eval(item)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (ev *evaluator) evalUnary(n *unaryNode) (any, error) {
	v, err := ev.eval(n.operand)
	if err != nil {
		return nil, err
	}
	switch n.op {
	case "not":
		return !Truth(v), nil
	case "-":
		switch v := v.(type) {
		case int64:
			return -v, nil
		case float64:
			return -v, nil
		}
	case "+":
		switch v.(type) {
		case int64, float64:
			return v, nil
		}
	case "~":
		if i, ok := v.(int64); ok {
			return ^i, nil
		}
	}
	return nil, &Error{Offset: n.pos, Construct: n.op, Reason: fmt.Sprintf("bad operand type for unary %s: %s", n.op, typeName(v))}
}

func (ev *evaluator) evalBinary(n *binaryNode) (any, error) {
	left, err := ev.eval(n.left)
	if err != nil {
		return nil, err
	}
	right, err := ev.eval(n.right)
	if err != nil {
		return nil, err
	}

	fail := func() (any, error) {
		return nil, &Error{
			Offset:    n.pos,
			Construct: n.op,
			Reason:    fmt.Sprintf("unsupported operand types for %s: %s and %s", n.op, typeName(left), typeName(right)),
		}
	}
	divZero := func() (any, error) {
		return nil, &Error{Offset: n.pos, Construct: n.op, Reason: "division by zero"}
	}

	switch n.op {
	case "+":
		if ls, ok := left.(string); ok {
			if rs, ok := right.(string); ok {
				return ls + rs, nil
			}
			return fail()
		}
		if ll, ok := left.([]any); ok {
			if rl, ok := right.([]any); ok {
				out := make([]any, 0, len(ll)+len(rl))
				out = append(out, ll...)
				return append(out, rl...), nil
			}
			return fail()
		}
		if li, lf, lok := numeric(left); lok {
			if ri, rf, rok := numeric(right); rok {
				if li != nil && ri != nil {
					return *li + *ri, nil
				}
				return lf + rf, nil
			}
		}
		return fail()

	case "-":
		if li, lf, lok := numeric(left); lok {
			if ri, rf, rok := numeric(right); rok {
				if li != nil && ri != nil {
					return *li - *ri, nil
				}
				return lf - rf, nil
			}
		}
		return fail()

	case "*":
		if li, lf, lok := numeric(left); lok {
			if ri, rf, rok := numeric(right); rok {
				if li != nil && ri != nil {
					return *li * *ri, nil
				}
				return lf * rf, nil
			}
		}
		if s, cnt, ok := repeatOperands(left, right); ok {
			if cnt < 0 {
				cnt = 0
			}
			switch s := s.(type) {
			case string:
				return strings.Repeat(s, int(cnt)), nil
			case []any:
				out := make([]any, 0, len(s)*int(cnt))
				for i := int64(0); i < cnt; i++ {
					out = append(out, s...)
				}
				return out, nil
			}
		}
		return fail()

	case "/":
		if _, lf, lok := numeric(left); lok {
			if _, rf, rok := numeric(right); rok {
				if rf == 0 {
					return divZero()
				}
				return lf / rf, nil
			}
		}
		return fail()

	case "//":
		if li, lf, lok := numeric(left); lok {
			if ri, rf, rok := numeric(right); rok {
				if rf == 0 {
					return divZero()
				}
				if li != nil && ri != nil {
					return floorDivInt(*li, *ri), nil
				}
				return math.Floor(lf / rf), nil
			}
		}
		return fail()

	case "%":
		if li, lf, lok := numeric(left); lok {
			if ri, rf, rok := numeric(right); rok {
				if rf == 0 {
					return divZero()
				}
				if li != nil && ri != nil {
					return modInt(*li, *ri), nil
				}
				// Result takes the sign of the divisor.
				r := math.Mod(lf, rf)
				if r != 0 && (r < 0) != (rf < 0) {
					r += rf
				}
				return r, nil
			}
		}
		return fail()

	case "**":
		if li, lf, lok := numeric(left); lok {
			if ri, rf, rok := numeric(right); rok {
				if li != nil && ri != nil && *ri >= 0 {
					return ipow(*li, *ri), nil
				}
				return math.Pow(lf, rf), nil
			}
		}
		return fail()

	case "&", "|", "^", "<<", ">>":
		li, lok := left.(int64)
		ri, rok := right.(int64)
		if !lok || !rok {
			return fail()
		}
		switch n.op {
		case "&":
			return li & ri, nil
		case "|":
			return li | ri, nil
		case "^":
			return li ^ ri, nil
		case "<<":
			if ri < 0 {
				return nil, &Error{Offset: n.pos, Construct: n.op, Reason: "negative shift count"}
			}
			return li << uint(ri), nil
		case ">>":
			if ri < 0 {
				return nil, &Error{Offset: n.pos, Construct: n.op, Reason: "negative shift count"}
			}
			return li >> uint(ri), nil
		}
	}
	return fail()
}

func (ev *evaluator) evalIndex(n *indexNode) (any, error) {
	v, err := ev.eval(n.value)
	if err != nil {
		return nil, err
	}
	idx, err := ev.eval(n.index)
	if err != nil {
		return nil, err
	}

	switch v := v.(type) {
	case []any:
		i, ok := idx.(int64)
		if !ok {
			return nil, &Error{Offset: n.pos, Construct: "[]", Reason: fmt.Sprintf("list indices must be integers, not %s", typeName(idx))}
		}
		if i < 0 {
			i += int64(len(v))
		}
		if i < 0 || i >= int64(len(v)) {
			return nil, &Error{Offset: n.pos, Construct: "[]", Reason: "list index out of range"}
		}
		return v[i], nil

	case string:
		i, ok := idx.(int64)
		if !ok {
			return nil, &Error{Offset: n.pos, Construct: "[]", Reason: fmt.Sprintf("string indices must be integers, not %s", typeName(idx))}
		}
		runes := []rune(v)
		if i < 0 {
			i += int64(len(runes))
		}
		if i < 0 || i >= int64(len(runes)) {
			return nil, &Error{Offset: n.pos, Construct: "[]", Reason: "string index out of range"}
		}
		return string(runes[i]), nil

	case map[any]any:
		key, err := hashableKey(idx, n.index.offset())
		if err != nil {
			return nil, err
		}
		got, ok := v[key]
		if !ok {
			return nil, &Error{Offset: n.pos, Construct: "[]", Reason: fmt.Sprintf("key %s not found", pyRepr(idx))}
		}
		return got, nil
	}
	return nil, &Error{Offset: n.pos, Construct: "[]", Reason: fmt.Sprintf("%s value is not subscriptable", typeName(v))}
}

// numeric reports whether v is an int or float. When it is an int the
// first return carries the value; the float return always carries the
// widened value so mixed arithmetic can fall through to floats.
func numeric(v any) (*int64, float64, bool) {
	switch v := v.(type) {
	case int64:
		return &v, float64(v), true
	case float64:
		return nil, v, true
	}
	return nil, 0, false
}

func repeatOperands(left, right any) (seq any, count int64, ok bool) {
	if cnt, isInt := right.(int64); isInt {
		switch left.(type) {
		case string, []any:
			return left, cnt, true
		}
	}
	if cnt, isInt := left.(int64); isInt {
		switch right.(type) {
		case string, []any:
			return right, cnt, true
		}
	}
	return nil, 0, false
}

func floorDivInt(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func modInt(a, b int64) int64 {
	r := a % b
	if r != 0 && (r < 0) != (b < 0) {
		r += b
	}
	return r
}

func ipow(base, exp int64) int64 {
	var result int64 = 1
	for exp > 0 {
		if exp&1 == 1 {
			result *= base
		}
		base *= base
		exp >>= 1
	}
	return result
}

func applyCompare(op string, left, right any, pos int) (bool, error) {
	switch op {
	case "==":
		return equalValues(left, right), nil
	case "!=":
		return !equalValues(left, right), nil
	case "in", "not in":
		ok, err := contains(right, left, pos)
		if err != nil {
			return false, err
		}
		if op == "not in" {
			ok = !ok
		}
		return ok, nil
	}

	c, err := orderValues(left, right)
	if err != nil {
		return false, &Error{
			Offset:    pos,
			Construct: op,
			Reason:    fmt.Sprintf("%q not supported between %s and %s", op, typeName(left), typeName(right)),
		}
	}
	switch op {
	case "<":
		return c < 0, nil
	case "<=":
		return c <= 0, nil
	case ">":
		return c > 0, nil
	case ">=":
		return c >= 0, nil
	}
	return false, &Error{Offset: pos, Construct: op, Reason: "unknown comparison"}
}

// equalValues implements deep equality. Ints and floats compare by
// numeric value; containers compare element-wise; values of otherwise
// different types are unequal rather than an error.
func equalValues(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch a := a.(type) {
	case bool:
		bb, ok := b.(bool)
		return ok && a == bb
	case int64:
		switch b := b.(type) {
		case int64:
			return a == b
		case float64:
			return float64(a) == b
		}
		return false
	case float64:
		switch b := b.(type) {
		case int64:
			return a == float64(b)
		case float64:
			return a == b
		}
		return false
	case string:
		bb, ok := b.(string)
		return ok && a == bb
	case []any:
		bb, ok := b.([]any)
		if !ok || len(a) != len(bb) {
			return false
		}
		for i := range a {
			if !equalValues(a[i], bb[i]) {
				return false
			}
		}
		return true
	case map[any]any:
		bb, ok := b.(map[any]any)
		if !ok || len(a) != len(bb) {
			return false
		}
		for k, av := range a {
			bv, ok := bb[k]
			if !ok || !equalValues(av, bv) {
				return false
			}
		}
		return true
	case setValue:
		bb, ok := b.(setValue)
		if !ok || len(a) != len(bb) {
			return false
		}
		for k := range a {
			if _, ok := bb[k]; !ok {
				return false
			}
		}
		return true
	}
	return false
}

// orderValues compares two values for the ordering operators. Numbers
// order numerically, strings lexicographically, and lists element-wise;
// anything else is an error.
func orderValues(a, b any) (int, error) {
	if _, af, aok := numeric(a); aok {
		if _, bf, bok := numeric(b); bok {
			switch {
			case af < bf:
				return -1, nil
			case af > bf:
				return 1, nil
			}
			return 0, nil
		}
	}
	if as, ok := a.(string); ok {
		if bs, ok := b.(string); ok {
			return strings.Compare(as, bs), nil
		}
	}
	if al, ok := a.([]any); ok {
		if bl, ok := b.([]any); ok {
			for i := 0; i < len(al) && i < len(bl); i++ {
				c, err := orderValues(al[i], bl[i])
				if err != nil {
					return 0, err
				}
				if c != 0 {
					return c, nil
				}
			}
			switch {
			case len(al) < len(bl):
				return -1, nil
			case len(al) > len(bl):
				return 1, nil
			}
			return 0, nil
		}
	}
	return 0, fmt.Errorf("unorderable types")
}

func contains(container, elem any, pos int) (bool, error) {
	switch container := container.(type) {
	case string:
		s, ok := elem.(string)
		if !ok {
			return false, &Error{Offset: pos, Construct: "in", Reason: fmt.Sprintf("'in <string>' requires string as left operand, not %s", typeName(elem))}
		}
		return strings.Contains(container, s), nil
	case []any:
		for _, v := range container {
			if equalValues(elem, v) {
				return true, nil
			}
		}
		return false, nil
	case map[any]any:
		key, err := hashableKey(elem, pos)
		if err != nil {
			return false, err
		}
		_, ok := container[key]
		return ok, nil
	case setValue:
		key, err := hashableKey(elem, pos)
		if err != nil {
			return false, err
		}
		_, ok := container[key]
		return ok, nil
	}
	return false, &Error{Offset: pos, Construct: "in", Reason: fmt.Sprintf("%s value is not a container", typeName(container))}
}

// hashableKey normalises a value for use as a dict or set key. Floats
// with an integral value collapse to ints so d[1] and d[1.0] address
// the same entry.
func hashableKey(v any, pos int) (any, error) {
	switch v := v.(type) {
	case nil, bool, int64, string:
		return v, nil
	case float64:
		if v == math.Trunc(v) && !math.IsInf(v, 0) && v >= math.MinInt64 && v <= math.MaxInt64 {
			return int64(v), nil
		}
		return v, nil
	}
	return nil, &Error{Offset: pos, Construct: typeName(v), Reason: fmt.Sprintf("unhashable type: %s", typeName(v))}
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "None"
	case bool:
		return "bool"
	case int64:
		return "int"
	case float64:
		return "float"
	case string:
		return "str"
	case []any:
		return "list"
	case map[any]any:
		return "dict"
	case setValue:
		return "set"
	}
	return fmt.Sprintf("%T", v)
}

// pyStr renders a value the way str() would: bare for strings, repr
// for everything else.
func pyStr(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return pyRepr(v)
}

func pyRepr(v any) string {
	switch v := v.(type) {
	case nil:
		return "None"
	case bool:
		if v {
			return "True"
		}
		return "False"
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return formatFloat(v)
	case string:
		var b strings.Builder
		b.WriteByte('\'')
		for _, r := range v {
			switch r {
			case '\'':
				b.WriteString(`\'`)
			case '\\':
				b.WriteString(`\\`)
			case '\n':
				b.WriteString(`\n`)
			case '\t':
				b.WriteString(`\t`)
			case '\r':
				b.WriteString(`\r`)
			default:
				b.WriteRune(r)
			}
		}
		b.WriteByte('\'')
		return b.String()
	case []any:
		parts := make([]string, len(v))
		for i, item := range v {
			parts[i] = pyRepr(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case map[any]any:
		parts := make([]string, 0, len(v))
		for k, item := range v {
			parts = append(parts, pyRepr(k)+": "+pyRepr(item))
		}
		sort.Strings(parts)
		return "{" + strings.Join(parts, ", ") + "}"
	case setValue:
		if len(v) == 0 {
			return "set()"
		}
		parts := make([]string, 0, len(v))
		for k := range v {
			parts = append(parts, pyRepr(k))
		}
		sort.Strings(parts)
		return "{" + strings.Join(parts, ", ") + "}"
	}
	return fmt.Sprintf("%v", v)
}

func formatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case math.IsNaN(f):
		return "nan"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

// normalizeValue coerces Go values supplied through the environment into
// the evaluator's canonical domain: all integer widths become int64,
// float32 widens, and string-keyed maps become dicts.
func normalizeValue(v any) any {
	switch v := v.(type) {
	case int:
		return int64(v)
	case int8:
		return int64(v)
	case int16:
		return int64(v)
	case int32:
		return int64(v)
	case uint:
		return int64(v)
	case uint8:
		return int64(v)
	case uint16:
		return int64(v)
	case uint32:
		return int64(v)
	case uint64:
		return int64(v)
	case float32:
		return float64(v)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = normalizeValue(item)
		}
		return out
	case []string:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = item
		}
		return out
	case []int:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = int64(item)
		}
		return out
	case map[string]any:
		out := make(map[any]any, len(v))
		for k, item := range v {
			out[k] = normalizeValue(item)
		}
		return out
	case map[any]any:
		out := make(map[any]any, len(v))
		for k, item := range v {
			nk, err := hashableKey(normalizeValue(k), 0)
			if err != nil {
				nk = fmt.Sprintf("%v", k)
			}
			out[nk] = normalizeValue(item)
		}
		return out
	}
	return v
}

// utf8Len counts characters, not bytes, to match len() on Python text.
func utf8Len(s string) int64 {
	return int64(utf8.RuneCountInString(s))
}
