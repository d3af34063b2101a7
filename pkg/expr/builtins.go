package expr

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

func (ev *evaluator) evalCall(n *callNode) (any, error) {
	name := n.fn.(*nameNode).name

	args := make([]any, len(n.args))
	for i, an := range n.args {
		v, err := ev.eval(an)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}

	argErr := func(reason string) (any, error) {
		return nil, &Error{Offset: n.pos, Construct: name, Reason: reason}
	}

	switch name {
	case "len":
		if len(args) != 1 {
			return argErr("len() takes exactly one argument")
		}
		switch v := args[0].(type) {
		case string:
			return utf8Len(v), nil
		case []any:
			return int64(len(v)), nil
		case map[any]any:
			return int64(len(v)), nil
		case setValue:
			return int64(len(v)), nil
		}
		return argErr(fmt.Sprintf("object of type %s has no len()", typeName(args[0])))

	case "min", "max":
		items, err := spreadArgs(name, args, n.pos)
		if err != nil {
			return nil, err
		}
		if len(items) == 0 {
			return argErr(name + "() arg is an empty sequence")
		}
		best := items[0]
		for _, v := range items[1:] {
			c, err := orderValues(v, best)
			if err != nil {
				return argErr(fmt.Sprintf("%s() got unorderable types %s and %s", name, typeName(v), typeName(best)))
			}
			if (name == "min" && c < 0) || (name == "max" && c > 0) {
				best = v
			}
		}
		return best, nil

	case "sum":
		if len(args) != 1 {
			return argErr("sum() takes exactly one argument")
		}
		items, ok := iterElems(args[0])
		if !ok {
			return argErr(fmt.Sprintf("%s value is not iterable", typeName(args[0])))
		}
		var intSum int64
		var floatSum float64
		isFloat := false
		for _, v := range items {
			switch v := v.(type) {
			case int64:
				intSum += v
				floatSum += float64(v)
			case float64:
				isFloat = true
				floatSum += v
			default:
				return argErr(fmt.Sprintf("unsupported operand type for sum: %s", typeName(v)))
			}
		}
		if isFloat {
			return floatSum, nil
		}
		return intSum, nil

	case "any", "all":
		if len(args) != 1 {
			return argErr(name + "() takes exactly one argument")
		}
		items, ok := iterElems(args[0])
		if !ok {
			return argErr(fmt.Sprintf("%s value is not iterable", typeName(args[0])))
		}
		if name == "any" {
			for _, v := range items {
				if Truth(v) {
					return true, nil
				}
			}
			return false, nil
		}
		for _, v := range items {
			if !Truth(v) {
				return false, nil
			}
		}
		return true, nil

	case "abs":
		if len(args) != 1 {
			return argErr("abs() takes exactly one argument")
		}
		switch v := args[0].(type) {
		case int64:
			if v < 0 {
				return -v, nil
			}
			return v, nil
		case float64:
			return math.Abs(v), nil
		}
		return argErr(fmt.Sprintf("bad operand type for abs(): %s", typeName(args[0])))

	case "round":
		return evalRound(args, n.pos)

	case "int":
		if len(args) != 1 {
			return argErr("int() takes exactly one argument")
		}
		switch v := args[0].(type) {
		case bool:
			if v {
				return int64(1), nil
			}
			return int64(0), nil
		case int64:
			return v, nil
		case float64:
			return int64(math.Trunc(v)), nil
		case string:
			i, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
			if err != nil {
				return argErr(fmt.Sprintf("invalid literal for int(): %s", pyRepr(v)))
			}
			return i, nil
		}
		return argErr(fmt.Sprintf("int() argument must be a string or a number, not %s", typeName(args[0])))

	case "float":
		if len(args) != 1 {
			return argErr("float() takes exactly one argument")
		}
		switch v := args[0].(type) {
		case bool:
			if v {
				return 1.0, nil
			}
			return 0.0, nil
		case int64:
			return float64(v), nil
		case float64:
			return v, nil
		case string:
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return argErr(fmt.Sprintf("could not convert string to float: %s", pyRepr(v)))
			}
			return f, nil
		}
		return argErr(fmt.Sprintf("float() argument must be a string or a number, not %s", typeName(args[0])))

	case "str":
		if len(args) == 0 {
			return "", nil
		}
		if len(args) != 1 {
			return argErr("str() takes at most one argument")
		}
		return pyStr(args[0]), nil

	case "bool":
		if len(args) == 0 {
			return false, nil
		}
		if len(args) != 1 {
			return argErr("bool() takes at most one argument")
		}
		return Truth(args[0]), nil

	case "range":
		return evalRange(args, n.pos)

	case "value":
		if len(args) != 1 {
			return argErr("value() takes exactly one argument")
		}
		key, ok := args[0].(string)
		if !ok {
			return argErr(fmt.Sprintf("value() argument must be a string, not %s", typeName(args[0])))
		}
		if ev.env.Value == nil {
			return argErr(fmt.Sprintf("no value recorded for %q", key))
		}
		v, ok := ev.env.Value(key)
		if !ok {
			return argErr(fmt.Sprintf("no value recorded for %q", key))
		}
		return normalizeValue(v), nil
	}
	return argErr("is not a callable function")
}

// spreadArgs resolves the min/max calling conventions: a single
// iterable argument or two-plus scalar arguments.
func spreadArgs(name string, args []any, pos int) ([]any, error) {
	switch len(args) {
	case 0:
		return nil, &Error{Offset: pos, Construct: name, Reason: name + "() expected at least one argument"}
	case 1:
		items, ok := iterElems(args[0])
		if !ok {
			return nil, &Error{Offset: pos, Construct: name, Reason: fmt.Sprintf("%s value is not iterable", typeName(args[0]))}
		}
		return items, nil
	}
	return args, nil
}

// iterElems flattens an iterable value into a slice: lists yield their
// elements, dicts and sets their keys, strings their characters.
func iterElems(v any) ([]any, bool) {
	switch v := v.(type) {
	case []any:
		return v, true
	case map[any]any:
		out := make([]any, 0, len(v))
		for k := range v {
			out = append(out, k)
		}
		return out, true
	case setValue:
		out := make([]any, 0, len(v))
		for k := range v {
			out = append(out, k)
		}
		return out, true
	case string:
		out := make([]any, 0, len(v))
		for _, r := range v {
			out = append(out, string(r))
		}
		return out, true
	}
	return nil, false
}

// evalRound rounds half to even, as Python does, so round(2.5) is 2
// and round(3.5) is 4.
func evalRound(args []any, pos int) (any, error) {
	argErr := func(reason string) (any, error) {
		return nil, &Error{Offset: pos, Construct: "round", Reason: reason}
	}
	if len(args) == 0 || len(args) > 2 {
		return argErr("round() takes one or two arguments")
	}

	var digits int64
	if len(args) == 2 {
		d, ok := args[1].(int64)
		if !ok {
			return argErr(fmt.Sprintf("round() second argument must be an int, not %s", typeName(args[1])))
		}
		digits = d
	}

	switch v := args[0].(type) {
	case int64:
		if len(args) == 1 || digits >= 0 {
			return v, nil
		}
		if digits < -18 {
			return int64(0), nil
		}
		// Negative digits round away whole decimal places.
		scale := int64(math.Pow10(int(-digits)))
		half := scale / 2
		q := floorDivInt(v+half, scale)
		if modInt(v+half, scale) == 0 && q%2 != 0 {
			q--
		}
		return q * scale, nil
	case float64:
		if len(args) == 1 {
			return int64(math.RoundToEven(v)), nil
		}
		scale := math.Pow10(int(digits))
		return math.RoundToEven(v*scale) / scale, nil
	}
	return argErr(fmt.Sprintf("round() argument must be a number, not %s", typeName(args[0])))
}

func evalRange(args []any, pos int) (any, error) {
	argErr := func(reason string) (any, error) {
		return nil, &Error{Offset: pos, Construct: "range", Reason: reason}
	}
	if len(args) == 0 || len(args) > 3 {
		return argErr("range() takes one to three arguments")
	}
	bounds := make([]int64, len(args))
	for i, a := range args {
		v, ok := a.(int64)
		if !ok {
			return argErr(fmt.Sprintf("range() arguments must be ints, not %s", typeName(a)))
		}
		bounds[i] = v
	}

	var start, stop, step int64 = 0, 0, 1
	switch len(bounds) {
	case 1:
		stop = bounds[0]
	case 2:
		start, stop = bounds[0], bounds[1]
	case 3:
		start, stop, step = bounds[0], bounds[1], bounds[2]
		if step == 0 {
			return argErr("range() step argument must not be zero")
		}
	}

	var n int64
	if step > 0 && stop > start {
		n = (stop - start + step - 1) / step
	} else if step < 0 && stop < start {
		n = (start - stop + (-step) - 1) / (-step)
	}
	if n > maxRangeLen {
		return argErr(fmt.Sprintf("range() result exceeds %d elements", maxRangeLen))
	}

	out := make([]any, 0, n)
	for v := start; (step > 0 && v < stop) || (step < 0 && v > stop); v += step {
		out = append(out, v)
	}
	return out, nil
}
