package expr

import "strings"

// allowedCalls is the closed set of callable names. Anything else,
// including attribute and computed call targets, is rejected when the
// expression is compiled.
var allowedCalls = map[string]bool{
	"len": true, "min": true, "max": true, "sum": true,
	"any": true, "all": true, "abs": true, "round": true,
	"int": true, "float": true, "str": true, "bool": true,
	"range": true, "value": true,
}

// check walks the tree and rejects constructs that could reach outside
// the evaluator: dunder names, dunder attributes, and calls to anything
// that is not one of the built-in functions.
func check(n node) error {
	switch n := n.(type) {
	case *literalNode:
		return nil

	case *nameNode:
		if strings.HasPrefix(n.name, "__") {
			return &Error{Offset: n.pos, Construct: n.name, Reason: "names beginning with '__' are not allowed"}
		}
		return nil

	case *listNode:
		return checkAll(n.items)

	case *tupleNode:
		return checkAll(n.items)

	case *setNode:
		return checkAll(n.items)

	case *dictNode:
		if err := checkAll(n.keys); err != nil {
			return err
		}
		return checkAll(n.values)

	case *unaryNode:
		return check(n.operand)

	case *binaryNode:
		if err := check(n.left); err != nil {
			return err
		}
		return check(n.right)

	case *boolNode:
		return checkAll(n.values)

	case *compareNode:
		if err := check(n.left); err != nil {
			return err
		}
		return checkAll(n.operands)

	case *condNode:
		if err := check(n.test); err != nil {
			return err
		}
		if err := check(n.body); err != nil {
			return err
		}
		return check(n.orelse)

	case *attrNode:
		if strings.HasPrefix(n.attr, "__") {
			return &Error{Offset: n.pos, Construct: n.attr, Reason: "attributes beginning with '__' are not allowed"}
		}
		return check(n.value)

	case *indexNode:
		if err := check(n.value); err != nil {
			return err
		}
		return check(n.index)

	case *callNode:
		fn, ok := n.fn.(*nameNode)
		if !ok {
			return &Error{Offset: n.pos, Construct: "call", Reason: "only built-in functions may be called"}
		}
		if !allowedCalls[fn.name] {
			return &Error{Offset: fn.pos, Construct: fn.name, Reason: "is not a callable function"}
		}
		return checkAll(n.args)
	}
	return nil
}

func checkAll(nodes []node) error {
	for _, n := range nodes {
		if err := check(n); err != nil {
			return err
		}
	}
	return nil
}
